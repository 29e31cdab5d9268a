package events

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastsToTCPSubscribers(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	hub.Add(server)
	defer hub.Remove(server)

	done := make(chan TermEvent, 1)
	go func() {
		sc := bufio.NewScanner(client)
		if sc.Scan() {
			var ev TermEvent
			if json.Unmarshal(sc.Bytes(), &ev) == nil {
				done <- ev
			}
		}
	}()

	hub.BroadcastJSON(TermEvent{
		Type:   TermCreated,
		TermID: 7,
		SKU:    "A1",
		At:     time.Now().UTC(),
	})

	select {
	case ev := <-done:
		assert.Equal(t, TermCreated, ev.Type)
		assert.Equal(t, int64(7), ev.TermID)
		assert.Equal(t, "A1", ev.SKU)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestHubDropsDeadConnections(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	hub.Add(server)
	require.Equal(t, 1, hub.Stats().TCPClients)

	_ = client.Close()
	_ = server.Close()

	hub.BroadcastJSON(TermEvent{Type: TermUpdated, SKU: "A1"})
	assert.Equal(t, 0, hub.Stats().TCPClients)
}
