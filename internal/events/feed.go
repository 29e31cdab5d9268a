package events

import (
	"bufio"
	"log"
	"net"
)

// Feed is the TCP side of the event stream: subscribers connect and
// receive one JSON event per line. Incoming data is ignored.
type Feed struct {
	Addr string
	Hub  *Hub

	ln net.Listener
}

func NewFeed(addr string, hub *Hub) *Feed {
	return &Feed{Addr: addr, Hub: hub}
}

func (f *Feed) Run() error {
	ln, err := net.Listen("tcp", f.Addr)
	if err != nil {
		return err
	}
	f.ln = ln
	log.Printf("[event-feed] listening on %s", f.Addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}

		f.Hub.Add(conn)
		f.Hub.Welcome(conn)
		log.Printf("[event-feed] subscriber connected: %s", conn.RemoteAddr())

		go func(c net.Conn) {
			defer func() {
				f.Hub.Remove(c)
				log.Printf("[event-feed] subscriber disconnected: %s", c.RemoteAddr())
			}()

			sc := bufio.NewScanner(c)
			for sc.Scan() {
				// subscribers are read-only
			}
		}(conn)
	}
}

func (f *Feed) Close() error {
	if f.ln == nil {
		return nil
	}
	return f.ln.Close()
}
