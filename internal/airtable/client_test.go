package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/appBASE/Speakers/rec123", r.URL.Path)

		_, _ = w.Write([]byte(`{"id":"rec123","fields":{"Name":"Jane Doe","SKU":"A1","Ignored Number":7}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "appBASE", "Speakers")
	rec, err := c.GetRecord(context.Background(), "rec123")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "rec123", rec.ID)
	assert.Equal(t, "Jane Doe", rec.Str("Name"))
	assert.Equal(t, "A1", rec.Str("SKU"))
	// non-string and absent fields read as empty
	assert.Equal(t, "", rec.Str("Ignored Number"))
	assert.Equal(t, "", rec.Str("Missing"))
}

func TestGetRecordNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "appBASE", "Speakers")
	rec, err := c.GetRecord(context.Background(), "recGONE")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGetRecordServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "appBASE", "Speakers")
	_, err := c.GetRecord(context.Background(), "rec123")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestUpdateRecord(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"rec123"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "appBASE", "Speakers")
	err := c.UpdateRecord(context.Background(), "rec123", map[string]any{
		"Sync Status": "ok",
	})
	require.NoError(t, err)

	fields, ok := got["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", fields["Sync Status"])
}
