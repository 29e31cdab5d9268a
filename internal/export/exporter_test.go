package export

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authorsync/internal/airtable"
	"authorsync/pkg/models"
)

type stubSource struct {
	record    *airtable.Record
	getErr    error
	writeback map[string]any
}

func (s *stubSource) GetRecord(_ context.Context, id string) (*airtable.Record, error) {
	return s.record, s.getErr
}

func (s *stubSource) UpdateRecord(_ context.Context, id string, fields map[string]any) error {
	s.writeback = fields
	return nil
}

func newExporter(source Source, endpoint string) *Exporter {
	return &Exporter{
		Source:       source,
		Endpoint:     endpoint,
		Username:     "exporter",
		Password:     "s3cret",
		StatusField:  "Sync Status",
		MessageField: "Sync Response",
		HTTP:         &http.Client{Timeout: 5 * time.Second},
		Logger:       log.Default(),
	}
}

func record(fields map[string]any) *airtable.Record {
	return &airtable.Record{ID: "rec123", Fields: fields}
}

func TestBuildPayloadOmitsEmptyFields(t *testing.T) {
	p := BuildPayload(record(map[string]any{
		"SKU":                "A1",
		"Name":               "Jane Doe",
		"Author Description": "# Bio",
		"Status":             "",
		"Profile Image":      "   ",
	}))

	assert.Equal(t, "rec123", p.RecordID)
	assert.Equal(t, "A1", p.SKU)
	assert.True(t, p.Has(models.FieldName))
	assert.True(t, p.Has(models.FieldAuthorDesc))
	// empty values are omitted, never sent as ""
	assert.False(t, p.Has(models.FieldStatus))
	assert.False(t, p.Has(models.FieldProfileImage))
}

func TestBuildPayloadDerivesSlug(t *testing.T) {
	p := BuildPayload(record(map[string]any{
		"SKU":  "A1",
		"Name": "Dr. Jane Q. Doe",
	}))

	slug, ok := p.Get(models.FieldSlug)
	require.True(t, ok)
	assert.Equal(t, "dr-jane-q-doe", slug)

	// an explicit slug wins over derivation
	p = BuildPayload(record(map[string]any{
		"SKU":  "A1",
		"Name": "Jane Doe",
		"Slug": "custom-slug",
	}))
	slug, _ = p.Get(models.FieldSlug)
	assert.Equal(t, "custom-slug", slug)
}

func TestBuildPayloadAuthorTitleFallback(t *testing.T) {
	p := BuildPayload(record(map[string]any{
		"SKU":          "A1",
		"Author Title": "Jane Doe",
	}))

	v, ok := p.Get(models.FieldAuthorTitle)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", v)

	slug, ok := p.Get(models.FieldSlug)
	require.True(t, ok)
	assert.Equal(t, "jane-doe", slug)
}

func TestRunSuccess(t *testing.T) {
	var received models.SyncPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "exporter", user)
		assert.Equal(t, "s3cret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		_, _ = w.Write([]byte(`{"success":true,"data":{"term_id":7,"term_url":"https://site.test/author/jane-doe","action":"created","changed_fields":{"core":["name","slug"],"meta":[]}}}`))
	}))
	defer srv.Close()

	source := &stubSource{record: record(map[string]any{"SKU": "A1", "Name": "Jane Doe"})}
	e := newExporter(source, srv.URL)

	res, err := e.Run(context.Background(), "rec123")
	require.NoError(t, err)

	assert.Equal(t, int64(7), res.TermID)
	assert.Equal(t, "created", res.Action)
	assert.Equal(t, "A1", received.SKU)

	require.NotNil(t, source.writeback)
	assert.Equal(t, "ok", source.writeback["Sync Status"])
	assert.Contains(t, source.writeback["Sync Response"], "created term 7")
}

func TestRunMissingCredential(t *testing.T) {
	e := newExporter(&stubSource{}, "http://unused.test")
	e.Password = ""

	_, err := e.Run(context.Background(), "rec123")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestRunRecordNotFound(t *testing.T) {
	e := newExporter(&stubSource{record: nil}, "http://unused.test")

	_, err := e.Run(context.Background(), "recGONE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunEndpointRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"MissingKey","message":"sku is required"}`))
	}))
	defer srv.Close()

	source := &stubSource{record: record(map[string]any{"Name": "Jane Doe"})}
	e := newExporter(source, srv.URL)

	_, err := e.Run(context.Background(), "rec123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MissingKey")

	require.NotNil(t, source.writeback)
	assert.Equal(t, "error", source.writeback["Sync Status"])
}

func TestRunTransportFailureRecordedNotRetried(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		panic(http.ErrAbortHandler) // drops the connection mid-reply
	}))
	defer srv.Close()

	source := &stubSource{record: record(map[string]any{"SKU": "A1", "Name": "Jane Doe"})}
	e := newExporter(source, srv.URL)

	_, err := e.Run(context.Background(), "rec123")
	require.Error(t, err)
	assert.Equal(t, 1, hits)

	require.NotNil(t, source.writeback)
	assert.Equal(t, "error", source.writeback["Sync Status"])
}

func TestRunUnparsableSuccessBodyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy interfered</html>`))
	}))
	defer srv.Close()

	source := &stubSource{record: record(map[string]any{"SKU": "A1", "Name": "Jane Doe"})}
	e := newExporter(source, srv.URL)

	_, err := e.Run(context.Background(), "rec123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparsable")
}

func TestWritebackMessageIsTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer srv.Close()

	source := &stubSource{record: record(map[string]any{"SKU": "A1", "Name": "Jane Doe"})}
	e := newExporter(source, srv.URL)

	_, err := e.Run(context.Background(), "rec123")
	require.Error(t, err)

	msg, ok := source.writeback["Sync Response"].(string)
	require.True(t, ok)
	assert.LessOrEqual(t, len([]rune(msg)), maxMessageLen)
}
