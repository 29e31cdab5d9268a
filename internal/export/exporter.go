package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"authorsync/internal/airtable"
	"authorsync/pkg/models"
	"authorsync/pkg/utils"
)

var (
	ErrNotFound          = errors.New("source record not found")
	ErrMissingCredential = errors.New("missing sync credential")
)

// messages written back to the source record are capped at this length
const maxMessageLen = 500

// Source is the record API the exporter reads from and writes status
// back to. Implemented by airtable.Client.
type Source interface {
	GetRecord(ctx context.Context, id string) (*airtable.Record, error)
	UpdateRecord(ctx context.Context, id string, fields map[string]any) error
}

// Exporter reads one source record, builds the sparse sync payload and
// POSTs it to the reconciliation endpoint with Basic auth. One shot, no
// retries; the outcome lands back on the record's status fields.
type Exporter struct {
	Source   Source
	Endpoint string
	Username string
	Password string

	StatusField  string
	MessageField string

	HTTP   *http.Client
	Logger *log.Logger
}

func New(source Source, cfg utils.ExportConfig) *Exporter {
	return &Exporter{
		Source:       source,
		Endpoint:     cfg.Endpoint,
		Username:     cfg.Username,
		Password:     cfg.Password,
		StatusField:  cfg.StatusField,
		MessageField: cfg.MessageField,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		Logger: log.Default(),
	}
}

// source table columns, in the order they map onto payload field names
var columnMap = []struct {
	column string
	field  string
}{
	{"Name", models.FieldName},
	{"Author Title", models.FieldAuthorTitle},
	{"Slug", models.FieldSlug},
	{"Author Description", models.FieldAuthorDesc},
	{"AS Description", models.FieldASDesc},
	{"News Description", models.FieldNewsDesc},
	{"Profile Image", models.FieldProfileImage},
	{"Status", models.FieldStatus},
}

// BuildPayload extracts the recognized columns from the record. Empty
// values are omitted rather than sent as "": the reconciler must be able
// to tell "no change requested" from "clear this field". A missing slug
// is derived from the name.
func BuildPayload(rec *airtable.Record) models.SyncPayload {
	p := models.SyncPayload{
		RecordID: rec.ID,
		SKU:      rec.Str("SKU"),
		Fields:   make(map[string]*string),
	}

	for _, m := range columnMap {
		if v := rec.Str(m.column); v != "" {
			if _, taken := p.Fields[m.field]; !taken {
				val := v
				p.Fields[m.field] = &val
			}
		}
	}

	if _, ok := p.Fields[models.FieldSlug]; !ok {
		name := ""
		if v, ok := p.Fields[models.FieldName]; ok {
			name = *v
		} else if v, ok := p.Fields[models.FieldAuthorTitle]; ok {
			name = *v
		}
		if slug := utils.Slugify(name); slug != "" {
			p.Fields[models.FieldSlug] = &slug
		}
	}

	return p
}

// Run syncs one record end to end and reports the reconciler's result.
func (e *Exporter) Run(ctx context.Context, recordID string) (*models.SyncResult, error) {
	if e.Username == "" || e.Password == "" {
		return nil, ErrMissingCredential
	}

	rec, err := e.Source.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("fetch record %s: %w", recordID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("record %s: %w", recordID, ErrNotFound)
	}

	payload := BuildPayload(rec)

	result, err := e.post(ctx, payload)
	if err != nil {
		// transport and endpoint errors are not retried; the failure is
		// recorded on the record and surfaced to the caller
		e.writeback(ctx, recordID, "error", err.Error())
		return nil, err
	}

	e.writeback(ctx, recordID, "ok", fmt.Sprintf("%s term %d", result.Action, result.TermID))
	return result, nil
}

type syncEnvelope struct {
	Success bool               `json:"success"`
	Data    *models.SyncResult `json:"data"`
	Code    string             `json:"code"`
	Error   string             `json:"error"`
	Message string             `json:"message"`
}

func (e *Exporter) post(ctx context.Context, payload models.SyncPayload) (*models.SyncResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(e.Username, e.Password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post payload: %w", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var env syncEnvelope
	parseErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if parseErr == nil && (env.Message != "" || env.Code != "" || env.Error != "") {
			code := env.Code
			if code == "" {
				code = env.Error
			}
			return nil, fmt.Errorf("sync rejected (%d %s): %s", resp.StatusCode, code, env.Message)
		}
		return nil, fmt.Errorf("sync failed with status %d: %s", resp.StatusCode, string(raw))
	}

	// a 2xx body we cannot parse is treated as a hard error rather than a
	// silent success
	if parseErr != nil || env.Data == nil {
		return nil, fmt.Errorf("sync returned status %d with unparsable body: %s", resp.StatusCode, string(raw))
	}

	return env.Data, nil
}

// writeback records the outcome on the source record. Failures here are
// logged only; the sync itself already happened (or already failed).
func (e *Exporter) writeback(ctx context.Context, recordID, status, message string) {
	fields := map[string]any{
		e.StatusField:  status,
		e.MessageField: utils.Truncate(message, maxMessageLen),
	}
	if err := e.Source.UpdateRecord(ctx, recordID, fields); err != nil {
		e.Logger.Printf("[export] writeback for %s failed: %v", recordID, err)
	}
}
