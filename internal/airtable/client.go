package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to an Airtable-style record API: GET one record, PATCH
// writeback fields. Authentication is a bearer token resolved from the
// environment by the caller.
type Client struct {
	BaseURL string
	APIKey  string
	BaseID  string
	Table   string
	HTTP    *http.Client
}

func New(baseURL, apiKey, baseID, table string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		BaseID:  baseID,
		Table:   table,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Record is one row of the source table. Fields is duck-typed on purpose:
// the table may carry columns this system never reads.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Str reads a field as a trimmed string; non-string and absent values
// come back empty.
func (r *Record) Str(key string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	v, ok := r.Fields[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func (c *Client) recordURL(id string) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		c.BaseURL, url.PathEscape(c.BaseID), url.PathEscape(c.Table), url.PathEscape(id))
}

// GetRecord fetches one record by id. A 404 returns (nil, nil).
func (c *Client) GetRecord(ctx context.Context, id string) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.recordURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("airtable: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("airtable: request: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("airtable: status %d: %s", resp.StatusCode, string(body))
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("airtable: decode: %w", err)
	}
	return &rec, nil
}

// UpdateRecord patches the given fields onto the record. Used for the
// status/response writeback after a sync attempt.
func (c *Client) UpdateRecord(ctx context.Context, id string, fields map[string]any) error {
	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return fmt.Errorf("airtable: marshal fields: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.recordURL(id), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("airtable: build patch: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("airtable: patch: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("airtable: patch status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
