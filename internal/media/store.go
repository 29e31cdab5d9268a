package media

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store resolves profile image references into attachment ids. A reference
// is either a numeric attachment id (used as-is) or a URL; URLs are matched
// against already-sideloaded attachments before any download happens.
type Store struct {
	DB     *sql.DB
	Dir    string
	Client *http.Client
	Logger *log.Logger
}

func NewStore(db *sql.DB, dir string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		DB:     db,
		Dir:    dir,
		Client: &http.Client{Timeout: 30 * time.Second},
		Logger: logger,
	}
}

// Resolve turns a payload image value into an attachment id.
func (s *Store) Resolve(ctx context.Context, value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty image reference")
	}

	// already an attachment id
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		return id, nil
	}

	if id, ok, err := s.findByURL(ctx, value); err != nil {
		return 0, err
	} else if ok {
		return id, nil
	}

	return s.sideload(ctx, value)
}

func (s *Store) findByURL(ctx context.Context, url string) (int64, bool, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT attachment_id
		FROM attachments
		WHERE source_url = ?
	`, url)

	var id int64
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("find attachment: %w", err)
	}
	return id, true, nil
}

// sideload downloads the URL, writes the bytes under the media dir and
// records the attachment. A concurrent sideload of the same URL loses the
// unique-insert race and re-resolves to the winner's row.
func (s *Store) sideload(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("sideload: build request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sideload: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("sideload: status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return 0, fmt.Errorf("sideload: read body: %w", err)
	}
	if len(body) == 0 {
		return 0, fmt.Errorf("sideload: empty body for %s", url)
	}

	mimeType := contentType(resp, body)

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return 0, fmt.Errorf("sideload: media dir: %w", err)
	}

	name := uuid.NewString() + extensionFor(mimeType)
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return 0, fmt.Errorf("sideload: write file: %w", err)
	}

	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO attachments (source_url, file_path, mime_type)
		VALUES (?, ?, ?)
	`, url, path, mimeType)
	if err != nil {
		// lost an insert race on source_url: keep the winner's row
		if id, ok, ferr := s.findByURL(ctx, url); ferr == nil && ok {
			_ = os.Remove(path)
			return id, nil
		}
		_ = os.Remove(path)
		return 0, fmt.Errorf("sideload: insert attachment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sideload: attachment id: %w", err)
	}

	s.Logger.Printf("[media] sideloaded %s as attachment %d (%s)", url, id, mimeType)
	return id, nil
}

func contentType(resp *http.Response, body []byte) string {
	ct := resp.Header.Get("Content-Type")
	if ct != "" {
		if parsed, _, err := mime.ParseMediaType(ct); err == nil && parsed != "application/octet-stream" {
			return parsed
		}
	}
	return http.DetectContentType(body)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
