package taxonomy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"authorsync/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// IsConflict reports whether err is a store-level uniqueness violation
// (duplicate slug, or two concurrent creates racing on the SKU index).
func IsConflict(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}

// FindBySKU resolves a term by its SKU metadata value. The SKU is the
// durable join key; this lookup always runs before any slug fallback.
func (r *Repo) FindBySKU(ctx context.Context, metaKey, sku string) (*models.Term, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT t.term_id, t.name, t.slug, t.description
		FROM terms t
		JOIN term_meta m ON m.term_id = t.term_id
		WHERE m.meta_key = ? AND m.meta_value = ?
	`, metaKey, sku)
	return scanTerm(row)
}

func (r *Repo) FindBySlug(ctx context.Context, slug string) (*models.Term, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT term_id, name, slug, description
		FROM terms
		WHERE slug = ?
	`, slug)
	return scanTerm(row)
}

func (r *Repo) GetTerm(ctx context.Context, id int64) (*models.Term, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT term_id, name, slug, description
		FROM terms
		WHERE term_id = ?
	`, id)
	return scanTerm(row)
}

func (r *Repo) CreateTerm(ctx context.Context, name, slug, description string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO terms (name, slug, description)
		VALUES (?, ?, ?)
	`, name, slug, description)
	if err != nil {
		return 0, fmt.Errorf("create term: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create term id: %w", err)
	}
	return id, nil
}

func (r *Repo) UpdateTerm(ctx context.Context, t models.Term) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE terms
		SET name = ?, slug = ?, description = ?
		WHERE term_id = ?
	`, t.Name, t.Slug, t.Description, t.ID)
	if err != nil {
		return fmt.Errorf("update term: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update term rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update term: term %d not found", t.ID)
	}
	return nil
}

// DeleteTerm removes the term outright; metadata rows cascade.
func (r *Repo) DeleteTerm(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM terms
		WHERE term_id = ?
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete term: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) GetMeta(ctx context.Context, termID int64, key string) (string, bool, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT meta_value
		FROM term_meta
		WHERE term_id = ? AND meta_key = ?
	`, termID, key)

	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get meta %s: %w", key, err)
	}
	return v, true, nil
}

// SetMeta inserts or replaces one metadata entry. Writing a SKU value that
// another term already holds trips the partial unique index; callers detect
// that with IsConflict.
func (r *Repo) SetMeta(ctx context.Context, termID int64, key, value string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO term_meta (term_id, meta_key, meta_value)
		VALUES (?, ?, ?)
		ON CONFLICT(term_id, meta_key) DO UPDATE SET
			meta_value = excluded.meta_value
	`, termID, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

func (r *Repo) DeleteMeta(ctx context.Context, termID int64, key string) error {
	_, err := r.DB.ExecContext(ctx, `
		DELETE FROM term_meta
		WHERE term_id = ? AND meta_key = ?
	`, termID, key)
	if err != nil {
		return fmt.Errorf("delete meta %s: %w", key, err)
	}
	return nil
}

// MetaForTerm returns all metadata entries of one term.
func (r *Repo) MetaForTerm(ctx context.Context, termID int64) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT meta_key, meta_value
		FROM term_meta
		WHERE term_id = ?
	`, termID)
	if err != nil {
		return nil, fmt.Errorf("meta for term: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan meta row: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) ListTerms(ctx context.Context, limit, offset int) ([]models.Term, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM terms`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count terms: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT term_id, name, slug, description
		FROM terms
		ORDER BY name ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list terms: %w", err)
	}
	defer rows.Close()

	out := make([]models.Term, 0, limit)
	for rows.Next() {
		var t models.Term
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Description); err != nil {
			return nil, 0, fmt.Errorf("scan term row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

func scanTerm(row *sql.Row) (*models.Term, error) {
	var t models.Term
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Description); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan term: %w", err)
	}
	return &t, nil
}
