package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"authorsync/pkg/database"
)

func main() {
	out := flag.String("out", "data/terms.csv", "output CSV path")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportTerms(ctx, db, *out); err != nil {
		log.Fatalf("export terms failed: %v", err)
	}

	log.Printf("exported terms to %s", *out)
}

func exportTerms(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"term_id", "name", "slug", "description", "meta_key", "meta_value"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT t.term_id, t.name, t.slug, t.description,
		       COALESCE(m.meta_key, ''), COALESCE(m.meta_value, '')
		FROM terms t
		LEFT JOIN term_meta m ON m.term_id = t.term_id
		ORDER BY t.term_id, m.meta_key
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                       int64
			name, slug, desc, mk, mv string
		)
		if err := rows.Scan(&id, &name, &slug, &desc, &mk, &mv); err != nil {
			return err
		}
		if err := w.Write([]string{strconv.FormatInt(id, 10), name, slug, desc, mk, mv}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
