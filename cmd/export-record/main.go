package main

import (
	"context"
	"flag"
	"log"
	"time"

	"authorsync/internal/airtable"
	"authorsync/internal/export"
	"authorsync/pkg/utils"
)

func main() {
	recordID := flag.String("record", "", "source record id to sync (required)")
	flag.Parse()

	if *recordID == "" {
		log.Fatal("usage: export-record -record <id>")
	}

	cfg := utils.LoadExportConfig()
	if cfg.SourceAPIKey == "" {
		log.Fatal("AIRTABLE_API_KEY is not set")
	}
	if cfg.SourceBase == "" {
		log.Fatal("AIRTABLE_BASE_ID is not set")
	}

	source := airtable.New(cfg.SourceBaseURL, cfg.SourceAPIKey, cfg.SourceBase, cfg.SourceTable)
	exporter := export.New(source, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := exporter.Run(ctx, *recordID)
	if err != nil {
		log.Fatalf("sync failed: %v", err)
	}

	log.Printf("synced record %s: %s term %d (%s)", *recordID, result.Action, result.TermID, result.TermURL)
}
