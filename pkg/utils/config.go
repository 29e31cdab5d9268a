package utils

import (
	"os"
	"strconv"
	"time"
)

// ServerConfig holds everything the sync server reads from the
// environment. Nothing here is hardcoded at call sites.
type ServerConfig struct {
	HTTPAddr  string
	EventAddr string // TCP event feed

	SiteBaseURL string // used to build term_url in responses
	SKUMetaKey  string // metadata key holding the external SKU
	MediaDir    string // sideloaded files live here

	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:    getenv("AUTHORSYNC_HTTP_ADDR", ":8080"),
		EventAddr:   getenv("AUTHORSYNC_EVENT_ADDR", ":7070"),
		SiteBaseURL: getenv("AUTHORSYNC_SITE_URL", "http://localhost:8080"),
		SKUMetaKey:  getenv("AUTHORSYNC_SKU_META_KEY", "author_sku"),
		MediaDir:    getenv("AUTHORSYNC_MEDIA_DIR", defaultMediaDir()),
		JWTSecret:   getenv("AUTHORSYNC_JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:   getenv("AUTHORSYNC_JWT_ISSUER", "authorsync"),
		JWTDuration: time.Duration(envInt("AUTHORSYNC_JWT_TTL_HOURS", 24)) * time.Hour,
	}
}

// ExportConfig configures the exporter CLI: where to read the source
// record from and where to POST the payload.
type ExportConfig struct {
	// sync endpoint
	Endpoint string
	Username string
	Password string

	// source API
	SourceBaseURL string
	SourceAPIKey  string
	SourceBase    string
	SourceTable   string

	// writeback field names on the source record
	StatusField  string
	MessageField string
}

func LoadExportConfig() ExportConfig {
	return ExportConfig{
		Endpoint:      getenv("AUTHORSYNC_ENDPOINT", "http://localhost:8080/sync/author"),
		Username:      os.Getenv("AUTHORSYNC_USERNAME"),
		Password:      os.Getenv("AUTHORSYNC_PASSWORD"),
		SourceBaseURL: getenv("AIRTABLE_BASE_URL", "https://api.airtable.com/v0"),
		SourceAPIKey:  os.Getenv("AIRTABLE_API_KEY"),
		SourceBase:    os.Getenv("AIRTABLE_BASE_ID"),
		SourceTable:   getenv("AIRTABLE_TABLE", "Speakers"),
		StatusField:   getenv("AUTHORSYNC_STATUS_FIELD", "Sync Status"),
		MessageField:  getenv("AUTHORSYNC_MESSAGE_FIELD", "Sync Response"),
	}
}

func defaultMediaDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return home + "/.authorsync/media"
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
