package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults used when the environment does not override them.
const (
	DefaultDataDir     = ".fintrack"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
	DefaultPort        = "8080"
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultBQDataset   = "fintrack"
)

// Config holds runtime settings for the CLI and API binaries.
type Config struct {
	// DataDir is where the file-backed key-value store keeps its documents.
	DataDir string
	// GCSBucket, when set, moves the key-value store into a Cloud Storage bucket.
	GCSBucket string
	GCSPrefix string

	LogLevel  string
	LogFormat string // console | json

	Port string
	// APIToken, when set, is required as a bearer token on /api/ routes.
	APIToken string

	GeminiAPIKey string
	GeminiModel  string

	BigQueryProject string
	BigQueryDataset string

	NotionToken    string
	NotionLentDBID string
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := &Config{
		DataDir:         getEnv("FINTRACK_DATA_DIR", defaultDataDir()),
		GCSBucket:       os.Getenv("FINTRACK_GCS_BUCKET"),
		GCSPrefix:       getEnv("FINTRACK_GCS_PREFIX", "fintrack/"),
		LogLevel:        strings.ToLower(getEnv("FINTRACK_LOG_LEVEL", DefaultLogLevel)),
		LogFormat:       strings.ToLower(getEnv("FINTRACK_LOG_FORMAT", DefaultLogFormat)),
		Port:            getEnv("FINTRACK_PORT", DefaultPort),
		APIToken:        os.Getenv("FINTRACK_API_TOKEN"),
		GeminiAPIKey:    firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", DefaultGeminiModel),
		BigQueryProject: os.Getenv("BIGQUERY_PROJECT"),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", DefaultBQDataset),
		NotionToken:     os.Getenv("NOTION_TOKEN"),
		NotionLentDBID:  os.Getenv("NOTION_LENT_DB_ID"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have a closed set of options.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config: FINTRACK_LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	if c.DataDir == "" && c.GCSBucket == "" {
		return fmt.Errorf("config: either FINTRACK_DATA_DIR or FINTRACK_GCS_BUCKET is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}
