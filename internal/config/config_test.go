package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FINTRACK_DATA_DIR", "/tmp/fintrack-test")
	t.Setenv("FINTRACK_LOG_LEVEL", "")
	t.Setenv("FINTRACK_LOG_FORMAT", "")
	t.Setenv("GEMINI_MODEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/fintrack-test", cfg.DataDir)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, DefaultGeminiModel, cfg.GeminiModel)
	assert.Equal(t, DefaultBQDataset, cfg.BigQueryDataset)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	content := "FINTRACK_GCS_BUCKET=my-bucket\nGEMINI_API_KEY=secret\nFINTRACK_LOG_FORMAT=json\nFINTRACK_API_TOKEN=tok\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	// godotenv does not override variables that are already set.
	t.Setenv("FINTRACK_GCS_BUCKET", "")
	os.Unsetenv("FINTRACK_GCS_BUCKET")
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")
	t.Setenv("FINTRACK_LOG_FORMAT", "")
	os.Unsetenv("FINTRACK_LOG_FORMAT")
	t.Setenv("FINTRACK_API_TOKEN", "")
	os.Unsetenv("FINTRACK_API_TOKEN")

	cfg, err := Load(envPath)
	require.NoError(t, err)

	assert.Equal(t, "my-bucket", cfg.GCSBucket)
	assert.Equal(t, "secret", cfg.GeminiAPIKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "tok", cfg.APIToken)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"console ok", Config{DataDir: "x", LogFormat: "console"}, false},
		{"json with bucket", Config{GCSBucket: "b", LogFormat: "json"}, false},
		{"bad format", Config{DataDir: "x", LogFormat: "xml"}, true},
		{"no storage", Config{LogFormat: "console"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
