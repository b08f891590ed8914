package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %s", log.GetLevel())
	}
}

func TestNewWithOptions_Level(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := NewWithOptions(Options{Level: tt.level, Out: &bytes.Buffer{}})
			if log.GetLevel() != tt.want {
				t.Errorf("level %q: got %s, want %s", tt.level, log.GetLevel(), tt.want)
			}
		})
	}
}

func TestNewWithOptions_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithOptions(Options{Format: "json", Out: buf})

	log.Info().Str("component", "importer").Msg("imported")

	output := buf.String()
	if !strings.HasPrefix(output, "{") {
		t.Errorf("Expected JSON output, got: %s", output)
	}
	if !strings.Contains(output, `"component":"importer"`) {
		t.Errorf("Expected component field, got: %s", output)
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithOptions(Options{Format: "json", Out: buf}))

	retrieved := FromContext(ctx)
	retrieved.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_NoLogger(t *testing.T) {
	log := FromContext(context.Background())

	if log.GetLevel() != zerolog.Disabled {
		t.Errorf("Expected disabled logger, got %s", log.GetLevel())
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithOptions(Options{Format: "json", Out: buf}), map[string]interface{}{
		"transaction_id": "t-123",
		"action":         "toggle",
	})
	log.Info().Msg("lent updated")

	output := buf.String()
	if !strings.Contains(output, "transaction_id") || !strings.Contains(output, "t-123") {
		t.Errorf("Expected output to contain transaction_id field, got: %s", output)
	}
	if !strings.Contains(output, "toggle") {
		t.Errorf("Expected output to contain action field, got: %s", output)
	}
}
