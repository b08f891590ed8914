package gcs

import (
	"context"
	"strings"
)

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// FetchFromGCS downloads object bytes from the given gs:// URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// UploadBytes writes data to the given gs:// URI, replacing any existing object.
	UploadBytes(ctx context.Context, gcsURI string, data []byte, contentType string) error

	// ExtractFilenameFromGCSURI extracts the filename from a storage URI.
	ExtractFilenameFromGCSURI(uri string) string
}

// IsGCSURI reports whether s addresses a Cloud Storage object.
func IsGCSURI(s string) bool {
	return strings.HasPrefix(s, "gs://")
}
