package gcsuploader

import (
	"context"

	"github.com/dvloznov/fintrack/internal/gcs"
)

// Re-export interface from shared package for callers that only import gcsuploader.
type StorageService = gcs.StorageService

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage.
type GCSStorageService struct{}

// NewGCSStorageService creates a new instance of GCSStorageService.
func NewGCSStorageService() *GCSStorageService {
	return &GCSStorageService{}
}

// FetchFromGCS delegates to the package-level FetchFromGCS function.
func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, gcsURI)
}

// UploadBytes delegates to the package-level UploadBytes function.
func (s *GCSStorageService) UploadBytes(ctx context.Context, gcsURI string, data []byte, contentType string) error {
	return UploadBytes(ctx, gcsURI, data, contentType)
}

// ExtractFilenameFromGCSURI delegates to the package-level function.
func (s *GCSStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return ExtractFilenameFromGCSURI(uri)
}
