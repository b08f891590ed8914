package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
)

// GCSKV stores each key as an object under a prefix in a Cloud Storage bucket.
// It assumes Application Default Credentials are configured.
type GCSKV struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSKV creates a storage client for bucket. Call Close when done.
func NewGCSKV(ctx context.Context, bucket, prefix string) (*GCSKV, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSKV: create storage client: %w", err)
	}
	return &GCSKV{client: client, bucket: bucket, prefix: prefix}, nil
}

func (kv *GCSKV) Close() error {
	return kv.client.Close()
}

func (kv *GCSKV) object(key string) *storage.ObjectHandle {
	return kv.client.Bucket(kv.bucket).Object(path.Join(kv.prefix, key+".json"))
}

func (kv *GCSKV) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := kv.object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GCSKV.Get %s: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("GCSKV.Get %s: read: %w", key, err)
	}
	return data, nil
}

func (kv *GCSKV) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	w := kv.object(key).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		return fmt.Errorf("GCSKV.Set %s: write: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("GCSKV.Set %s: finalize: %w", key, err)
	}
	return nil
}

func (kv *GCSKV) Remove(ctx context.Context, key string) error {
	err := kv.object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("GCSKV.Remove %s: %w", key, err)
	}
	return nil
}
