package store

import (
	"context"
	"fmt"
)

// OpenBackend picks the key-value backend: a GCS bucket when bucket is set,
// otherwise a directory on disk. The returned close func is never nil.
func OpenBackend(ctx context.Context, dataDir, bucket, prefix string) (KV, func() error, error) {
	if bucket != "" {
		kv, err := NewGCSKV(ctx, bucket, prefix)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenBackend: %w", err)
		}
		return kv, kv.Close, nil
	}

	kv, err := NewFileKV(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("OpenBackend: %w", err)
	}
	return kv, func() error { return nil }, nil
}
