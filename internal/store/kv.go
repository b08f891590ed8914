package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when a key or record does not exist.
var ErrNotFound = errors.New("not found")

// KV is a whole-document key-value store. Each key holds one JSON document.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// FileKV keeps one file per key under a directory.
type FileKV struct {
	mu  sync.Mutex
	dir string
}

// NewFileKV creates the directory if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewFileKV: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

func (kv *FileKV) path(key string) string {
	return filepath.Join(kv.dir, key+".json")
}

func (kv *FileKV) Get(ctx context.Context, key string) ([]byte, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	data, err := os.ReadFile(kv.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FileKV.Get %s: %w", key, err)
	}
	return data, nil
}

// Set replaces the document atomically via a temp file and rename.
func (kv *FileKV) Set(ctx context.Context, key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	tmp, err := os.CreateTemp(kv.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("FileKV.Set %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("FileKV.Set %s: write: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("FileKV.Set %s: sync: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("FileKV.Set %s: close: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), kv.path(key)); err != nil {
		return fmt.Errorf("FileKV.Set %s: rename: %w", key, err)
	}
	return nil
}

func (kv *FileKV) Remove(ctx context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if err := os.Remove(kv.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("FileKV.Remove %s: %w", key, err)
	}
	return nil
}

// MemoryKV is an in-process KV, used by tests and dry runs.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (kv *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	v, ok := kv.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (kv *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	kv.data[key] = append([]byte(nil), value...)
	return nil
}

func (kv *MemoryKV) Remove(ctx context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	delete(kv.data, key)
	return nil
}
