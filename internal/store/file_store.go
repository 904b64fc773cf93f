package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// File is a KV that keeps one CBOR document per bucket under a directory.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates dir if needed and returns a File KV rooted there.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &File{dir: dir}, nil
}

func (f *File) path(bucket string) string {
	return filepath.Join(f.dir, bucket+".cbor")
}

func (f *File) load(bucket string) (map[string][]byte, error) {
	m, err := readBucket(f.path(bucket))
	if err != nil {
		return nil, fmt.Errorf("read bucket %s: %w", bucket, err)
	}
	return m, nil
}

func (f *File) Get(_ context.Context, bucket, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.load(bucket)
	if err != nil {
		return nil, false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (f *File) Put(_ context.Context, bucket, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.load(bucket)
	if err != nil {
		return err
	}
	m[key] = append([]byte(nil), value...)
	return writeBucket(f.path(bucket), m)
}

func (f *File) Delete(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.load(bucket)
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return writeBucket(f.path(bucket), m)
}

func (f *File) Keys(_ context.Context, bucket string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.load(bucket)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *File) Close() error { return nil }
