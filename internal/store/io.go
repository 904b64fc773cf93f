package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// readBucket decodes the bucket document at path. A missing file is an
// empty bucket.
func readBucket(path string) (map[string][]byte, error) {
	m := make(map[string][]byte)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	if err := decode(b, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// writeBucket replaces the bucket document at path through a temp file
// and rename, so readers see the old or the new document.
func writeBucket(path string, m map[string][]byte) error {
	b, err := encode(m)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
