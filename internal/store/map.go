package store

import (
	"context"
	"fmt"

	"walletlink/internal/domain"
	"walletlink/internal/domain/interfaces"
)

// Map is a typed view of one KV bucket.
type Map[V any] struct {
	kv     domain.KV
	bucket string
}

var _ interfaces.Store[struct{}] = (*Map[struct{}])(nil)

// NewMap returns the typed view of bucket in kv.
func NewMap[V any](kv domain.KV, bucket string) *Map[V] {
	return &Map[V]{kv: kv, bucket: bucket}
}

func (m *Map[V]) Set(ctx context.Context, key string, v V) error {
	b, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", m.bucket, key, err)
	}
	return m.kv.Put(ctx, m.bucket, key, b)
}

func (m *Map[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var v V
	b, ok, err := m.kv.Get(ctx, m.bucket, key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := decode(b, &v); err != nil {
		return v, false, fmt.Errorf("decode %s/%s: %w", m.bucket, key, err)
	}
	return v, true, nil
}

func (m *Map[V]) Delete(ctx context.Context, key string) error {
	return m.kv.Delete(ctx, m.bucket, key)
}

func (m *Map[V]) Keys(ctx context.Context) ([]string, error) {
	return m.kv.Keys(ctx, m.bucket)
}

// List returns every value in the bucket, ordered by key.
func (m *Map[V]) List(ctx context.Context) ([]V, error) {
	keys, err := m.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		v, ok, err := m.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}
