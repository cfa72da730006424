// Package requestctx carries per-request metadata (request id, caller
// identity, client address) through context.Context so the logging
// middleware and audit events can read it anywhere below the router.
package requestctx

import (
	"context"
	"sync"
)

type Meta struct {
	mu   sync.RWMutex
	data map[string]any
}

func New() *Meta {
	return &Meta{
		data: make(map[string]any),
	}
}

func (m *Meta) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *Meta) Get(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key]
}

func (m *Meta) GetString(key string) (string, bool) {
	value := m.Get(key)

	if str, ok := value.(string); ok {
		return str, true
	}

	return "", false
}

func (m *Meta) GetInt(key string) (int, bool) {
	value := m.Get(key)

	if i, ok := value.(int); ok {
		return i, true
	}

	return 0, false
}

func (m *Meta) All() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]any, len(m.data))
	for k, v := range m.data {
		result[k] = v
	}

	return result
}

type contextKey string

const metaKey contextKey = "request-meta"

func WithMeta(ctx context.Context, meta *Meta) context.Context {
	return context.WithValue(ctx, metaKey, meta)
}

func FromContext(ctx context.Context) (*Meta, bool) {
	meta, ok := ctx.Value(metaKey).(*Meta)
	return meta, ok
}

func GetMeta(ctx context.Context) *Meta {
	if meta, ok := FromContext(ctx); ok {
		return meta
	}

	return New()
}
