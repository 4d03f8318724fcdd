package memory

import (
	"context"
	"sort"
	"sync"
)

// Backend persists raw records. Save receives only the records changed since
// the previous Save.
type Backend interface {
	Load(ctx context.Context) (map[string][]byte, error)
	Save(ctx context.Context, put map[string][]byte, del []string) error
	Close() error
}

// MemBackend keeps records in process memory. It survives a Memory being
// rebuilt, which is what tests use to simulate a controller reset.
type MemBackend struct {
	mu      sync.Mutex
	records map[string][]byte
	saves   int
}

func NewMemBackend() *MemBackend {
	return &MemBackend{records: map[string][]byte{}}
}

func (b *MemBackend) Load(context.Context) (map[string][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string][]byte, len(b.records))
	for k, v := range b.records {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (b *MemBackend) Save(_ context.Context, put map[string][]byte, del []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range del {
		delete(b.records, k)
	}
	for k, v := range put {
		b.records[k] = append([]byte(nil), v...)
	}
	b.saves++
	return nil
}

func (b *MemBackend) Close() error { return nil }

// Saves reports how many times Save was called.
func (b *MemBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

// Keys returns the stored keys in sorted order.
func (b *MemBackend) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.records))
	for k := range b.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
