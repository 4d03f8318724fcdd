// Package memory is the controller's persistent record store. The host keeps
// nothing between restarts except what is written here.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/OneOfOne/xxhash"
)

// DefaultRecordLimit is the per-record byte ceiling.
const DefaultRecordLimit = 100 * 1024

var ErrRecordTooLarge = errors.New("memory: record too large")

type FlushStats struct {
	Written int
	Deleted int
	Bytes   int
}

// Memory is a key/value front over a Backend. Writes are buffered until
// Flush; a write whose bytes match the persisted copy is not re-sent.
type Memory struct {
	backend Backend
	limit   int
	logger  *log.Logger

	records map[string][]byte
	sums    map[string]uint64
	dirty   map[string]struct{}
	deleted map[string]struct{}
}

func New(b Backend, limit int, logger *log.Logger) *Memory {
	if limit <= 0 {
		limit = DefaultRecordLimit
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Memory{
		backend: b,
		limit:   limit,
		logger:  logger,
		records: map[string][]byte{},
		sums:    map[string]uint64{},
		dirty:   map[string]struct{}{},
		deleted: map[string]struct{}{},
	}
}

// Load replaces the in-memory view with the backend's records.
func (m *Memory) Load(ctx context.Context) error {
	recs, err := m.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("memory load: %w", err)
	}
	m.records = map[string][]byte{}
	m.sums = map[string]uint64{}
	m.dirty = map[string]struct{}{}
	m.deleted = map[string]struct{}{}
	for k, v := range recs {
		m.records[k] = v
		m.sums[k] = xxhash.Checksum64(v)
	}
	return nil
}

func (m *Memory) Get(key string) ([]byte, bool) {
	v, ok := m.records[key]
	return v, ok
}

// GetJSON decodes the record at key into v. It reports false when the key
// is absent.
func (m *Memory) GetJSON(key string, v any) (bool, error) {
	raw, ok := m.records[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("memory %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Set(key string, raw []byte) error {
	if len(raw) > m.limit {
		m.logger.Printf("memory: reject %s: %d bytes over limit %d", key, len(raw), m.limit)
		return fmt.Errorf("%w: %s (%d > %d)", ErrRecordTooLarge, key, len(raw), m.limit)
	}
	m.records[key] = append([]byte(nil), raw...)
	delete(m.deleted, key)
	if sum, ok := m.sums[key]; ok && sum == xxhash.Checksum64(raw) {
		delete(m.dirty, key)
		return nil
	}
	m.dirty[key] = struct{}{}
	return nil
}

func (m *Memory) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("memory %s: %w", key, err)
	}
	return m.Set(key, raw)
}

func (m *Memory) Delete(key string) {
	if _, ok := m.records[key]; !ok {
		return
	}
	delete(m.records, key)
	delete(m.dirty, key)
	if _, persisted := m.sums[key]; persisted {
		m.deleted[key] = struct{}{}
	}
}

// Keys lists keys with the given prefix in sorted order.
func (m *Memory) Keys(prefix string) []string {
	var keys []string
	for k := range m.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) Len() int { return len(m.records) }

// Size is the total byte size of all records.
func (m *Memory) Size() int {
	n := 0
	for _, v := range m.records {
		n += len(v)
	}
	return n
}

// Dirty reports the number of pending writes and deletes.
func (m *Memory) Dirty() int { return len(m.dirty) + len(m.deleted) }

// Flush sends pending changes to the backend. On error the changes stay
// pending and are retried by the next Flush.
func (m *Memory) Flush(ctx context.Context) (FlushStats, error) {
	var st FlushStats
	if m.Dirty() == 0 {
		return st, nil
	}
	put := make(map[string][]byte, len(m.dirty))
	for k := range m.dirty {
		put[k] = m.records[k]
		st.Bytes += len(m.records[k])
	}
	del := make([]string, 0, len(m.deleted))
	for k := range m.deleted {
		del = append(del, k)
	}
	sort.Strings(del)
	if err := m.backend.Save(ctx, put, del); err != nil {
		return FlushStats{}, fmt.Errorf("memory flush: %w", err)
	}
	for k, v := range put {
		m.sums[k] = xxhash.Checksum64(v)
	}
	for _, k := range del {
		delete(m.sums, k)
	}
	st.Written = len(put)
	st.Deleted = len(del)
	m.dirty = map[string]struct{}{}
	m.deleted = map[string]struct{}{}
	return st, nil
}

func (m *Memory) Close() error { return m.backend.Close() }
