// Package segments is a bounded, bank-partitioned cache for data too large
// or too rarely used for the main record store. A bank must be requested one
// tick before it can be read or written.
package segments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"

	"tickcore.ai/internal/memory"
)

const (
	DefaultCount     = 100
	DefaultMaxActive = 10
	DefaultBankLimit = 100 * 1024
)

var (
	ErrBankFull      = errors.New("segments: bank full")
	ErrNotActive     = errors.New("segments: bank not active")
	ErrBadBank       = errors.New("segments: bank out of range")
	ErrTooManyActive = errors.New("segments: too many banks requested")
)

type Options struct {
	Count     int
	MaxActive int
	BankLimit int
}

func (o Options) withDefaults() Options {
	if o.Count <= 0 {
		o.Count = DefaultCount
	}
	if o.MaxActive <= 0 {
		o.MaxActive = DefaultMaxActive
	}
	if o.BankLimit <= 0 {
		o.BankLimit = DefaultBankLimit
	}
	return o
}

type bank map[string]json.RawMessage

type Cache struct {
	backend memory.Backend
	opts    Options
	logger  *log.Logger

	banks     map[int]bank
	active    map[int]bool
	requested map[int]bool
	dirty     map[int]bool
	hydrated  bool
}

func New(b memory.Backend, opts Options, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Cache{
		backend:   b,
		opts:      opts.withDefaults(),
		logger:    logger,
		banks:     map[int]bank{},
		active:    map[int]bool{},
		requested: map[int]bool{},
		dirty:     map[int]bool{},
	}
}

func (c *Cache) Options() Options { return c.opts }

// Hydrate loads every bank from the backend once. Undecodable banks are
// logged and start empty.
func (c *Cache) Hydrate(ctx context.Context) error {
	if c.hydrated {
		return nil
	}
	recs, err := c.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("segments hydrate: %w", err)
	}
	for k, raw := range recs {
		id, err := strconv.Atoi(k)
		if err != nil || id < 0 || id >= c.opts.Count {
			c.logger.Printf("segments: ignore stray key %q", k)
			continue
		}
		var b bank
		if err := json.Unmarshal(raw, &b); err != nil {
			c.logger.Printf("segments: bank %d corrupt, reset: %v", id, err)
			c.banks[id] = bank{}
			c.dirty[id] = true
			continue
		}
		c.banks[id] = b
	}
	c.hydrated = true
	return nil
}

// Request asks for bank id to be readable next tick.
func (c *Cache) Request(id int) error {
	if id < 0 || id >= c.opts.Count {
		return fmt.Errorf("%w: %d", ErrBadBank, id)
	}
	if c.requested[id] {
		return nil
	}
	if len(c.requested) >= c.opts.MaxActive {
		return fmt.Errorf("%w: %d", ErrTooManyActive, id)
	}
	c.requested[id] = true
	return nil
}

// BeginTick activates the banks requested during the previous tick.
func (c *Cache) BeginTick() {
	c.active = c.requested
	c.requested = map[int]bool{}
}

func (c *Cache) Active(id int) bool { return c.active[id] }

// ActiveBanks lists active banks in ascending order.
func (c *Cache) ActiveBanks() []int {
	out := make([]int, 0, len(c.active))
	for id := range c.active {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Read decodes owner's entry in bank id into v. It reports false when the
// owner has no entry.
func (c *Cache) Read(id int, owner string, v any) (bool, error) {
	if !c.active[id] {
		return false, fmt.Errorf("%w: %d", ErrNotActive, id)
	}
	raw, ok := c.banks[id][owner]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("segments %d/%s: %w", id, owner, err)
	}
	return true, nil
}

func (c *Cache) Write(id int, owner string, v any) error {
	if !c.active[id] {
		return fmt.Errorf("%w: %d", ErrNotActive, id)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("segments %d/%s: %w", id, owner, err)
	}
	next := bank{}
	for k, e := range c.banks[id] {
		next[k] = e
	}
	next[owner] = raw
	size, err := bankSize(next)
	if err != nil {
		return err
	}
	if size > c.opts.BankLimit {
		c.logger.Printf("segments: bank %d write by %s rejected: %d > %d bytes", id, owner, size, c.opts.BankLimit)
		return fmt.Errorf("%w: %d (%d > %d)", ErrBankFull, id, size, c.opts.BankLimit)
	}
	c.banks[id] = next
	c.dirty[id] = true
	return nil
}

// Drop removes every entry written by owner, in all banks.
func (c *Cache) Drop(owner string) int {
	n := 0
	for id, b := range c.banks {
		if _, ok := b[owner]; ok {
			delete(b, owner)
			c.dirty[id] = true
			n++
		}
	}
	return n
}

// Sweep drops the entries of every owner for which alive returns false.
func (c *Cache) Sweep(alive func(owner string) bool) []string {
	var gone []string
	for _, o := range c.Owners() {
		if !alive(o) {
			c.Drop(o)
			gone = append(gone, o)
		}
	}
	return gone
}

// Owners lists every owner with at least one entry.
func (c *Cache) Owners() []string {
	seen := map[string]bool{}
	for _, b := range c.banks {
		for o := range b {
			seen[o] = true
		}
	}
	out := make([]string, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// Used returns the encoded size of bank id.
func (c *Cache) Used(id int) int {
	n, _ := bankSize(c.banks[id])
	return n
}

func (c *Cache) Dirty() bool { return len(c.dirty) > 0 }

// Flush writes dirty banks back to the backend.
func (c *Cache) Flush(ctx context.Context) (int, error) {
	if len(c.dirty) == 0 {
		return 0, nil
	}
	put := make(map[string][]byte, len(c.dirty))
	for id := range c.dirty {
		b := c.banks[id]
		if b == nil {
			b = bank{}
		}
		raw, err := json.Marshal(b)
		if err != nil {
			return 0, fmt.Errorf("segments flush %d: %w", id, err)
		}
		put[strconv.Itoa(id)] = raw
	}
	if err := c.backend.Save(ctx, put, nil); err != nil {
		return 0, fmt.Errorf("segments flush: %w", err)
	}
	c.dirty = map[int]bool{}
	return len(put), nil
}

func bankSize(b bank) (int, error) {
	if len(b) == 0 {
		return 2, nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}
