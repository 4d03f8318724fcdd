package segments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tickcore.ai/internal/memory"
)

type stats struct {
	Mined int `json:"mined"`
}

func TestRequestActivatesNextTick(t *testing.T) {
	c := New(memory.NewMemBackend(), Options{Count: 4}, nil)
	if err := c.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if err := c.Request(2); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := c.Write(2, "mining", stats{Mined: 1}); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	c.BeginTick()
	if err := c.Write(2, "mining", stats{Mined: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got stats
	ok, err := c.Read(2, "mining", &got)
	if !ok || err != nil || got.Mined != 1 {
		t.Fatalf("read ok=%v err=%v got=%+v", ok, err, got)
	}
	c.BeginTick()
	if c.Active(2) {
		t.Fatalf("unrequested bank stayed active")
	}
}

func TestRequestLimits(t *testing.T) {
	c := New(memory.NewMemBackend(), Options{Count: 4, MaxActive: 1}, nil)
	if err := c.Request(4); !errors.Is(err, ErrBadBank) {
		t.Fatalf("expected ErrBadBank, got %v", err)
	}
	if err := c.Request(0); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := c.Request(0); err != nil {
		t.Fatalf("repeat request: %v", err)
	}
	if err := c.Request(1); !errors.Is(err, ErrTooManyActive) {
		t.Fatalf("expected ErrTooManyActive, got %v", err)
	}
}

func TestBankLimit(t *testing.T) {
	c := New(memory.NewMemBackend(), Options{Count: 1, BankLimit: 64}, nil)
	_ = c.Request(0)
	c.BeginTick()
	if err := c.Write(0, "a", strings.Repeat("x", 10)); err != nil {
		t.Fatalf("small write: %v", err)
	}
	if err := c.Write(0, "b", strings.Repeat("x", 100)); !errors.Is(err, ErrBankFull) {
		t.Fatalf("expected ErrBankFull, got %v", err)
	}
	var s string
	if ok, _ := c.Read(0, "b", &s); ok {
		t.Fatalf("rejected write must not be visible")
	}
}

func TestFlushOnlyWhenDirtyAndHydrateRestores(t *testing.T) {
	ctx := context.Background()
	be := memory.NewMemBackend()
	c := New(be, Options{Count: 3}, nil)
	if n, err := c.Flush(ctx); n != 0 || err != nil {
		t.Fatalf("clean flush n=%d err=%v", n, err)
	}
	if be.Saves() != 0 {
		t.Fatalf("clean cache must not save")
	}
	_ = c.Request(1)
	c.BeginTick()
	_ = c.Write(1, "janitor", stats{Mined: 9})
	if n, err := c.Flush(ctx); n != 1 || err != nil {
		t.Fatalf("flush n=%d err=%v", n, err)
	}

	c2 := New(be, Options{Count: 3}, nil)
	if err := c2.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	_ = c2.Request(1)
	c2.BeginTick()
	var got stats
	if ok, _ := c2.Read(1, "janitor", &got); !ok || got.Mined != 9 {
		t.Fatalf("restored %+v ok=%v", got, ok)
	}
}

func TestDropAndSweepOwners(t *testing.T) {
	c := New(memory.NewMemBackend(), Options{Count: 2}, nil)
	_ = c.Request(0)
	_ = c.Request(1)
	c.BeginTick()
	_ = c.Write(0, "p1", 1)
	_ = c.Write(1, "p1", 2)
	_ = c.Write(1, "p2", 3)

	if n := c.Drop("p1"); n != 2 {
		t.Fatalf("dropped %d banks, want 2", n)
	}
	gone := c.Sweep(func(owner string) bool { return owner != "p2" })
	if len(gone) != 1 || gone[0] != "p2" {
		t.Fatalf("gone=%v", gone)
	}
	if len(c.Owners()) != 0 {
		t.Fatalf("owners=%v", c.Owners())
	}
}
