package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSetFlushAndReload(t *testing.T) {
	ctx := context.Background()
	be := NewMemBackend()
	m := New(be, 0, nil)
	if err := m.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := m.SetJSON("agents/a", map[string]int{"stuck": 1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if m.Dirty() != 1 {
		t.Fatalf("dirty=%d want 1", m.Dirty())
	}
	st, err := m.Flush(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if st.Written != 1 || m.Dirty() != 0 {
		t.Fatalf("unexpected flush %+v dirty=%d", st, m.Dirty())
	}

	m2 := New(be, 0, nil)
	if err := m2.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	var v map[string]int
	ok, err := m2.GetJSON("agents/a", &v)
	if !ok || err != nil || v["stuck"] != 1 {
		t.Fatalf("reloaded ok=%v err=%v v=%v", ok, err, v)
	}
}

func TestUnchangedWriteIsNotResent(t *testing.T) {
	ctx := context.Background()
	be := NewMemBackend()
	m := New(be, 0, nil)
	_ = m.Set("k", []byte(`{"a":1}`))
	if _, err := m.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	_ = m.Set("k", []byte(`{"a":1}`))
	if m.Dirty() != 0 {
		t.Fatalf("identical write marked dirty")
	}
	if _, err := m.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if be.Saves() != 1 {
		t.Fatalf("saves=%d want 1", be.Saves())
	}

	_ = m.Set("k", []byte(`{"a":2}`))
	_ = m.Set("k", []byte(`{"a":1}`))
	if m.Dirty() != 0 {
		t.Fatalf("write reverted to persisted bytes must be clean")
	}
}

func TestRecordLimit(t *testing.T) {
	m := New(NewMemBackend(), 8, nil)
	err := m.Set("big", []byte(strings.Repeat("x", 9)))
	if !errors.Is(err, ErrRecordTooLarge) {
		t.Fatalf("expected ErrRecordTooLarge, got %v", err)
	}
	if _, ok := m.Get("big"); ok {
		t.Fatalf("rejected record must not be stored")
	}
}

func TestDeleteAndKeys(t *testing.T) {
	ctx := context.Background()
	be := NewMemBackend()
	m := New(be, 0, nil)
	_ = m.Set("agents/a", []byte("1"))
	_ = m.Set("agents/b", []byte("2"))
	_ = m.Set("kernel/processes", []byte("[]"))
	if _, err := m.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := m.Keys("agents/"); len(got) != 2 || got[0] != "agents/a" {
		t.Fatalf("keys=%v", got)
	}
	m.Delete("agents/a")
	m.Delete("missing")
	st, err := m.Flush(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if st.Deleted != 1 {
		t.Fatalf("deleted=%d want 1", st.Deleted)
	}
	if keys := be.Keys(); len(keys) != 2 || keys[0] != "agents/b" {
		t.Fatalf("backend keys=%v", keys)
	}
}

type failingBackend struct{ MemBackend }

func (f *failingBackend) Save(context.Context, map[string][]byte, []string) error {
	return errors.New("disk full")
}

func TestFailedFlushStaysPending(t *testing.T) {
	m := New(&failingBackend{MemBackend: MemBackend{records: map[string][]byte{}}}, 0, nil)
	_ = m.Set("k", []byte("v"))
	if _, err := m.Flush(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if m.Dirty() != 1 {
		t.Fatalf("failed flush lost pending write")
	}
}
