package kernel

import (
	"context"
	"path/filepath"
	"testing"

	"tickcore.ai/internal/config"
)

func TestOpenStorage_Backends(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]func(*config.Config){
		config.BackendMemory: func(c *config.Config) {},
		config.BackendFile: func(c *config.Config) {
			c.Memory.Path = filepath.Join(dir, "memory.zst")
			c.Segments.Path = filepath.Join(dir, "segments.zst")
		},
		config.BackendSQLite: func(c *config.Config) {
			c.Memory.Path = filepath.Join(dir, "memory.db")
		},
	}
	for backend, edit := range cases {
		cfg := config.Defaults()
		cfg.Memory.Backend = backend
		edit(&cfg)

		st, err := OpenStorage(cfg, nil)
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		mem, seg := OpenMemory(st, cfg, nil)
		if err := mem.Set("k", []byte(`1`)); err != nil {
			t.Fatalf("%s: set: %v", backend, err)
		}
		if _, err := mem.Flush(context.Background()); err != nil {
			t.Fatalf("%s: flush: %v", backend, err)
		}
		if got := seg.Options().Count; got != cfg.Segments.Count {
			t.Fatalf("%s: segment count=%d want %d", backend, got, cfg.Segments.Count)
		}
		if err := st.Close(); err != nil {
			t.Fatalf("%s: close: %v", backend, err)
		}
		if backend == config.BackendMemory {
			continue
		}

		st, err = OpenStorage(cfg, nil)
		if err != nil {
			t.Fatalf("%s: reopen: %v", backend, err)
		}
		mem, _ = OpenMemory(st, cfg, nil)
		if err := mem.Load(context.Background()); err != nil {
			t.Fatalf("%s: load: %v", backend, err)
		}
		if v, ok := mem.Get("k"); !ok || string(v) != "1" {
			t.Fatalf("%s: record lost across reopen: %q %v", backend, v, ok)
		}
		_ = st.Close()
	}
}

func TestOpenStorage_UnknownBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.Memory.Backend = "etcd"
	if _, err := OpenStorage(cfg, nil); err == nil {
		t.Fatalf("expected error")
	}
}
