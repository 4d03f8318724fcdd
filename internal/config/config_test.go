package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ControllerYAML(t *testing.T) {
	cfg, err := Load("../../configs/controller.yaml")
	if err != nil {
		t.Fatalf("load controller.yaml: %v", err)
	}
	if cfg != Defaults() {
		t.Fatalf("shipped yaml should match defaults:\n got %+v\nwant %+v", cfg, Defaults())
	}
	if cfg.Kernel.Budget() != 20*time.Millisecond {
		t.Fatalf("budget=%s", cfg.Kernel.Budget())
	}
}

func TestLoad_TOMLOverlaysDefaults(t *testing.T) {
	cfg, err := Load("../../configs/controller.toml")
	if err != nil {
		t.Fatalf("load controller.toml: %v", err)
	}
	if cfg.Kernel.GCEvery != 25 || cfg.Kernel.Budget() != 0 {
		t.Fatalf("kernel=%+v", cfg.Kernel)
	}
	if cfg.Movement.StuckThreshold != 3 || cfg.Movement.MaxOps != 2000 || cfg.Movement.StationaryPenalty != 20 {
		t.Fatalf("movement=%+v", cfg.Movement)
	}
	if cfg.Memory.Backend != BackendSQLite || cfg.Memory.Table != "controller_memory" {
		t.Fatalf("memory=%+v", cfg.Memory)
	}
	if cfg.Segments.Count != 100 || cfg.Host.Addr != "127.0.0.1:9000" || cfg.Host.Player != "me" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoad_EmptyPathIsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil || cfg != Defaults() {
		t.Fatalf("cfg=%+v err=%v", cfg, err)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"backend.yaml":  "memory:\n  backend: etcd\n",
		"redis.yaml":    "memory:\n  backend: redis\n",
		"segments.yaml": "segments:\n  count: 4\n  max_active: 5\n",
		"budget.yaml":   "kernel:\n  budget_ms: -1\n",
	}
	dir := t.TempDir()
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, err := Load(path)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("%s: error should name the file: %v", name, err)
		}
	}
}

func TestNormalize_BackendCase(t *testing.T) {
	cfg := Config{Memory: MemoryConfig{Backend: " Memory "}}
	cfg.Normalize()
	if cfg.Memory.Backend != BackendMemory {
		t.Fatalf("backend=%q", cfg.Memory.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
