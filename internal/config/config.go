package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Memory backend kinds.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	Kernel   KernelConfig   `yaml:"kernel" toml:"kernel"`
	Movement MovementConfig `yaml:"movement" toml:"movement"`
	Memory   MemoryConfig   `yaml:"memory" toml:"memory"`
	Segments SegmentsConfig `yaml:"segments" toml:"segments"`
	Host     HostConfig     `yaml:"host" toml:"host"`
	Logs     LogConfig      `yaml:"logs" toml:"logs"`
}

type KernelConfig struct {
	GCEvery     int `yaml:"gc_every" toml:"gc_every"`
	ReportEvery int `yaml:"report_every" toml:"report_every"`
	BudgetMs    int `yaml:"budget_ms" toml:"budget_ms"`
}

// Budget is the per-tick scheduler budget. Zero disables budgeting.
func (k KernelConfig) Budget() time.Duration { return time.Duration(k.BudgetMs) * time.Millisecond }

type MovementConfig struct {
	StuckThreshold    int `yaml:"stuck_threshold" toml:"stuck_threshold"`
	StationaryPenalty int `yaml:"stationary_penalty" toml:"stationary_penalty"`
	MaxOps            int `yaml:"max_ops" toml:"max_ops"`
	ShoveLimit        int `yaml:"shove_limit" toml:"shove_limit"`
}

type MemoryConfig struct {
	Backend     string `yaml:"backend" toml:"backend"`
	Path        string `yaml:"path" toml:"path"`
	Table       string `yaml:"table" toml:"table"`
	RedisURL    string `yaml:"redis_url" toml:"redis_url"`
	RedisKey    string `yaml:"redis_key" toml:"redis_key"`
	RecordLimit int    `yaml:"record_limit" toml:"record_limit"`
}

type SegmentsConfig struct {
	Count     int    `yaml:"count" toml:"count"`
	MaxActive int    `yaml:"max_active" toml:"max_active"`
	BankLimit int    `yaml:"bank_limit" toml:"bank_limit"`
	Path      string `yaml:"path" toml:"path"`
}

type HostConfig struct {
	Addr       string `yaml:"addr" toml:"addr"`
	Player     string `yaml:"player" toml:"player"`
	TickRateHz int    `yaml:"tick_rate_hz" toml:"tick_rate_hz"`
	Seed       int64  `yaml:"seed" toml:"seed"`
}

type LogConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

func Defaults() Config {
	return Config{
		Kernel: KernelConfig{
			GCEvery:     50,
			ReportEvery: 500,
			BudgetMs:    20,
		},
		Movement: MovementConfig{
			StuckThreshold:    2,
			StationaryPenalty: 20,
			MaxOps:            2000,
			ShoveLimit:        5,
		},
		Memory: MemoryConfig{
			Backend:     BackendFile,
			Path:        "data/memory.zst",
			Table:       "memory",
			RedisKey:    "tickcore:memory",
			RecordLimit: 100 * 1024,
		},
		Segments: SegmentsConfig{
			Count:     100,
			MaxActive: 10,
			BankLimit: 100 * 1024,
			Path:      "data/segments.zst",
		},
		Host: HostConfig{
			Addr:       "127.0.0.1:8090",
			Player:     "me",
			TickRateHz: 2,
			Seed:       1,
		},
		Logs: LogConfig{Dir: "data/logs"},
	}
}

// Load reads a YAML or TOML (by extension) file over Defaults. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(b), &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", name, err)
		}
	default:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", name, err)
		}
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// Normalize replaces zero values with defaults.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	d := Defaults()
	if c.Kernel.GCEvery <= 0 {
		c.Kernel.GCEvery = d.Kernel.GCEvery
	}
	if c.Kernel.ReportEvery <= 0 {
		c.Kernel.ReportEvery = d.Kernel.ReportEvery
	}
	if c.Movement.StuckThreshold <= 0 {
		c.Movement.StuckThreshold = d.Movement.StuckThreshold
	}
	if c.Movement.MaxOps <= 0 {
		c.Movement.MaxOps = d.Movement.MaxOps
	}
	if c.Memory.Backend == "" {
		c.Memory.Backend = d.Memory.Backend
	}
	c.Memory.Backend = strings.ToLower(strings.TrimSpace(c.Memory.Backend))
	if c.Memory.RecordLimit <= 0 {
		c.Memory.RecordLimit = d.Memory.RecordLimit
	}
	if c.Memory.Table == "" {
		c.Memory.Table = d.Memory.Table
	}
	if c.Memory.RedisKey == "" {
		c.Memory.RedisKey = d.Memory.RedisKey
	}
	if c.Segments.Count <= 0 {
		c.Segments.Count = d.Segments.Count
	}
	if c.Segments.MaxActive <= 0 {
		c.Segments.MaxActive = d.Segments.MaxActive
	}
	if c.Segments.BankLimit <= 0 {
		c.Segments.BankLimit = d.Segments.BankLimit
	}
	if c.Host.TickRateHz <= 0 {
		c.Host.TickRateHz = d.Host.TickRateHz
	}
	if c.Host.Player == "" {
		c.Host.Player = d.Host.Player
	}
}

func (c Config) Validate() error {
	if c.Kernel.BudgetMs < 0 {
		return fmt.Errorf("kernel.budget_ms must be >= 0")
	}
	if c.Movement.StationaryPenalty < 0 || c.Movement.ShoveLimit < 0 {
		return fmt.Errorf("movement penalties and limits must be >= 0")
	}
	if c.Segments.MaxActive > c.Segments.Count {
		return fmt.Errorf("segments.max_active %d exceeds segments.count %d", c.Segments.MaxActive, c.Segments.Count)
	}
	switch c.Memory.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if strings.TrimSpace(c.Memory.Path) == "" {
			return fmt.Errorf("memory.path required for %s backend", c.Memory.Backend)
		}
	case BackendRedis:
		if strings.TrimSpace(c.Memory.RedisURL) == "" {
			return fmt.Errorf("memory.redis_url required for redis backend")
		}
	default:
		return fmt.Errorf("unknown memory.backend %q", c.Memory.Backend)
	}
	return nil
}
