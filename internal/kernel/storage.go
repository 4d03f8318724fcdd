package kernel

import (
	"fmt"
	"io"
	"log"
	"strings"

	"tickcore.ai/internal/config"
	"tickcore.ai/internal/memory"
	"tickcore.ai/internal/segments"
)

// Storage holds the backends behind the memory record store and the segment
// banks.
type Storage struct {
	Memory   memory.Backend
	Segments memory.Backend

	closers []io.Closer
}

func (s *Storage) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenStorage opens the backends selected by cfg.Memory.Backend.
func OpenStorage(cfg config.Config, logger *log.Logger) (*Storage, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	mc := cfg.Memory
	switch mc.Backend {
	case config.BackendMemory:
		logger.Printf("memory backend: in-process (nothing survives a restart)")
		return &Storage{Memory: memory.NewMemBackend(), Segments: memory.NewMemBackend()}, nil

	case config.BackendFile:
		segPath := strings.TrimSpace(cfg.Segments.Path)
		if segPath == "" {
			segPath = strings.TrimSuffix(mc.Path, ".zst") + ".segments.zst"
		}
		logger.Printf("memory backend: file=%s segments=%s", mc.Path, segPath)
		return &Storage{
			Memory:   memory.NewFileBackend(mc.Path),
			Segments: memory.NewFileBackend(segPath),
		}, nil

	case config.BackendSQLite:
		mem, err := memory.OpenSQLite(mc.Path, mc.Table)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", mc.Path, err)
		}
		segs, err := memory.OpenSQLite(mc.Path, mc.Table+"_segments")
		if err != nil {
			_ = mem.Close()
			return nil, fmt.Errorf("open sqlite %s: %w", mc.Path, err)
		}
		logger.Printf("memory backend: sqlite=%s table=%s", mc.Path, mc.Table)
		return &Storage{Memory: mem, Segments: segs, closers: []io.Closer{mem, segs}}, nil

	case config.BackendRedis:
		rdb, err := memory.DialRedis(mc.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("dial redis: %w", err)
		}
		logger.Printf("memory backend: redis key=%s", mc.RedisKey)
		return &Storage{
			Memory:   memory.NewRedisBackend(rdb, mc.RedisKey),
			Segments: memory.NewRedisBackend(rdb, mc.RedisKey+":segments"),
			closers:  []io.Closer{rdb},
		}, nil

	default:
		return nil, fmt.Errorf("unknown memory backend %q", mc.Backend)
	}
}

// OpenMemory wraps st.Memory and st.Segments with the limits from cfg.
func OpenMemory(st *Storage, cfg config.Config, logger *log.Logger) (*memory.Memory, *segments.Cache) {
	mem := memory.New(st.Memory, cfg.Memory.RecordLimit, logger)
	seg := segments.New(st.Segments, segments.Options{
		Count:     cfg.Segments.Count,
		MaxActive: cfg.Segments.MaxActive,
		BankLimit: cfg.Segments.BankLimit,
	}, logger)
	return mem, seg
}
