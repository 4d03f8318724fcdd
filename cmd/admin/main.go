package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"tickcore.ai/internal/config"
	"tickcore.ai/internal/kernel"
	"tickcore.ai/internal/memory"
	"tickcore.ai/internal/process"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "processes":
			processesCmd(os.Args[2:])
			return
		case "kill":
			killCmd(os.Args[2:])
			return
		case "memory":
			memoryCmd(os.Args[2:])
			return
		case "reports":
			reportsCmd(os.Args[2:])
			return
		case "health":
			healthCmd(os.Args[2:])
			return
		case "metrics":
			metricsCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin processes|kill|memory|reports|health|metrics [flags]")
	os.Exit(2)
}

// store is the offline view of a controller's persisted state. The
// controller must not be running against the same backend.
type store struct {
	cfg config.Config
	st  *kernel.Storage
	mem *memory.Memory
}

func openStore(path string) *store {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	st, err := kernel.OpenStorage(cfg, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open storage:", err)
		os.Exit(1)
	}
	mem, _ := kernel.OpenMemory(st, cfg, nil)
	if err := mem.Load(context.Background()); err != nil {
		_ = st.Close()
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	return &store{cfg: cfg, st: st, mem: mem}
}

func (s *store) table() []process.Descriptor {
	var ds []process.Descriptor
	ok, err := s.mem.GetJSON(kernel.ProcessTableKey, &ds)
	if err != nil {
		fmt.Fprintln(os.Stderr, "process table:", err)
		os.Exit(1)
	}
	if !ok {
		return nil
	}
	return ds
}

func processesCmd(args []string) {
	fs := flag.NewFlagSet("processes", flag.ExitOnError)
	configPath := fs.String("config", "./configs/controller.yaml", "controller config")
	_ = fs.Parse(args)

	s := openStore(*configPath)
	defer s.st.Close()

	ds := s.table()
	if len(ds) == 0 {
		fmt.Println("no process table (controller has not booted yet)")
		return
	}
	for _, d := range ds {
		state := "active"
		if !d.Active {
			state = "inactive"
		}
		sleep := "-"
		if d.SleepUntil > 0 {
			sleep = fmt.Sprintf("%d", d.SleepUntil)
		}
		fmt.Printf("%-28s %-10s %-9s %-8s sleep_until=%s data=%s\n",
			d.PID, d.Type, d.Priority, state, sleep, humanize.Bytes(uint64(len(d.Data))))
	}
}

func killCmd(args []string) {
	fs := flag.NewFlagSet("kill", flag.ExitOnError)
	configPath := fs.String("config", "./configs/controller.yaml", "controller config")
	pid := fs.String("pid", "", "process id to remove (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*pid) == "" {
		fmt.Fprintln(os.Stderr, "missing -pid")
		os.Exit(2)
	}
	s := openStore(*configPath)
	defer s.st.Close()

	ds := s.table()
	kept := ds[:0]
	found := false
	for _, d := range ds {
		if d.PID == *pid {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		fmt.Fprintf(os.Stderr, "no process %q\n", *pid)
		os.Exit(1)
	}
	ctx := context.Background()
	if err := s.mem.SetJSON(kernel.ProcessTableKey, kept); err != nil {
		fmt.Fprintln(os.Stderr, "write table:", err)
		os.Exit(1)
	}
	if _, err := s.mem.Flush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "flush:", err)
		os.Exit(1)
	}

	_, seg := kernel.OpenMemory(s.st, s.cfg, nil)
	if err := seg.Hydrate(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "segments:", err)
		os.Exit(1)
	}
	banks := seg.Drop(*pid)
	if _, err := seg.Flush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "flush segments:", err)
		os.Exit(1)
	}
	fmt.Printf("kill ok: pid=%s remaining=%d segment_banks=%d\n", *pid, len(kept), banks)
}

func memoryCmd(args []string) {
	fs := flag.NewFlagSet("memory", flag.ExitOnError)
	configPath := fs.String("config", "./configs/controller.yaml", "controller config")
	prefix := fs.String("prefix", "", "only keys with this prefix")
	top := fs.Int("top", 20, "largest records to list")
	_ = fs.Parse(args)

	s := openStore(*configPath)
	defer s.st.Close()

	if s.cfg.Memory.Backend == config.BackendFile {
		if hdr, err := memory.ReadFileHeader(s.cfg.Memory.Path); err == nil {
			fmt.Printf("file=%s version=%d records=%d saved_at=%s\n", s.cfg.Memory.Path, hdr.Version, hdr.Records, hdr.SavedAt)
		}
	}
	keys := s.mem.Keys(*prefix)
	type rec struct {
		key  string
		size int
	}
	recs := make([]rec, 0, len(keys))
	total := 0
	for _, k := range keys {
		v, _ := s.mem.Get(k)
		recs = append(recs, rec{key: k, size: len(v)})
		total += len(v)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].size > recs[j].size })
	fmt.Printf("backend=%s records=%d size=%s limit=%s\n",
		s.cfg.Memory.Backend, len(recs), humanize.Bytes(uint64(total)), humanize.Bytes(uint64(s.cfg.Memory.RecordLimit)))
	for i, r := range recs {
		if i >= *top {
			break
		}
		fmt.Printf("  %-40s %s\n", r.key, humanize.Bytes(uint64(r.size)))
	}
}
