package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"tickcore.ai/internal/kernel"
)

func reportsCmd(args []string) {
	fs := flag.NewFlagSet("reports", flag.ExitOnError)
	logDir := fs.String("logs", "./data/logs", "controller log directory")
	last := fs.Int("last", 1, "number of most recent reports to print")
	sinceTick := fs.Uint64("since_tick", 0, "skip reports before this tick")
	_ = fs.Parse(args)

	us, err := readReports(filepath.Join(*logDir, "reports"), *sinceTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read reports:", err)
		os.Exit(1)
	}
	if len(us) == 0 {
		fmt.Println("no reports")
		return
	}
	if *last > 0 && len(us) > *last {
		us = us[len(us)-*last:]
	}
	for _, u := range us {
		fmt.Printf("tick=%d ticks=%d avg=%s memory=%s (%d records) agents=%d segment_owners=%d\n",
			u.Tick, u.Ticks, u.AvgTick, u.Memory, u.MemoryRecords, u.Agents, u.SegmentOwners)
		for _, p := range u.Processes {
			fmt.Printf("  %-28s %-9s runs=%d errors=%d total=%s avg=%s\n", p.PID, p.Priority, p.Runs, p.Errors, p.Total, p.Avg)
		}
	}
}

// readReports decodes every reports-*.jsonl.zst file in dir, oldest first.
func readReports(dir string, sinceTick uint64) ([]kernel.Utilization, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "reports-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []kernel.Utilization
	for _, name := range names {
		us, err := readReportFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for _, u := range us {
			if u.Tick >= sinceTick {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func readReportFile(path string) ([]kernel.Utilization, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []kernel.Utilization
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var u kernel.Utilization
		if err := json.Unmarshal(sc.Bytes(), &u); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		out = append(out, u)
	}
	return out, sc.Err()
}
