package kernel

import (
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

type ProcessUsage struct {
	PID      string        `json:"pid"`
	Type     string        `json:"type"`
	Priority string        `json:"priority"`
	Runs     int           `json:"runs"`
	Errors   int           `json:"errors"`
	Total    time.Duration `json:"total"`
	Avg      time.Duration `json:"avg"`
}

// Utilization is the periodic resource report.
type Utilization struct {
	Tick          uint64         `json:"tick"`
	Ticks         int            `json:"ticks"`
	AvgTick       time.Duration  `json:"avg_tick"`
	MemoryRecords int            `json:"memory_records"`
	MemoryBytes   int            `json:"memory_bytes"`
	Memory        string         `json:"memory"`
	Agents        int            `json:"agents"`
	SegmentOwners int            `json:"segment_owners"`
	Processes     []ProcessUsage `json:"processes"`
}

// Utilization computes the current report without emitting it.
func (k *Kernel) Utilization(tick uint64) Utilization {
	u := Utilization{
		Tick:          tick,
		Ticks:         k.ticks,
		MemoryRecords: k.mem.Len(),
		MemoryBytes:   k.mem.Size(),
		Memory:        humanize.Bytes(uint64(k.mem.Size())),
		Agents:        k.roster.Len(),
		SegmentOwners: len(k.seg.Owners()),
	}
	if k.ticks > 0 {
		u.AvgTick = k.total / time.Duration(k.ticks)
	}
	for _, p := range k.sched.List() {
		us, _ := k.sched.Usage(p.PID())
		pu := ProcessUsage{
			PID:      p.PID(),
			Type:     p.Type(),
			Priority: p.Priority().String(),
			Runs:     us.Runs,
			Errors:   us.Errors,
			Total:    us.Total,
		}
		if us.Runs > 0 {
			pu.Avg = us.Total / time.Duration(us.Runs)
		}
		u.Processes = append(u.Processes, pu)
	}
	sort.SliceStable(u.Processes, func(i, j int) bool { return u.Processes[i].Total > u.Processes[j].Total })
	return u
}

func (k *Kernel) report(tick uint64) {
	u := k.Utilization(tick)
	k.logger.Printf("report tick=%d ticks=%d avg=%s memory=%s (%d records) agents=%d processes=%d",
		u.Tick, u.Ticks, u.AvgTick, u.Memory, u.MemoryRecords, u.Agents, len(u.Processes))
	for _, p := range u.Processes {
		if p.Runs == 0 {
			continue
		}
		k.logger.Printf("report   %-24s %-8s runs=%d errors=%d total=%s avg=%s", p.PID, p.Priority, p.Runs, p.Errors, p.Total, p.Avg)
	}
	if k.reports != nil {
		if err := k.reports.WriteReport(u); err != nil {
			k.logger.Printf("report: %v", err)
		}
	}
}
