// Package scheduler runs the live process set once per tick in priority
// order, within a time budget, isolating failures per process.
package scheduler

import (
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"tickcore.ai/internal/process"
)

// SkipReason explains why a process did not run this tick.
type SkipReason string

const (
	SkipInactive SkipReason = "inactive"
	SkipAsleep   SkipReason = "asleep"
	SkipBudget   SkipReason = "budget"
)

// Usage is the accumulated execution cost of one process.
type Usage struct {
	Runs     int           `json:"runs"`
	Errors   int           `json:"errors"`
	Last     time.Duration `json:"last"`
	Total    time.Duration `json:"total"`
	LastTick uint64        `json:"last_tick"`
}

// Report describes one tick of scheduling.
type Report struct {
	Tick    uint64
	Ran     []string
	Woke    []string
	Skipped map[string]SkipReason
	Failed  map[string]error
	Elapsed time.Duration
}

type Scheduler struct {
	budget time.Duration
	clock  func() time.Time
	logger *log.Logger

	procs map[string]process.Process
	usage map[string]*Usage

	ticks int
	total time.Duration
}

// New returns a scheduler. A zero budget never skips anything.
func New(budget time.Duration, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Scheduler{
		budget: budget,
		clock:  time.Now,
		logger: logger,
		procs:  map[string]process.Process{},
		usage:  map[string]*Usage{},
	}
}

// SetClock replaces the time source used for cost accounting.
func (s *Scheduler) SetClock(now func() time.Time) { s.clock = now }

func (s *Scheduler) Budget() time.Duration { return s.budget }

func (s *Scheduler) Add(p process.Process) error {
	pid := p.PID()
	if pid == "" {
		return fmt.Errorf("scheduler: empty pid for %s", p.Type())
	}
	if _, exists := s.procs[pid]; exists {
		return fmt.Errorf("scheduler: pid %s already running", pid)
	}
	s.procs[pid] = p
	return nil
}

func (s *Scheduler) Remove(pid string) bool {
	if _, ok := s.procs[pid]; !ok {
		return false
	}
	delete(s.procs, pid)
	delete(s.usage, pid)
	return true
}

func (s *Scheduler) Get(pid string) (process.Process, bool) {
	p, ok := s.procs[pid]
	return p, ok
}

func (s *Scheduler) Len() int { return len(s.procs) }

// List returns the processes in execution order: ascending priority, then pid.
func (s *Scheduler) List() []process.Process {
	out := make([]process.Process, 0, len(s.procs))
	for _, p := range s.procs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() < out[j].Priority()
		}
		return out[i].PID() < out[j].PID()
	})
	return out
}

// RunTick runs every active, awake process once. Critical processes always
// run; the others are skipped once the budget is spent.
func (s *Scheduler) RunTick(ctx *process.Context) Report {
	start := s.clock()
	rep := Report{
		Tick:    ctx.Tick,
		Skipped: map[string]SkipReason{},
		Failed:  map[string]error{},
	}
	for _, p := range s.List() {
		pid := p.PID()
		if _, live := s.procs[pid]; !live {
			// killed earlier this tick
			continue
		}
		if !p.Active() {
			rep.Skipped[pid] = SkipInactive
			continue
		}
		if until := p.SleepUntil(); until != 0 {
			if until > ctx.Tick {
				rep.Skipped[pid] = SkipAsleep
				continue
			}
			p.Wake()
			rep.Woke = append(rep.Woke, pid)
		}
		if s.budget > 0 && p.Priority() != process.Critical && s.clock().Sub(start) >= s.budget {
			rep.Skipped[pid] = SkipBudget
			continue
		}

		t0 := s.clock()
		err := s.runOne(ctx, p)
		cost := s.clock().Sub(t0)

		u := s.usage[pid]
		if u == nil {
			u = &Usage{}
			s.usage[pid] = u
		}
		u.Runs++
		u.Last = cost
		u.Total += cost
		u.LastTick = ctx.Tick
		rep.Ran = append(rep.Ran, pid)
		if err != nil {
			u.Errors++
			rep.Failed[pid] = err
			s.logger.Printf("process %s (%s) failed: %v", pid, p.Type(), err)
		}
	}
	rep.Elapsed = s.clock().Sub(start)
	s.ticks++
	s.total += rep.Elapsed
	return rep
}

func (s *Scheduler) runOne(ctx *process.Context, p process.Process) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Run(ctx)
}

// Usage returns the accumulated cost of pid.
func (s *Scheduler) Usage(pid string) (Usage, bool) {
	u, ok := s.usage[pid]
	if !ok {
		return Usage{}, false
	}
	return *u, true
}

// Totals returns the number of ticks run and their summed cost.
func (s *Scheduler) Totals() (ticks int, total time.Duration) { return s.ticks, s.total }
