// Package kernel owns the controller's lifecycle across ticks and resets:
// it restores the process table, runs the scheduler and the agents, resolves
// movement, collects garbage and persists everything that must outlive the
// host's in-memory state.
package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"tickcore.ai/internal/agent"
	"tickcore.ai/internal/host"
	"tickcore.ai/internal/memory"
	"tickcore.ai/internal/process"
	"tickcore.ai/internal/scheduler"
	"tickcore.ai/internal/schema"
	"tickcore.ai/internal/segments"
	"tickcore.ai/internal/traffic"
)

// ProcessTableKey is the memory record holding the persisted process table.
const ProcessTableKey = "kernel/processes"

const (
	DefaultGCEvery     = 50
	DefaultReportEvery = 500
)

// ReportSink receives utilization reports.
type ReportSink interface {
	WriteReport(v any) error
}

type Options struct {
	Memory   *memory.Memory
	Segments *segments.Cache
	Registry *process.Registry

	Agents     agent.Options
	ShoveLimit int
	Budget     time.Duration

	GCEvery     int
	ReportEvery int
	Reports     ReportSink

	Rand   *rand.Rand
	Logger *log.Logger
}

type Kernel struct {
	mem     *memory.Memory
	seg     *segments.Cache
	reg     *process.Registry
	sched   *scheduler.Scheduler
	traffic *traffic.Resolver
	roster  *agent.Roster
	reports ReportSink
	logger  *log.Logger

	gcEvery     int
	reportEvery int

	booted bool
	ticks  int
	total  time.Duration
	clock  func() time.Time
}

// TickReport summarizes one call to Run.
type TickReport struct {
	Tick            uint64            `json:"tick"`
	Booted          bool              `json:"booted,omitempty"`
	Processes       int               `json:"processes"`
	Ran             int               `json:"ran"`
	Skipped         int               `json:"skipped"`
	Failed          int               `json:"failed"`
	Agents          int               `json:"agents"`
	Traffic         traffic.Stats     `json:"traffic"`
	CollectedAgents []string          `json:"collected_agents,omitempty"`
	SweptOwners     []string          `json:"swept_owners,omitempty"`
	Memory          memory.FlushStats `json:"memory"`
	SegmentsFlushed int               `json:"segments_flushed"`
	Elapsed         time.Duration     `json:"elapsed"`
}

func New(opts Options) *Kernel {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	reg := opts.Registry
	if reg == nil {
		reg = process.NewRegistry()
	}
	mem := opts.Memory
	if mem == nil {
		mem = memory.New(memory.NewMemBackend(), 0, logger)
	}
	seg := opts.Segments
	if seg == nil {
		seg = segments.New(memory.NewMemBackend(), segments.Options{}, logger)
	}
	gcEvery := opts.GCEvery
	if gcEvery <= 0 {
		gcEvery = DefaultGCEvery
	}
	reportEvery := opts.ReportEvery
	if reportEvery <= 0 {
		reportEvery = DefaultReportEvery
	}

	tr := traffic.New(opts.ShoveLimit, rng, logger)
	return &Kernel{
		mem:         mem,
		seg:         seg,
		reg:         reg,
		sched:       scheduler.New(opts.Budget, logger),
		traffic:     tr,
		roster:      agent.NewRoster(mem, tr, opts.Agents, logger),
		reports:     opts.Reports,
		logger:      logger,
		gcEvery:     gcEvery,
		reportEvery: reportEvery,
		clock:       time.Now,
	}
}

func (k *Kernel) Agents() *agent.Roster           { return k.roster }
func (k *Kernel) Scheduler() *scheduler.Scheduler { return k.sched }
func (k *Kernel) Booted() bool                    { return k.booted }

// Boot loads persisted state and rebuilds the process set. It runs once per
// kernel lifetime; later calls are no-ops.
func (k *Kernel) Boot(ctx context.Context) error {
	if k.booted {
		return nil
	}
	if err := k.mem.Load(ctx); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	if err := k.seg.Hydrate(ctx); err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	raw, ok := k.mem.Get(ProcessTableKey)
	var entries []json.RawMessage
	if ok {
		if err := json.Unmarshal(raw, &entries); err != nil {
			k.logger.Printf("boot: process table corrupt, starting fresh: %v", err)
			ok = false
		}
	}
	if !ok {
		k.install()
		k.booted = true
		return nil
	}

	restored, dropped := 0, 0
	for i, e := range entries {
		if err := k.restore(e); err != nil {
			k.logger.Printf("boot: drop process entry %d: %v", i, err)
			dropped++
			continue
		}
		restored++
	}
	k.logger.Printf("boot: restored %d processes, dropped %d", restored, dropped)
	k.booted = true
	return nil
}

// install starts one fresh process per registered type.
func (k *Kernel) install() {
	for _, typ := range k.reg.Types() {
		p, err := k.reg.New(typ, nil)
		if err != nil {
			k.logger.Printf("boot: install %s: %v", typ, err)
			continue
		}
		if err := k.sched.Add(p); err != nil {
			k.logger.Printf("boot: install %s: %v", typ, err)
		}
	}
	k.logger.Printf("boot: fresh install of %d processes", k.sched.Len())
}

func (k *Kernel) restore(raw json.RawMessage) error {
	if err := schema.Validate(schema.Descriptor, raw); err != nil {
		return err
	}
	var d process.Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return err
	}
	if !k.reg.Has(d.Type) {
		return fmt.Errorf("orphan %s: %w: %s", d.PID, process.ErrUnknownType, d.Type)
	}
	p, err := k.reg.New(d.Type, &d)
	if err != nil {
		return err
	}
	return k.sched.Add(p)
}

// Run executes one tick against w. w is only referenced for the duration of
// the call.
func (k *Kernel) Run(ctx context.Context, w host.World) (TickReport, error) {
	start := k.clock()
	k.roster.Bind(w)
	defer k.roster.Unbind()
	k.seg.BeginTick()

	rep := TickReport{Tick: w.Time()}
	if !k.booted {
		if err := k.Boot(ctx); err != nil {
			return rep, err
		}
		rep.Booted = true
	}

	pctx := &process.Context{
		Tick:     rep.Tick,
		World:    w,
		Agents:   k.roster,
		Segments: k.seg,
		Spawner:  k,
		Log:      k.logger,
	}
	sr := k.sched.RunTick(pctx)
	rep.Ran = len(sr.Ran)
	rep.Skipped = len(sr.Skipped)
	rep.Failed = len(sr.Failed)

	rep.Agents = k.roster.RunAll()
	rep.Traffic = k.traffic.Resolve(w)

	if rep.Tick%uint64(k.gcEvery) == 0 {
		rep.CollectedAgents, rep.SweptOwners = k.collect()
	}

	if err := k.persist(); err != nil {
		k.logger.Printf("tick %d: persist process table: %v", rep.Tick, err)
	}
	fs, err := k.mem.Flush(ctx)
	if err != nil {
		k.logger.Printf("tick %d: %v", rep.Tick, err)
	}
	rep.Memory = fs
	if k.seg.Dirty() {
		n, err := k.seg.Flush(ctx)
		if err != nil {
			k.logger.Printf("tick %d: %v", rep.Tick, err)
		}
		rep.SegmentsFlushed = n
	}

	rep.Processes = k.sched.Len()
	rep.Elapsed = k.clock().Sub(start)
	k.ticks++
	k.total += rep.Elapsed
	if rep.Tick%uint64(k.reportEvery) == 0 {
		k.report(rep.Tick)
	}
	return rep, nil
}

func (k *Kernel) collect() (agents, owners []string) {
	agents = k.roster.Collect()
	owners = k.seg.Sweep(k.Alive)
	if len(agents) > 0 || len(owners) > 0 {
		k.logger.Printf("gc: dropped %d agents, %d segment owners", len(agents), len(owners))
	}
	return agents, owners
}

// Descriptors returns the live process table ordered by pid.
func (k *Kernel) Descriptors() []process.Descriptor {
	list := k.sched.List()
	out := make([]process.Descriptor, 0, len(list))
	for _, p := range list {
		out = append(out, p.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

func (k *Kernel) persist() error {
	if !k.booted {
		return nil
	}
	return k.mem.SetJSON(ProcessTableKey, k.Descriptors())
}

// Spawn starts a fresh process of type typ. An empty pid gets a generated one.
func (k *Kernel) Spawn(typ, pid string, prio process.Priority) (string, error) {
	if pid == "" {
		pid = typ + "-" + uuid.NewString()
	}
	if _, exists := k.sched.Get(pid); exists {
		return "", fmt.Errorf("spawn %s: pid %s in use", typ, pid)
	}
	d := &process.Descriptor{PID: pid, Type: typ, Priority: prio, Active: true}
	p, err := k.reg.New(typ, d)
	if err != nil {
		return "", err
	}
	if err := k.sched.Add(p); err != nil {
		return "", err
	}
	k.logger.Printf("spawn %s (%s, %s)", pid, typ, prio)
	return pid, nil
}

// Kill removes pid and everything it wrote to the segment cache.
func (k *Kernel) Kill(pid string) bool {
	if !k.sched.Remove(pid) {
		return false
	}
	n := k.seg.Drop(pid)
	k.logger.Printf("kill %s (%d segment entries)", pid, n)
	return true
}

func (k *Kernel) Alive(pid string) bool {
	_, ok := k.sched.Get(pid)
	return ok
}

func (k *Kernel) Process(pid string) (process.Process, bool) { return k.sched.Get(pid) }
