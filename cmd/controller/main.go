package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jpillora/backoff"

	"tickcore.ai/internal/agent"
	"tickcore.ai/internal/config"
	"tickcore.ai/internal/host/sim"
	"tickcore.ai/internal/kernel"
	persistlog "tickcore.ai/internal/persistence/log"
	"tickcore.ai/internal/process"
	"tickcore.ai/internal/processes"
	"tickcore.ai/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/controller.yaml", "controller config (.yaml or .toml)")
		local      = flag.Bool("local", false, "drive an in-process demo world instead of connecting to a host")
		url        = flag.String("url", "", "host ws url (default: ws://<host.addr>/v1/ws)")
		ticks      = flag.Int("ticks", 0, "stop after this many ticks (0 = run until interrupted)")
		interval   = flag.Duration("interval", 0, "local tick interval (default: 1/host.tick_rate_hz)")
		logEvery   = flag.Int("log_every", 50, "log a tick summary every N ticks (0 = never)")
		reconnect  = flag.Bool("reconnect", true, "redial the host with backoff when the connection drops")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[controller] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	st, err := kernel.OpenStorage(cfg, logger)
	if err != nil {
		logger.Fatalf("open storage: %v", err)
	}
	defer st.Close()
	mem, seg := kernel.OpenMemory(st, cfg, logger)

	reports := persistlog.NewReportLogger(cfg.Logs.Dir)
	defer reports.Close()

	reg := process.NewRegistry()
	if err := processes.Register(reg); err != nil {
		logger.Fatalf("register processes: %v", err)
	}

	opts := agent.DefaultOptions()
	opts.StuckThreshold = cfg.Movement.StuckThreshold
	opts.StationaryPenalty = cfg.Movement.StationaryPenalty
	opts.MaxOps = cfg.Movement.MaxOps

	k := kernel.New(kernel.Options{
		Memory:      mem,
		Segments:    seg,
		Registry:    reg,
		Agents:      opts,
		ShoveLimit:  cfg.Movement.ShoveLimit,
		Budget:      cfg.Kernel.Budget(),
		GCEvery:     cfg.Kernel.GCEvery,
		ReportEvery: cfg.Kernel.ReportEvery,
		Reports:     reports,
		Rand:        rand.New(rand.NewSource(cfg.Host.Seed)),
		Logger:      logger,
	})

	ctx, cancel := signalContext()
	defer cancel()

	r := runner{k: k, logger: logger, limit: *ticks, logEvery: *logEvery}
	if *local {
		d := *interval
		if d <= 0 {
			d = time.Second / time.Duration(cfg.Host.TickRateHz)
		}
		err = r.runLocal(ctx, sim.NewDemo(cfg.Host.Seed), d)
	} else {
		u := strings.TrimSpace(*url)
		if u == "" {
			u = fmt.Sprintf("ws://%s/v1/ws", cfg.Host.Addr)
		}
		if *reconnect {
			r.retry = &backoff.Backoff{Min: 500 * time.Millisecond, Max: 30 * time.Second, Factor: 2, Jitter: true}
		}
		err = r.runRemoteLoop(ctx, u, cfg.Host.Player)
	}
	if err != nil && err != context.Canceled {
		logger.Printf("controller stopped: %v", err)
	}
}

type runner struct {
	k        *kernel.Kernel
	logger   *log.Logger
	limit    int
	logEvery int
	done     int
	retry    *backoff.Backoff
}

// runLocal steps an in-process world: the kernel issues actions directly and
// the world advances after every tick.
func (r *runner) runLocal(ctx context.Context, w *sim.World, interval time.Duration) error {
	r.logger.Printf("local demo world room=%s tick=%d interval=%s", sim.DemoRoom, w.Time(), interval)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := r.step(ctx, w); err != nil {
			return err
		}
		w.Advance()
		if r.finished() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// runRemoteLoop redials after connection errors until ctx is done, the tick
// limit is reached or retry is nil.
func (r *runner) runRemoteLoop(ctx context.Context, url, player string) error {
	for {
		err := r.runRemote(ctx, url, player)
		if err == nil || r.retry == nil || ctx.Err() != nil {
			return err
		}
		d := r.retry.Duration()
		r.logger.Printf("host connection lost: %v (attempt %.0f, retry in %s)", err, r.retry.Attempt(), d)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
}

// runRemote mirrors each TICK from the host into a local world, runs the
// kernel on it and sends the recorded actions back.
func (r *runner) runRemote(ctx context.Context, url, player string) error {
	c, err := ws.Dial(ctx, url, player)
	if err != nil {
		return err
	}
	defer c.Close()
	if r.retry != nil {
		r.retry.Reset()
	}
	welcome := c.Welcome()
	r.logger.Printf("connected to %s player=%s rooms=%v rate=%dHz", url, welcome.Player, welcome.Rooms, welcome.TickRateHz)

	for {
		tm, err := c.Next(ctx)
		if err != nil {
			return err
		}
		for _, res := range tm.Results {
			r.logger.Printf("tick %d: host rejected command %d: %s", tm.Tick, res.Index, res.Code)
		}
		w, err := sim.FromState(tm.State)
		if err != nil {
			return fmt.Errorf("tick %d: %w", tm.Tick, err)
		}
		if err := r.step(ctx, w); err != nil {
			return err
		}
		if err := c.Send(tm.Tick, w.Commands()); err != nil {
			return err
		}
		if r.finished() {
			return nil
		}
	}
}

func (r *runner) step(ctx context.Context, w *sim.World) error {
	rep, err := r.k.Run(ctx, w)
	if err != nil {
		return fmt.Errorf("tick %d: %w", rep.Tick, err)
	}
	r.done++
	if rep.Booted {
		r.logger.Printf("tick %d: booted with %d processes", rep.Tick, rep.Processes)
	}
	if rep.Failed > 0 {
		r.logger.Printf("tick %d: %d processes failed", rep.Tick, rep.Failed)
	}
	if r.logEvery > 0 && rep.Tick%uint64(r.logEvery) == 0 {
		r.logger.Printf("tick %d: ran=%d skipped=%d agents=%d moves=%d shoves=%d mem_written=%d elapsed=%s",
			rep.Tick, rep.Ran, rep.Skipped, rep.Agents, rep.Traffic.Moves, rep.Traffic.Shoves, rep.Memory.Written, rep.Elapsed)
	}
	return nil
}

func (r *runner) finished() bool { return r.limit > 0 && r.done >= r.limit }

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
