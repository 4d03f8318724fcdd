package processes

import (
	"tickcore.ai/internal/host"
	"tickcore.ai/internal/process"
	"tickcore.ai/internal/tasks"
)

// MiningStatsBank is the segment bank mining publishes its counters to.
const MiningStatsBank = 1

// MiningStats is what mining writes to its segment entry.
type MiningStats struct {
	Tick       uint64 `json:"tick"`
	Miners     int    `json:"miners"`
	Sources    int    `json:"sources"`
	Harvests   int    `json:"harvests"`
	Deliveries int    `json:"deliveries"`
}

// Mining spreads miners over the sources and sends full miners to deposit.
type Mining struct {
	process.Base
	state struct {
		Harvests   int `json:"harvests"`
		Deliveries int `json:"deliveries"`
	}
}

func NewMining(d *process.Descriptor) (process.Process, error) {
	m := &Mining{Base: process.NewBase(d, TypeMining, process.High)}
	if err := m.Load(&m.state); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mining) Run(ctx *process.Context) error {
	sources := find(ctx.World, func(s host.Source) bool {
		return s.Energy() > 0 || s.TicksToRegeneration() > 0
	})

	miners := 0
	load := map[host.ObjectID]int{}
	for _, name := range ctx.Agents.Mine() {
		if Role(name) != RoleMiner {
			continue
		}
		miners++
		if t := ctx.Agents.Get(name).Task(); t != nil && t.Kind() == tasks.KindHarvest {
			load[t.TargetID()]++
		}
	}

	for _, a := range idle(ctx, RoleMiner) {
		pos, ok := a.Pos()
		if !ok {
			continue
		}
		if st := a.Store(); st.Capacity > 0 && st.Free() == 0 {
			if dst, ok := nearest(pos, sinks(ctx.World)); ok {
				a.SetTask(tasks.NewTransfer(dst.ID(), host.Energy, 0))
				m.state.Deliveries++
			}
			continue
		}
		src, ok := leastLoaded(pos, sources, load)
		if !ok {
			continue
		}
		load[src.ID()]++
		a.SetTask(tasks.NewHarvest(src.ID()))
		m.state.Harvests++
	}

	if err := m.Store(&m.state); err != nil {
		return err
	}
	return m.publish(ctx, MiningStats{
		Tick:       ctx.Tick,
		Miners:     miners,
		Sources:    len(sources),
		Harvests:   m.state.Harvests,
		Deliveries: m.state.Deliveries,
	})
}

// publish writes stats when the bank is readable and asks for it again.
func (m *Mining) publish(ctx *process.Context, s MiningStats) error {
	if ctx.Segments == nil {
		return nil
	}
	if ctx.Segments.Active(MiningStatsBank) {
		if err := ctx.Segments.Write(MiningStatsBank, m.PID(), s); err != nil {
			return err
		}
	}
	return ctx.Segments.Request(MiningStatsBank)
}

// leastLoaded picks the source with the fewest assigned miners in pos's
// room, nearest first on ties.
func leastLoaded(pos host.Pos, sources []host.Source, load map[host.ObjectID]int) (host.Source, bool) {
	var best host.Source
	for _, s := range sources {
		if s.Pos().Room != pos.Room {
			continue
		}
		if best == nil {
			best = s
			continue
		}
		ls, lb := load[s.ID()], load[best.ID()]
		if ls < lb || (ls == lb && pos.Range(s.Pos()) < pos.Range(best.Pos())) {
			best = s
		}
	}
	return best, best != nil
}
