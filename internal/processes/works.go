package processes

import (
	"tickcore.ai/internal/agent"
	"tickcore.ai/internal/host"
	"tickcore.ai/internal/process"
	"tickcore.ai/internal/tasks"
)

// RepairThreshold is the hits fraction under which own structures get repaired.
const RepairThreshold = 0.5

// Works keeps workers busy: refuel when empty, otherwise build, repair,
// tear down hostile structures, reserve neutral controllers and upgrade.
type Works struct {
	process.Base
	state struct {
		Assigned map[tasks.Kind]int `json:"assigned,omitempty"`
	}
}

func NewWorks(d *process.Descriptor) (process.Process, error) {
	w := &Works{Base: process.NewBase(d, TypeWorks, process.Normal)}
	if err := w.Load(&w.state); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Works) Run(ctx *process.Context) error {
	for _, a := range idle(ctx, RoleWorker) {
		if t := w.next(ctx.World, a); t != nil {
			a.SetTask(t)
			if w.state.Assigned == nil {
				w.state.Assigned = map[tasks.Kind]int{}
			}
			w.state.Assigned[t.Kind()]++
		}
	}
	return w.Store(&w.state)
}

func (w *Works) next(world host.World, a *agent.Wrapper) tasks.Task {
	pos, ok := a.Pos()
	if !ok {
		return nil
	}
	st := a.Store()

	if a.HasPart(host.Claim) {
		ctrls := find(world, func(c host.Controller) bool { return c.Owner() == "" })
		if c, ok := nearest(pos, ctrls); ok {
			return tasks.NewReserve(c.ID())
		}
	}

	if st.Get(host.Energy) == 0 {
		if st.Free() > 0 {
			hostile := find(world, func(s host.Structure) bool {
				return !s.My() && s.StructureType() != host.StructureRoad
			})
			if s, ok := nearest(pos, hostile); ok {
				return tasks.NewDismantle(s.ID())
			}
		}
		if s, ok := nearest(pos, stocks(world)); ok {
			return tasks.NewWithdraw(s.ID(), host.Energy, 0)
		}
		if s, ok := nearest(pos, find[host.Source](world, func(s host.Source) bool { return s.Energy() > 0 })); ok {
			return tasks.NewHarvest(s.ID())
		}
		return nil
	}

	if s, ok := nearest(pos, find[host.Site](world, nil)); ok {
		return tasks.NewBuild(s.ID())
	}
	damaged := find(world, func(s host.Structure) bool {
		return s.My() && float64(s.Hits()) < RepairThreshold*float64(s.HitsMax())
	})
	if s, ok := nearest(pos, damaged); ok {
		return tasks.NewRepair(s.ID())
	}
	if c, ok := nearest(pos, find(world, func(c host.Controller) bool { return c.My() })); ok {
		return tasks.NewUpgrade(c.ID())
	}
	return nil
}
