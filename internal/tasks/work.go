package tasks

import "tickcore.ai/internal/host"

// Build spends energy on a construction site until the agent runs dry or the
// site is gone. It works from WorkRange while still closing in to
// TargetRange, so the approach ticks are not wasted.
type Build struct{ base }

func NewBuild(site host.ObjectID) *Build {
	return &Build{base: newBase(KindBuild, site, Settings{TargetRange: 1, WorkRange: 3}, MovePriorityWork)}
}

func (t *Build) IsValid(a Agent) bool {
	if a.Store().Get(host.Energy) == 0 {
		return false
	}
	obj, ok := a.Lookup(t.target)
	if !ok {
		return false
	}
	s, ok := obj.(host.Site)
	return ok && s.Progress() < s.ProgressTotal()
}

func (t *Build) Run(a Agent) bool {
	obj, pos, ok := t.locate(a)
	if !ok {
		return true
	}
	d := pos.Range(obj.Pos())
	if d > t.settings.WorkRange {
		t.approach(a, obj.Pos())
		return false
	}
	code := a.Build(t.target)
	if d > t.settings.TargetRange {
		t.approach(a, obj.Pos())
	}
	if code == host.CodeNotEnough {
		return true
	}
	return t.finish(a, code, obj.Pos())
}

// Repair restores hits on a structure until it is full or the agent runs dry.
type Repair struct{ base }

func NewRepair(structure host.ObjectID) *Repair {
	return &Repair{base: newBase(KindRepair, structure, Settings{TargetRange: 3, WorkRange: 3}, MovePriorityWork)}
}

func (t *Repair) IsValid(a Agent) bool {
	if a.Store().Get(host.Energy) == 0 {
		return false
	}
	obj, ok := a.Lookup(t.target)
	if !ok {
		return false
	}
	s, ok := obj.(host.Structure)
	return ok && s.Hits() < s.HitsMax()
}

func (t *Repair) Run(a Agent) bool {
	obj, pos, ok := t.locate(a)
	if !ok {
		return true
	}
	if !pos.InRange(obj.Pos(), t.settings.WorkRange) {
		t.approach(a, obj.Pos())
		return false
	}
	code := a.Repair(t.target)
	if code == host.CodeNotEnough {
		return true
	}
	return t.finish(a, code, obj.Pos())
}

// Upgrade feeds energy into an owned controller.
type Upgrade struct{ base }

func NewUpgrade(controller host.ObjectID) *Upgrade {
	return &Upgrade{base: newBase(KindUpgrade, controller, Settings{TargetRange: 3, WorkRange: 3}, MovePriorityWork)}
}

func (t *Upgrade) Stationary() bool { return true }

func (t *Upgrade) IsValid(a Agent) bool {
	if a.Store().Get(host.Energy) == 0 {
		return false
	}
	obj, ok := a.Lookup(t.target)
	if !ok {
		return false
	}
	c, ok := obj.(host.Controller)
	return ok && c.My()
}

func (t *Upgrade) Run(a Agent) bool {
	obj, pos, ok := t.locate(a)
	if !ok {
		return true
	}
	if !pos.InRange(obj.Pos(), t.settings.WorkRange) {
		t.approach(a, obj.Pos())
		return false
	}
	code := a.UpgradeController(t.target)
	if code == host.CodeNotEnough {
		return true
	}
	return t.finish(a, code, obj.Pos())
}

// Reserve keeps a neutral controller reserved.
type Reserve struct{ base }

func NewReserve(controller host.ObjectID) *Reserve {
	return &Reserve{base: newBase(KindReserve, controller, Settings{TargetRange: 1, WorkRange: 1}, MovePriorityReserve)}
}

func (t *Reserve) IsValid(a Agent) bool {
	obj, ok := a.Lookup(t.target)
	if !ok {
		return false
	}
	c, ok := obj.(host.Controller)
	return ok && c.Owner() == ""
}

func (t *Reserve) Run(a Agent) bool {
	obj, pos, ok := t.locate(a)
	if !ok {
		return true
	}
	if !pos.InRange(obj.Pos(), t.settings.WorkRange) {
		t.approach(a, obj.Pos())
		return false
	}
	return t.finish(a, a.ReserveController(t.target), obj.Pos())
}

// Dismantle tears a structure down for energy. A full store ends the task so
// the planner can hand the agent over to a deposit task.
type Dismantle struct{ base }

func NewDismantle(structure host.ObjectID) *Dismantle {
	return &Dismantle{base: newBase(KindDismantle, structure, Settings{TargetRange: 1, WorkRange: 1}, MovePriorityWork)}
}

func (t *Dismantle) IsValid(a Agent) bool {
	obj, ok := a.Lookup(t.target)
	if !ok {
		return false
	}
	_, ok = obj.(host.Structure)
	return ok
}

func (t *Dismantle) Run(a Agent) bool {
	obj, pos, ok := t.locate(a)
	if !ok {
		return true
	}
	if !pos.InRange(obj.Pos(), t.settings.WorkRange) {
		t.approach(a, obj.Pos())
		return false
	}
	code := a.Dismantle(t.target)
	if code == host.CodeOK {
		if st := a.Store(); st.Capacity > 0 && st.Free() == 0 {
			return true
		}
	}
	return t.finish(a, code, obj.Pos())
}
