package tasks

import "tickcore.ai/internal/host"

// Harvest extracts energy from a source until something fatal happens.
// Busy, tired and depleted sources keep the task; they resolve on their own.
type Harvest struct{ base }

func NewHarvest(source host.ObjectID) *Harvest {
	return &Harvest{base: newBase(KindHarvest, source, Settings{TargetRange: 1, WorkRange: 1}, MovePriorityHarvest)}
}

func (t *Harvest) Stationary() bool { return true }

func (t *Harvest) IsValid(a Agent) bool {
	obj, ok := a.Lookup(t.target)
	if !ok {
		return false
	}
	src, ok := obj.(host.Source)
	if !ok {
		return false
	}
	if src.Energy() == 0 && src.TicksToRegeneration() == 0 {
		return false
	}
	st := a.Store()
	// Agents without carry capacity drop-harvest forever.
	return st.Capacity == 0 || st.Free() > 0
}

func (t *Harvest) Run(a Agent) bool {
	obj, pos, ok := t.locate(a)
	if !ok {
		return true
	}
	if !pos.InRange(obj.Pos(), t.settings.WorkRange) {
		t.approach(a, obj.Pos())
		return false
	}
	return t.finish(a, a.Harvest(t.target), obj.Pos())
}

// Transfer deposits a resource into a store. One success finishes it.
type Transfer struct{ base }

func NewTransfer(target host.ObjectID, r host.Resource, amount int) *Transfer {
	t := &Transfer{base: newBase(KindTransfer, target, Settings{TargetRange: 1, WorkRange: 1, OneShot: true}, MovePriorityStore)}
	t.resource = resourceOr(r)
	t.amount = amount
	return t
}

func (t *Transfer) IsValid(a Agent) bool {
	if a.Store().Get(resourceOr(t.resource)) == 0 {
		return false
	}
	obj, ok := a.Lookup(t.target)
	if !ok {
		return false
	}
	st, ok := obj.(host.Storable)
	return ok && st.Store().Free() > 0
}

func (t *Transfer) Run(a Agent) bool {
	obj, pos, ok := t.locate(a)
	if !ok {
		return true
	}
	if !pos.InRange(obj.Pos(), t.settings.WorkRange) {
		t.approach(a, obj.Pos())
		return false
	}
	code := a.Transfer(t.target, resourceOr(t.resource), t.amount)
	switch code {
	case host.CodeFull, host.CodeNotEnough:
		return true
	}
	return t.finish(a, code, obj.Pos())
}

// Withdraw takes a resource out of a store. One success finishes it.
type Withdraw struct{ base }

func NewWithdraw(target host.ObjectID, r host.Resource, amount int) *Withdraw {
	t := &Withdraw{base: newBase(KindWithdraw, target, Settings{TargetRange: 1, WorkRange: 1, OneShot: true}, MovePriorityStore)}
	t.resource = resourceOr(r)
	t.amount = amount
	return t
}

func (t *Withdraw) IsValid(a Agent) bool {
	if a.Store().Free() == 0 {
		return false
	}
	obj, ok := a.Lookup(t.target)
	if !ok {
		return false
	}
	st, ok := obj.(host.Storable)
	return ok && st.Store().Get(resourceOr(t.resource)) > 0
}

func (t *Withdraw) Run(a Agent) bool {
	obj, pos, ok := t.locate(a)
	if !ok {
		return true
	}
	if !pos.InRange(obj.Pos(), t.settings.WorkRange) {
		t.approach(a, obj.Pos())
		return false
	}
	code := a.Withdraw(t.target, resourceOr(t.resource), t.amount)
	switch code {
	case host.CodeFull, host.CodeNotEnough:
		return true
	}
	return t.finish(a, code, obj.Pos())
}

// Pickup collects a dropped resource. One success finishes it.
type Pickup struct{ base }

func NewPickup(target host.ObjectID) *Pickup {
	return &Pickup{base: newBase(KindPickup, target, Settings{TargetRange: 1, WorkRange: 1, OneShot: true}, MovePriorityStore)}
}

func (t *Pickup) IsValid(a Agent) bool {
	if a.Store().Free() == 0 {
		return false
	}
	obj, ok := a.Lookup(t.target)
	if !ok {
		return false
	}
	d, ok := obj.(host.Dropped)
	return ok && d.Amount() > 0
}

func (t *Pickup) Run(a Agent) bool {
	obj, pos, ok := t.locate(a)
	if !ok {
		return true
	}
	if !pos.InRange(obj.Pos(), t.settings.WorkRange) {
		t.approach(a, obj.Pos())
		return false
	}
	code := a.Pickup(t.target)
	if code == host.CodeFull {
		return true
	}
	return t.finish(a, code, obj.Pos())
}
