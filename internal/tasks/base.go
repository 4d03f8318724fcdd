package tasks

import "tickcore.ai/internal/host"

type base struct {
	kind     Kind
	target   host.ObjectID
	settings Settings
	resource host.Resource
	amount   int
	priority int
}

func newBase(kind Kind, target host.ObjectID, s Settings, priority int) base {
	return base{kind: kind, target: target, settings: s, priority: priority}
}

func restore(r Record, priority int) base {
	b := newBase(r.Name, host.ObjectID(r.TargetID), r.Settings, priority)
	b.resource = r.Resource
	b.amount = r.Amount
	return b
}

func (b *base) Kind() Kind              { return b.kind }
func (b *base) TargetID() host.ObjectID { return b.target }
func (b *base) Settings() Settings      { return b.settings }

func (b *base) Record() Record {
	return Record{
		Name:     b.kind,
		TargetID: string(b.target),
		Settings: b.settings,
		Resource: b.resource,
		Amount:   b.amount,
	}
}

// locate resolves the target and the agent's position for this tick.
func (b *base) locate(a Agent) (host.Object, host.Pos, bool) {
	pos, alive := a.Pos()
	if !alive {
		return nil, host.Pos{}, false
	}
	obj, ok := a.Lookup(b.target)
	if !ok {
		return nil, host.Pos{}, false
	}
	return obj, pos, true
}

func (b *base) approach(a Agent, to host.Pos) {
	a.TravelTo(to, b.settings.TargetRange, b.priority)
}

// finish maps an action result onto the completion decision shared by all
// tasks: fatal codes end the task, everything else retries next tick.
func (b *base) finish(a Agent, code host.Code, to host.Pos) bool {
	switch code {
	case host.CodeOK:
		return b.settings.OneShot
	case host.CodeNotInRange:
		b.approach(a, to)
		return false
	}
	return code.Fatal()
}

func resourceOr(r host.Resource) host.Resource {
	if r == "" {
		return host.Energy
	}
	return r
}
