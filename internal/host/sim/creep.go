package sim

import (
	"tickcore.ai/internal/host"
	"tickcore.ai/internal/protocol"
)

type creep struct {
	w        *World
	id       host.ObjectID
	name     string
	pos      host.Pos
	body     []host.BodyPart
	store    host.Store
	fatigue  int
	spawning int
	hostile  bool
	hits     int
	hitsMax  int
}

func (c *creep) ID() host.ObjectID            { return c.id }
func (c *creep) Pos() host.Pos                { return c.pos }
func (c *creep) Name() string                 { return c.name }
func (c *creep) My() bool                     { return !c.hostile }
func (c *creep) Spawning() bool               { return c.spawning > 0 }
func (c *creep) Fatigue() int                 { return c.fatigue }
func (c *creep) Store() host.Store            { return copyStore(c.store) }
func (c *creep) HasPart(p host.BodyPart) bool { return c.count(p) > 0 }

func (c *creep) count(p host.BodyPart) int {
	n := 0
	for _, b := range c.body {
		if b == p {
			n++
		}
	}
	return n
}

// weight is the number of parts that generate fatigue.
func (c *creep) weight() int {
	n := 0
	for _, b := range c.body {
		if b != host.Move && b != host.Carry {
			n++
		}
	}
	return n
}

func (c *creep) moveTo(p host.Pos) {
	c.fatigue += c.weight() * c.w.moveCost(p)
	c.pos = p
}

// ready checks the preconditions shared by every action.
func (c *creep) ready(part host.BodyPart) host.Code {
	if c.hostile {
		return host.CodeNotOwner
	}
	if c.spawning > 0 {
		return host.CodeBusy
	}
	if part != "" && !c.HasPart(part) {
		return host.CodeNoBodyPart
	}
	return host.CodeOK
}

func (c *creep) ok(action string, target host.ObjectID) host.Code {
	c.w.record(protocol.Command{Creep: c.name, Action: action, Target: string(target)})
	return host.CodeOK
}

func (c *creep) target(id host.ObjectID, rng int) (host.Object, host.Code) {
	o, found := c.w.Object(id)
	if !found {
		return nil, host.CodeInvalidTarget
	}
	if !c.pos.InRange(o.Pos(), rng) {
		return o, host.CodeNotInRange
	}
	return o, host.CodeOK
}

func (c *creep) Harvest(id host.ObjectID) host.Code {
	if code := c.ready(host.Work); code != host.CodeOK {
		return code
	}
	o, code := c.target(id, 1)
	if code == host.CodeInvalidTarget {
		return code
	}
	src, isSource := o.(*source)
	if !isSource {
		return host.CodeInvalidTarget
	}
	if code != host.CodeOK {
		return code
	}
	if src.energy == 0 {
		return host.CodeNotEnough
	}
	got := src.take(2 * c.count(host.Work))
	c.add(host.Energy, got)
	return c.ok(protocol.ActHarvest, id)
}

func (c *creep) Build(id host.ObjectID) host.Code {
	if code := c.ready(host.Work); code != host.CodeOK {
		return code
	}
	o, code := c.target(id, 3)
	if code == host.CodeInvalidTarget {
		return code
	}
	s, isSite := o.(*site)
	if !isSite {
		return host.CodeInvalidTarget
	}
	if code != host.CodeOK {
		return code
	}
	have := c.store.Amounts[host.Energy]
	if have == 0 {
		return host.CodeNotEnough
	}
	n := 5 * c.count(host.Work)
	if n > have {
		n = have
	}
	spent := s.advance(n)
	c.store.Amounts[host.Energy] = have - spent
	return c.ok(protocol.ActBuild, id)
}

func (c *creep) Repair(id host.ObjectID) host.Code {
	if code := c.ready(host.Work); code != host.CodeOK {
		return code
	}
	o, code := c.target(id, 3)
	if code == host.CodeInvalidTarget {
		return code
	}
	s := structureOf(o)
	if s == nil {
		return host.CodeInvalidTarget
	}
	if code != host.CodeOK {
		return code
	}
	have := c.store.Amounts[host.Energy]
	if have == 0 {
		return host.CodeNotEnough
	}
	spend := c.count(host.Work)
	if spend > have {
		spend = have
	}
	s.hits += 100 * spend
	if s.hits > s.hitsMax {
		s.hits = s.hitsMax
	}
	c.store.Amounts[host.Energy] = have - spend
	return c.ok(protocol.ActRepair, id)
}

func (c *creep) UpgradeController(id host.ObjectID) host.Code {
	if code := c.ready(host.Work); code != host.CodeOK {
		return code
	}
	o, code := c.target(id, 3)
	if code == host.CodeInvalidTarget {
		return code
	}
	ctl, isCtl := o.(*controller)
	if !isCtl {
		return host.CodeInvalidTarget
	}
	if !ctl.My() {
		return host.CodeNotOwner
	}
	if code != host.CodeOK {
		return code
	}
	have := c.store.Amounts[host.Energy]
	if have == 0 {
		return host.CodeNotEnough
	}
	spend := c.count(host.Work)
	if spend > have {
		spend = have
	}
	ctl.progress += spend
	c.store.Amounts[host.Energy] = have - spend
	return c.ok(protocol.ActUpgrade, id)
}

func (c *creep) ReserveController(id host.ObjectID) host.Code {
	if code := c.ready(host.Claim); code != host.CodeOK {
		return code
	}
	o, code := c.target(id, 1)
	if code == host.CodeInvalidTarget {
		return code
	}
	ctl, isCtl := o.(*controller)
	if !isCtl {
		return host.CodeInvalidTarget
	}
	if ctl.owner != "" {
		return host.CodeInvalidTarget
	}
	if ctl.reservedBy != "" && ctl.reservedBy != c.w.player {
		return host.CodeInvalidTarget
	}
	if code != host.CodeOK {
		return code
	}
	ctl.reservedBy = c.w.player
	return c.ok(protocol.ActReserve, id)
}

func (c *creep) Dismantle(id host.ObjectID) host.Code {
	if code := c.ready(host.Work); code != host.CodeOK {
		return code
	}
	o, code := c.target(id, 1)
	if code == host.CodeInvalidTarget {
		return code
	}
	s := structureOf(o)
	if s == nil {
		return host.CodeInvalidTarget
	}
	if code != host.CodeOK {
		return code
	}
	work := c.count(host.Work)
	c.add(host.Energy, 25*work)
	s.damage(50 * work)
	return c.ok(protocol.ActDismantle, id)
}

func (c *creep) Attack(id host.ObjectID) host.Code {
	if code := c.ready(host.Attack); code != host.CodeOK {
		return code
	}
	return c.hit(protocol.ActAttack, id, 1, 30*c.count(host.Attack))
}

func (c *creep) Heal(id host.ObjectID) host.Code {
	if code := c.ready(host.Heal); code != host.CodeOK {
		return code
	}
	return c.mend(protocol.ActHeal, id, 1, 12*c.count(host.Heal))
}

func (c *creep) RangedAttack(id host.ObjectID) host.Code {
	if code := c.ready(host.RangedAttack); code != host.CodeOK {
		return code
	}
	return c.hit(protocol.ActRangedAttack, id, 3, 10*c.count(host.RangedAttack))
}

func (c *creep) RangedHeal(id host.ObjectID) host.Code {
	if code := c.ready(host.Heal); code != host.CodeOK {
		return code
	}
	return c.mend(protocol.ActRangedHeal, id, 3, 4*c.count(host.Heal))
}

func (c *creep) RangedMassAttack() host.Code {
	if code := c.ready(host.RangedAttack); code != host.CodeOK {
		return code
	}
	for _, other := range c.w.creeps {
		if other.hostile && c.pos.InRange(other.pos, 3) {
			other.hits -= 4 * c.count(host.RangedAttack)
		}
	}
	c.w.record(protocol.Command{Creep: c.name, Action: protocol.ActRangedMassAttack})
	return host.CodeOK
}

func (c *creep) hit(action string, id host.ObjectID, rng, dmg int) host.Code {
	o, code := c.target(id, rng)
	if code != host.CodeOK {
		return code
	}
	switch t := o.(type) {
	case *creep:
		t.hits -= dmg
		if t.hits <= 0 {
			c.w.RemoveCreep(t.name)
		}
	default:
		s := structureOf(o)
		if s == nil {
			return host.CodeInvalidTarget
		}
		s.damage(dmg)
	}
	return c.ok(action, id)
}

func (c *creep) mend(action string, id host.ObjectID, rng, amount int) host.Code {
	o, code := c.target(id, rng)
	if code == host.CodeInvalidTarget {
		return code
	}
	t, isCreep := o.(*creep)
	if !isCreep {
		return host.CodeInvalidTarget
	}
	if code != host.CodeOK {
		return code
	}
	t.hits += amount
	if t.hits > t.hitsMax {
		t.hits = t.hitsMax
	}
	return c.ok(action, id)
}

func (c *creep) Transfer(id host.ObjectID, r host.Resource, amount int) host.Code {
	if code := c.ready(""); code != host.CodeOK {
		return code
	}
	have := c.store.Amounts[r]
	if have == 0 {
		return host.CodeNotEnough
	}
	o, code := c.target(id, 1)
	if code == host.CodeInvalidTarget {
		return code
	}
	dst := storeOf(o)
	if dst == nil {
		return host.CodeInvalidTarget
	}
	if code != host.CodeOK {
		return code
	}
	free := dst.Free()
	if free == 0 {
		return host.CodeFull
	}
	n := clampAmount(amount, have, free)
	c.store.Amounts[r] = have - n
	if dst.Amounts == nil {
		dst.Amounts = map[host.Resource]int{}
	}
	dst.Amounts[r] += n
	c.w.record(protocol.Command{Creep: c.name, Action: protocol.ActTransfer, Target: string(id), Resource: r, Amount: n})
	return host.CodeOK
}

func (c *creep) Withdraw(id host.ObjectID, r host.Resource, amount int) host.Code {
	if code := c.ready(""); code != host.CodeOK {
		return code
	}
	o, code := c.target(id, 1)
	if code == host.CodeInvalidTarget {
		return code
	}
	cont, isContainer := o.(*container)
	if !isContainer {
		return host.CodeInvalidTarget
	}
	if code != host.CodeOK {
		return code
	}
	have := cont.store.Amounts[r]
	if have == 0 {
		return host.CodeNotEnough
	}
	free := c.store.Free()
	if free == 0 {
		return host.CodeFull
	}
	n := clampAmount(amount, have, free)
	cont.store.Amounts[r] = have - n
	c.add(r, n)
	c.w.record(protocol.Command{Creep: c.name, Action: protocol.ActWithdraw, Target: string(id), Resource: r, Amount: n})
	return host.CodeOK
}

func (c *creep) Pickup(id host.ObjectID) host.Code {
	if code := c.ready(""); code != host.CodeOK {
		return code
	}
	o, code := c.target(id, 1)
	if code == host.CodeInvalidTarget {
		return code
	}
	d, isDropped := o.(*dropped)
	if !isDropped {
		return host.CodeInvalidTarget
	}
	if code != host.CodeOK {
		return code
	}
	free := c.store.Free()
	if free == 0 {
		return host.CodeFull
	}
	n := clampAmount(0, d.amount, free)
	d.amount -= n
	if d.amount == 0 {
		delete(c.w.objects, d.id)
	}
	c.add(d.resource, n)
	return c.ok(protocol.ActPickup, id)
}

func (c *creep) Drop(r host.Resource, amount int) host.Code {
	if code := c.ready(""); code != host.CodeOK {
		return code
	}
	have := c.store.Amounts[r]
	if have == 0 {
		return host.CodeNotEnough
	}
	n := clampAmount(amount, have, have)
	c.store.Amounts[r] = have - n
	c.w.AddDropped(c.pos, r, n)
	c.w.record(protocol.Command{Creep: c.name, Action: protocol.ActDrop, Resource: r, Amount: n})
	return host.CodeOK
}

func (c *creep) Move(d host.Direction) host.Code {
	if code := c.ready(host.Move); code != host.CodeOK {
		return code
	}
	if !d.Valid() {
		return host.CodeInvalidArgs
	}
	if c.fatigue > 0 {
		return host.CodeTired
	}
	c.w.moves = append(c.w.moves, moveReq{name: c.name, dir: d})
	c.w.moveCalls = append(c.w.moveCalls, MoveCall{Creep: c.name, Direction: d})
	c.w.record(protocol.Command{Creep: c.name, Action: protocol.ActMove, Direction: int(d)})
	return host.CodeOK
}

func (c *creep) add(r host.Resource, n int) {
	if free := c.store.Free(); n > free {
		n = free
	}
	c.store.Amounts[r] += n
}

func structureOf(o host.Object) *structure {
	switch s := o.(type) {
	case *structure:
		return s
	case *container:
		return s.structure
	}
	return nil
}

// storeOf returns the mutable store of o, or nil when o has none.
func storeOf(o host.Object) *host.Store {
	switch t := o.(type) {
	case *container:
		return &t.store
	case *creep:
		return &t.store
	}
	return nil
}

func clampAmount(want, have, room int) int {
	n := have
	if want > 0 && want < n {
		n = want
	}
	if n > room {
		n = room
	}
	return n
}
