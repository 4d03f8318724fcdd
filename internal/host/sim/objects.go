package sim

import (
	"tickcore.ai/internal/host"
	"tickcore.ai/internal/protocol"
)

// Ticks a drained source waits before refilling.
const sourceRegenTicks = 300

type source struct {
	id       host.ObjectID
	pos      host.Pos
	energy   int
	capacity int
	regen    int
}

func (s *source) ID() host.ObjectID        { return s.id }
func (s *source) Pos() host.Pos            { return s.pos }
func (s *source) Energy() int              { return s.energy }
func (s *source) TicksToRegeneration() int { return s.regen }

func (s *source) take(n int) int {
	if n > s.energy {
		n = s.energy
	}
	s.energy -= n
	if s.energy < s.capacity && s.regen == 0 {
		s.regen = sourceRegenTicks
	}
	return n
}

func (s *source) regenerate() {
	if s.regen == 0 {
		return
	}
	s.regen--
	if s.regen == 0 {
		s.energy = s.capacity
	}
}

func (s *source) state() protocol.ObjectState {
	return protocol.ObjectState{
		ID: string(s.id), Kind: protocol.KindSource, Pos: s.pos,
		Energy: s.energy, EnergyCapacity: s.capacity, Regen: s.regen,
	}
}

type dropped struct {
	id       host.ObjectID
	pos      host.Pos
	resource host.Resource
	amount   int
}

func (d *dropped) ID() host.ObjectID       { return d.id }
func (d *dropped) Pos() host.Pos           { return d.pos }
func (d *dropped) Resource() host.Resource { return d.resource }
func (d *dropped) Amount() int             { return d.amount }

func (d *dropped) state() protocol.ObjectState {
	return protocol.ObjectState{
		ID: string(d.id), Kind: protocol.KindDropped, Pos: d.pos,
		Resource: d.resource, Amount: d.amount,
	}
}

type site struct {
	w        *World
	id       host.ObjectID
	pos      host.Pos
	typ      host.StructureType
	progress int
	total    int
}

func (s *site) ID() host.ObjectID  { return s.id }
func (s *site) Pos() host.Pos      { return s.pos }
func (s *site) Progress() int      { return s.progress }
func (s *site) ProgressTotal() int { return s.total }

// advance adds progress and turns the site into a structure once complete.
func (s *site) advance(n int) int {
	if rem := s.total - s.progress; n > rem {
		n = rem
	}
	s.progress += n
	if s.progress >= s.total {
		delete(s.w.objects, s.id)
		st := &structure{w: s.w, id: s.id, pos: s.pos, typ: s.typ, hits: 1000, hitsMax: 1000, owner: s.w.player}
		s.w.objects[st.id] = st
	}
	return n
}

func (s *site) state() protocol.ObjectState {
	return protocol.ObjectState{
		ID: string(s.id), Kind: protocol.KindSite, Pos: s.pos,
		StructureType: s.typ, Progress: s.progress, ProgressTotal: s.total,
	}
}

type structure struct {
	w       *World
	id      host.ObjectID
	pos     host.Pos
	typ     host.StructureType
	hits    int
	hitsMax int
	owner   string
}

func (s *structure) ID() host.ObjectID                 { return s.id }
func (s *structure) Pos() host.Pos                     { return s.pos }
func (s *structure) StructureType() host.StructureType { return s.typ }
func (s *structure) Hits() int                         { return s.hits }
func (s *structure) HitsMax() int                      { return s.hitsMax }
func (s *structure) My() bool                          { return s.owner == s.w.player }

func (s *structure) damage(n int) {
	s.hits -= n
	if s.hits <= 0 {
		delete(s.w.objects, s.id)
	}
}

func (s *structure) state() protocol.ObjectState {
	return protocol.ObjectState{
		ID: string(s.id), Kind: protocol.KindStructure, Pos: s.pos,
		StructureType: s.typ, Hits: s.hits, HitsMax: s.hitsMax, Hostile: !s.My(),
	}
}

type container struct {
	*structure
	store host.Store
}

func (c *container) Store() host.Store { return copyStore(c.store) }

func (c *container) state() protocol.ObjectState {
	st := c.structure.state()
	s := copyStore(c.store)
	st.Store = &s
	return st
}

type controller struct {
	w          *World
	id         host.ObjectID
	pos        host.Pos
	level      int
	progress   int
	owner      string
	reservedBy string
}

func (c *controller) ID() host.ObjectID  { return c.id }
func (c *controller) Pos() host.Pos      { return c.pos }
func (c *controller) Level() int         { return c.level }
func (c *controller) My() bool           { return c.owner != "" && c.owner == c.w.player }
func (c *controller) Owner() string      { return c.owner }
func (c *controller) ReservedBy() string { return c.reservedBy }

func (c *controller) state() protocol.ObjectState {
	return protocol.ObjectState{
		ID: string(c.id), Kind: protocol.KindController, Pos: c.pos,
		Level: c.level, Progress: c.progress, Owner: c.owner, ReservedBy: c.reservedBy,
	}
}

func copyStore(s host.Store) host.Store {
	out := host.Store{Capacity: s.Capacity, Amounts: make(map[host.Resource]int, len(s.Amounts))}
	for k, v := range s.Amounts {
		out.Amounts[k] = v
	}
	return out
}
