// Package sim is an in-memory host world. It backs the local controller mode,
// the WebSocket host simulator, and tests. Actions take effect immediately,
// except movement, which is queued and applied by Advance at the end of the tick.
package sim

import (
	"fmt"
	"sort"

	"tickcore.ai/internal/host"
	"tickcore.ai/internal/protocol"
)

// DefaultPlayer is the owner name used for objects controlled by this world's player.
const DefaultPlayer = "me"

type roomGrid [host.RoomSize * host.RoomSize]host.Terrain

type object interface {
	host.Object
	state() protocol.ObjectState
}

type World struct {
	player string
	tick   uint64

	rooms     map[string]*roomGrid
	objects   map[host.ObjectID]object
	creeps    map[string]*creep
	creepByID map[host.ObjectID]*creep

	moves     []moveReq
	moveCalls []MoveCall
	commands  []protocol.Command

	nextID   uint64
	idPrefix string
}

type moveReq struct {
	name string
	dir  host.Direction
}

// MoveCall records one accepted Move call, in call order.
type MoveCall struct {
	Creep     string
	Direction host.Direction
}

func New() *World {
	return &World{
		player:    DefaultPlayer,
		tick:      1,
		rooms:     map[string]*roomGrid{},
		objects:   map[host.ObjectID]object{},
		creeps:    map[string]*creep{},
		creepByID: map[host.ObjectID]*creep{},
	}
}

func (w *World) Player() string { return w.player }

func (w *World) Time() uint64 { return w.tick }

func (w *World) SetTime(t uint64) { w.tick = t }

func (w *World) newID(prefix string) host.ObjectID {
	w.nextID++
	return host.ObjectID(fmt.Sprintf("%s%s%04d", w.idPrefix, prefix, w.nextID))
}

func (w *World) room(name string) *roomGrid {
	g := w.rooms[name]
	if g == nil {
		g = &roomGrid{}
		w.rooms[name] = g
	}
	return g
}

// AddRoom declares a room with plain terrain everywhere.
func (w *World) AddRoom(name string) { w.room(name) }

func (w *World) Rooms() []string {
	out := make([]string, 0, len(w.rooms))
	for name := range w.rooms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (w *World) SetTerrain(p host.Pos, t host.Terrain) {
	if !p.InBounds() {
		return
	}
	w.room(p.Room)[p.Y*host.RoomSize+p.X] = t
}

func (w *World) Terrain(p host.Pos) host.Terrain {
	g := w.rooms[p.Room]
	if g == nil || !p.InBounds() {
		return host.Wall
	}
	return g[p.Y*host.RoomSize+p.X]
}

func (w *World) Object(id host.ObjectID) (host.Object, bool) {
	if o, ok := w.objects[id]; ok {
		return o, true
	}
	if c, ok := w.creepByID[id]; ok {
		return c, true
	}
	return nil, false
}

func (w *World) ObjectIDs() []host.ObjectID {
	out := make([]host.ObjectID, 0, len(w.objects))
	for id := range w.objects {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (w *World) Creep(name string) (host.Creep, bool) {
	c, ok := w.creeps[name]
	if !ok {
		return nil, false
	}
	return c, true
}

func (w *World) CreepNames() []string {
	out := make([]string, 0, len(w.creeps))
	for name := range w.creeps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (w *World) CreepAt(p host.Pos) (host.Creep, bool) {
	for _, c := range w.creeps {
		if c.pos == p {
			return c, true
		}
	}
	return nil, false
}

func (w *World) StructuresAt(p host.Pos) []host.Structure {
	var out []host.Structure
	for _, o := range w.objects {
		if o.Pos() != p {
			continue
		}
		if s, ok := o.(host.Structure); ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// AddSource places an energy source with the given capacity.
func (w *World) AddSource(p host.Pos, capacity int) host.ObjectID {
	w.room(p.Room)
	s := &source{id: w.newID("src"), pos: p, energy: capacity, capacity: capacity}
	w.objects[s.id] = s
	return s.id
}

func (w *World) AddDropped(p host.Pos, r host.Resource, amount int) host.ObjectID {
	w.room(p.Room)
	d := &dropped{id: w.newID("drop"), pos: p, resource: r, amount: amount}
	w.objects[d.id] = d
	return d.id
}

func (w *World) AddSite(p host.Pos, t host.StructureType, total int) host.ObjectID {
	w.room(p.Room)
	s := &site{w: w, id: w.newID("site"), pos: p, typ: t, total: total}
	w.objects[s.id] = s
	return s.id
}

func (w *World) AddStructure(p host.Pos, t host.StructureType, hits, hitsMax int) host.ObjectID {
	w.room(p.Room)
	s := &structure{w: w, id: w.newID("st"), pos: p, typ: t, hits: hits, hitsMax: hitsMax, owner: w.player}
	w.objects[s.id] = s
	return s.id
}

// SetOwner hands a structure to another player.
func (w *World) SetOwner(id host.ObjectID, owner string) {
	switch o := w.objects[id].(type) {
	case *structure:
		o.owner = owner
	case *container:
		o.owner = owner
	}
}

// AddContainer places a structure with a resource store.
func (w *World) AddContainer(p host.Pos, t host.StructureType, capacity, energy int) host.ObjectID {
	w.room(p.Room)
	c := &container{
		structure: &structure{w: w, id: w.newID("st"), pos: p, typ: t, hits: 1000, hitsMax: 1000, owner: w.player},
		store:     host.Store{Amounts: map[host.Resource]int{}, Capacity: capacity},
	}
	if energy > 0 {
		c.store.Amounts[host.Energy] = energy
	}
	w.objects[c.id] = c
	return c.id
}

// AddController places a room controller. An empty owner leaves it neutral.
func (w *World) AddController(p host.Pos, level int, owner string) host.ObjectID {
	w.room(p.Room)
	c := &controller{w: w, id: w.newID("ctrl"), pos: p, level: level, owner: owner}
	w.objects[c.id] = c
	return c.id
}

// CreepSpec describes a creep for AddCreep.
type CreepSpec struct {
	Name     string
	Pos      host.Pos
	Body     []host.BodyPart
	Capacity int
	Energy   int
	Fatigue  int
	Spawning int
	Hostile  bool
}

func (w *World) AddCreep(spec CreepSpec) host.ObjectID {
	w.room(spec.Pos.Room)
	capacity := spec.Capacity
	if capacity == 0 {
		for _, p := range spec.Body {
			if p == host.Carry {
				capacity += 50
			}
		}
	}
	c := &creep{
		w:        w,
		id:       w.newID("cr"),
		name:     spec.Name,
		pos:      spec.Pos,
		body:     append([]host.BodyPart(nil), spec.Body...),
		store:    host.Store{Amounts: map[host.Resource]int{}, Capacity: capacity},
		fatigue:  spec.Fatigue,
		spawning: spec.Spawning,
		hostile:  spec.Hostile,
		hits:     100 * len(spec.Body),
		hitsMax:  100 * len(spec.Body),
	}
	if spec.Energy > 0 {
		c.store.Amounts[host.Energy] = spec.Energy
	}
	w.creeps[c.name] = c
	w.creepByID[c.id] = c
	return c.id
}

func (w *World) RemoveCreep(name string) {
	if c, ok := w.creeps[name]; ok {
		delete(w.creepByID, c.id)
		delete(w.creeps, name)
	}
}

func (w *World) RemoveObject(id host.ObjectID) { delete(w.objects, id) }

// SetCreepPos teleports a creep, bypassing movement rules.
func (w *World) SetCreepPos(name string, p host.Pos) {
	if c, ok := w.creeps[name]; ok {
		c.pos = p
	}
}

func (w *World) SetFatigue(name string, f int) {
	if c, ok := w.creeps[name]; ok {
		c.fatigue = f
	}
}

func (w *World) SetCreepEnergy(name string, n int) {
	if c, ok := w.creeps[name]; ok {
		c.store.Amounts[host.Energy] = n
	}
}

// MoveCalls returns the Move calls accepted this tick.
func (w *World) MoveCalls() []MoveCall { return append([]MoveCall(nil), w.moveCalls...) }

// Commands returns the successful actions issued this tick.
func (w *World) Commands() []protocol.Command { return append([]protocol.Command(nil), w.commands...) }

func (w *World) record(cmd protocol.Command) { w.commands = append(w.commands, cmd) }

// Advance ends the tick: queued moves are applied, fatigue decays, sources
// regenerate and the tick counter increments.
func (w *World) Advance() {
	w.applyMoves()
	for _, c := range w.creeps {
		c.fatigue -= 2 * c.count(host.Move)
		if c.fatigue < 0 {
			c.fatigue = 0
		}
		if c.spawning > 0 {
			c.spawning--
		}
	}
	for _, o := range w.objects {
		if s, ok := o.(*source); ok {
			s.regenerate()
		}
	}
	w.moves = nil
	w.moveCalls = nil
	w.commands = nil
	w.tick++
}

func (w *World) applyMoves() {
	if len(w.moves) == 0 {
		return
	}
	// Last call per creep wins, ordered by that call.
	last := map[string]int{}
	for i, m := range w.moves {
		last[m.name] = i
	}
	var pending []moveReq
	for i, m := range w.moves {
		if last[m.name] == i {
			pending = append(pending, m)
		}
	}

	occupied := map[host.Pos]string{}
	for name, c := range w.creeps {
		occupied[c.pos] = name
	}
	done := make([]bool, len(pending))
	for changed := true; changed; {
		changed = false
		for i, m := range pending {
			if done[i] {
				continue
			}
			c := w.creeps[m.name]
			if c == nil {
				done[i] = true
				continue
			}
			dest := c.pos.Step(m.dir)
			if !host.Passable(w, dest) {
				done[i] = true
				continue
			}
			if occ, ok := occupied[dest]; ok && occ != c.name {
				continue
			}
			delete(occupied, c.pos)
			c.moveTo(dest)
			occupied[dest] = c.name
			done[i] = true
			changed = true
		}
	}
	// Remaining mutual swaps.
	for i, a := range pending {
		if done[i] {
			continue
		}
		ca := w.creeps[a.name]
		for j := i + 1; j < len(pending); j++ {
			if done[j] {
				continue
			}
			cb := w.creeps[pending[j].name]
			if ca.pos.Step(a.dir) == cb.pos && cb.pos.Step(pending[j].dir) == ca.pos {
				pa, pb := ca.pos, cb.pos
				ca.moveTo(pb)
				cb.moveTo(pa)
				done[i], done[j] = true, true
				break
			}
		}
	}
}

func (w *World) moveCost(p host.Pos) int {
	for _, s := range w.StructuresAt(p) {
		if s.StructureType() == host.StructureRoad {
			return 1
		}
	}
	if w.Terrain(p) == host.Swamp {
		return 10
	}
	return 2
}
