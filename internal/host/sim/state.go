package sim

import (
	"fmt"
	"sort"

	"tickcore.ai/internal/encoding"
	"tickcore.ai/internal/host"
	"tickcore.ai/internal/protocol"
)

// State exports the world as a wire snapshot.
func (w *World) State() protocol.WorldState {
	st := protocol.WorldState{Tick: w.tick}
	for _, name := range w.Rooms() {
		g := w.rooms[name]
		cells := make([]uint8, len(g))
		for i, t := range g {
			cells[i] = uint8(t)
		}
		st.Rooms = append(st.Rooms, protocol.RoomState{Name: name, Terrain: encoding.EncodeRLE(cells)})
	}
	for _, name := range w.CreepNames() {
		c := w.creeps[name]
		st.Creeps = append(st.Creeps, protocol.CreepState{
			ID:       string(c.id),
			Name:     c.name,
			Pos:      c.pos,
			Body:     append([]host.BodyPart(nil), c.body...),
			Store:    copyStore(c.store),
			Fatigue:  c.fatigue,
			Spawning: c.spawning,
			Hostile:  c.hostile,
			Hits:     c.hits,
			HitsMax:  c.hitsMax,
		})
	}
	for _, o := range w.objects {
		st.Objects = append(st.Objects, o.state())
	}
	sort.Slice(st.Objects, func(i, j int) bool { return st.Objects[i].ID < st.Objects[j].ID })
	return st
}

// FromState rebuilds a world from a wire snapshot.
func FromState(st protocol.WorldState) (*World, error) {
	w := New()
	w.tick = st.Tick
	// Objects created locally must not collide with host ids.
	w.idPrefix = "local-"
	for _, r := range st.Rooms {
		cells, err := encoding.DecodeRLE(r.Terrain, host.RoomSize*host.RoomSize)
		if err != nil {
			return nil, fmt.Errorf("room %s terrain: %w", r.Name, err)
		}
		g := w.room(r.Name)
		for i, v := range cells {
			g[i] = host.Terrain(v)
		}
	}
	for _, cs := range st.Creeps {
		c := &creep{
			w:        w,
			id:       host.ObjectID(cs.ID),
			name:     cs.Name,
			pos:      cs.Pos,
			body:     append([]host.BodyPart(nil), cs.Body...),
			store:    copyStore(cs.Store),
			fatigue:  cs.Fatigue,
			spawning: cs.Spawning,
			hostile:  cs.Hostile,
			hits:     cs.Hits,
			hitsMax:  cs.HitsMax,
		}
		w.creeps[c.name] = c
		w.creepByID[c.id] = c
	}
	for _, ob := range st.Objects {
		id := host.ObjectID(ob.ID)
		switch ob.Kind {
		case protocol.KindSource:
			w.objects[id] = &source{id: id, pos: ob.Pos, energy: ob.Energy, capacity: ob.EnergyCapacity, regen: ob.Regen}
		case protocol.KindDropped:
			w.objects[id] = &dropped{id: id, pos: ob.Pos, resource: ob.Resource, amount: ob.Amount}
		case protocol.KindSite:
			w.objects[id] = &site{w: w, id: id, pos: ob.Pos, typ: ob.StructureType, progress: ob.Progress, total: ob.ProgressTotal}
		case protocol.KindStructure:
			owner := w.player
			if ob.Hostile {
				owner = "hostile"
			}
			s := &structure{w: w, id: id, pos: ob.Pos, typ: ob.StructureType, hits: ob.Hits, hitsMax: ob.HitsMax, owner: owner}
			if ob.Store != nil {
				w.objects[id] = &container{structure: s, store: copyStore(*ob.Store)}
			} else {
				w.objects[id] = s
			}
		case protocol.KindController:
			w.objects[id] = &controller{w: w, id: id, pos: ob.Pos, level: ob.Level, progress: ob.Progress, owner: ob.Owner, reservedBy: ob.ReservedBy}
		default:
			return nil, fmt.Errorf("object %s: unknown kind %q", ob.ID, ob.Kind)
		}
		w.room(ob.Pos.Room)
	}
	return w, nil
}

// ApplyCommands executes commands received from a remote controller and
// returns a result for every command that did not succeed.
func (w *World) ApplyCommands(cmds []protocol.Command) []protocol.CommandResult {
	var out []protocol.CommandResult
	for i, cmd := range cmds {
		c := w.creeps[cmd.Creep]
		if c == nil {
			out = append(out, protocol.CommandResult{Index: i, Code: protocol.ErrUnknownCreep})
			continue
		}
		code, known := c.apply(cmd)
		if !known {
			out = append(out, protocol.CommandResult{Index: i, Code: protocol.ErrUnknownAction})
			continue
		}
		if code != host.CodeOK {
			out = append(out, protocol.CommandResult{Index: i, Code: code.String()})
		}
	}
	return out
}

func (c *creep) apply(cmd protocol.Command) (host.Code, bool) {
	id := host.ObjectID(cmd.Target)
	switch cmd.Action {
	case protocol.ActHarvest:
		return c.Harvest(id), true
	case protocol.ActBuild:
		return c.Build(id), true
	case protocol.ActRepair:
		return c.Repair(id), true
	case protocol.ActUpgrade:
		return c.UpgradeController(id), true
	case protocol.ActReserve:
		return c.ReserveController(id), true
	case protocol.ActDismantle:
		return c.Dismantle(id), true
	case protocol.ActAttack:
		return c.Attack(id), true
	case protocol.ActHeal:
		return c.Heal(id), true
	case protocol.ActTransfer:
		return c.Transfer(id, cmd.Resource, cmd.Amount), true
	case protocol.ActWithdraw:
		return c.Withdraw(id, cmd.Resource, cmd.Amount), true
	case protocol.ActPickup:
		return c.Pickup(id), true
	case protocol.ActDrop:
		return c.Drop(cmd.Resource, cmd.Amount), true
	case protocol.ActRangedAttack:
		return c.RangedAttack(id), true
	case protocol.ActRangedHeal:
		return c.RangedHeal(id), true
	case protocol.ActRangedMassAttack:
		return c.RangedMassAttack(), true
	case protocol.ActMove:
		return c.Move(host.Direction(cmd.Direction)), true
	}
	return host.CodeInvalidArgs, false
}
