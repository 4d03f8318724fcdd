package agent

import (
	"tickcore.ai/internal/host"
	"tickcore.ai/internal/traffic"
)

// TravelTo advances the creep one step towards target, stopping within rng.
// The step is not taken here: a movement intent is registered with the
// traffic resolver, which issues all moves of the tick in one pass.
// Once an intent is registered, repeating the call for the same target is a
// no-op and any other target gets CodeBusy until the next tick.
func (w *Wrapper) TravelTo(target host.Pos, rng int, priority int) host.Code {
	c, ok := w.creep()
	if !ok {
		return host.CodeNotAlive
	}
	if w.traveled {
		if w.goal == target && w.goalRange == rng {
			return host.CodeOK
		}
		return host.CodeBusy
	}
	if c.Fatigue() > 0 {
		return host.CodeTired
	}
	m := w.memory()
	pos := c.Pos()
	opts := w.roster.opts

	if m.Path != nil && m.LastPos != nil {
		if d, ok := m.Path.Next(); ok {
			switch pos {
			case *m.LastPos:
				m.Stuck++
			case m.LastPos.Step(d):
				m.Path.Cursor++
				m.Path.TTL--
				m.Stuck = 0
			default:
				// Displaced off the route, most likely shoved.
				m.Path = nil
				m.Stuck = 0
			}
		}
	}

	avoidCreeps := false
	if m.Stuck >= opts.StuckThreshold {
		m.Path = nil
		m.Stuck = 0
		avoidCreeps = true
	}
	if p := m.Path; p != nil && (p.TTL <= 0 || p.Len() == 0 || !p.matches(target, rng)) {
		m.Path = nil
	}
	if pos.InRange(target, rng) {
		m.Path = nil
		m.LastPos = nil
		m.Stuck = 0
		w.save()
		return host.CodeOK
	}

	if m.Path == nil {
		res := w.roster.world.FindPath(pos, target, host.PathOptions{
			Range:  rng,
			MaxOps: opts.MaxOps,
			Cost:   w.roster.costFunc(w.name, avoidCreeps),
		})
		if !res.Incomplete {
			m.Path = newPathCache(pos, res.Path, target, rng)
		}
		if m.Path == nil || m.Path.Len() == 0 {
			m.Path = nil
			m.LastPos = nil
			w.save()
			return host.CodeNoPath
		}
	}

	d, _ := m.Path.Next()
	w.roster.traffic.Register(traffic.Intent{Agent: w, Direction: d, Priority: priority})
	last := pos
	m.LastPos = &last
	w.traveled = true
	w.goal, w.goalRange = target, rng
	w.save()
	return host.CodeOK
}
