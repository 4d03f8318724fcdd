package traffic

import (
	"math/rand"
	"testing"

	"tickcore.ai/internal/host"
	"tickcore.ai/internal/host/sim"
)

type simMover struct {
	w    *sim.World
	name string
}

func (m simMover) Name() string { return m.name }

func (m simMover) Pos() (host.Pos, bool) {
	c, ok := m.w.Creep(m.name)
	if !ok {
		return host.Pos{}, false
	}
	return c.Pos(), true
}

func (m simMover) Move(d host.Direction) host.Code {
	c, ok := m.w.Creep(m.name)
	if !ok {
		return host.CodeNotAlive
	}
	return c.Move(d)
}

func at(x, y int) host.Pos { return host.Pos{Room: "W1N1", X: x, Y: y} }

var mover = []host.BodyPart{host.Move, host.Carry}

func spawn(w *sim.World, name string, p host.Pos) simMover {
	w.AddCreep(sim.CreepSpec{Name: name, Pos: p, Body: mover})
	return simMover{w: w, name: name}
}

func newResolver() *Resolver { return New(DefaultShoveLimit, rand.New(rand.NewSource(7)), nil) }

func TestResolveFollowsPriorityOrder(t *testing.T) {
	w := sim.New()
	a := spawn(w, "a", at(10, 10))
	b := spawn(w, "b", at(20, 20))
	c := spawn(w, "c", at(30, 30))
	r := newResolver()
	r.Register(Intent{Agent: c, Direction: host.Top, Priority: 3})
	r.Register(Intent{Agent: a, Direction: host.Right, Priority: 0})
	r.Register(Intent{Agent: b, Direction: host.Bottom, Priority: 1})

	st := r.Resolve(w)
	if st.Intents != 3 || st.Moves != 3 || st.Dropped != 0 {
		t.Fatalf("stats=%+v", st)
	}
	calls := w.MoveCalls()
	want := []string{"a", "b", "c"}
	if len(calls) != len(want) {
		t.Fatalf("calls=%+v", calls)
	}
	for i, name := range want {
		if calls[i].Creep != name {
			t.Fatalf("call %d = %s, want %s", i, calls[i].Creep, name)
		}
	}
	if r.Pending() != 0 {
		t.Fatalf("intents survived resolution")
	}
	if again := r.Resolve(w); again != (Stats{}) {
		t.Fatalf("second resolve saw leftover state: %+v", again)
	}
}

func TestTwoMoversSameFreeCellBothIssued(t *testing.T) {
	w := sim.New()
	hi := spawn(w, "hi", at(10, 10))
	lo := spawn(w, "lo", at(12, 10))
	r := newResolver()
	r.Register(Intent{Agent: lo, Direction: host.Left, Priority: 5})
	r.Register(Intent{Agent: hi, Direction: host.Right, Priority: 0})

	st := r.Resolve(w)
	calls := w.MoveCalls()
	if st.Moves != 2 || len(calls) != 2 {
		t.Fatalf("stats=%+v calls=%+v", st, calls)
	}
	if calls[0].Creep != "hi" || calls[1].Creep != "lo" {
		t.Fatalf("order=%+v", calls)
	}
	// Occupancy is not rechecked after the first move, so no shove either.
	if st.Shoves != 0 || st.ShoveFailures != 0 {
		t.Fatalf("unexpected shove stats %+v", st)
	}
}

func TestShoveIdleBlocker(t *testing.T) {
	w := sim.New()
	a := spawn(w, "a", at(10, 10))
	spawn(w, "idle", at(11, 10))
	r := newResolver()
	r.Register(Intent{Agent: a, Direction: host.Right, Priority: 1})

	st := r.Resolve(w)
	if st.Shoves != 1 || st.Moves != 1 {
		t.Fatalf("stats=%+v", st)
	}
	calls := w.MoveCalls()
	if len(calls) != 2 || calls[0].Creep != "idle" || calls[1].Creep != "a" {
		t.Fatalf("calls=%+v", calls)
	}
	w.Advance()
	ac, _ := w.Creep("a")
	ic, _ := w.Creep("idle")
	if ac.Pos() != at(11, 10) {
		t.Fatalf("mover at %s", ac.Pos())
	}
	if ic.Pos() == at(11, 10) || ic.Pos() == at(10, 10) || ic.Pos().Range(at(11, 10)) != 1 {
		t.Fatalf("blocker at %s", ic.Pos())
	}
}

func TestNoShoveAtOrAboveLimit(t *testing.T) {
	w := sim.New()
	a := spawn(w, "a", at(10, 10))
	spawn(w, "idle", at(11, 10))
	r := newResolver()
	r.Register(Intent{Agent: a, Direction: host.Right, Priority: DefaultShoveLimit})

	st := r.Resolve(w)
	if st.Shoves != 0 || st.ShoveFailures != 0 || st.Moves != 1 {
		t.Fatalf("stats=%+v", st)
	}
	if calls := w.MoveCalls(); len(calls) != 1 || calls[0].Creep != "a" {
		t.Fatalf("calls=%+v", calls)
	}
}

func TestBusyAndHostileBlockersAreNotShoved(t *testing.T) {
	w := sim.New()
	a := spawn(w, "a", at(10, 10))
	b := spawn(w, "b", at(11, 10))
	c := spawn(w, "c", at(20, 20))
	w.AddCreep(sim.CreepSpec{Name: "enemy", Pos: at(21, 20), Body: mover, Hostile: true})
	r := newResolver()
	r.Register(Intent{Agent: a, Direction: host.Right, Priority: 0})
	r.Register(Intent{Agent: b, Direction: host.Top, Priority: 4})
	r.Register(Intent{Agent: c, Direction: host.Right, Priority: 0})

	st := r.Resolve(w)
	if st.Shoves != 0 || st.ShoveFailures != 0 || st.Moves != 3 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestShoveFailureStillIssuesMove(t *testing.T) {
	w := sim.New()
	a := spawn(w, "a", at(10, 10))
	w.AddCreep(sim.CreepSpec{Name: "tired", Pos: at(11, 10), Body: mover, Fatigue: 4})
	r := newResolver()
	r.Register(Intent{Agent: a, Direction: host.Right, Priority: 0})

	st := r.Resolve(w)
	if st.ShoveFailures != 1 || st.Moves != 1 {
		t.Fatalf("stats=%+v", st)
	}
	if calls := w.MoveCalls(); len(calls) != 1 || calls[0].Creep != "a" {
		t.Fatalf("calls=%+v", calls)
	}
}

func TestShoveFailsWhenBoxedIn(t *testing.T) {
	w := sim.New()
	a := spawn(w, "a", at(10, 10))
	spawn(w, "idle", at(11, 10))
	for _, d := range host.AllDirections {
		p := at(11, 10).Step(d)
		if p != at(10, 10) {
			w.SetTerrain(p, host.Wall)
		}
	}
	r := newResolver()
	r.Register(Intent{Agent: a, Direction: host.Right, Priority: 0})
	st := r.Resolve(w)
	if st.ShoveFailures != 1 || st.Shoves != 0 || st.Moves != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestOffGridAndDeadIntentsDropped(t *testing.T) {
	w := sim.New()
	edge := spawn(w, "edge", at(0, 5))
	ghost := simMover{w: w, name: "ghost"}
	r := newResolver()
	r.Register(Intent{Agent: edge, Direction: host.Left, Priority: 0})
	r.Register(Intent{Agent: ghost, Direction: host.Top, Priority: 0})

	st := r.Resolve(w)
	if st.Dropped != 2 || st.Moves != 0 {
		t.Fatalf("stats=%+v", st)
	}
	if len(w.MoveCalls()) != 0 {
		t.Fatalf("dropped intents issued moves")
	}
}

func TestLaterRegistrationReplacesEarlier(t *testing.T) {
	w := sim.New()
	a := spawn(w, "a", at(10, 10))
	r := newResolver()
	r.Register(Intent{Agent: a, Direction: host.Right, Priority: 3})
	r.Register(Intent{Agent: a, Direction: host.Bottom, Priority: 3})
	if r.Pending() != 1 {
		t.Fatalf("pending=%d", r.Pending())
	}
	r.Resolve(w)
	calls := w.MoveCalls()
	if len(calls) != 1 || calls[0].Direction != host.Bottom {
		t.Fatalf("calls=%+v", calls)
	}
}
