package tasks

import (
	"encoding/json"
	"errors"
	"testing"

	"tickcore.ai/internal/host"
	"tickcore.ai/internal/host/sim"
)

type travelCall struct {
	To       host.Pos
	Range    int
	Priority int
}

// stubAgent drives a sim creep directly, without pipeline accounting.
type stubAgent struct {
	w      *sim.World
	name   string
	travel []travelCall
}

func (s *stubAgent) creep() host.Creep {
	c, _ := s.w.Creep(s.name)
	return c
}

func (s *stubAgent) Name() string { return s.name }
func (s *stubAgent) Pos() (host.Pos, bool) {
	c, ok := s.w.Creep(s.name)
	if !ok {
		return host.Pos{}, false
	}
	return c.Pos(), true
}
func (s *stubAgent) Store() host.Store                           { return s.creep().Store() }
func (s *stubAgent) HasPart(p host.BodyPart) bool                { return s.creep().HasPart(p) }
func (s *stubAgent) Lookup(id host.ObjectID) (host.Object, bool) { return s.w.Object(id) }
func (s *stubAgent) Harvest(id host.ObjectID) host.Code          { return s.creep().Harvest(id) }
func (s *stubAgent) Build(id host.ObjectID) host.Code            { return s.creep().Build(id) }
func (s *stubAgent) Repair(id host.ObjectID) host.Code           { return s.creep().Repair(id) }
func (s *stubAgent) UpgradeController(id host.ObjectID) host.Code {
	return s.creep().UpgradeController(id)
}
func (s *stubAgent) ReserveController(id host.ObjectID) host.Code {
	return s.creep().ReserveController(id)
}
func (s *stubAgent) Dismantle(id host.ObjectID) host.Code { return s.creep().Dismantle(id) }
func (s *stubAgent) Transfer(id host.ObjectID, r host.Resource, n int) host.Code {
	return s.creep().Transfer(id, r, n)
}
func (s *stubAgent) Withdraw(id host.ObjectID, r host.Resource, n int) host.Code {
	return s.creep().Withdraw(id, r, n)
}
func (s *stubAgent) Pickup(id host.ObjectID) host.Code { return s.creep().Pickup(id) }
func (s *stubAgent) TravelTo(to host.Pos, rng int, prio int) host.Code {
	s.travel = append(s.travel, travelCall{To: to, Range: rng, Priority: prio})
	return host.CodeOK
}

func at(x, y int) host.Pos { return host.Pos{Room: "W1N1", X: x, Y: y} }

var worker = []host.BodyPart{host.Work, host.Carry, host.Move}

func newAgent(w *sim.World, name string, p host.Pos, body []host.BodyPart, energy int) *stubAgent {
	w.AddCreep(sim.CreepSpec{Name: name, Pos: p, Body: body, Energy: energy})
	return &stubAgent{w: w, name: name}
}

func TestHarvestApproachesThenWorks(t *testing.T) {
	w := sim.New()
	src := w.AddSource(at(10, 10), 100)
	a := newAgent(w, "h", at(15, 10), worker, 0)
	task := NewHarvest(src)

	if !task.IsValid(a) {
		t.Fatalf("expected valid")
	}
	if task.Run(a) {
		t.Fatalf("harvest should not finish while approaching")
	}
	if len(a.travel) != 1 || a.travel[0].Range != 1 || a.travel[0].Priority != MovePriorityHarvest {
		t.Fatalf("unexpected travel %+v", a.travel)
	}

	w.SetCreepPos("h", at(11, 10))
	if task.Run(a) {
		t.Fatalf("harvest finished after a successful harvest")
	}
	if got := a.Store().Get(host.Energy); got != 2 {
		t.Fatalf("energy=%d", got)
	}
}

func TestHarvestTransientErrorsKeepTask(t *testing.T) {
	w := sim.New()
	src := w.AddSource(at(10, 10), 2)
	a := newAgent(w, "h", at(11, 10), worker, 0)
	task := NewHarvest(src)

	task.Run(a) // drains the source
	if !task.IsValid(a) {
		t.Fatalf("regenerating source must stay valid")
	}
	if task.Run(a) {
		t.Fatalf("empty source must not end the task")
	}
}

func TestHarvestFatalErrorsEndTask(t *testing.T) {
	w := sim.New()
	src := w.AddSource(at(10, 10), 100)
	a := newAgent(w, "h", at(11, 10), []host.BodyPart{host.Carry, host.Move}, 0)
	if !NewHarvest(src).Run(a) {
		t.Fatalf("missing work part must end harvest")
	}
	w.RemoveObject(src)
	if NewHarvest(src).IsValid(a) {
		t.Fatalf("vanished source must be invalid")
	}
}

func TestTransferIsOneShot(t *testing.T) {
	w := sim.New()
	box := w.AddContainer(at(10, 10), host.StructureContainer, 1000, 0)
	a := newAgent(w, "c", at(11, 11), worker, 30)
	task := NewTransfer(box, host.Energy, 10)

	if !task.IsValid(a) {
		t.Fatalf("expected valid")
	}
	if !task.Run(a) {
		t.Fatalf("one successful transfer must finish the task")
	}
	if got := a.Store().Get(host.Energy); got != 20 {
		t.Fatalf("energy=%d want 20", got)
	}
}

func TestTransferEndsOnFullTarget(t *testing.T) {
	w := sim.New()
	box := w.AddContainer(at(10, 10), host.StructureContainer, 10, 10)
	a := newAgent(w, "c", at(11, 11), worker, 30)
	task := NewTransfer(box, host.Energy, 0)
	if task.IsValid(a) {
		t.Fatalf("full target must be invalid")
	}
	if !task.Run(a) {
		t.Fatalf("full target must end the task")
	}
}

func TestWithdrawAndPickup(t *testing.T) {
	w := sim.New()
	box := w.AddContainer(at(10, 10), host.StructureContainer, 1000, 500)
	drop := w.AddDropped(at(12, 12), host.Energy, 5)
	a := newAgent(w, "c", at(11, 11), worker, 0)

	wd := NewWithdraw(box, "", 0)
	if !wd.IsValid(a) || !wd.Run(a) {
		t.Fatalf("withdraw should complete in one tick")
	}
	if got := a.Store().Get(host.Energy); got != 50 {
		t.Fatalf("energy=%d want 50", got)
	}
	pk := NewPickup(drop)
	if pk.IsValid(a) {
		t.Fatalf("full agent cannot pick up")
	}
	if !pk.Run(a) {
		t.Fatalf("full agent must end pickup")
	}
}

func TestBuildDualRange(t *testing.T) {
	w := sim.New()
	site := w.AddSite(at(10, 10), host.StructureExtension, 1000)
	a := newAgent(w, "b", at(13, 10), worker, 50)
	task := NewBuild(site)

	if task.Run(a) {
		t.Fatalf("build should continue")
	}
	o, _ := w.Object(site)
	if o.(host.Site).Progress() != 5 {
		t.Fatalf("expected progress from work range, got %d", o.(host.Site).Progress())
	}
	if len(a.travel) != 1 || a.travel[0].Range != 1 {
		t.Fatalf("expected approach in the same tick, got %+v", a.travel)
	}

	a.travel = nil
	w.SetCreepPos("b", at(11, 10))
	task.Run(a)
	if len(a.travel) != 0 {
		t.Fatalf("no movement expected at target range, got %+v", a.travel)
	}
}

func TestBuildEndsWhenEnergySpent(t *testing.T) {
	w := sim.New()
	site := w.AddSite(at(10, 10), host.StructureExtension, 1000)
	a := newAgent(w, "b", at(11, 10), worker, 5)
	task := NewBuild(site)
	task.Run(a)
	if task.IsValid(a) {
		t.Fatalf("empty agent must invalidate build")
	}
}

func TestRepairUpgradeReserve(t *testing.T) {
	w := sim.New()
	wall := w.AddStructure(at(10, 10), host.StructureWall, 100, 1000)
	ctl := w.AddController(at(20, 20), 1, sim.DefaultPlayer)
	neutral := w.AddController(at(30, 30), 0, "")
	a := newAgent(w, "r", at(12, 10), worker, 50)

	rep := NewRepair(wall)
	if !rep.IsValid(a) || rep.Run(a) {
		t.Fatalf("repair should run and continue")
	}
	up := NewUpgrade(ctl)
	if !up.IsValid(a) {
		t.Fatalf("own controller must be valid")
	}
	up.Run(a)
	if len(a.travel) != 1 || a.travel[0].Range != 3 {
		t.Fatalf("upgrade should approach to range 3: %+v", a.travel)
	}
	if !Stationary(up) || Stationary(rep) {
		t.Fatalf("stationary flags wrong")
	}

	rs := NewReserve(neutral)
	w.SetCreepPos("r", at(31, 30))
	if !rs.IsValid(a) {
		t.Fatalf("neutral controller must be valid")
	}
	if !rs.Run(a) {
		t.Fatalf("reserve without claim part must end")
	}
}

func TestDismantleEndsWhenFull(t *testing.T) {
	w := sim.New()
	wall := w.AddStructure(at(10, 10), host.StructureWall, 10000, 10000)
	a := newAgent(w, "d", at(11, 10), worker, 40)
	task := NewDismantle(wall)
	if !task.IsValid(a) {
		t.Fatalf("expected valid")
	}
	if !task.Run(a) {
		t.Fatalf("full store must end dismantle")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	w := sim.New()
	box := w.AddContainer(at(10, 10), host.StructureContainer, 1000, 0)
	orig := NewTransfer(box, host.Energy, 7)

	raw, err := json.Marshal(orig.Record())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	back, err := FromRecord(rec)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if back.Record() != orig.Record() {
		t.Fatalf("record mismatch: %+v vs %+v", back.Record(), orig.Record())
	}

	a1 := newAgent(w, "a1", at(11, 10), worker, 20)
	a2 := newAgent(w, "a2", at(9, 10), worker, 20)
	if orig.IsValid(a1) != back.IsValid(a2) {
		t.Fatalf("validity differs after round trip")
	}
	if orig.Run(a1) != back.Run(a2) {
		t.Fatalf("run result differs after round trip")
	}
	if a1.Store().Get(host.Energy) != a2.Store().Get(host.Energy) {
		t.Fatalf("effects differ after round trip")
	}
}

func TestRecordRoundTripContinuous(t *testing.T) {
	w := sim.New()
	src := w.AddSource(at(10, 10), 300)
	site := w.AddSite(at(20, 20), host.StructureRoad, 100)

	cases := []struct {
		orig       Task
		priority   int
		stationary bool
	}{
		{NewHarvest(src), MovePriorityHarvest, true},
		{NewBuild(site), MovePriorityWork, false},
	}
	for _, tc := range cases {
		raw, err := json.Marshal(tc.orig.Record())
		if err != nil {
			t.Fatalf("%s marshal: %v", tc.orig.Kind(), err)
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			t.Fatalf("%s unmarshal: %v", tc.orig.Kind(), err)
		}
		back, err := FromRecord(rec)
		if err != nil {
			t.Fatalf("%s FromRecord: %v", tc.orig.Kind(), err)
		}
		if back.Kind() != tc.orig.Kind() || back.TargetID() != tc.orig.TargetID() {
			t.Fatalf("identity mismatch: %s/%s vs %s/%s", back.Kind(), back.TargetID(), tc.orig.Kind(), tc.orig.TargetID())
		}
		if back.Settings() != tc.orig.Settings() {
			t.Fatalf("%s settings: %+v vs %+v", back.Kind(), back.Settings(), tc.orig.Settings())
		}
		if back.Settings().OneShot {
			t.Fatalf("%s restored as one-shot", back.Kind())
		}
		if got := movePriority(t, back); got != tc.priority {
			t.Fatalf("%s priority=%d want %d", back.Kind(), got, tc.priority)
		}
		if Stationary(back) != tc.stationary {
			t.Fatalf("%s stationary=%v", back.Kind(), Stationary(back))
		}
	}
}

func movePriority(t *testing.T, task Task) int {
	t.Helper()
	switch v := task.(type) {
	case *Harvest:
		return v.priority
	case *Build:
		return v.priority
	}
	t.Fatalf("unexpected task %T", task)
	return 0
}

func TestFromRecordRejectsCorruptRecords(t *testing.T) {
	if _, err := FromRecord(Record{Name: "teleport", TargetID: "x"}); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
	if _, err := FromRecord(Record{Name: KindBuild}); !errors.Is(err, ErrBadRecord) {
		t.Fatalf("expected ErrBadRecord, got %v", err)
	}
	for _, k := range Kinds() {
		task, err := FromRecord(Record{Name: k, TargetID: "t1", Settings: Settings{TargetRange: 1, WorkRange: 1}})
		if err != nil {
			t.Fatalf("FromRecord(%s): %v", k, err)
		}
		if task.Kind() != k {
			t.Fatalf("kind mismatch %s vs %s", task.Kind(), k)
		}
	}
}
