package processes

import (
	"context"
	"math/rand"
	"testing"

	"tickcore.ai/internal/agent"
	"tickcore.ai/internal/host"
	"tickcore.ai/internal/host/sim"
	"tickcore.ai/internal/kernel"
	"tickcore.ai/internal/memory"
	"tickcore.ai/internal/process"
	"tickcore.ai/internal/segments"
	"tickcore.ai/internal/tasks"
)

type env struct {
	w   *sim.World
	seg *segments.Cache
	k   *kernel.Kernel
}

func newEnv(t *testing.T) *env {
	t.Helper()
	reg := process.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	e := &env{w: sim.New()}
	e.w.AddRoom("W1N1")
	e.seg = segments.New(memory.NewMemBackend(), segments.Options{}, nil)
	e.k = kernel.New(kernel.Options{
		Memory:     memory.New(memory.NewMemBackend(), 0, nil),
		Segments:   e.seg,
		Registry:   reg,
		Agents:     agent.DefaultOptions(),
		ShoveLimit: 5,
		Rand:       rand.New(rand.NewSource(7)),
	})
	return e
}

func (e *env) run(t *testing.T, ticks int) {
	t.Helper()
	for i := 0; i < ticks; i++ {
		if _, err := e.k.Run(context.Background(), e.w); err != nil {
			t.Fatalf("tick %d: %v", e.w.Time(), err)
		}
		e.w.Advance()
	}
}

func at(x, y int) host.Pos { return host.Pos{Room: "W1N1", X: x, Y: y} }

func storeOf(t *testing.T, w *sim.World, id host.ObjectID) host.Store {
	t.Helper()
	o, ok := w.Object(id)
	if !ok {
		t.Fatalf("object %s gone", id)
	}
	return o.(host.Storable).Store()
}

func TestRegisterAll(t *testing.T) {
	reg := process.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	want := []string{TypeHauling, TypeJanitor, TypeMining, TypeWorks}
	got := reg.Types()
	if len(got) != len(want) {
		t.Fatalf("types=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("types=%v", got)
		}
	}
	if err := Register(reg); err == nil {
		t.Fatalf("second Register should fail")
	}
}

func TestRole(t *testing.T) {
	cases := map[string]string{"miner-1": RoleMiner, "hauler_a": RoleHauler, "worker": RoleWorker, "x-y-z": "x"}
	for name, want := range cases {
		if got := Role(name); got != want {
			t.Fatalf("Role(%q)=%q want %q", name, got, want)
		}
	}
}

func TestMiningHarvestsAndDelivers(t *testing.T) {
	e := newEnv(t)
	e.w.AddSource(at(20, 20), 3000)
	spawn := e.w.AddContainer(at(25, 20), host.StructureSpawn, 300, 0)
	e.w.AddCreep(sim.CreepSpec{Name: "miner-1", Pos: at(20, 22), Body: []host.BodyPart{host.Work, host.Carry, host.Move}})

	e.run(t, 80)
	if got := storeOf(t, e.w, spawn).Get(host.Energy); got < 50 {
		t.Fatalf("spawn energy=%d, want at least one full load", got)
	}

	var stats MiningStats
	found, err := e.seg.Read(MiningStatsBank, TypeMining, &stats)
	if err != nil || !found {
		t.Fatalf("stats found=%v err=%v", found, err)
	}
	if stats.Miners != 1 || stats.Sources != 1 || stats.Harvests < 2 || stats.Deliveries < 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestMiningSpreadsMinersOverSources(t *testing.T) {
	e := newEnv(t)
	a := e.w.AddSource(at(10, 10), 3000)
	b := e.w.AddSource(at(30, 10), 3000)
	body := []host.BodyPart{host.Work, host.Move}
	e.w.AddCreep(sim.CreepSpec{Name: "miner-1", Pos: at(12, 12), Body: body})
	e.w.AddCreep(sim.CreepSpec{Name: "miner-2", Pos: at(13, 12), Body: body})

	e.run(t, 1)
	targets := map[host.ObjectID]int{}
	for _, name := range []string{"miner-1", "miner-2"} {
		rec := e.k.Agents().Get(name).Memory().Task
		if rec == nil || rec.Name != tasks.KindHarvest {
			t.Fatalf("%s task=%+v", name, rec)
		}
		targets[host.ObjectID(rec.TargetID)]++
	}
	if targets[a] != 1 || targets[b] != 1 {
		t.Fatalf("targets=%v", targets)
	}
}

func TestWorksPriorities(t *testing.T) {
	e := newEnv(t)
	body := []host.BodyPart{host.Work, host.Carry, host.Move}
	site := e.w.AddSite(at(15, 15), host.StructureExtension, 5000)
	ctrl := e.w.AddController(at(5, 5), 1, sim.DefaultPlayer)
	box := e.w.AddContainer(at(12, 10), host.StructureContainer, 500, 400)
	e.w.AddCreep(sim.CreepSpec{Name: "worker-full", Pos: at(14, 14), Body: body, Energy: 50})
	e.w.AddCreep(sim.CreepSpec{Name: "worker-empty", Pos: at(10, 10), Body: body})

	e.run(t, 1)
	roster := e.k.Agents()
	if rec := roster.Get("worker-full").Memory().Task; rec == nil || rec.Name != tasks.KindBuild || host.ObjectID(rec.TargetID) != site {
		t.Fatalf("full worker task=%+v", rec)
	}
	if rec := roster.Get("worker-empty").Memory().Task; rec == nil || rec.Name != tasks.KindWithdraw || host.ObjectID(rec.TargetID) != box {
		t.Fatalf("empty worker task=%+v", rec)
	}

	// the stale build task is dropped on the next tick, the new one assigned after
	e.w.RemoveObject(site)
	e.w.SetCreepEnergy("worker-full", 50)
	e.run(t, 2)
	if rec := roster.Get("worker-full").Memory().Task; rec == nil || rec.Name != tasks.KindUpgrade || host.ObjectID(rec.TargetID) != ctrl {
		t.Fatalf("worker without sites task=%+v", rec)
	}
}

func TestWorksDismantlesAndReserves(t *testing.T) {
	e := newEnv(t)
	wall := e.w.AddStructure(at(11, 10), host.StructureWall, 500, 500)
	e.w.SetOwner(wall, "invader")
	neutral := e.w.AddController(at(40, 40), 0, "")
	e.w.AddCreep(sim.CreepSpec{Name: "worker-1", Pos: at(10, 10), Body: []host.BodyPart{host.Work, host.Carry, host.Move}})
	e.w.AddCreep(sim.CreepSpec{Name: "worker-2", Pos: at(38, 38), Body: []host.BodyPart{host.Claim, host.Move}})

	e.run(t, 1)
	roster := e.k.Agents()
	if rec := roster.Get("worker-1").Memory().Task; rec == nil || rec.Name != tasks.KindDismantle || host.ObjectID(rec.TargetID) != wall {
		t.Fatalf("worker-1 task=%+v", rec)
	}
	if rec := roster.Get("worker-2").Memory().Task; rec == nil || rec.Name != tasks.KindReserve || host.ObjectID(rec.TargetID) != neutral {
		t.Fatalf("worker-2 task=%+v", rec)
	}
}

func TestHaulingPicksUpAndDelivers(t *testing.T) {
	e := newEnv(t)
	pile := e.w.AddDropped(at(12, 10), host.Energy, 40)
	ext := e.w.AddContainer(at(16, 10), host.StructureExtension, 50, 0)
	e.w.AddCreep(sim.CreepSpec{Name: "hauler-1", Pos: at(10, 10), Body: []host.BodyPart{host.Carry, host.Move}})

	e.run(t, 1)
	if rec := e.k.Agents().Get("hauler-1").Memory().Task; rec == nil || rec.Name != tasks.KindPickup || host.ObjectID(rec.TargetID) != pile {
		t.Fatalf("hauler task=%+v", rec)
	}
	e.run(t, 20)
	if got := storeOf(t, e.w, ext).Get(host.Energy); got != 40 {
		t.Fatalf("extension energy=%d, want 40", got)
	}
}

func TestJanitorSweepsAndSleeps(t *testing.T) {
	e := newEnv(t)
	e.run(t, 1)

	if err := e.seg.Request(7); err != nil {
		t.Fatalf("request: %v", err)
	}
	e.seg.BeginTick()
	if err := e.seg.Write(7, "dead-pid", 1); err != nil {
		t.Fatalf("write: %v", err)
	}

	j, ok := e.k.Process(TypeJanitor)
	if !ok {
		t.Fatalf("janitor not installed")
	}
	if j.SleepUntil() != 1+JanitorInterval {
		t.Fatalf("sleep_until=%d", j.SleepUntil())
	}
	j.Wake()
	e.run(t, 1)
	for _, o := range e.seg.Owners() {
		if o == "dead-pid" {
			t.Fatalf("janitor left dead owner: %v", e.seg.Owners())
		}
	}
	if j.SleepUntil() != 2+JanitorInterval {
		t.Fatalf("janitor did not go back to sleep: %d", j.SleepUntil())
	}
}
