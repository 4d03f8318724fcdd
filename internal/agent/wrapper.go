package agent

import (
	"encoding/json"
	"fmt"

	"tickcore.ai/internal/host"
	"tickcore.ai/internal/schema"
	"tickcore.ai/internal/tasks"
)

// Pipeline is one of the three per-tick action budgets of a creep.
type Pipeline int

const (
	PipeWork Pipeline = iota
	PipeStore
	PipeRanged
	pipeCount
)

func (p Pipeline) String() string {
	switch p {
	case PipeWork:
		return "work"
	case PipeStore:
		return "store"
	case PipeRanged:
		return "ranged"
	}
	return fmt.Sprintf("pipeline(%d)", int(p))
}

// Wrapper drives one creep. It keeps the creep's name and resolves the live
// handle from the bound world on every access.
type Wrapper struct {
	name   string
	roster *Roster

	mem    Memory
	loaded bool
	task   tasks.Task

	// Per-tick state, reset the first time the wrapper is touched in a tick.
	tick      uint64
	synced    bool
	used      [pipeCount]bool
	traveled  bool
	goal      host.Pos
	goalRange int
}

func (w *Wrapper) Name() string { return w.name }

func (w *Wrapper) creep() (host.Creep, bool) {
	world := w.roster.world
	if world == nil {
		return nil, false
	}
	c, ok := world.Creep(w.name)
	if !ok || !c.My() {
		return nil, false
	}
	w.sync(world.Time())
	return c, true
}

func (w *Wrapper) sync(now uint64) {
	if w.synced && w.tick == now {
		return
	}
	w.tick, w.synced = now, true
	w.used = [pipeCount]bool{}
	w.traveled = false
}

// Alive reports whether the creep exists in the bound world.
func (w *Wrapper) Alive() bool {
	_, ok := w.creep()
	return ok
}

func (w *Wrapper) Spawning() bool {
	c, ok := w.creep()
	return ok && c.Spawning()
}

func (w *Wrapper) Pos() (host.Pos, bool) {
	c, ok := w.creep()
	if !ok {
		return host.Pos{}, false
	}
	return c.Pos(), true
}

func (w *Wrapper) Store() host.Store {
	c, ok := w.creep()
	if !ok {
		return host.Store{}
	}
	return c.Store()
}

func (w *Wrapper) HasPart(p host.BodyPart) bool {
	c, ok := w.creep()
	return ok && c.HasPart(p)
}

func (w *Wrapper) Fatigue() int {
	c, ok := w.creep()
	if !ok {
		return 0
	}
	return c.Fatigue()
}

func (w *Wrapper) Lookup(id host.ObjectID) (host.Object, bool) {
	if w.roster.world == nil {
		return nil, false
	}
	return w.roster.world.Object(id)
}

// Used reports whether pipeline p already spent its action this tick.
func (w *Wrapper) Used(p Pipeline) bool {
	if !w.Alive() {
		return false
	}
	return w.used[p]
}

func (w *Wrapper) act(p Pipeline, fn func(c host.Creep) host.Code) host.Code {
	c, ok := w.creep()
	if !ok {
		return host.CodeNotAlive
	}
	if w.used[p] {
		return host.CodeBusy
	}
	code := fn(c)
	if code == host.CodeOK {
		w.used[p] = true
	}
	return code
}

func (w *Wrapper) Harvest(id host.ObjectID) host.Code {
	return w.act(PipeWork, func(c host.Creep) host.Code { return c.Harvest(id) })
}

func (w *Wrapper) Build(id host.ObjectID) host.Code {
	return w.act(PipeWork, func(c host.Creep) host.Code { return c.Build(id) })
}

func (w *Wrapper) Repair(id host.ObjectID) host.Code {
	return w.act(PipeWork, func(c host.Creep) host.Code { return c.Repair(id) })
}

func (w *Wrapper) UpgradeController(id host.ObjectID) host.Code {
	return w.act(PipeWork, func(c host.Creep) host.Code { return c.UpgradeController(id) })
}

func (w *Wrapper) ReserveController(id host.ObjectID) host.Code {
	return w.act(PipeWork, func(c host.Creep) host.Code { return c.ReserveController(id) })
}

func (w *Wrapper) Dismantle(id host.ObjectID) host.Code {
	return w.act(PipeWork, func(c host.Creep) host.Code { return c.Dismantle(id) })
}

func (w *Wrapper) Attack(id host.ObjectID) host.Code {
	return w.act(PipeWork, func(c host.Creep) host.Code { return c.Attack(id) })
}

func (w *Wrapper) Heal(id host.ObjectID) host.Code {
	return w.act(PipeWork, func(c host.Creep) host.Code { return c.Heal(id) })
}

func (w *Wrapper) Transfer(id host.ObjectID, r host.Resource, amount int) host.Code {
	return w.act(PipeStore, func(c host.Creep) host.Code { return c.Transfer(id, r, amount) })
}

func (w *Wrapper) Withdraw(id host.ObjectID, r host.Resource, amount int) host.Code {
	return w.act(PipeStore, func(c host.Creep) host.Code { return c.Withdraw(id, r, amount) })
}

func (w *Wrapper) Pickup(id host.ObjectID) host.Code {
	return w.act(PipeStore, func(c host.Creep) host.Code { return c.Pickup(id) })
}

func (w *Wrapper) Drop(r host.Resource, amount int) host.Code {
	return w.act(PipeStore, func(c host.Creep) host.Code { return c.Drop(r, amount) })
}

func (w *Wrapper) RangedAttack(id host.ObjectID) host.Code {
	return w.act(PipeRanged, func(c host.Creep) host.Code { return c.RangedAttack(id) })
}

func (w *Wrapper) RangedHeal(id host.ObjectID) host.Code {
	return w.act(PipeRanged, func(c host.Creep) host.Code { return c.RangedHeal(id) })
}

func (w *Wrapper) RangedMassAttack() host.Code {
	return w.act(PipeRanged, func(c host.Creep) host.Code { return c.RangedMassAttack() })
}

// Move issues a raw one-step move. Only the traffic resolver calls it.
func (w *Wrapper) Move(d host.Direction) host.Code {
	c, ok := w.creep()
	if !ok {
		return host.CodeNotAlive
	}
	return c.Move(d)
}

// Task returns the resident task, rebuilding it from memory after a reset.
// A record that cannot be rebuilt is dropped.
func (w *Wrapper) Task() tasks.Task {
	if w.task != nil {
		return w.task
	}
	m := w.memory()
	if m.Task == nil {
		return nil
	}
	t, err := restoreTask(*m.Task)
	if err != nil {
		w.roster.logger.Printf("agent %s: drop corrupt task record: %v", w.name, err)
		m.Task = nil
		w.save()
		return nil
	}
	w.task = t
	return t
}

func restoreTask(rec tasks.Record) (tasks.Task, error) {
	if err := schema.ValidateValue(schema.TaskRecord, rec); err != nil {
		return nil, err
	}
	return tasks.FromRecord(rec)
}

// SetTask replaces the resident task and persists its record at once.
func (w *Wrapper) SetTask(t tasks.Task) {
	if t == nil {
		w.ClearTask()
		return
	}
	m := w.memory()
	if prev := w.Task(); prev == nil || prev.TargetID() != t.TargetID() {
		m.Path = nil
		m.Stuck = 0
	}
	rec := t.Record()
	w.task = t
	m.Task = &rec
	w.save()
}

func (w *Wrapper) ClearTask() {
	w.task = nil
	m := w.memory()
	if m.Task == nil {
		return
	}
	m.Task = nil
	w.save()
}

// Stationary reports whether the resident task keeps the creep in place.
func (w *Wrapper) Stationary() bool {
	t := w.Task()
	return t != nil && tasks.Stationary(t)
}

// Run executes one tick of the resident task: validate, run, clear when
// done. Dead or spawning creeps are skipped.
func (w *Wrapper) Run() {
	c, ok := w.creep()
	if !ok || c.Spawning() {
		return
	}
	t := w.Task()
	if t == nil {
		return
	}
	if !t.IsValid(w) {
		w.ClearTask()
		return
	}
	if t.Run(w) {
		w.ClearTask()
	}
}

// Memory returns a copy of the persisted state.
func (w *Wrapper) Memory() Memory {
	m := *w.memory()
	if m.Path != nil {
		p := *m.Path
		m.Path = &p
	}
	if m.LastPos != nil {
		p := *m.LastPos
		m.LastPos = &p
	}
	if m.Task != nil {
		rec := *m.Task
		m.Task = &rec
	}
	return m
}

func (w *Wrapper) memory() *Memory {
	if w.loaded {
		return &w.mem
	}
	w.loaded = true
	raw, ok := w.roster.store.Get(Key(w.name))
	if !ok {
		return &w.mem
	}
	m, err := decodeMemory(raw)
	if err != nil {
		w.roster.logger.Printf("agent %s: drop corrupt memory: %v", w.name, err)
		w.mem = Memory{}
		w.roster.store.Delete(Key(w.name))
		return &w.mem
	}
	w.mem = m
	return &w.mem
}

func (w *Wrapper) save() {
	key := Key(w.name)
	if w.mem.empty() {
		w.roster.store.Delete(key)
		return
	}
	raw, err := json.Marshal(w.mem)
	if err != nil {
		w.roster.logger.Printf("agent %s: encode memory: %v", w.name, err)
		return
	}
	if err := w.roster.store.Set(key, raw); err != nil {
		w.roster.logger.Printf("agent %s: persist memory: %v", w.name, err)
	}
}
