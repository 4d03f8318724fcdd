// Package tasks holds the serializable units of agent work. A task keeps only
// its target's id and numeric settings; everything else is looked up through
// the agent on every call.
package tasks

import (
	"errors"
	"fmt"

	"tickcore.ai/internal/host"
)

type Kind string

const (
	KindHarvest   Kind = "harvest"
	KindTransfer  Kind = "transfer"
	KindWithdraw  Kind = "withdraw"
	KindPickup    Kind = "pickup"
	KindBuild     Kind = "build"
	KindRepair    Kind = "repair"
	KindUpgrade   Kind = "upgrade"
	KindReserve   Kind = "reserve"
	KindDismantle Kind = "dismantle"
)

// Movement priorities used when a task approaches its target. Lower is more urgent.
const (
	MovePriorityHarvest = 1
	MovePriorityStore   = 2
	MovePriorityReserve = 2
	MovePriorityWork    = 3
)

var (
	ErrUnknownTask = errors.New("tasks: unknown task kind")
	ErrBadRecord   = errors.New("tasks: malformed record")
)

type Settings struct {
	// TargetRange is the distance the agent approaches to.
	TargetRange int `json:"target_range"`
	// WorkRange is the distance at which the task's effect may fire.
	WorkRange int  `json:"work_range"`
	OneShot   bool `json:"one_shot,omitempty"`
}

// Record is the persisted form of a task.
type Record struct {
	Name     Kind          `json:"name"`
	TargetID string        `json:"target_id"`
	Settings Settings      `json:"settings"`
	Resource host.Resource `json:"resource,omitempty"`
	Amount   int           `json:"amount,omitempty"`
}

// Agent is what a task may see of the agent running it. Every action goes
// through the agent's pipeline accounting.
type Agent interface {
	Name() string
	Pos() (host.Pos, bool)
	Store() host.Store
	HasPart(p host.BodyPart) bool
	Lookup(id host.ObjectID) (host.Object, bool)

	Harvest(id host.ObjectID) host.Code
	Build(id host.ObjectID) host.Code
	Repair(id host.ObjectID) host.Code
	UpgradeController(id host.ObjectID) host.Code
	ReserveController(id host.ObjectID) host.Code
	Dismantle(id host.ObjectID) host.Code
	Transfer(id host.ObjectID, r host.Resource, amount int) host.Code
	Withdraw(id host.ObjectID, r host.Resource, amount int) host.Code
	Pickup(id host.ObjectID) host.Code

	TravelTo(target host.Pos, rng int, priority int) host.Code
}

type Task interface {
	Kind() Kind
	TargetID() host.ObjectID
	Settings() Settings
	// IsValid is a cheap precondition check made before Run.
	IsValid(a Agent) bool
	// Run performs one tick of work and reports whether the task is finished.
	Run(a Agent) bool
	Record() Record
}

// Stationary reports whether agents running t stay put for long stretches.
// Pathing treats such agents as expensive rather than as obstacles.
func Stationary(t Task) bool {
	s, ok := t.(interface{ Stationary() bool })
	return ok && s.Stationary()
}

type factory func(rec Record) Task

var factories = map[Kind]factory{
	KindHarvest:   func(r Record) Task { return &Harvest{base: restore(r, MovePriorityHarvest)} },
	KindTransfer:  func(r Record) Task { return &Transfer{base: restore(r, MovePriorityStore)} },
	KindWithdraw:  func(r Record) Task { return &Withdraw{base: restore(r, MovePriorityStore)} },
	KindPickup:    func(r Record) Task { return &Pickup{base: restore(r, MovePriorityStore)} },
	KindBuild:     func(r Record) Task { return &Build{base: restore(r, MovePriorityWork)} },
	KindRepair:    func(r Record) Task { return &Repair{base: restore(r, MovePriorityWork)} },
	KindUpgrade:   func(r Record) Task { return &Upgrade{base: restore(r, MovePriorityWork)} },
	KindReserve:   func(r Record) Task { return &Reserve{base: restore(r, MovePriorityReserve)} },
	KindDismantle: func(r Record) Task { return &Dismantle{base: restore(r, MovePriorityWork)} },
}

// FromRecord rebuilds a task from its persisted form.
func FromRecord(rec Record) (Task, error) {
	f, ok := factories[rec.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, rec.Name)
	}
	if rec.TargetID == "" {
		return nil, fmt.Errorf("%w: %s without target", ErrBadRecord, rec.Name)
	}
	if rec.Settings.TargetRange < 0 || rec.Settings.WorkRange < 0 {
		return nil, fmt.Errorf("%w: %s negative range", ErrBadRecord, rec.Name)
	}
	return f(rec), nil
}

// Kinds lists every known task kind.
func Kinds() []Kind {
	return []Kind{KindHarvest, KindTransfer, KindWithdraw, KindPickup, KindBuild, KindRepair, KindUpgrade, KindReserve, KindDismantle}
}
