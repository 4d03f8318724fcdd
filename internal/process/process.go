// Package process defines the cooperative units of controller work that the
// scheduler multiplexes over the tick budget.
package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"tickcore.ai/internal/agent"
	"tickcore.ai/internal/host"
	"tickcore.ai/internal/segments"
)

type Priority int

const (
	Critical Priority = iota
	High
	Normal
	Low
	Deferred
)

func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	case Deferred:
		return "deferred"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

func (p Priority) Valid() bool { return p >= Critical && p <= Deferred }

var (
	ErrUnknownType = errors.New("process: unknown type")
	ErrBadData     = errors.New("process: bad data")
)

// Descriptor is the persisted form of a process.
type Descriptor struct {
	PID        string          `json:"pid"`
	Type       string          `json:"type"`
	Priority   Priority        `json:"priority"`
	SleepUntil uint64          `json:"sleep_until,omitempty"`
	Active     bool            `json:"active"`
	Data       json.RawMessage `json:"data,omitempty"`
}

type Process interface {
	PID() string
	Type() string
	Priority() Priority
	Active() bool
	SleepUntil() uint64
	// Suspend skips the process until now+ticks.
	Suspend(now, ticks uint64)
	Wake()
	Run(ctx *Context) error
	Descriptor() Descriptor
}

// Spawner starts and stops processes on behalf of other processes.
type Spawner interface {
	Spawn(typ, pid string, prio Priority) (string, error)
	Kill(pid string) bool
	Alive(pid string) bool
}

// Context is what a process sees during one tick. It is rebuilt every tick
// and must not be retained.
type Context struct {
	Tick     uint64
	World    host.World
	Agents   *agent.Roster
	Segments *segments.Cache
	Spawner  Spawner
	Log      *log.Logger
}

// Base carries the descriptor bookkeeping shared by all processes. Concrete
// processes embed it and keep their own state in the data bag.
type Base struct {
	d Descriptor
}

// NewBase restores from d, or starts fresh with pid == typ when d is nil.
func NewBase(d *Descriptor, typ string, prio Priority) Base {
	if d == nil {
		return Base{d: Descriptor{PID: typ, Type: typ, Priority: prio, Active: true}}
	}
	b := Base{d: *d}
	if b.d.Type == "" {
		b.d.Type = typ
	}
	if !b.d.Priority.Valid() {
		b.d.Priority = prio
	}
	return b
}

func (b *Base) PID() string            { return b.d.PID }
func (b *Base) Type() string           { return b.d.Type }
func (b *Base) Priority() Priority     { return b.d.Priority }
func (b *Base) Active() bool           { return b.d.Active }
func (b *Base) SleepUntil() uint64     { return b.d.SleepUntil }
func (b *Base) SetActive(v bool)       { b.d.Active = v }
func (b *Base) SetPriority(p Priority) { b.d.Priority = p }

func (b *Base) Suspend(now, ticks uint64) { b.d.SleepUntil = now + ticks }

func (b *Base) Wake() { b.d.SleepUntil = 0 }

// Asleep reports whether the process must be skipped at tick now.
func (b *Base) Asleep(now uint64) bool { return b.d.SleepUntil > now }

// Load decodes the data bag into v. An empty bag leaves v untouched.
func (b *Base) Load(v any) error {
	if len(b.d.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(b.d.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadData, b.d.PID, err)
	}
	return nil
}

// Store replaces the data bag with the encoding of v.
func (b *Base) Store(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadData, b.d.PID, err)
	}
	b.d.Data = raw
	return nil
}

func (b *Base) Descriptor() Descriptor {
	d := b.d
	if d.Data != nil {
		d.Data = append(json.RawMessage(nil), d.Data...)
	}
	return d
}
