package processes

import (
	"tickcore.ai/internal/process"
)

// JanitorInterval is how many ticks the janitor sleeps between sweeps.
const JanitorInterval = 100

// Janitor drops segment entries left behind by processes that no longer
// exist, then goes back to sleep.
type Janitor struct {
	process.Base
	state struct {
		Sweeps  int `json:"sweeps"`
		Dropped int `json:"dropped"`
	}
}

func NewJanitor(d *process.Descriptor) (process.Process, error) {
	j := &Janitor{Base: process.NewBase(d, TypeJanitor, process.Deferred)}
	if err := j.Load(&j.state); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Janitor) Run(ctx *process.Context) error {
	if ctx.Segments != nil && ctx.Spawner != nil {
		gone := ctx.Segments.Sweep(ctx.Spawner.Alive)
		j.state.Dropped += len(gone)
		if len(gone) > 0 && ctx.Log != nil {
			ctx.Log.Printf("janitor: dropped segment entries of %v", gone)
		}
	}
	j.state.Sweeps++
	j.Suspend(ctx.Tick, JanitorInterval)
	return j.Store(&j.state)
}
