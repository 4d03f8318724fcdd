// Package traffic resolves the movement intents of one tick in a single,
// priority-ordered pass.
package traffic

import (
	"io"
	"log"
	"math/rand"
	"sort"

	"tickcore.ai/internal/host"
)

// DefaultShoveLimit is the priority at and above which movers do not shove.
const DefaultShoveLimit = 5

// Mover is an agent that can be moved by the resolver.
type Mover interface {
	Name() string
	Pos() (host.Pos, bool)
	Move(d host.Direction) host.Code
}

// Intent is a proposed one-step move. Lower Priority is more urgent.
type Intent struct {
	Agent     Mover
	Direction host.Direction
	Priority  int
}

type Stats struct {
	Intents       int `json:"intents"`
	Moves         int `json:"moves"`
	Dropped       int `json:"dropped"`
	Shoves        int `json:"shoves"`
	ShoveFailures int `json:"shove_failures"`
}

type Resolver struct {
	shoveLimit int
	rng        *rand.Rand
	logger     *log.Logger

	intents []Intent
	byName  map[string]int
	stats   Stats
}

// New returns a resolver. rng drives the neighbour rotation used when
// shoving; a nil rng is seeded from the global source.
func New(shoveLimit int, rng *rand.Rand, logger *log.Logger) *Resolver {
	if shoveLimit <= 0 {
		shoveLimit = DefaultShoveLimit
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Resolver{
		shoveLimit: shoveLimit,
		rng:        rng,
		logger:     logger,
		byName:     map[string]int{},
	}
}

// Register records an intent. A second intent from the same agent in the
// same tick replaces the first.
func (r *Resolver) Register(in Intent) {
	if in.Agent == nil {
		return
	}
	name := in.Agent.Name()
	if i, ok := r.byName[name]; ok {
		r.intents[i] = in
		return
	}
	r.byName[name] = len(r.intents)
	r.intents = append(r.intents, in)
}

// Pending returns the number of intents registered this tick.
func (r *Resolver) Pending() int { return len(r.intents) }

// Resolve issues every registered move in ascending priority order, shoving
// idle friendly blockers out of the way where allowed. The intent set is
// empty when Resolve returns, whatever happened.
func (r *Resolver) Resolve(w host.World) Stats {
	defer r.reset()

	order := append([]Intent(nil), r.intents...)
	sort.SliceStable(order, func(i, j int) bool { return order[i].Priority < order[j].Priority })
	r.stats.Intents = len(order)

	// Agents that registered an intent count as busy and are never shoved.
	// Their actual priority is not consulted.
	busy := make(map[string]bool, len(r.byName))
	for name := range r.byName {
		busy[name] = true
	}

	for _, in := range order {
		name := in.Agent.Name()
		pos, ok := in.Agent.Pos()
		if !ok || !in.Direction.Valid() {
			r.stats.Dropped++
			continue
		}
		dest := pos.Step(in.Direction)
		if !dest.InBounds() {
			r.stats.Dropped++
			continue
		}
		if blocker, ok := w.CreepAt(dest); ok && blocker.My() && blocker.Name() != name &&
			!busy[blocker.Name()] && in.Priority < r.shoveLimit {
			if r.shove(w, blocker) {
				r.stats.Shoves++
				busy[blocker.Name()] = true
			} else {
				r.stats.ShoveFailures++
			}
		}
		in.Agent.Move(in.Direction)
		r.stats.Moves++
	}
	return r.stats
}

// shove moves blocker to a free neighbouring cell, trying directions in a
// random rotation.
func (r *Resolver) shove(w host.World, blocker host.Creep) bool {
	if blocker.Fatigue() > 0 || blocker.Spawning() {
		return false
	}
	from := blocker.Pos()
	start := r.rng.Intn(len(host.AllDirections))
	for i := range host.AllDirections {
		d := host.AllDirections[(start+i)%len(host.AllDirections)]
		cell := from.Step(d)
		if !host.Passable(w, cell) {
			continue
		}
		if _, taken := w.CreepAt(cell); taken {
			continue
		}
		if blocker.Move(d) == host.CodeOK {
			return true
		}
	}
	r.logger.Printf("traffic: no free cell to shove %s at %s", blocker.Name(), from)
	return false
}

func (r *Resolver) reset() {
	r.intents = r.intents[:0]
	r.byName = map[string]int{}
	r.stats = Stats{}
}
