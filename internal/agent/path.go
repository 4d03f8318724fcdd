package agent

import (
	"strings"

	"tickcore.ai/internal/host"
)

// PathCache is a resumable route: one direction digit per step, a cursor at
// the next step to take, the remaining step budget and the target it was
// computed for.
type PathCache struct {
	Steps  string   `json:"steps"`
	Cursor int      `json:"cursor"`
	TTL    int      `json:"ttl"`
	Target host.Pos `json:"target"`
	Range  int      `json:"range,omitempty"`
}

func newPathCache(from host.Pos, path []host.Pos, target host.Pos, rng int) *PathCache {
	var b strings.Builder
	prev := from
	for _, p := range path {
		d := prev.DirectionTo(p)
		if d == 0 {
			return nil
		}
		b.WriteByte(byte('0' + d))
		prev = p
	}
	return &PathCache{Steps: b.String(), TTL: len(path), Target: target, Range: rng}
}

// Next returns the direction at the cursor.
func (c *PathCache) Next() (host.Direction, bool) {
	if c == nil || c.Cursor < 0 || c.Cursor >= len(c.Steps) {
		return 0, false
	}
	d := host.Direction(c.Steps[c.Cursor] - '0')
	return d, d.Valid()
}

// Len is the number of steps left.
func (c *PathCache) Len() int {
	if c == nil || c.Cursor >= len(c.Steps) {
		return 0
	}
	return len(c.Steps) - c.Cursor
}

func (c *PathCache) matches(target host.Pos, rng int) bool {
	return c.Target == target && c.Range == rng
}

// Terrain costs of the movement model.
const (
	CostRoad  = 1
	CostPlain = 2
	CostSwamp = 10
)

// TerrainCost is the movement cost of entering p, ignoring creeps.
func TerrainCost(w host.World, p host.Pos) (int, bool) {
	if !host.Passable(w, p) {
		return 0, false
	}
	for _, s := range w.StructuresAt(p) {
		if s.StructureType() == host.StructureRoad {
			return CostRoad, true
		}
	}
	if w.Terrain(p) == host.Swamp {
		return CostSwamp, true
	}
	return CostPlain, true
}
