package sim

import (
	"container/heap"

	"tickcore.ai/internal/host"
)

// DefaultMaxOps bounds FindPath when the caller passes no limit.
const DefaultMaxOps = 2000

type pathNode struct {
	idx int
	g   int
	f   int
}

type openSet []pathNode

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].idx < o[j].idx
}
func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any)   { *o = append(*o, x.(pathNode)) }
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	*o = old[:len(old)-1]
	return n
}

// FindPath runs a bounded A* search inside a single room. When the search
// runs out of operations, the returned path leads to the closest explored
// cell and Incomplete is set.
func (w *World) FindPath(from, to host.Pos, opts host.PathOptions) host.PathResult {
	if from.Room != to.Room || !from.InBounds() || !to.InBounds() {
		return host.PathResult{Incomplete: true}
	}
	if from.Range(to) <= opts.Range {
		return host.PathResult{}
	}
	cost := opts.Cost
	if cost == nil {
		cost = w.defaultCost
	}
	maxOps := opts.MaxOps
	if maxOps <= 0 {
		maxOps = DefaultMaxOps
	}
	room := from.Room
	posOf := func(idx int) host.Pos {
		return host.Pos{Room: room, X: idx % host.RoomSize, Y: idx / host.RoomSize}
	}
	h := func(p host.Pos) int {
		d := p.Range(to) - opts.Range
		if d < 0 {
			return 0
		}
		return d
	}

	start := from.Y*host.RoomSize + from.X
	gScore := map[int]int{start: 0}
	parent := map[int]int{}
	closed := map[int]bool{}
	open := &openSet{{idx: start, g: 0, f: h(from)}}
	best, bestH := start, h(from)

	ops := 0
	for open.Len() > 0 {
		n := heap.Pop(open).(pathNode)
		if closed[n.idx] {
			continue
		}
		closed[n.idx] = true
		ops++
		p := posOf(n.idx)
		if p.Range(to) <= opts.Range {
			return host.PathResult{Path: unwind(parent, start, n.idx, posOf), Ops: ops, Cost: n.g}
		}
		if hv := h(p); hv < bestH {
			best, bestH = n.idx, hv
		}
		if ops >= maxOps {
			break
		}
		for _, d := range host.AllDirections {
			np := p.Step(d)
			if !np.InBounds() {
				continue
			}
			ni := np.Y*host.RoomSize + np.X
			if closed[ni] {
				continue
			}
			c, ok := cost(np)
			if !ok {
				continue
			}
			ng := n.g + c
			if old, seen := gScore[ni]; seen && old <= ng {
				continue
			}
			gScore[ni] = ng
			parent[ni] = n.idx
			heap.Push(open, pathNode{idx: ni, g: ng, f: ng + h(np)})
		}
	}
	return host.PathResult{Path: unwind(parent, start, best, posOf), Ops: ops, Cost: gScore[best], Incomplete: true}
}

func unwind(parent map[int]int, start, end int, posOf func(int) host.Pos) []host.Pos {
	var rev []host.Pos
	for cur := end; cur != start; cur = parent[cur] {
		rev = append(rev, posOf(cur))
	}
	out := make([]host.Pos, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}

func (w *World) defaultCost(p host.Pos) (int, bool) {
	if !host.Passable(w, p) {
		return 0, false
	}
	return w.moveCost(p), true
}
