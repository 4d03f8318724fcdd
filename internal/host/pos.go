package host

import (
	"fmt"
	"math"
)

// RoomSize is the edge length of a room grid. Valid coordinates are 0..RoomSize-1.
const RoomSize = 50

type Pos struct {
	Room string `json:"room"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (p Pos) String() string { return fmt.Sprintf("%s[%d,%d]", p.Room, p.X, p.Y) }

// InBounds reports whether p lies on the room grid.
func (p Pos) InBounds() bool {
	return p.X >= 0 && p.Y >= 0 && p.X < RoomSize && p.Y < RoomSize
}

// Range is the Chebyshev distance between two positions. Positions in different
// rooms are infinitely far apart.
func (p Pos) Range(o Pos) int {
	if p.Room != o.Room {
		return math.MaxInt32
	}
	dx := abs(p.X - o.X)
	dy := abs(p.Y - o.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func (p Pos) InRange(o Pos, r int) bool { return p.Range(o) <= r }

// Step returns the position one cell away in direction d. The result may be off-grid.
func (p Pos) Step(d Direction) Pos {
	dx, dy := d.Delta()
	return Pos{Room: p.Room, X: p.X + dx, Y: p.Y + dy}
}

// DirectionTo returns the direction of an adjacent cell, or 0 if o is not adjacent.
func (p Pos) DirectionTo(o Pos) Direction {
	if p.Room != o.Room {
		return 0
	}
	dx, dy := o.X-p.X, o.Y-p.Y
	for _, d := range AllDirections {
		ddx, ddy := d.Delta()
		if ddx == dx && ddy == dy {
			return d
		}
	}
	return 0
}

// Direction encodes the eight grid neighbours, clockwise from the top.
type Direction int

const (
	Top Direction = iota + 1
	TopRight
	Right
	BottomRight
	Bottom
	BottomLeft
	Left
	TopLeft
)

var AllDirections = [8]Direction{Top, TopRight, Right, BottomRight, Bottom, BottomLeft, Left, TopLeft}

func (d Direction) Valid() bool { return d >= Top && d <= TopLeft }

func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Top:
		return 0, -1
	case TopRight:
		return 1, -1
	case Right:
		return 1, 0
	case BottomRight:
		return 1, 1
	case Bottom:
		return 0, 1
	case BottomLeft:
		return -1, 1
	case Left:
		return -1, 0
	case TopLeft:
		return -1, -1
	}
	return 0, 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
