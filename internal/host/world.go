package host

// Terrain kinds of a room cell.
type Terrain int

const (
	Plain Terrain = iota
	Swamp
	Wall
)

// Creep is a live agent handle. It is valid for the current tick only and must
// never be stored beyond it.
type Creep interface {
	Storable
	Name() string
	My() bool
	Spawning() bool
	Fatigue() int
	HasPart(p BodyPart) bool

	Harvest(target ObjectID) Code
	Build(target ObjectID) Code
	Repair(target ObjectID) Code
	UpgradeController(target ObjectID) Code
	ReserveController(target ObjectID) Code
	Dismantle(target ObjectID) Code
	Attack(target ObjectID) Code
	Heal(target ObjectID) Code

	Transfer(target ObjectID, r Resource, amount int) Code
	Withdraw(target ObjectID, r Resource, amount int) Code
	Pickup(target ObjectID) Code
	Drop(r Resource, amount int) Code

	RangedAttack(target ObjectID) Code
	RangedHeal(target ObjectID) Code
	RangedMassAttack() Code

	Move(d Direction) Code
}

// CostFunc returns the movement cost of entering p. ok=false marks p impassable.
type CostFunc func(p Pos) (cost int, ok bool)

type PathOptions struct {
	// Range is the distance from the goal at which the search may stop.
	Range int
	// MaxOps bounds the number of expanded nodes.
	MaxOps int
	Cost   CostFunc
}

type PathResult struct {
	// Path excludes the start position.
	Path       []Pos
	Ops        int
	Cost       int
	Incomplete bool
}

// World is the per-tick view of the host simulation.
type World interface {
	Time() uint64
	Object(id ObjectID) (Object, bool)
	// ObjectIDs lists every object other than creeps, in id order.
	ObjectIDs() []ObjectID
	Creep(name string) (Creep, bool)
	CreepNames() []string
	CreepAt(p Pos) (Creep, bool)
	StructuresAt(p Pos) []Structure
	Terrain(p Pos) Terrain
	FindPath(from, to Pos, opts PathOptions) PathResult
}

// Passable reports whether a creep could stand on p, ignoring other creeps.
func Passable(w World, p Pos) bool {
	if !p.InBounds() || w.Terrain(p) == Wall {
		return false
	}
	for _, s := range w.StructuresAt(p) {
		if !s.StructureType().Walkable() {
			return false
		}
	}
	return true
}
