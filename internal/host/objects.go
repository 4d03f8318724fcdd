package host

// ObjectID is the stable identifier of a world object. It is the only form in
// which objects may be kept between ticks.
type ObjectID string

type Resource string

const Energy Resource = "energy"

type BodyPart string

const (
	Move         BodyPart = "move"
	Work         BodyPart = "work"
	Carry        BodyPart = "carry"
	Attack       BodyPart = "attack"
	RangedAttack BodyPart = "ranged_attack"
	Heal         BodyPart = "heal"
	Claim        BodyPart = "claim"
	Tough        BodyPart = "tough"
)

type StructureType string

const (
	StructureRoad       StructureType = "road"
	StructureWall       StructureType = "wall"
	StructureRampart    StructureType = "rampart"
	StructureContainer  StructureType = "container"
	StructureStorage    StructureType = "storage"
	StructureSpawn      StructureType = "spawn"
	StructureExtension  StructureType = "extension"
	StructureTower      StructureType = "tower"
	StructureController StructureType = "controller"
)

// Walkable reports whether creeps may stand on a structure of this type.
func (t StructureType) Walkable() bool {
	switch t {
	case StructureRoad, StructureContainer, StructureRampart:
		return true
	}
	return false
}

// Store is a snapshot of an object's resource store.
type Store struct {
	Amounts  map[Resource]int `json:"amounts,omitempty"`
	Capacity int              `json:"capacity"`
}

func (s Store) Get(r Resource) int { return s.Amounts[r] }

func (s Store) Used() int {
	n := 0
	for _, v := range s.Amounts {
		n += v
	}
	return n
}

func (s Store) Free() int {
	f := s.Capacity - s.Used()
	if f < 0 {
		return 0
	}
	return f
}

// Object is anything with an identity and a position. The capability
// interfaces below form the closed set of shapes tasks may depend on;
// callers use type assertions to check for them.
type Object interface {
	ID() ObjectID
	Pos() Pos
}

// Storable objects hold resources (containers, storage, spawns, creeps).
type Storable interface {
	Object
	Store() Store
}

// Source objects yield energy and regenerate.
type Source interface {
	Object
	Energy() int
	TicksToRegeneration() int
}

// Dropped resource lying on the ground.
type Dropped interface {
	Object
	Resource() Resource
	Amount() int
}

// Site is a construction site.
type Site interface {
	Object
	Progress() int
	ProgressTotal() int
}

type Structure interface {
	Object
	StructureType() StructureType
	Hits() int
	HitsMax() int
	My() bool
}

type Controller interface {
	Object
	Level() int
	My() bool
	Owner() string
	ReservedBy() string
}
