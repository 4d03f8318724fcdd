package protocol

import "tickcore.ai/internal/host"

// HELLO (controller -> host)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Player          string `json:"player"`
}

// WELCOME (host -> controller)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Player          string   `json:"player"`
	TickRateHz      int      `json:"tick_rate_hz"`
	Rooms           []string `json:"rooms"`
}

// TICK (host -> controller). Carries the full world state for one tick.
type TickMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Tick            uint64          `json:"tick"`
	State           WorldState      `json:"state"`
	Results         []CommandResult `json:"results,omitempty"`
}

// COMMANDS (controller -> host). Actions issued by the controller during Tick.
type CommandsMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Tick            uint64    `json:"tick"`
	Commands        []Command `json:"commands"`
}

type WorldState struct {
	Tick    uint64        `json:"tick"`
	Rooms   []RoomState   `json:"rooms"`
	Creeps  []CreepState  `json:"creeps"`
	Objects []ObjectState `json:"objects"`
}

type RoomState struct {
	Name string `json:"name"`
	// Terrain is EncodeRLE over RoomSize*RoomSize cells, row-major.
	Terrain string `json:"terrain"`
}

type CreepState struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Pos      host.Pos        `json:"pos"`
	Body     []host.BodyPart `json:"body"`
	Store    host.Store      `json:"store"`
	Fatigue  int             `json:"fatigue,omitempty"`
	Spawning int             `json:"spawning,omitempty"`
	Hostile  bool            `json:"hostile,omitempty"`
	Hits     int             `json:"hits"`
	HitsMax  int             `json:"hits_max"`
}

// Object kinds carried in ObjectState.Kind.
const (
	KindSource     = "source"
	KindDropped    = "dropped"
	KindSite       = "site"
	KindStructure  = "structure"
	KindController = "controller"
)

type ObjectState struct {
	ID   string   `json:"id"`
	Kind string   `json:"kind"`
	Pos  host.Pos `json:"pos"`

	// source
	Energy         int `json:"energy,omitempty"`
	EnergyCapacity int `json:"energy_capacity,omitempty"`
	Regen          int `json:"regen,omitempty"`

	// dropped
	Resource host.Resource `json:"resource,omitempty"`
	Amount   int           `json:"amount,omitempty"`

	// site / structure
	StructureType host.StructureType `json:"structure_type,omitempty"`
	Progress      int                `json:"progress,omitempty"`
	ProgressTotal int                `json:"progress_total,omitempty"`
	Hits          int                `json:"hits,omitempty"`
	HitsMax       int                `json:"hits_max,omitempty"`
	Hostile       bool               `json:"hostile,omitempty"`
	Store         *host.Store        `json:"store,omitempty"`

	// controller
	Level      int    `json:"level,omitempty"`
	Owner      string `json:"owner,omitempty"`
	ReservedBy string `json:"reserved_by,omitempty"`
}

// Command actions.
const (
	ActHarvest          = "harvest"
	ActBuild            = "build"
	ActRepair           = "repair"
	ActUpgrade          = "upgrade"
	ActReserve          = "reserve"
	ActDismantle        = "dismantle"
	ActAttack           = "attack"
	ActHeal             = "heal"
	ActTransfer         = "transfer"
	ActWithdraw         = "withdraw"
	ActPickup           = "pickup"
	ActDrop             = "drop"
	ActRangedAttack     = "ranged_attack"
	ActRangedHeal       = "ranged_heal"
	ActRangedMassAttack = "ranged_mass_attack"
	ActMove             = "move"
)

type Command struct {
	Creep     string        `json:"creep"`
	Action    string        `json:"action"`
	Target    string        `json:"target,omitempty"`
	Direction int           `json:"direction,omitempty"`
	Resource  host.Resource `json:"resource,omitempty"`
	Amount    int           `json:"amount,omitempty"`
}

type CommandResult struct {
	Index int    `json:"index"`
	Code  string `json:"code"`
}
