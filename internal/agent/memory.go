package agent

import (
	"encoding/json"

	"tickcore.ai/internal/host"
	"tickcore.ai/internal/schema"
	"tickcore.ai/internal/tasks"
)

// KeyPrefix prefixes every agent's record in the persistent store.
const KeyPrefix = "agents/"

func Key(name string) string { return KeyPrefix + name }

// Memory is an agent's persisted state. It holds ids and positions only.
type Memory struct {
	Task    *tasks.Record `json:"task,omitempty"`
	Path    *PathCache    `json:"path,omitempty"`
	Stuck   int           `json:"stuck,omitempty"`
	LastPos *host.Pos     `json:"last_pos,omitempty"`
}

func (m Memory) empty() bool {
	return m.Task == nil && m.Path == nil && m.Stuck == 0 && m.LastPos == nil
}

// Store is the slice of the persistent store the roster needs.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, raw []byte) error
	Delete(key string)
	Keys(prefix string) []string
}

func decodeMemory(raw []byte) (Memory, error) {
	var m Memory
	if err := schema.Validate(schema.AgentMemory, raw); err != nil {
		return m, err
	}
	err := json.Unmarshal(raw, &m)
	return m, err
}
