package protocol

import (
	"encoding/json"
	"testing"

	"tickcore.ai/internal/host"
)

func TestDecodeBaseRoutesByType(t *testing.T) {
	b, err := json.Marshal(CommandsMsg{
		Type:            TypeCommands,
		ProtocolVersion: Version,
		Tick:            7,
		Commands:        []Command{{Creep: "c1", Action: ActMove, Direction: int(host.Top)}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	base, err := DecodeBase(b)
	if err != nil {
		t.Fatalf("DecodeBase: %v", err)
	}
	if base.Type != TypeCommands || base.ProtocolVersion != Version {
		t.Fatalf("unexpected base: %+v", base)
	}
}
