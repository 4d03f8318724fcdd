package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Command routing.
	ErrStaleTick     = "E_STALE_TICK"
	ErrUnknownCreep  = "E_UNKNOWN_CREEP"
	ErrUnknownAction = "E_UNKNOWN_ACTION"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrStaleTick:       {},
	ErrUnknownCreep:    {},
	ErrUnknownAction:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
