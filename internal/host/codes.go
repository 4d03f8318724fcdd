package host

// Code is the result of a world action.
type Code int

const (
	CodeOK            Code = 0
	CodeNotOwner      Code = -1
	CodeNoPath        Code = -2
	CodeBusy          Code = -4
	CodeNotFound      Code = -5
	CodeNotEnough     Code = -6
	CodeInvalidTarget Code = -7
	CodeFull          Code = -8
	CodeNotInRange    Code = -9
	CodeInvalidArgs   Code = -10
	CodeTired         Code = -11
	CodeNoBodyPart    Code = -12
	// CodeNotAlive is returned by agent wrappers whose creep is absent this tick.
	CodeNotAlive Code = -100
)

var codeNames = map[Code]string{
	CodeOK:            "OK",
	CodeNotOwner:      "E_NOT_OWNER",
	CodeNoPath:        "E_NO_PATH",
	CodeBusy:          "E_BUSY",
	CodeNotFound:      "E_NOT_FOUND",
	CodeNotEnough:     "E_NOT_ENOUGH",
	CodeInvalidTarget: "E_INVALID_TARGET",
	CodeFull:          "E_FULL",
	CodeNotInRange:    "E_NOT_IN_RANGE",
	CodeInvalidArgs:   "E_INVALID_ARGS",
	CodeTired:         "E_TIRED",
	CodeNoBodyPart:    "E_NO_BODYPART",
	CodeNotAlive:      "E_NOT_ALIVE",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "E_UNKNOWN"
}

// Fatal reports whether the code means the current target can never succeed
// for this agent. Everything else resolves itself on a later tick.
func (c Code) Fatal() bool {
	switch c {
	case CodeInvalidTarget, CodeNoBodyPart, CodeNotOwner, CodeNotFound, CodeInvalidArgs:
		return true
	}
	return false
}
