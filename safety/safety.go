// Package safety implements the silence-first safety switch: the single
// authority deciding whether analysis output may be surfaced.
package safety

// Code identifies why the switch tripped. Codes are the only failure detail
// an envelope ever carries.
type Code string

const (
	CodeNone                      Code = ""
	CodeCanonicalizationCollision Code = "CANONICALIZATION_COLLISION"
	CodeAliasAmbiguous            Code = "ALIAS_AMBIGUOUS"
	CodeGraphIncomplete           Code = "GRAPH_INCOMPLETE"
	CodeTimeoutExceeded           Code = "TIMEOUT_EXCEEDED"
	CodeDeterminismMismatch       Code = "DETERMINISM_MISMATCH"
	CodeSchemaUpgradeFailed       Code = "SCHEMA_UPGRADE_FAILED"
	CodeLowConfidence             Code = "LOW_CONFIDENCE"
	CodeInternalError             Code = "INTERNAL_ERROR"
)

// State of the switch. The only transition is Active to Silent.
type State int

const (
	Active State = iota
	Silent
)

// Switch starts Active and latches Silent on the first trip for the
// remainder of the call. One switch per analysis call; never shared.
type Switch struct {
	state State
	code  Code
}

// NewSwitch returns an Active switch.
func NewSwitch() *Switch {
	return &Switch{state: Active}
}

// Trip moves the switch to Silent with the given code. The first trip wins;
// later trips are ignored so the recorded code names the original cause.
func (s *Switch) Trip(code Code) {
	if s.state == Silent {
		return
	}
	s.state = Silent
	s.code = code
}

// State returns the current state.
func (s *Switch) State() State {
	return s.state
}

// Silenced reports whether output must collapse to the no-signal envelope.
func (s *Switch) Silenced() bool {
	return s.state == Silent
}

// Code returns the code of the first trip, or CodeNone while Active.
func (s *Switch) Code() Code {
	return s.code
}

// Status returns the envelope status a tripped switch forces: "error" for
// internal faults, "silent" for every deliberate suppression. An Active
// switch forces nothing and returns "".
func (s *Switch) Status() string {
	if s.state == Active {
		return ""
	}
	if s.code == CodeInternalError {
		return "error"
	}
	return "silent"
}
