package session

// State is the current stage of a scanning session
type State int

const (
	Idle State = iota
	AwaitingSource
	Captured
	Extracting
	Ready
	Generating
	SynthesisReady
)

var stateNames = [...]string{
	Idle:           "idle",
	AwaitingSource: "awaiting_source",
	Captured:       "captured",
	Extracting:     "extracting",
	Ready:          "ready",
	Generating:     "generating",
	SynthesisReady: "synthesis_ready",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
