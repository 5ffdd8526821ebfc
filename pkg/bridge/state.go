package bridge

// State is the position of a call in the bridge state machine.
type State int

const (
	// StateInit waits for the telephony start event.
	StateInit State = iota

	// StateModelConnecting has a stream ID and is dialing the model.
	StateModelConnecting

	// StateActive relays audio in both directions.
	StateActive

	// StateClosing is tearing both legs down.
	StateClosing

	// StateClosed is terminal.
	StateClosed
)

// String returns the state name, e.g. "MODEL_CONNECTING".
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateModelConnecting:
		return "MODEL_CONNECTING"
	case StateActive:
		return "ACTIVE"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// Lifecycle maps s onto the coarse lifecycle reported to operators:
// connecting, active, closing or closed.
func (s State) Lifecycle() string {
	switch s {
	case StateInit, StateModelConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	}
	return "closed"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
