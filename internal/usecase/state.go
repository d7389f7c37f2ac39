package usecase

// AdapterState tracks where an adapter is in its connection lifecycle.
type AdapterState int32

const (
	StateDisconnected AdapterState = iota
	StateConnecting
	StateConnected
	StateConsuming
	StateReconnecting
	StateSimulating
)

func (s AdapterState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateConsuming:
		return "consuming"
	case StateReconnecting:
		return "reconnecting"
	case StateSimulating:
		return "fallback_simulating"
	default:
		return "unknown"
	}
}

// AdapterStatus is an operational snapshot of one adapter, served by the
// status API.
type AdapterStatus struct {
	Name      string  `json:"name"`
	State     string  `json:"state"`
	Connected bool    `json:"connected"`
	EventsOut uint64  `json:"events_out"`
	LastEvent float64 `json:"last_event_at,omitempty"`
}
