package driver

import (
	"encoding/json"
	"time"
)

// State is the supervisor lifecycle state.
type State string

// Supervisor states. Ready and Failed end a Start call.
const (
	StateIdle               State = "idle"
	StateReaping            State = "reaping"
	StateSpawning           State = "spawning"
	StateAwaitingMarker     State = "awaiting_marker"
	StatePollingStatus      State = "polling_status"
	StateNegotiatingSession State = "negotiating_session"
	StateReady              State = "ready"
	StateFailed             State = "failed"
)

// Starting reports whether a Start call is running in this state.
func (s State) Starting() bool {
	switch s {
	case StateReaping, StateSpawning, StateAwaitingMarker, StatePollingStatus, StateNegotiatingSession:
		return true
	}
	return false
}

// Capabilities are the desired capabilities sent with the session request.
// The supervisor never interprets them.
type Capabilities map[string]any

// Session is the session created while negotiating readiness.
type Session struct {
	ID           string          `json:"id"`
	Capabilities Capabilities    `json:"capabilities,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Info is a snapshot of the supervisor.
type Info struct {
	State     State
	PID       int
	BinPath   string
	Args      []string
	StartedAt time.Time
	Session   *Session
	LastError error
	Extra     map[string]any
}
