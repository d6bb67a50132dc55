package events

import "encoding/json"

// Event type constants for kelindar/event.
const (
	TypeDriverReady uint32 = iota + 1
	TypeDriverError
	TypeDriverStateChanged
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DriverReadyEvent is published once the driver answered both the status
// probe and the session-creation request.
type DriverReadyEvent struct {
	SessionID    string          `json:"session_id" example:"abc123" doc:"Session created during readiness negotiation"`
	Capabilities map[string]any  `json:"capabilities,omitempty" doc:"Capabilities sent with the session request"`
	Payload      json.RawMessage `json:"payload,omitempty" doc:"Raw session-creation response"`
	Timestamp    string          `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DriverReadyEvent.
func (e DriverReadyEvent) Type() uint32 { return TypeDriverReady }

// DriverErrorEvent is published when the driver process fails to start or
// dies before printing its startup banner.
type DriverErrorEvent struct {
	Stage     string `json:"stage" example:"spawning" doc:"Lifecycle state the failure happened in"`
	Error     string `json:"error" example:"chromedriver exited before startup (code 1)" doc:"Error description"`
	PID       int    `json:"pid,omitempty" example:"4242" doc:"Process ID, when one was assigned"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DriverErrorEvent.
func (e DriverErrorEvent) Type() uint32 { return TypeDriverError }

// DriverStateChangedEvent reports a supervisor state transition.
type DriverStateChangedEvent struct {
	From      string `json:"from" example:"spawning" doc:"Previous state"`
	To        string `json:"to" example:"awaiting_marker" doc:"New state"`
	Error     string `json:"error,omitempty" doc:"Failure reason for transitions into failed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DriverStateChangedEvent.
func (e DriverStateChangedEvent) Type() uint32 { return TypeDriverStateChanged }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"driver" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
