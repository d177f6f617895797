package engine

import "time"

// RunState is the coarse lifecycle state of a profile.
type RunState string

const (
	StateStopped  RunState = "Stopped"
	StateStarting RunState = "Starting"
	StateRunning  RunState = "Running"
)

// ConnState is the advisory connectivity display state. It never affects
// supervision decisions.
type ConnState string

const (
	ConnNone    ConnState = "-"
	ConnWaiting ConnState = "Waiting"
	ConnOnline  ConnState = "Online"
	ConnOffline ConnState = "Offline"
)

// Status is a point-in-time snapshot of one profile's runtime state.
type Status struct {
	Name          string    `json:"name"`
	Group         string    `json:"group,omitempty"`
	State         RunState  `json:"state"`
	Conn          ConnState `json:"conn"`
	PID           int       `json:"pid,omitempty"`
	UserStopped   bool      `json:"userStopped"`
	InFlight      bool      `json:"inFlight"`
	StartedAt     time.Time `json:"startedAt,omitzero"`
	LastRestartAt time.Time `json:"lastRestartAt,omitzero"`
	Restarts      int       `json:"restarts"`
	LastEvent     string    `json:"lastEvent,omitempty"`
}

// Event is one line of the engine's recent activity feed.
type Event struct {
	Time    time.Time `json:"time"`
	Name    string    `json:"name,omitempty"`
	Message string    `json:"message"`
}
