// Package ipc provides the control channel between the switchd daemon
// and client tools (switchctl, scripts).
//
// The protocol is newline-delimited JSON over a unix socket: one request
// per line, one response per line. Requests are independent; there is no
// handshake or session state.
package ipc

import "time"

// Op identifies a request operation.
type Op string

const (
	// OpPing checks daemon liveness.
	OpPing Op = "ping"
	// OpStatus returns ownership state, health, and recent history.
	OpStatus Op = "status"
	// OpSwitch requests a manual switch to a machine.
	OpSwitch Op = "switch"
)

// Request is one client command.
type Request struct {
	Op Op `json:"op"`

	// Machine is the manual switch target for OpSwitch.
	Machine string `json:"machine,omitempty"`

	// HistoryLimit caps the history entries in a status response.
	HistoryLimit int `json:"history_limit,omitempty"`
}

// Response is the daemon's reply.
type Response struct {
	OK     bool    `json:"ok"`
	Error  string  `json:"error,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// Status is the payload of an OpStatus response.
type Status struct {
	Current         string    `json:"current"`
	LastConfirmedAt time.Time `json:"last_confirmed_at,omitempty"`
	UptimeSec       float64   `json:"uptime_sec"`
	TrackedDevices  int       `json:"tracked_devices"`

	MonitorIndex int    `json:"monitor_index"`
	HomeInput    string `json:"home_input"`
	WorkInput    string `json:"work_input"`
	CurrentInput string `json:"current_input,omitempty"`

	Overall    string                     `json:"overall"`
	Components map[string]ComponentHealth `json:"components,omitempty"`

	History []HistoryEntry `json:"history,omitempty"`
}

// ComponentHealth is one component's health in a status response.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HistoryEntry is one confirmed switch in a status response.
type HistoryEntry struct {
	At       time.Time `json:"at"`
	Machine  string    `json:"machine"`
	Input    string    `json:"input"`
	Origin   string    `json:"origin"`
	Attempts int       `json:"attempts"`
}
