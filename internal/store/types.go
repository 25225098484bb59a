package store

import "switchd/internal/machine"

// SwitchEntry is one confirmed monitor switch in the history.
type SwitchEntry struct {
	ID           int64
	TimestampNs  int64
	Machine      machine.Identity
	Input        machine.InputSource
	Origin       string
	Attempts     int
	MonitorIndex int
}
