// Package sampler queries the OS for the set of USB input devices
// currently attached to this host.
//
// The sampler is stateless per call. A query failure is always reported
// as an explicit error so that callers never confuse "query failed" with
// a genuine all-devices-absent state.
package sampler

import (
	"context"
	"errors"
	"sort"
)

// ErrUnavailable indicates the OS device query could not be performed.
// The classifier treats it as a no-op tick, never as a disappearance.
var ErrUnavailable = errors.New("device query unavailable")

// Snapshot is the set of device identifiers observed at one sampling
// instant. Treat a snapshot as immutable once returned.
type Snapshot map[string]struct{}

// NewSnapshot builds a snapshot from identifiers.
func NewSnapshot(ids ...string) Snapshot {
	s := make(Snapshot, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether the identifier is present.
func (s Snapshot) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Equal reports whether two snapshots hold the same identifiers.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if _, ok := o[id]; !ok {
			return false
		}
	}
	return true
}

// Diff returns the identifiers present in s but not in prev (added) and
// present in prev but not in s (removed), each sorted.
func (s Snapshot) Diff(prev Snapshot) (added, removed []string) {
	for id := range s {
		if _, ok := prev[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range prev {
		if _, ok := s[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// IDs returns the identifiers sorted.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sampler reports the current set of relevant input devices.
type Sampler interface {
	// Sample returns the devices present right now. The call is bounded
	// by ctx; on query failure it returns an error wrapping
	// ErrUnavailable rather than an empty snapshot.
	Sample(ctx context.Context) (Snapshot, error)
}
