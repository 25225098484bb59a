// Package detect turns periodic device-presence samples into confirmed
// machine-ownership transitions.
//
// The detector polls a sampler at a fixed interval and diffs successive
// snapshots. Input devices appearing means the KM switch routed to this
// (home) machine; devices disappearing means it routed away to the work
// laptop. A candidate change must hold across confirmatory samples
// before a transition is emitted, so a single dropped USB enumeration or
// driver hiccup never triggers a spurious switch.
package detect

import (
	"context"
	"sync"
	"time"

	"switchd/internal/machine"
	"switchd/internal/sampler"
)

// Transition is a confirmed change of switch ownership.
type Transition struct {
	Machine machine.Identity
	// Devices that appeared or disappeared to trigger the transition.
	Devices []string
	At      time.Time
}

// Config controls detection behavior.
type Config struct {
	// Interval between samples. The product default is 2s; systems with
	// slow USB enumeration may need more.
	Interval time.Duration

	// ConfirmSamples is how many consecutive confirmatory samples a
	// candidate change must survive before it is emitted.
	ConfirmSamples int
}

// DefaultConfig returns the product defaults.
func DefaultConfig() Config {
	return Config{
		Interval:       2 * time.Second,
		ConfirmSamples: 1,
	}
}

// Detector drives the sampler and emits confirmed transitions.
type Detector struct {
	sampler sampler.Sampler
	cfg     Config

	// Classification state. stable is the last confirmed snapshot;
	// cand is a change waiting for confirmation.
	mu     sync.Mutex
	stable sampler.Snapshot
	seeded bool
	cand   *candidate

	events chan Transition
	errs   chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// candidate is an observed but not yet confirmed change.
type candidate struct {
	machine machine.Identity
	snap    sampler.Snapshot
	devices []string
	seen    int
}

// New creates a detector. The sampler is polled at cfg.Interval once
// Start is called.
func New(s sampler.Sampler, cfg Config) *Detector {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.ConfirmSamples < 1 {
		cfg.ConfirmSamples = 1
	}
	return &Detector{
		sampler: s,
		cfg:     cfg,
		events:  make(chan Transition, 16),
		errs:    make(chan error, 8),
		done:    make(chan struct{}),
	}
}

// Events returns the channel of confirmed transitions.
func (d *Detector) Events() <-chan Transition {
	return d.events
}

// Errors returns the channel of sampling errors. Errors are informational;
// the detector keeps polling.
func (d *Detector) Errors() <-chan error {
	return d.errs
}

// Start begins the polling loop.
func (d *Detector) Start() {
	d.wg.Add(1)
	go d.pollLoop()
}

// Stop shuts the polling loop down and closes the event channels.
func (d *Detector) Stop() {
	close(d.done)
	d.wg.Wait()
	close(d.events)
	close(d.errs)
}

func (d *Detector) pollLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	// Take the baseline immediately rather than waiting a full interval.
	d.tick()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

// tick performs one sample and feeds it to the classifier.
func (d *Detector) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Interval)
	defer cancel()

	snap, err := d.sampler.Sample(ctx)
	now := time.Now()
	if err != nil {
		// A failed query is a no-op tick: it extends the confirmation
		// window instead of reading as a mass disappearance.
		select {
		case d.errs <- err:
		default:
		}
		return
	}

	if tr := d.Observe(snap, now); tr != nil {
		select {
		case d.events <- *tr:
		case <-d.done:
		}
	}
}

// Observe classifies one snapshot against the detector state and returns
// a confirmed transition, or nil. Exposed so the classification protocol
// can be driven directly without the polling goroutine.
func (d *Detector) Observe(snap sampler.Snapshot, now time.Time) *Transition {
	d.mu.Lock()
	defer d.mu.Unlock()

	// First successful sample establishes the baseline.
	if !d.seeded {
		d.stable = snap
		d.seeded = true
		return nil
	}

	// Reversal to the stable state discards any pending candidate.
	if snap.Equal(d.stable) {
		d.cand = nil
		return nil
	}

	// Confirmatory sample for the pending candidate.
	if d.cand != nil && snap.Equal(d.cand.snap) {
		d.cand.seen++
		if d.cand.seen >= d.cfg.ConfirmSamples {
			tr := &Transition{
				Machine: d.cand.machine,
				Devices: d.cand.devices,
				At:      now,
			}
			d.stable = d.cand.snap
			d.cand = nil
			return tr
		}
		return nil
	}

	// A new (or changed) candidate, classified against the stable state.
	added, removed := snap.Diff(d.stable)
	target, devices := classify(added, removed)
	if target == machine.Unknown {
		// Same device count, different set: adopt silently. Nothing
		// appeared or disappeared on balance, so no ownership change.
		d.stable = snap
		d.cand = nil
		return nil
	}

	d.cand = &candidate{machine: target, snap: snap, devices: devices}
	return nil
}

// classify maps a presence diff to the machine now owning the switch.
// Appearance means the switch routed here (home); disappearance means it
// routed away (work). Mixed diffs are decided by the net count.
func classify(added, removed []string) (machine.Identity, []string) {
	switch {
	case len(added) > len(removed):
		return machine.Home, added
	case len(removed) > len(added):
		return machine.Work, removed
	default:
		return machine.Unknown, nil
	}
}

// Stable returns the last confirmed snapshot, or nil before the baseline
// sample.
func (d *Detector) Stable() sampler.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stable
}

// TrackedDevices returns the size of the last confirmed snapshot.
func (d *Detector) TrackedDevices() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.stable)
}
