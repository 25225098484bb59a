package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"switchd/internal/machine"
	"switchd/internal/sampler"
)

// observe runs a scripted snapshot sequence through the classifier and
// collects the confirmed transitions.
func observe(d *Detector, snaps ...sampler.Snapshot) []Transition {
	var out []Transition
	now := time.Unix(1000, 0)
	for _, s := range snaps {
		if tr := d.Observe(s, now); tr != nil {
			out = append(out, *tr)
		}
		now = now.Add(2 * time.Second)
	}
	return out
}

var (
	present = sampler.NewSnapshot("kbd", "mouse")
	absent  = sampler.NewSnapshot()
)

func TestConfirmedDisappearance(t *testing.T) {
	d := New(nil, DefaultConfig())

	// [present, absent, absent] confirms Work after the second absent sample.
	got := observe(d, present, absent, absent)
	if len(got) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(got))
	}
	if got[0].Machine != machine.Work {
		t.Errorf("expected Work, got %s", got[0].Machine)
	}
	if len(got[0].Devices) != 2 {
		t.Errorf("expected 2 disappeared devices, got %v", got[0].Devices)
	}
}

func TestConfirmedAppearance(t *testing.T) {
	d := New(nil, DefaultConfig())

	got := observe(d, absent, present, present)
	if len(got) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(got))
	}
	if got[0].Machine != machine.Home {
		t.Errorf("expected Home, got %s", got[0].Machine)
	}
}

func TestFlapDiscardedSilently(t *testing.T) {
	d := New(nil, DefaultConfig())

	// A single dropped enumeration within one confirmation window must
	// not emit anything.
	got := observe(d, present, absent, present, present, present)
	if len(got) != 0 {
		t.Fatalf("expected 0 transitions for a flap, got %d: %v", len(got), got)
	}
}

func TestStableStateEmitsNothingFurther(t *testing.T) {
	d := New(nil, DefaultConfig())

	got := observe(d, present, absent, absent, absent, absent, absent)
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 transition, got %d", len(got))
	}
}

func TestConfirmSamplesConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfirmSamples = 3
	d := New(nil, cfg)

	got := observe(d, present, absent, absent, absent)
	if len(got) != 0 {
		t.Fatalf("expected no transition before 3 confirmations, got %d", len(got))
	}
	got = observe(d, absent)
	if len(got) != 1 {
		t.Fatalf("expected transition after 3rd confirmation, got %d", len(got))
	}
}

func TestBaselineEmitsNothing(t *testing.T) {
	d := New(nil, DefaultConfig())
	if tr := d.Observe(present, time.Now()); tr != nil {
		t.Errorf("baseline sample must not emit, got %+v", tr)
	}
	if d.TrackedDevices() != 2 {
		t.Errorf("expected 2 tracked devices, got %d", d.TrackedDevices())
	}
}

func TestSameCountDifferentSetAdoptedSilently(t *testing.T) {
	d := New(nil, DefaultConfig())

	replaced := sampler.NewSnapshot("kbd2", "mouse2")
	got := observe(d, present, replaced, replaced)
	if len(got) != 0 {
		t.Fatalf("expected no transition for same-count set change, got %d", len(got))
	}
	if !d.Stable().Equal(replaced) {
		t.Error("expected replaced set adopted as stable")
	}
}

// scriptedSampler returns queued results, then repeats the last one.
type scriptedSampler struct {
	mu      chan struct{}
	results []scriptedResult
}

type scriptedResult struct {
	snap sampler.Snapshot
	err  error
}

func newScriptedSampler(results ...scriptedResult) *scriptedSampler {
	mu := make(chan struct{}, 1)
	mu <- struct{}{}
	return &scriptedSampler{mu: mu, results: results}
}

func (s *scriptedSampler) Sample(ctx context.Context) (sampler.Snapshot, error) {
	<-s.mu
	defer func() { s.mu <- struct{}{} }()
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return r.snap, r.err
}

func TestSampleErrorIsNoOpTick(t *testing.T) {
	d := New(nil, DefaultConfig())

	// Candidate pending, then an unavailable tick, then confirmation.
	// The error must extend the window, not reset or confirm it.
	got := observe(d, present, absent)
	if len(got) != 0 {
		t.Fatal("candidate must not confirm on first observation")
	}
	// Simulate the loop's handling: errors never reach Observe.
	got = observe(d, absent)
	if len(got) != 1 || got[0].Machine != machine.Work {
		t.Fatalf("expected Work after confirmation, got %v", got)
	}
}

func TestPollLoopEmitsTransition(t *testing.T) {
	s := newScriptedSampler(
		scriptedResult{snap: present},
		scriptedResult{err: sampler.ErrUnavailable},
		scriptedResult{snap: absent},
		scriptedResult{snap: absent},
	)

	cfg := Config{Interval: 10 * time.Millisecond, ConfirmSamples: 1}
	d := New(s, cfg)
	d.Start()
	defer d.Stop()

	select {
	case tr := <-d.Events():
		if tr.Machine != machine.Work {
			t.Errorf("expected Work, got %s", tr.Machine)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transition")
	}

	// The unavailable tick must have been surfaced as an error.
	select {
	case err := <-d.Errors():
		if !errors.Is(err, sampler.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sampling error")
	}
}
