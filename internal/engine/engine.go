// Package engine owns the machine-ownership state and serializes switch
// requests into monitor commands.
//
// The engine is the single consumer of two producers: confirmed
// transitions from the detector and manual overrides from the control
// surface. At most one switch protocol executes at a time system-wide,
// and at most one request waits behind it; a newer request supersedes an
// older still-pending one, because only the latest desired state
// matters.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"switchd/internal/logging"
	"switchd/internal/machine"
	"switchd/internal/monitor"
)

// Origin records what triggered a switch request.
type Origin string

const (
	// OriginAutomatic marks switches driven by confirmed presence
	// transitions.
	OriginAutomatic Origin = "automatic"
	// OriginManual marks user-requested switches.
	OriginManual Origin = "manual"
)

// Errors reported to manual callers.
var (
	// ErrSuperseded means a newer request replaced this one before it
	// started executing.
	ErrSuperseded = errors.New("switch request superseded by a newer request")
	// ErrShuttingDown means the engine stopped before the request ran.
	ErrShuttingDown = errors.New("engine shutting down")
)

// Command is one switch request.
type Command struct {
	Target machine.Identity
	Origin Origin
}

// OwnershipState tracks which machine last confirmed ownership of the
// switch. Current never reflects a transient reading.
type OwnershipState struct {
	Current         machine.Identity
	LastConfirmedAt time.Time
}

// Store persists ownership state and switch history. Persistence
// failures degrade durability but never stop the engine.
type Store interface {
	LoadLastActive() (machine.Identity, bool, error)
	SaveLastActive(m machine.Identity, at time.Time) error
	RecordSwitch(target machine.Identity, input machine.InputSource, origin Origin, attempts int, at time.Time) error
}

// Notifier surfaces switch outcomes to the desktop. May be nil.
type Notifier interface {
	Notify(summary, body string) error
}

// Config controls the switch protocol.
type Config struct {
	// MonitorIndex selects which monitor to drive.
	MonitorIndex int

	// Inputs maps each machine to its monitor input.
	Inputs map[machine.Identity]machine.InputSource

	// MaxAttempts bounds adapter retries per request.
	MaxAttempts int

	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration

	// AttemptTimeout bounds a single adapter call.
	AttemptTimeout time.Duration
}

// DefaultConfig returns the product defaults.
func DefaultConfig() Config {
	return Config{
		Inputs: map[machine.Identity]machine.InputSource{
			machine.Home: machine.HDMI1,
			machine.Work: machine.HDMI2,
		},
		MaxAttempts:    3,
		RetryBackoff:   250 * time.Millisecond,
		AttemptTimeout: 5 * time.Second,
	}
}

// request is a queued command. result is buffered and nil for automatic
// requests, which report through the log only.
type request struct {
	cmd    Command
	result chan error
}

// Engine is the switching engine.
type Engine struct {
	cfg     Config
	adapter monitor.Adapter
	store   Store
	notify  Notifier
	log     *logging.Logger

	mu      sync.Mutex
	state   OwnershipState
	pending *request

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// New creates an engine and seeds its ownership state from the store.
// A missing or unreadable record seeds nothing; the first confirmed
// transition establishes the state instead.
func New(cfg Config, adapter monitor.Adapter, st Store, notifier Notifier, log *logging.Logger) *Engine {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultConfig().AttemptTimeout
	}
	if log == nil {
		log = logging.Default()
	}

	e := &Engine{
		cfg:     cfg,
		adapter: adapter,
		store:   st,
		notify:  notifier,
		log:     log.WithComponent("engine"),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	if st != nil {
		m, ok, err := st.LoadLastActive()
		switch {
		case err != nil:
			e.log.Warn("load persisted state, starting unknown", "error", err)
		case ok:
			e.state.Current = m
			e.log.Info("seeded ownership state", "machine", m)
		}
	}
	return e
}

// Start launches the switch worker.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.worker()
}

// Stop shuts the engine down. An in-flight switch command is allowed to
// complete so the monitor is never left mid-command; a queued request
// that has not started is dropped with ErrShuttingDown.
func (e *Engine) Stop() {
	close(e.done)
	e.wg.Wait()

	e.mu.Lock()
	req := e.pending
	e.pending = nil
	e.mu.Unlock()
	if req != nil && req.result != nil {
		req.result <- ErrShuttingDown
	}
}

// State returns a copy of the current ownership state.
func (e *Engine) State() OwnershipState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// OnTransition handles a confirmed presence transition. A transition to
// the machine already current is a no-op, which guards against duplicate
// confirmations.
func (e *Engine) OnTransition(target machine.Identity) {
	if !target.Valid() {
		e.log.Warn("ignoring transition to invalid machine", "machine", target)
		return
	}

	e.mu.Lock()
	current := e.state.Current
	e.mu.Unlock()
	if target == current {
		e.log.Debug("already on target machine", "machine", target)
		return
	}

	e.log.Info("confirmed transition", "machine", target)
	e.enqueue(&request{cmd: Command{Target: target, Origin: OriginAutomatic}})
}

// ManualSwitch runs the switch protocol for a user request and reports
// the outcome synchronously. It executes even when target is already
// current, so a user can re-sync a monitor whose physical state drifted
// from the recorded one.
func (e *Engine) ManualSwitch(ctx context.Context, target machine.Identity) error {
	if !target.Valid() {
		return fmt.Errorf("invalid machine %q", target)
	}

	req := &request{
		cmd:    Command{Target: target, Origin: OriginManual},
		result: make(chan error, 1),
	}
	e.enqueue(req)

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		// Prefer a result that raced with shutdown.
		select {
		case err := <-req.result:
			return err
		default:
			return ErrShuttingDown
		}
	}
}

// enqueue installs req as the single pending request, superseding any
// older one, and wakes the worker.
func (e *Engine) enqueue(req *request) {
	e.mu.Lock()
	old := e.pending
	e.pending = req
	e.mu.Unlock()

	if old != nil && old.result != nil {
		old.result <- ErrSuperseded
	}

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) worker() {
	defer e.wg.Done()

	for {
		select {
		case <-e.done:
			return
		case <-e.wake:
			for {
				e.mu.Lock()
				req := e.pending
				e.pending = nil
				e.mu.Unlock()
				if req == nil {
					break
				}
				e.execute(req)
			}
		}
	}
}

// execute runs the switch protocol for one request. On failure the
// ownership state is left unchanged: the engine never claims a switch
// happened when it did not.
func (e *Engine) execute(req *request) {
	cmd := req.cmd
	finish := func(err error) {
		if req.result != nil {
			req.result <- err
		}
	}

	e.mu.Lock()
	current := e.state.Current
	e.mu.Unlock()

	// Duplicate confirmations that queued behind an identical switch
	// collapse here. Manual requests always run.
	if cmd.Origin == OriginAutomatic && cmd.Target == current {
		finish(nil)
		return
	}

	source, ok := e.cfg.Inputs[cmd.Target]
	if !ok {
		err := fmt.Errorf("no input configured for machine %q", cmd.Target)
		e.log.Error("switch aborted", "error", err)
		finish(err)
		return
	}

	var err error
	attempts := 0
	for attempts < e.cfg.MaxAttempts {
		attempts++

		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.AttemptTimeout)
		err = e.adapter.SetInput(ctx, e.cfg.MonitorIndex, source)
		cancel()
		if err == nil {
			break
		}
		if monitor.IsUnsupported(err) {
			// The monitor lacks DDC/CI or this input; the configuration
			// is likely wrong and retrying cannot help.
			break
		}

		e.log.Warn("set input failed",
			"machine", cmd.Target, "input", source,
			"attempt", attempts, "max_attempts", e.cfg.MaxAttempts,
			"error", err)
		if attempts < e.cfg.MaxAttempts {
			time.Sleep(e.cfg.RetryBackoff)
		}
	}

	now := time.Now()
	if err != nil {
		e.log.Error("switch abandoned, ownership state unchanged",
			"machine", cmd.Target, "input", source,
			"origin", cmd.Origin, "attempts", attempts, "error", err)
		e.notifyDesktop("Monitor switch failed",
			fmt.Sprintf("Could not switch to %s (%s): %v", cmd.Target, source, err))
		finish(fmt.Errorf("switch to %s (%s): %w", cmd.Target, source, err))
		return
	}

	e.mu.Lock()
	e.state.Current = cmd.Target
	e.state.LastConfirmedAt = now
	e.mu.Unlock()

	if e.store != nil {
		if perr := e.store.SaveLastActive(cmd.Target, now); perr != nil {
			// Durability is degraded; keep running on in-memory state.
			e.log.Error("persist ownership state", "error", perr)
		}
		if perr := e.store.RecordSwitch(cmd.Target, source, cmd.Origin, attempts, now); perr != nil {
			e.log.Warn("record switch history", "error", perr)
		}
	}

	e.log.Info("switched monitor input",
		"machine", cmd.Target, "input", source,
		"origin", cmd.Origin, "attempts", attempts)
	e.notifyDesktop("Monitor switched",
		fmt.Sprintf("Now following %s machine (%s)", cmd.Target, source))
	finish(nil)
}

func (e *Engine) notifyDesktop(summary, body string) {
	if e.notify == nil {
		return
	}
	if err := e.notify.Notify(summary, body); err != nil {
		e.log.Debug("desktop notification failed", "error", err)
	}
}
