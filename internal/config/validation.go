package config

import (
	"errors"
	"fmt"

	"switchd/internal/logging"
	"switchd/internal/machine"
)

// MinCheckIntervalSec is the floor on the sampling interval. Faster
// polling hammers the USB stack without improving detection.
const MinCheckIntervalSec = 0.1

// Validate checks the configuration for values the daemon cannot run
// with. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Monitor.Index < 0 {
		errs = append(errs, fmt.Errorf("monitor.index must be >= 0, got %d", c.Monitor.Index))
	}
	if _, err := machine.ParseInput(c.Monitor.HomeInput); err != nil {
		errs = append(errs, fmt.Errorf("monitor.home_input: %w", err))
	}
	if _, err := machine.ParseInput(c.Monitor.WorkInput); err != nil {
		errs = append(errs, fmt.Errorf("monitor.work_input: %w", err))
	}
	if c.Monitor.HomeInput == c.Monitor.WorkInput {
		errs = append(errs, errors.New("monitor.home_input and monitor.work_input must differ"))
	}

	if c.Detect.CheckIntervalSec < MinCheckIntervalSec {
		errs = append(errs, fmt.Errorf("detect.check_interval_sec must be >= %.1f, got %g",
			MinCheckIntervalSec, c.Detect.CheckIntervalSec))
	}
	if c.Detect.ConfirmSamples < 1 {
		errs = append(errs, fmt.Errorf("detect.confirm_samples must be >= 1, got %d", c.Detect.ConfirmSamples))
	}

	if c.Switch.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("switch.max_attempts must be >= 1, got %d", c.Switch.MaxAttempts))
	}
	if c.Switch.RetryBackoffMs < 0 {
		errs = append(errs, fmt.Errorf("switch.retry_backoff_ms must be >= 0, got %d", c.Switch.RetryBackoffMs))
	}
	if c.Switch.AttemptTimeoutSec < 1 {
		errs = append(errs, fmt.Errorf("switch.attempt_timeout_sec must be >= 1, got %d", c.Switch.AttemptTimeoutSec))
	}

	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path must not be empty"))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		errs = append(errs, fmt.Errorf("logging.format: %w", err))
	}

	if c.IPC.Enabled && c.IPC.SocketPath == "" {
		errs = append(errs, errors.New("ipc.socket_path must not be empty when ipc is enabled"))
	}

	return errors.Join(errs...)
}
