// Package monitor issues DDC/CI input-select commands to attached
// monitors.
//
// The package separates the VCP command codec from the byte transport:
// the codec builds and parses DDC/CI packets, and a Bus moves raw bytes
// to the monitor's DDC slave address. On Linux the bus is an i2c-dev
// device; tests substitute an in-memory bus.
package monitor

import (
	"context"
	"errors"
	"fmt"

	"switchd/internal/machine"
)

// Kind classifies adapter failures for retry decisions.
type Kind int

const (
	// KindUnknown covers failures with no better classification.
	KindUnknown Kind = iota
	// KindUnsupported means the monitor lacks DDC/CI or the requested
	// input. Retrying cannot help; the configuration is likely wrong.
	KindUnsupported
	// KindTransient covers timeouts and bus errors. DDC/CI commands
	// intermittently fail on some monitor firmware, so these are worth
	// retrying.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is an adapter failure with a retry classification.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("monitor %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("monitor %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable adapter failure.
func IsTransient(err error) bool {
	var me *Error
	return errors.As(err, &me) && me.Kind == KindTransient
}

// IsUnsupported reports whether err means the monitor or input cannot be
// driven at all.
func IsUnsupported(err error) bool {
	var me *Error
	return errors.As(err, &me) && me.Kind == KindUnsupported
}

// Adapter sets and reads a monitor's active input source. Implementations
// are stateless per call and safe to retry.
type Adapter interface {
	// SetInput selects source on the monitor at index.
	SetInput(ctx context.Context, index int, source machine.InputSource) error

	// CurrentInput reads back the monitor's active input.
	CurrentInput(ctx context.Context, index int) (machine.InputSource, error)
}
