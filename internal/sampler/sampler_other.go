//go:build !linux

package sampler

import (
	"context"
	"fmt"
	"runtime"
)

// Sysfs is only functional on Linux. On other platforms every sample
// reports ErrUnavailable, which the classifier treats as a no-op tick.
type Sysfs struct {
	Root string
}

// NewSysfs returns the platform stub.
func NewSysfs() *Sysfs {
	return &Sysfs{}
}

// Sample implements Sampler.
func (s *Sysfs) Sample(ctx context.Context) (Snapshot, error) {
	return nil, fmt.Errorf("%w: no sampler backend for %s", ErrUnavailable, runtime.GOOS)
}
