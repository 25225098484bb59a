//go:build !linux

package notify

import "errors"

// DBus notifications are Linux-only. New always fails so callers fall
// back to Nop.
type DBus struct{}

// New reports that no notification backend exists on this platform.
func New(appName string) (*DBus, error) {
	return nil, errors.New("desktop notifications not supported on this platform")
}

// Notify implements Notifier.
func (n *DBus) Notify(summary, body string) error { return nil }

// Close implements Notifier.
func (n *DBus) Close() error { return nil }
