// Package notify surfaces switch outcomes as desktop notifications.
package notify

// Notifier delivers a desktop notification.
type Notifier interface {
	Notify(summary, body string) error
	Close() error
}

// Nop discards all notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(summary, body string) error { return nil }

// Close implements Notifier.
func (Nop) Close() error { return nil }
