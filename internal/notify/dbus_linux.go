//go:build linux

package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notifyService = "org.freedesktop.Notifications"
	notifyPath    = "/org/freedesktop/Notifications"
	notifyMethod  = "org.freedesktop.Notifications.Notify"

	// Notification timeout in milliseconds.
	notifyTimeoutMs = 5000
)

// DBus delivers notifications over the session bus.
type DBus struct {
	conn    *dbus.Conn
	appName string
}

// New connects to the session bus. Headless sessions have none; callers
// should fall back to Nop.
func New(appName string) (*DBus, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &DBus{conn: conn, appName: appName}, nil
}

// Notify implements Notifier.
func (n *DBus) Notify(summary, body string) error {
	obj := n.conn.Object(notifyService, notifyPath)
	call := obj.Call(notifyMethod, 0,
		n.appName,
		uint32(0), // replaces_id: always a fresh notification
		"",        // app_icon
		summary,
		body,
		[]string{},                // actions
		map[string]dbus.Variant{}, // hints
		int32(notifyTimeoutMs),
	)
	if call.Err != nil {
		return fmt.Errorf("send notification: %w", call.Err)
	}
	return nil
}

// Close implements Notifier.
func (n *DBus) Close() error {
	return n.conn.Close()
}
