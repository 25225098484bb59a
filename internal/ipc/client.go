package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrDaemonNotRunning means the control socket could not be reached.
var ErrDaemonNotRunning = errors.New("switchd daemon is not running")

// Client talks to a switchd daemon over its control socket. Each call
// opens a fresh connection; the daemon holds no per-client state.
type Client struct {
	path    string
	timeout time.Duration
}

// NewClient creates a client for the socket at path.
func NewClient(path string) *Client {
	return &Client{path: path, timeout: 30 * time.Second}
}

// Do sends one request and reads the response.
func (c *Client) Do(req Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.path, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &resp, nil
}

// Ping checks that the daemon is alive.
func (c *Client) Ping() error {
	resp, err := c.Do(Request{Op: OpPing})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("ping rejected: %s", resp.Error)
	}
	return nil
}

// Status fetches the daemon status with up to historyLimit entries.
func (c *Client) Status(historyLimit int) (*Status, error) {
	resp, err := c.Do(Request{Op: OpStatus, HistoryLimit: historyLimit})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("status failed: %s", resp.Error)
	}
	if resp.Status == nil {
		return nil, errors.New("status response missing payload")
	}
	return resp.Status, nil
}

// Switch requests a manual switch and waits for the outcome.
func (c *Client) Switch(machine string) error {
	resp, err := c.Do(Request{Op: OpSwitch, Machine: machine})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("switch failed: %s", resp.Error)
	}
	return nil
}
