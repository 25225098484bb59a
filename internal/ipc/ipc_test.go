package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func startTestServer(t *testing.T, h Handler) string {
	t.Helper()
	// Socket paths have a tight length limit, so avoid the deep
	// per-test temp dirs some systems hand out.
	sock := filepath.Join(t.TempDir(), "s.sock")
	srv := NewServer(sock, h, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return sock
}

func TestPingRoundtrip(t *testing.T) {
	sock := startTestServer(t, HandlerFunc(func(ctx context.Context, req Request) Response {
		if req.Op != OpPing {
			t.Errorf("unexpected op %q", req.Op)
		}
		return Response{OK: true}
	}))

	c := NewClient(sock)
	if err := c.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestStatusCarriesPayload(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	sock := startTestServer(t, HandlerFunc(func(ctx context.Context, req Request) Response {
		if req.HistoryLimit != 5 {
			t.Errorf("history limit = %d, want 5", req.HistoryLimit)
		}
		return Response{OK: true, Status: &Status{
			Current:        "home",
			TrackedDevices: 3,
			HomeInput:      "HDMI-1",
			WorkInput:      "HDMI-2",
			Overall:        "healthy",
			History: []HistoryEntry{
				{At: at, Machine: "home", Input: "HDMI-1", Origin: "automatic", Attempts: 1},
			},
		}}
	}))

	st, err := NewClient(sock).Status(5)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Current != "home" || st.TrackedDevices != 3 {
		t.Errorf("unexpected status %+v", st)
	}
	if len(st.History) != 1 || !st.History[0].At.Equal(at) {
		t.Errorf("unexpected history %+v", st.History)
	}
}

func TestSwitchErrorSurfaces(t *testing.T) {
	sock := startTestServer(t, HandlerFunc(func(ctx context.Context, req Request) Response {
		return Response{OK: false, Error: "monitor does not support input VGA-1"}
	}))

	err := NewClient(sock).Switch("work")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "switch failed: monitor does not support input VGA-1" {
		t.Errorf("unexpected error %q", got)
	}
}

func TestSwitchForwardsMachine(t *testing.T) {
	got := make(chan string, 1)
	sock := startTestServer(t, HandlerFunc(func(ctx context.Context, req Request) Response {
		got <- req.Machine
		return Response{OK: true}
	}))

	if err := NewClient(sock).Switch("work"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if m := <-got; m != "work" {
		t.Errorf("machine = %q, want work", m)
	}
}

func TestClientDaemonNotRunning(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "absent.sock"))
	if err := c.Ping(); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestMultipleRequestsPerConnection(t *testing.T) {
	sock := startTestServer(t, HandlerFunc(func(ctx context.Context, req Request) Response {
		return Response{OK: true}
	}))

	c := NewClient(sock)
	for i := 0; i < 3; i++ {
		if err := c.Ping(); err != nil {
			t.Fatalf("ping %d: %v", i, err)
		}
	}
}
