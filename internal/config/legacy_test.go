package config

import (
	"os"
	"path/filepath"
	"testing"

	"switchd/internal/machine"
)

func writeLegacy(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write legacy config: %v", err)
	}
	return path
}

func TestImportLegacy(t *testing.T) {
	path := writeLegacy(t, `{
		"home_machine_input": "DisplayPort-1",
		"work_laptop_input": "HDMI-2",
		"monitor_index": 1,
		"check_interval": 3.0,
		"last_active_machine": "work"
	}`)

	cfg, last, err := ImportLegacy(path)
	if err != nil {
		t.Fatalf("ImportLegacy failed: %v", err)
	}

	if cfg.Monitor.HomeInput != "DisplayPort-1" {
		t.Errorf("home input: got %s", cfg.Monitor.HomeInput)
	}
	if cfg.Monitor.WorkInput != "HDMI-2" {
		t.Errorf("work input: got %s", cfg.Monitor.WorkInput)
	}
	if cfg.Monitor.Index != 1 {
		t.Errorf("monitor index: got %d", cfg.Monitor.Index)
	}
	if cfg.Detect.CheckIntervalSec != 3.0 {
		t.Errorf("check interval: got %g", cfg.Detect.CheckIntervalSec)
	}
	if last != machine.Work {
		t.Errorf("last active: got %s", last)
	}
}

func TestImportLegacyDefaults(t *testing.T) {
	// Minimal file: only the required keys.
	path := writeLegacy(t, `{
		"home_machine_input": "HDMI-1",
		"work_laptop_input": "HDMI-2"
	}`)

	cfg, last, err := ImportLegacy(path)
	if err != nil {
		t.Fatalf("ImportLegacy failed: %v", err)
	}
	if cfg.Detect.CheckIntervalSec != 2.0 {
		t.Errorf("expected default interval, got %g", cfg.Detect.CheckIntervalSec)
	}
	if last != machine.Unknown {
		t.Errorf("expected unknown last active, got %s", last)
	}
}

func TestImportLegacyRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown input name", `{"home_machine_input": "SCART-1", "work_laptop_input": "HDMI-2"}`},
		{"missing required key", `{"home_machine_input": "HDMI-1"}`},
		{"negative index", `{"home_machine_input": "HDMI-1", "work_laptop_input": "HDMI-2", "monitor_index": -1}`},
		{"interval too small", `{"home_machine_input": "HDMI-1", "work_laptop_input": "HDMI-2", "check_interval": 0.01}`},
		{"bad machine", `{"home_machine_input": "HDMI-1", "work_laptop_input": "HDMI-2", "last_active_machine": "nas"}`},
		{"not json", `not json at all`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLegacy(t, tt.data)
			if _, _, err := ImportLegacy(path); err == nil {
				t.Error("expected import to fail")
			}
		})
	}
}

func TestImportLegacyMissingFile(t *testing.T) {
	if _, _, err := ImportLegacy(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
