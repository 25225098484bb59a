package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoaderReloadOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	l := NewLoader(path)
	defer l.Close()

	if _, err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	if err := l.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	cfg.Detect.CheckIntervalSec = 7.5
	if err := cfg.Save(path); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	select {
	case got := <-changed:
		if got.Detect.CheckIntervalSec != 7.5 {
			t.Errorf("expected reloaded interval 7.5, got %g", got.Detect.CheckIntervalSec)
		}
		if l.Config().Detect.CheckIntervalSec != 7.5 {
			t.Error("loader did not retain reloaded config")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestLoaderKeepsOldConfigOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	l := NewLoader(path)
	defer l.Close()
	if _, err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := l.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("this is not toml {{{"), 0600); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	// Give the watcher time to attempt (and reject) the reload.
	time.Sleep(500 * time.Millisecond)
	if l.Config().Detect.CheckIntervalSec != 2.0 {
		t.Error("previous configuration should remain in effect")
	}
}
