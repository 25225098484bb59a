package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// SwitchdDir returns the platform-specific directory for switchd
// configuration and state.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/switchd/
//   - Linux:   ~/.config/switchd/
//   - Windows: %APPDATA%\switchd\
//
// Falls back to ~/.switchd if platform detection fails.
func SwitchdDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return fallbackDir()
		}
		return filepath.Join(home, "Library", "Application Support", "switchd")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return fallbackDir()
		}
		return filepath.Join(appData, "switchd")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "switchd")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return fallbackDir()
		}
		return filepath.Join(home, ".config", "switchd")
	}
}

// RuntimeDir returns the platform-specific directory for the control
// socket.
func RuntimeDir() string {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
			return filepath.Join(xdg, "switchd")
		}
		return filepath.Join("/tmp", "switchd-"+strconv.Itoa(os.Getuid()))
	}
	return SwitchdDir()
}

func fallbackDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".switchd"
	}
	return filepath.Join(home, ".switchd")
}
