// Package config handles configuration loading, validation, and hot
// reload for switchd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"switchd/internal/machine"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Monitor selects the display to drive and its input mapping.
	Monitor MonitorConfig `toml:"monitor" json:"monitor" yaml:"monitor"`

	// Detect controls presence sampling and debounce.
	Detect DetectConfig `toml:"detect" json:"detect" yaml:"detect"`

	// Switch controls the switch protocol retry behavior.
	Switch SwitchConfig `toml:"switch" json:"switch" yaml:"switch"`

	// Storage configures the persistent state store.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// IPC configures the daemon control socket.
	IPC IPCConfig `toml:"ipc" json:"ipc" yaml:"ipc"`

	// Notify configures desktop notifications.
	Notify NotifyConfig `toml:"notify" json:"notify" yaml:"notify"`
}

// MonitorConfig holds the display selection and input mapping.
type MonitorConfig struct {
	// Index of the monitor to control (0 = first DDC-capable display).
	Index int `toml:"index" json:"index" yaml:"index"`

	// HomeInput is the input the home machine is connected to.
	HomeInput string `toml:"home_input" json:"home_input" yaml:"home_input"`

	// WorkInput is the input the work laptop is connected to.
	WorkInput string `toml:"work_input" json:"work_input" yaml:"work_input"`

	// I2CDevice overrides DDC bus discovery with an explicit device
	// path (e.g. /dev/i2c-4). Empty means discover by index.
	I2CDevice string `toml:"i2c_device" json:"i2c_device" yaml:"i2c_device"`
}

// DetectConfig holds presence detection settings.
type DetectConfig struct {
	// CheckIntervalSec is the seconds between device samples (>= 0.1).
	// Systems with slow USB enumeration may need more than the default.
	CheckIntervalSec float64 `toml:"check_interval_sec" json:"check_interval_sec" yaml:"check_interval_sec"`

	// ConfirmSamples is how many consecutive confirmatory samples a
	// candidate change needs before a switch is triggered.
	ConfirmSamples int `toml:"confirm_samples" json:"confirm_samples" yaml:"confirm_samples"`
}

// SwitchConfig holds switch protocol settings.
type SwitchConfig struct {
	// MaxAttempts bounds DDC/CI retries per switch.
	MaxAttempts int `toml:"max_attempts" json:"max_attempts" yaml:"max_attempts"`

	// RetryBackoffMs is the pause between attempts in milliseconds.
	RetryBackoffMs int `toml:"retry_backoff_ms" json:"retry_backoff_ms" yaml:"retry_backoff_ms"`

	// AttemptTimeoutSec bounds a single DDC/CI call in seconds.
	AttemptTimeoutSec int `toml:"attempt_timeout_sec" json:"attempt_timeout_sec" yaml:"attempt_timeout_sec"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Path to the SQLite state database.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format: text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output: stdout, stderr, file, or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file when Output includes "file".
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// IPCConfig holds control socket settings.
type IPCConfig struct {
	// Enabled turns the control socket on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// SocketPath is the unix socket the daemon listens on.
	SocketPath string `toml:"socket_path" json:"socket_path" yaml:"socket_path"`
}

// NotifyConfig holds desktop notification settings.
type NotifyConfig struct {
	// Enabled turns desktop notifications on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
}

// DefaultConfig returns a configuration with product defaults.
func DefaultConfig() *Config {
	dir := SwitchdDir()
	return &Config{
		Version: Version,
		Monitor: MonitorConfig{
			Index:     0,
			HomeInput: string(machine.HDMI1),
			WorkInput: string(machine.HDMI2),
		},
		Detect: DetectConfig{
			CheckIntervalSec: 2.0,
			ConfirmSamples:   1,
		},
		Switch: SwitchConfig{
			MaxAttempts:       3,
			RetryBackoffMs:    250,
			AttemptTimeoutSec: 5,
		},
		Storage: StorageConfig{
			Path: filepath.Join(dir, "switchd.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		IPC: IPCConfig{
			Enabled:    true,
			SocketPath: filepath.Join(RuntimeDir(), "switchd.sock"),
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(SwitchdDir(), "config.toml")
}

// Load reads the configuration at path, or the default path when path is
// empty. A missing file yields the defaults. Environment overrides are
// applied and the result validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path as TOML.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close config file: %w", err)
	}
	return os.Rename(tmp, path)
}

// ApplyEnvOverrides applies SWITCHD_* environment variables over the
// loaded values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SWITCHD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SWITCHD_CHECK_INTERVAL"); v != "" {
		if sec, err := strconv.ParseFloat(v, 64); err == nil {
			c.Detect.CheckIntervalSec = sec
		}
	}
	if v := os.Getenv("SWITCHD_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("SWITCHD_SOCKET"); v != "" {
		c.IPC.SocketPath = v
	}
}

// CheckInterval returns the sampling interval as a duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Detect.CheckIntervalSec * float64(time.Second))
}

// RetryBackoff returns the retry pause as a duration.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Switch.RetryBackoffMs) * time.Millisecond
}

// AttemptTimeout returns the per-attempt bound as a duration.
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Switch.AttemptTimeoutSec) * time.Second
}

// Inputs returns the machine-to-input mapping, parsed.
func (c *Config) Inputs() (map[machine.Identity]machine.InputSource, error) {
	home, err := machine.ParseInput(c.Monitor.HomeInput)
	if err != nil {
		return nil, fmt.Errorf("monitor.home_input: %w", err)
	}
	work, err := machine.ParseInput(c.Monitor.WorkInput)
	if err != nil {
		return nil, fmt.Errorf("monitor.work_input: %w", err)
	}
	return map[machine.Identity]machine.InputSource{
		machine.Home: home,
		machine.Work: work,
	}, nil
}
