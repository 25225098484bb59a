package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"switchd/internal/machine"
)

// legacySchema validates the JSON configuration of the original tray
// application before its values are trusted.
const legacySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "home_machine_input": {
      "type": "string",
      "enum": ["HDMI-1", "HDMI-2", "DisplayPort-1", "DisplayPort-2", "DVI-1", "DVI-2", "VGA-1"]
    },
    "work_laptop_input": {
      "type": "string",
      "enum": ["HDMI-1", "HDMI-2", "DisplayPort-1", "DisplayPort-2", "DVI-1", "DVI-2", "VGA-1"]
    },
    "monitor_index": {"type": "integer", "minimum": 0},
    "check_interval": {"type": "number", "minimum": 0.1},
    "last_active_machine": {"type": "string", "enum": ["home", "work"]}
  },
  "required": ["home_machine_input", "work_laptop_input"],
  "additionalProperties": true
}`

// legacyConfig mirrors the original application's config.json keys.
type legacyConfig struct {
	HomeMachineInput  string  `json:"home_machine_input"`
	WorkLaptopInput   string  `json:"work_laptop_input"`
	MonitorIndex      int     `json:"monitor_index"`
	CheckInterval     float64 `json:"check_interval"`
	LastActiveMachine string  `json:"last_active_machine"`
}

// ImportLegacy reads a config.json written by the original tray
// application and converts it to a Config. The persisted last-active
// machine is returned separately so the caller can seed the state store.
func ImportLegacy(path string) (*Config, machine.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, machine.Unknown, fmt.Errorf("read legacy config: %w", err)
	}

	schema, err := jsonschema.CompileString("legacy-config.schema.json", legacySchema)
	if err != nil {
		return nil, machine.Unknown, fmt.Errorf("compile legacy schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, machine.Unknown, fmt.Errorf("parse legacy config: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, machine.Unknown, fmt.Errorf("legacy config invalid: %w", err)
	}

	var legacy legacyConfig
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, machine.Unknown, fmt.Errorf("decode legacy config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Monitor.HomeInput = legacy.HomeMachineInput
	cfg.Monitor.WorkInput = legacy.WorkLaptopInput
	cfg.Monitor.Index = legacy.MonitorIndex
	if legacy.CheckInterval > 0 {
		cfg.Detect.CheckIntervalSec = legacy.CheckInterval
	}

	if err := cfg.Validate(); err != nil {
		return nil, machine.Unknown, fmt.Errorf("imported config invalid: %w", err)
	}

	lastActive := machine.Unknown
	if legacy.LastActiveMachine != "" {
		lastActive, _ = machine.ParseIdentity(legacy.LastActiveMachine)
	}
	return cfg, lastActive, nil
}
