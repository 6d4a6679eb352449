package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PinsConfig maps the four relay lines to BCM GPIO pin numbers.
type PinsConfig struct {
	AzCW   int `yaml:"az_cw"`   // BCM25 on the reference wiring
	AzCCW  int `yaml:"az_ccw"`  // BCM8
	ElUp   int `yaml:"el_up"`   // BCM7
	ElDown int `yaml:"el_down"` // BCM1
}

// ADCConfig describes the ADS1015 I2C ADC and its channel assignment.
type ADCConfig struct {
	Bus           string `yaml:"bus"`             // e.g. "/dev/i2c-1"
	Address       uint16 `yaml:"address"`         // e.g. 0x48
	AzChannel     int    `yaml:"az_channel"`      // 0
	ElChannel     int    `yaml:"el_channel"`      // 1
	PowerChannel  int    `yaml:"power_channel"`   // 2
	MinPowerCount int    `yaml:"min_power_count"` // counts below this => NO_POWER
}

// MotionConfig holds the tick-loop tuning values.
type MotionConfig struct {
	TickMs            int `yaml:"tick_ms"`             // 200
	MotionStartMs     int `yaml:"motion_start_ms"`     // 1000, CAL guard sleep
	AzDeadbandCounts  int `yaml:"az_deadband_counts"`  // 50
	ElDeadbandCounts  int `yaml:"el_deadband_counts"`  // 50
	StallCount        int `yaml:"stall_count"`         // 4
}

// NetConfig holds the TCP/HTTP ports for the network command surface.
type NetConfig struct {
	RotctldPort int `yaml:"rotctld_port"` // Hamlib rotctld dialect
	DirectPort  int `yaml:"direct_port"`  // permissive HTTP/direct dialect
	WebPort     int `yaml:"web_port"`     // 0 disables the status page
}

// DefaultsConfig contains generic run-time parameters.
type DefaultsConfig struct {
	Simulator  int  `yaml:"simulator"`   // 0=off, 1=az only, 2=el 90, 3=el 180
	DebugLevel int  `yaml:"debug_level"` // 0-4
	MockHAL    bool `yaml:"mock_hal"`    // use the simulated driver instead of real hardware
}

// Config aggregates all application configuration.
type Config struct {
	Pins     PinsConfig     `yaml:"pins"`
	ADC      ADCConfig      `yaml:"adc"`
	Motion   MotionConfig   `yaml:"motion"`
	Net      NetConfig      `yaml:"net"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration, applying defaults
// and validating the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Pins.AzCW == 0 && cfg.Pins.AzCCW == 0 && cfg.Pins.ElUp == 0 && cfg.Pins.ElDown == 0 {
		cfg.Pins = PinsConfig{AzCW: 25, AzCCW: 8, ElUp: 7, ElDown: 1}
	}
	if cfg.ADC.Bus == "" {
		cfg.ADC.Bus = "/dev/i2c-1"
	}
	if cfg.ADC.Address == 0 {
		cfg.ADC.Address = 0x48
	}
	if cfg.ADC.MinPowerCount == 0 {
		cfg.ADC.MinPowerCount = 1000
	}
	if cfg.Motion.TickMs <= 0 {
		cfg.Motion.TickMs = 200
	}
	if cfg.Motion.MotionStartMs <= 0 {
		cfg.Motion.MotionStartMs = 1000
	}
	if cfg.Motion.AzDeadbandCounts <= 0 {
		cfg.Motion.AzDeadbandCounts = 50
	}
	if cfg.Motion.ElDeadbandCounts <= 0 {
		cfg.Motion.ElDeadbandCounts = 50
	}
	if cfg.Motion.StallCount <= 0 {
		cfg.Motion.StallCount = 4
	}
	if cfg.Net.RotctldPort == 0 {
		cfg.Net.RotctldPort = 4533
	}
	if cfg.Net.DirectPort == 0 {
		cfg.Net.DirectPort = 4534
	}
}

func validate(cfg *Config) error {
	if cfg.Defaults.Simulator < 0 || cfg.Defaults.Simulator > 3 {
		return fmt.Errorf("defaults.simulator must be 0-3, got %d", cfg.Defaults.Simulator)
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be 0-4, got %d", cfg.Defaults.DebugLevel)
	}
	pins := []struct {
		name string
		v    int
	}{
		{"pins.az_cw", cfg.Pins.AzCW}, {"pins.az_ccw", cfg.Pins.AzCCW},
		{"pins.el_up", cfg.Pins.ElUp}, {"pins.el_down", cfg.Pins.ElDown},
	}
	for _, p := range pins {
		if p.v <= 0 {
			return fmt.Errorf("%s must be a positive BCM pin number, got %d", p.name, p.v)
		}
	}
	if cfg.Net.RotctldPort == cfg.Net.DirectPort {
		return fmt.Errorf("net.rotctld_port and net.direct_port must differ")
	}
	return nil
}

// Tick returns the motion controller tick period.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Motion.TickMs) * time.Millisecond
}

// MotionStartGuard returns the settle delay after commanding a calibration sweep leg.
func (c *Config) MotionStartGuard() time.Duration {
	return time.Duration(c.Motion.MotionStartMs) * time.Millisecond
}
