package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "g5500d.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_EmptyFileGetsDefaults(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pins.AzCW != 25 || cfg.Pins.AzCCW != 8 || cfg.Pins.ElUp != 7 || cfg.Pins.ElDown != 1 {
		t.Errorf("default pins not applied: %+v", cfg.Pins)
	}
	if cfg.Motion.TickMs != 200 {
		t.Errorf("default tick_ms = %d, want 200", cfg.Motion.TickMs)
	}
	if cfg.Net.RotctldPort != 4533 || cfg.Net.DirectPort != 4534 {
		t.Errorf("default ports not applied: %+v", cfg.Net)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_InvalidSimulatorRejected(t *testing.T) {
	path := writeTempConfig(t, "defaults:\n  simulator: 9\n")
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for simulator out of 0-3 range")
	}
}

func TestLoad_SamePortsRejected(t *testing.T) {
	path := writeTempConfig(t, "net:\n  rotctld_port: 4533\n  direct_port: 4533\n")
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for identical rotctld/direct ports")
	}
}

func TestLoad_ExplicitPinsOverrideDefaults(t *testing.T) {
	path := writeTempConfig(t, "pins:\n  az_cw: 10\n  az_ccw: 11\n  el_up: 12\n  el_down: 13\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pins.AzCW != 10 || cfg.Pins.AzCCW != 11 || cfg.Pins.ElUp != 12 || cfg.Pins.ElDown != 13 {
		t.Errorf("explicit pins not honored: %+v", cfg.Pins)
	}
}

func TestLoad_InvalidDebugLevelRejected(t *testing.T) {
	path := writeTempConfig(t, "defaults:\n  debug_level: 5\n")
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for debug_level out of 0-4 range")
	}
}

func TestLoad_NonPositivePinRejected(t *testing.T) {
	path := writeTempConfig(t, "pins:\n  az_cw: -1\n  az_ccw: 8\n  el_up: 7\n  el_down: 1\n")
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for a non-positive pin number")
	}
}

func TestTick(t *testing.T) {
	cfg := &Config{Motion: MotionConfig{TickMs: 200}}
	if cfg.Tick().Milliseconds() != 200 {
		t.Errorf("Tick() = %v, want 200ms", cfg.Tick())
	}
}

func TestMotionStartGuard(t *testing.T) {
	cfg := &Config{Motion: MotionConfig{MotionStartMs: 1000}}
	if cfg.MotionStartGuard().Milliseconds() != 1000 {
		t.Errorf("MotionStartGuard() = %v, want 1000ms", cfg.MotionStartGuard())
	}
}
