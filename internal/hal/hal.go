// Package hal abstracts the two pieces of silicon the rotator daemon
// touches directly: the four relay lines that drive the G-5500 motors
// and the ADS1015 ADC that reads the az/el potentiometers and the
// power-OK rail. Everything above this package speaks in pins and
// ADC counts, never in BCM register offsets or I2C register addresses.
package hal

import (
	"github.com/wa1hco/g5500d/internal/config"
	"github.com/wa1hco/g5500d/internal/debug"
)

// Pin identifies one of the four relay control lines by BCM GPIO number.
type Pin int

// Level is the logical state written to or read from a relay pin.
type Level bool

const (
	Lo Level = false
	Hi Level = true
)

// Channel identifies one of the ADS1015's four single-ended inputs.
type Channel int

const (
	ChanAz    Channel = 0
	ChanEl    Channel = 1
	ChanPower Channel = 2
)

// Driver is the hardware boundary. A real implementation drives BCM
// GPIO registers and the ADS1015 over I2C; a simulated implementation
// synthesizes ADC counts from commanded motion so the daemon can run
// off actual hardware.
type Driver interface {
	// Init opens and prepares the underlying hardware. Safe to call once.
	Init() error

	// SetPin idempotently drives a relay pin high or low.
	SetPin(pin Pin, level Level) error

	// ReadADC returns the raw 12-bit count (0-2047) for the given
	// channel. ok is false and reason is non-empty on any I2C failure.
	ReadADC(ch Channel) (counts uint16, ok bool, reason string)

	// Shutdown releases the underlying hardware. Safe to call once, at exit.
	Shutdown() error
}

// NewDriver picks a Driver implementation from cfg: mock selects the
// wall-clock-integrated SimDriver (for development off real hardware),
// false selects the real RPiDriver wired to the configured relay pins
// and ADS1015 bus/address.
func NewDriver(mock bool, cfg *config.Config) (Driver, error) {
	if mock {
		debug.Info("using simulated HAL driver")
		return NewSimDriver(
			Pin(cfg.Pins.AzCW), Pin(cfg.Pins.AzCCW),
			Pin(cfg.Pins.ElUp), Pin(cfg.Pins.ElDown),
		), nil
	}
	debug.Info("using real RPi/ADS1015 HAL driver")
	return NewRPiDriver(cfg.ADC.Bus, cfg.ADC.Address), nil
}

// MockDriver is a no-op Driver used by unit tests that only need to
// observe the pin/ADC calls a component makes, not realistic motion.
type MockDriver struct {
	Pins    map[Pin]Level
	ADC     map[Channel]uint16
	ADCOK   map[Channel]bool
	InitErr error
}

// NewMockDriver returns a MockDriver with all four relay pins low and
// the power channel reporting a healthy rail.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		Pins:  make(map[Pin]Level),
		ADC:   map[Channel]uint16{ChanAz: 1024, ChanEl: 1024, ChanPower: 2000},
		ADCOK: map[Channel]bool{ChanAz: true, ChanEl: true, ChanPower: true},
	}
}

func (m *MockDriver) Init() error { return m.InitErr }

func (m *MockDriver) SetPin(pin Pin, level Level) error {
	m.Pins[pin] = level
	return nil
}

func (m *MockDriver) ReadADC(ch Channel) (uint16, bool, string) {
	ok := m.ADCOK[ch]
	if !ok {
		return 0, false, "mock: channel marked failed"
	}
	return m.ADC[ch], true, ""
}

func (m *MockDriver) Shutdown() error { return nil }
