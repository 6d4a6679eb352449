package hal

import (
	"sync"
	"time"

	"github.com/wa1hco/g5500d/internal/debug"
)

// Simulated motion rates and ceilings, matched to the reference
// implementation's synthetic sweep: azimuth sweeps faster than
// elevation, and both axes cap out well short of the ADC's 2047 count
// ceiling so a calibration sweep always finds a stall.
const (
	AzSimDegPerSec = 10.0
	ElSimDegPerSec = 5.0
	AzSimMaxADC    = 2000
	ElSimMaxADC    = 2000

	// degree span the synthetic counts are assumed to represent,
	// used only to convert deg/sec into counts/sec.
	azSimDegSpan = 450.0
	elSimDegSpan = 180.0
)

// SimDriver synthesizes ADC counts by integrating commanded direction
// over wall-clock time, instead of talking to real relays and an ADC.
// It implements Driver so the rest of the daemon cannot tell the
// difference.
type SimDriver struct {
	mu sync.Mutex

	azCW, azCCW, elUp, elDown Pin
	pins                      map[Pin]Level

	azCounts, elCounts float64
	powerOK            bool

	azLast, elLast time.Time
}

// NewSimDriver builds a simulated driver wired to the same four pin
// numbers the real driver would use, so SetPin calls from the motion
// controller drive the synthetic axes correctly.
func NewSimDriver(azCW, azCCW, elUp, elDown Pin) *SimDriver {
	return &SimDriver{
		azCW: azCW, azCCW: azCCW, elUp: elUp, elDown: elDown,
		pins:    make(map[Pin]Level),
		powerOK: true,
	}
}

func (s *SimDriver) Init() error {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.azLast, s.elLast = now, now
	return nil
}

func (s *SimDriver) SetPin(pin Pin, level Level) error {
	debug.Pin("SetPin(sim)", int(pin), level)
	s.mu.Lock()
	s.pins[pin] = level
	s.mu.Unlock()
	return nil
}

func (s *SimDriver) ReadADC(ch Channel) (uint16, bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ch {
	case ChanPower:
		if s.powerOK {
			return 2000, true, ""
		}
		return 500, true, ""
	case ChanAz:
		s.advanceAz()
		return uint16(s.azCounts), true, ""
	case ChanEl:
		s.advanceEl()
		return uint16(s.elCounts), true, ""
	default:
		return 0, false, "sim: unknown channel"
	}
}

func (s *SimDriver) advanceAz() {
	now := time.Now()
	elapsed := now.Sub(s.azLast).Seconds()
	s.azLast = now

	countsPerSec := AzSimDegPerSec * float64(AzSimMaxADC) / azSimDegSpan
	if s.pins[s.azCW] == Hi && s.pins[s.azCCW] != Hi {
		s.azCounts += countsPerSec * elapsed
	} else if s.pins[s.azCCW] == Hi && s.pins[s.azCW] != Hi {
		s.azCounts -= countsPerSec * elapsed
	}
	s.azCounts = clampf(s.azCounts, 0, AzSimMaxADC)
}

func (s *SimDriver) advanceEl() {
	now := time.Now()
	elapsed := now.Sub(s.elLast).Seconds()
	s.elLast = now

	countsPerSec := ElSimDegPerSec * float64(ElSimMaxADC) / elSimDegSpan
	if s.pins[s.elUp] == Hi && s.pins[s.elDown] != Hi {
		s.elCounts += countsPerSec * elapsed
	} else if s.pins[s.elDown] == Hi && s.pins[s.elUp] != Hi {
		s.elCounts -= countsPerSec * elapsed
	}
	s.elCounts = clampf(s.elCounts, 0, ElSimMaxADC)
}

// Reset re-seeds both synthetic axes to a position and clears pin
// state, used when the control surface switches simulator modes.
func (s *SimDriver) Reset(azCounts, elCounts uint16) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.azCounts, s.elCounts = float64(azCounts), float64(elCounts)
	s.pins = make(map[Pin]Level)
	s.azLast, s.elLast = now, now
	s.powerOK = true
}

// SetPowerOK lets tests and the power-loss-recovery scenario flip the
// synthetic power rail without touching real hardware.
func (s *SimDriver) SetPowerOK(ok bool) {
	s.mu.Lock()
	s.powerOK = ok
	s.mu.Unlock()
}

func (s *SimDriver) Shutdown() error { return nil }

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
