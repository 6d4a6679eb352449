// Package control is the facade every network dialect drives: it is
// the only thing outside internal/motion that ever asks the
// controller to do something, and the only thing that converts
// between human degrees and the controller's raw ADC counts.
package control

import (
	"github.com/wa1hco/g5500d/internal/calibration"
	"github.com/wa1hco/g5500d/internal/config"
	"github.com/wa1hco/g5500d/internal/coord"
	"github.com/wa1hco/g5500d/internal/hal"
	"github.com/wa1hco/g5500d/internal/motion"
)

// ErrorCode is the fixed set of outcomes every surface operation can
// report, independent of which network dialect is asking.
type ErrorCode int

const (
	ErrOK ErrorCode = iota
	ErrBadArgs
	ErrCalibrating
	ErrADCFail
	ErrNoPower
	ErrStuck
	ErrGPIOFail
	ErrInternal
)

func (e ErrorCode) String() string {
	switch e {
	case ErrOK:
		return "OK"
	case ErrBadArgs:
		return "BAD_ARGS"
	case ErrCalibrating:
		return "CALIBRATING"
	case ErrADCFail:
		return "ADC_FAIL"
	case ErrNoPower:
		return "NO_POWER"
	case ErrStuck:
		return "STUCK"
	case ErrGPIOFail:
		return "GPIO_FAIL"
	case ErrInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Direction is a move() direction, using the same bit values Hamlib's
// rotctld dialect sends on the wire (UP=2, DOWN=4, LEFT=8, RIGHT=16).
type Direction int

const (
	DirUp   Direction = 2
	DirDown Direction = 4
	DirCCW  Direction = 8  // left
	DirCW   Direction = 16 // right
)

// Simulator modes, matching the config option of the same name.
const (
	SimOff    = 0
	SimAzOnly = 1
	SimEl90   = 2
	SimEl180  = 3
)

// Caps is the rotator's static capability description.
type Caps struct {
	ModelName string
	MfgName   string
	AzMinDeg  float64
	AzMaxDeg  float64
	ElMinDeg  float64
	ElMaxDeg  float64
}

// Info is the rotator's current, dynamic state.
type Info struct {
	State      string
	Status     uint32
	Simulator  int
	Calibrated bool
	AzDeg      float64
	ElDeg      float64
}

// Surface is the control facade: construct one per daemon, share it
// across every network dialect.
type Surface struct {
	ctrl     *motion.Controller
	calStore *calibration.Store
	hal      hal.Driver
	cfg      *config.Config
}

// NewSurface builds a Surface over an already-constructed controller.
func NewSurface(ctrl *motion.Controller, calStore *calibration.Store, d hal.Driver, cfg *config.Config) *Surface {
	return &Surface{ctrl: ctrl, calStore: calStore, hal: d, cfg: cfg}
}

// EnsureReady is called first by every other method. It surfaces a
// latched controller fault (self-clearing it to STOP so it is
// reported only once), or attempts to load calibration from disk and
// starts a sweep if none is available.
func (s *Surface) EnsureReady() ErrorCode {
	if st := s.ctrl.State(); st.IsError() {
		code := errorCodeForState(st)
		s.ctrl.RequestStop()
		return code
	}

	if s.ctrl.Calibration().Valid {
		return ErrOK
	}

	loaded := s.calStore.Load()
	if loaded.Valid {
		s.ctrl.SetCalibration(loaded)
		return ErrOK
	}

	s.ctrl.RequestCalibration()
	return ErrCalibrating
}

// SetPosition validates and writes new az/el targets in degrees, then
// requests RUN.
func (s *Surface) SetPosition(azDeg, elDeg float64) ErrorCode {
	if code := s.EnsureReady(); code != ErrOK {
		return code
	}

	elMax := s.ctrl.ElMaxDeg()
	if azDeg < coord.AzMin || azDeg > coord.AzMax {
		return ErrBadArgs
	}
	if elDeg < coord.ElMin || elDeg > elMax {
		return ErrBadArgs
	}

	cal := s.ctrl.Calibration()
	azCounts, _ := coord.AzToADC(cal, azDeg)
	elCounts, _ := coord.ElToADC(cal, elDeg, elMax)
	s.ctrl.SetTargets(azCounts, elCounts)
	s.ctrl.RequestRun()
	return ErrOK
}

// GetPosition reads the current position in degrees. A latched fault
// is reported here too and cleared in the same call.
func (s *Surface) GetPosition() (azDeg, elDeg float64, code ErrorCode) {
	if st := s.ctrl.State(); st.IsError() {
		code := errorCodeForState(st)
		s.ctrl.RequestStop()
		return 0, 0, code
	}

	cal := s.ctrl.Calibration()
	az, el := s.ctrl.Positions()
	azDeg, _ = coord.ADCToAz(cal, az)
	elDeg, _ = coord.ADCToEl(cal, el, s.ctrl.ElMaxDeg())
	return azDeg, elDeg, ErrOK
}

// Move commands a run-to-limit sweep on the axis implied by dir.
func (s *Surface) Move(dir Direction) ErrorCode {
	if code := s.EnsureReady(); code != ErrOK {
		return code
	}

	cal := s.ctrl.Calibration()
	az, el := s.ctrl.Positions()
	switch dir {
	case DirCW:
		s.ctrl.SetTargets(cal.AzMax, el)
	case DirCCW:
		s.ctrl.SetTargets(cal.AzMin, el)
	case DirUp:
		s.ctrl.SetTargets(az, cal.ElMax)
	case DirDown:
		s.ctrl.SetTargets(az, cal.ElMin)
	default:
		return ErrBadArgs
	}
	s.ctrl.RequestRun()
	return ErrOK
}

// Park drives both axes to (0, 0).
func (s *Surface) Park() ErrorCode {
	if code := s.EnsureReady(); code != ErrOK {
		return code
	}

	cal := s.ctrl.Calibration()
	azCounts, _ := coord.AzToADC(cal, 0)
	elCounts, _ := coord.ElToADC(cal, 0, s.ctrl.ElMaxDeg())
	s.ctrl.SetTargets(azCounts, elCounts)
	s.ctrl.RequestRun()
	return ErrOK
}

// Stop halts all motion: the controller drops every relay on its next tick.
func (s *Surface) Stop() ErrorCode {
	_ = s.EnsureReady()
	s.ctrl.RequestStop()
	return ErrOK
}

// SetSimMode atomically switches the simulator mode, the effective
// elevation ceiling, and the synthetic calibration that goes with it,
// then stops the controller. Real-hardware deployments only ever call
// this with SimOff.
func (s *Surface) SetSimMode(mode int) ErrorCode {
	var cal calibration.Calibration
	var elMax float64

	switch mode {
	case SimOff:
		cal = calibration.Calibration{}
		elMax = coord.ElMax
	case SimAzOnly:
		cal = calibration.Calibration{AzMin: 0, AzMax: hal.AzSimMaxADC, ElMin: 0, ElMax: hal.ElSimMaxADC, Valid: true}
		elMax = 0
	case SimEl90:
		cal = calibration.Calibration{AzMin: 0, AzMax: hal.AzSimMaxADC, ElMin: 0, ElMax: hal.ElSimMaxADC, Valid: true}
		elMax = 90
	case SimEl180:
		cal = calibration.Calibration{AzMin: 0, AzMax: hal.AzSimMaxADC, ElMin: 0, ElMax: hal.ElSimMaxADC, Valid: true}
		elMax = 180
	default:
		return ErrBadArgs
	}

	s.cfg.Defaults.Simulator = mode
	if sim, ok := s.hal.(*hal.SimDriver); ok {
		sim.Reset(cal.AzMin, cal.ElMin)
	}
	s.ctrl.ResetForSimMode(cal, elMax)
	return ErrOK
}

// Caps returns the rotator's static capability description.
func (s *Surface) Caps() Caps {
	return Caps{
		ModelName: "G-5500",
		MfgName:   "Yaesu",
		AzMinDeg:  coord.AzMin,
		AzMaxDeg:  coord.AzMax,
		ElMinDeg:  coord.ElMin,
		ElMaxDeg:  s.ctrl.ElMaxDeg(),
	}
}

// Info returns the rotator's current dynamic state. Unlike
// GetPosition, it never clears a latched fault -- it is the
// side-effect-free read a status-page poller can call on every tick
// without ever wiping an error meant for the operator to see.
func (s *Surface) Info() Info {
	cal := s.ctrl.Calibration()
	az, el := s.ctrl.Positions()
	azDeg, _ := coord.ADCToAz(cal, az)
	elDeg, _ := coord.ADCToEl(cal, el, s.ctrl.ElMaxDeg())
	return Info{
		State:      s.ctrl.State().String(),
		Status:     s.ctrl.Status(),
		Simulator:  s.cfg.Defaults.Simulator,
		Calibrated: cal.Valid,
		AzDeg:      azDeg,
		ElDeg:      elDeg,
	}
}

func errorCodeForState(st motion.State) ErrorCode {
	switch st {
	case motion.StateErrADC:
		return ErrADCFail
	case motion.StateErrNoPower:
		return ErrNoPower
	case motion.StateErrStuck:
		return ErrStuck
	default:
		return ErrInternal
	}
}
