// Package motion owns the one goroutine allowed to touch the HAL: a
// fixed-period tick loop that drives the G-5500's four relays toward
// commanded targets, runs the two-leg calibration sweep, and detects
// faults. Every other package reaches it only through the atomic
// getters/setters below -- there is exactly one writer per field.
package motion

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/wa1hco/g5500d/internal/calibration"
	"github.com/wa1hco/g5500d/internal/config"
	"github.com/wa1hco/g5500d/internal/coord"
	"github.com/wa1hco/g5500d/internal/debug"
	"github.com/wa1hco/g5500d/internal/hal"
)

// State is the controller's state machine position.
type State int32

const (
	StateStop State = iota
	StateRun
	StateCalStart
	StateCalSeekMins
	StateCalSeekMaxs
	StateErrADC
	StateErrNoPower
	StateErrStuck
)

func (s State) String() string {
	switch s {
	case StateStop:
		return "STOP"
	case StateRun:
		return "RUN"
	case StateCalStart:
		return "CAL_START"
	case StateCalSeekMins:
		return "CAL_SEEK_MINS"
	case StateCalSeekMaxs:
		return "CAL_SEEK_MAXS"
	case StateErrADC:
		return "ERR_ADC"
	case StateErrNoPower:
		return "ERR_NOPOWER"
	case StateErrStuck:
		return "ERR_STUCK"
	default:
		return "UNKNOWN"
	}
}

// IsError reports whether the state is one of the three latched fault states.
func (s State) IsError() bool {
	return s == StateErrADC || s == StateErrNoPower || s == StateErrStuck
}

// StatusFlag is one bit of the published status bitset.
type StatusFlag uint32

const (
	FlagMoving StatusFlag = 1 << iota
	FlagMovingAz
	FlagMovingLeft
	FlagMovingRight
	FlagMovingEl
	FlagMovingUp
	FlagMovingDown
	FlagLimitLeft
	FlagLimitRight
	FlagLimitUp
	FlagLimitDown
	FlagOverlapRight
	FlagBusy
)

// Controller is the az/el closed-loop motor control state machine. It
// owns the HAL exclusively once Run is started.
type Controller struct {
	hal      hal.Driver
	cfg      *config.Config
	calStore *calibration.Store

	state   atomic.Int32
	status  atomic.Uint32
	cal     atomic.Value // calibration.Calibration
	elMaxDegBits atomic.Uint64

	adcAzNow, adcAzTarget atomic.Uint32
	adcElNow, adcElTarget atomic.Uint32

	azCW, azCCW atomic.Bool
	elUp, elDown atomic.Bool

	azStall, elStall atomic.Int32

	// pendingMins is written and read only from the tick goroutine
	// while sweeping (CAL_SEEK_MINS/CAL_SEEK_MAXS), so it needs no
	// synchronization of its own.
	pendingMins calibration.Calibration
}

// NewController builds a controller bound to the given driver, config,
// and calibration store. Call Run to start the tick loop.
func NewController(d hal.Driver, cfg *config.Config, store *calibration.Store) *Controller {
	c := &Controller{hal: d, cfg: cfg, calStore: store}
	c.cal.Store(calibration.Calibration{})
	c.SetElMaxDeg(coord.ElMax)
	return c
}

// Run blocks, ticking the state machine every cfg.Tick() until ctx is
// cancelled. Spawn it once in its own goroutine; it is never joined
// in the ordinary sense -- cancelling ctx is the only way to stop it.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Tick())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Controller) tick() {
	azNow, azOK, azReason := c.hal.ReadADC(hal.ChanAz)
	elNow, elOK, elReason := c.hal.ReadADC(hal.ChanEl)
	powNow, powOK, powReason := c.hal.ReadADC(hal.ChanPower)

	if !azOK || !elOK || !powOK {
		debug.Error(fmt.Errorf("adc read failed: az=%q el=%q pow=%q", azReason, elReason, powReason))
		c.enterError(StateErrADC)
		return
	}

	if powNow < uint16(c.cfg.ADC.MinPowerCount) {
		c.enterError(StateErrNoPower)
		return
	}

	azPrev := uint16(c.adcAzNow.Load())
	elPrev := uint16(c.adcElNow.Load())

	c.updateStall(&c.azStall, c.azCW.Load() || c.azCCW.Load(), azNow, azPrev)
	c.updateStall(&c.elStall, c.elUp.Load() || c.elDown.Load(), elNow, elPrev)

	c.adcAzNow.Store(uint32(azNow))
	c.adcElNow.Store(uint32(elNow))

	c.recomputeStatus(azNow, elNow)

	switch State(c.state.Load()) {
	case StateStop:
		// drop any relay still energized, then wait for a motion-initiating request
		if c.azCW.Load() || c.azCCW.Load() || c.elUp.Load() || c.elDown.Load() {
			c.stopAllPins()
		}
	case StateRun:
		c.actRun(azNow, elNow)
	case StateCalStart:
		c.actCalStart()
	case StateCalSeekMins:
		c.actCalSeekMins(azNow, elNow)
	case StateCalSeekMaxs:
		c.actCalSeekMaxs(azNow, elNow)
	case StateErrADC, StateErrNoPower, StateErrStuck:
		// latched until the control surface requests a new state
	}
}

func (c *Controller) updateStall(counter *atomic.Int32, commandedActive bool, now, prev uint16) {
	if commandedActive && now == prev {
		if counter.Load() < int32(c.cfg.Motion.StallCount) {
			counter.Add(1)
		}
	} else {
		counter.Store(0)
	}
}

func (c *Controller) recomputeStatus(azNow, elNow uint16) {
	var flags uint32

	azCW, azCCW := c.azCW.Load(), c.azCCW.Load()
	elUp, elDown := c.elUp.Load(), c.elDown.Load()

	if azCW || azCCW || elUp || elDown {
		flags |= uint32(FlagMoving)
	}
	if azCW || azCCW {
		flags |= uint32(FlagMovingAz)
		if azCCW {
			flags |= uint32(FlagMovingLeft)
		}
		if azCW {
			flags |= uint32(FlagMovingRight)
		}
	}
	if elUp || elDown {
		flags |= uint32(FlagMovingEl)
		if elUp {
			flags |= uint32(FlagMovingUp)
		}
		if elDown {
			flags |= uint32(FlagMovingDown)
		}
	}

	cal := c.Calibration()
	if cal.Valid {
		if azNow <= cal.AzMin {
			flags |= uint32(FlagLimitLeft)
		}
		if azNow >= cal.AzMax {
			flags |= uint32(FlagLimitRight)
		}
		if elNow >= cal.ElMax {
			flags |= uint32(FlagLimitUp)
		}
		if elNow <= cal.ElMin {
			flags |= uint32(FlagLimitDown)
		}
		if azDeg, ok := coord.ADCToAz(cal, azNow); ok && azDeg >= coord.AzWrap {
			flags |= uint32(FlagOverlapRight)
		}
	}

	switch State(c.state.Load()) {
	case StateStop, StateRun, StateCalStart, StateCalSeekMins, StateCalSeekMaxs:
		flags |= uint32(FlagBusy)
	}

	c.status.Store(flags)
}

// --- RUN: drive each axis independently toward its target ---

func (c *Controller) actRun(azNow, elNow uint16) {
	azStuck := c.driveAz(azNow)
	elStuck := c.driveEl(elNow)
	if azStuck || elStuck {
		c.enterError(StateErrStuck)
	}
}

func (c *Controller) driveAz(now uint16) (stuck bool) {
	if (c.azCW.Load() || c.azCCW.Load()) && c.azStall.Load() >= int32(c.cfg.Motion.StallCount) {
		c.azStop()
		return true
	}

	target := uint16(c.adcAzTarget.Load())
	switch {
	case c.azCW.Load():
		if now >= target {
			c.azStop()
		}
	case c.azCCW.Load():
		if now <= target {
			c.azStop()
		}
	default:
		diff := int(now) - int(target)
		switch {
		case diff < -c.cfg.Motion.AzDeadbandCounts:
			c.azRotateCW()
		case diff > c.cfg.Motion.AzDeadbandCounts:
			c.azRotateCCW()
		}
	}
	return false
}

func (c *Controller) driveEl(now uint16) (stuck bool) {
	if (c.elUp.Load() || c.elDown.Load()) && c.elStall.Load() >= int32(c.cfg.Motion.StallCount) {
		c.elStop()
		return true
	}

	target := uint16(c.adcElTarget.Load())
	switch {
	case c.elUp.Load():
		if now >= target {
			c.elStop()
		}
	case c.elDown.Load():
		if now <= target {
			c.elStop()
		}
	default:
		diff := int(now) - int(target)
		switch {
		case diff < -c.cfg.Motion.ElDeadbandCounts:
			c.elRotateUp()
		case diff > c.cfg.Motion.ElDeadbandCounts:
			c.elRotateDown()
		}
	}
	return false
}

// --- per-axis pin helpers; sibling flag always clears before its own sets ---

func (c *Controller) azRotateCW() {
	c.hal.SetPin(hal.Pin(c.cfg.Pins.AzCCW), hal.Lo)
	c.azCCW.Store(false)
	c.hal.SetPin(hal.Pin(c.cfg.Pins.AzCW), hal.Hi)
	c.azCW.Store(true)
}

func (c *Controller) azRotateCCW() {
	c.hal.SetPin(hal.Pin(c.cfg.Pins.AzCW), hal.Lo)
	c.azCW.Store(false)
	c.hal.SetPin(hal.Pin(c.cfg.Pins.AzCCW), hal.Hi)
	c.azCCW.Store(true)
}

func (c *Controller) azStop() {
	c.hal.SetPin(hal.Pin(c.cfg.Pins.AzCW), hal.Lo)
	c.azCW.Store(false)
	c.hal.SetPin(hal.Pin(c.cfg.Pins.AzCCW), hal.Lo)
	c.azCCW.Store(false)
}

func (c *Controller) elRotateUp() {
	c.hal.SetPin(hal.Pin(c.cfg.Pins.ElDown), hal.Lo)
	c.elDown.Store(false)
	c.hal.SetPin(hal.Pin(c.cfg.Pins.ElUp), hal.Hi)
	c.elUp.Store(true)
}

func (c *Controller) elRotateDown() {
	c.hal.SetPin(hal.Pin(c.cfg.Pins.ElUp), hal.Lo)
	c.elUp.Store(false)
	c.hal.SetPin(hal.Pin(c.cfg.Pins.ElDown), hal.Hi)
	c.elDown.Store(true)
}

func (c *Controller) elStop() {
	c.hal.SetPin(hal.Pin(c.cfg.Pins.ElUp), hal.Lo)
	c.elUp.Store(false)
	c.hal.SetPin(hal.Pin(c.cfg.Pins.ElDown), hal.Lo)
	c.elDown.Store(false)
}

func (c *Controller) stopAllPins() {
	c.azStop()
	c.elStop()
}

// --- calibration sweep ---

func (c *Controller) actCalStart() {
	c.azRotateCCW()
	c.elRotateDown()
	c.azStall.Store(0)
	c.elStall.Store(0)
	debug.Cal("sweeping to minima")
	time.Sleep(c.cfg.MotionStartGuard())
	c.setState(StateCalStart, StateCalSeekMins)
}

func (c *Controller) actCalSeekMins(azNow, elNow uint16) {
	if !c.bothStuck() {
		return
	}
	c.pendingMins = calibration.Calibration{AzMin: azNow, ElMin: elNow}
	c.azRotateCW()
	c.elRotateUp()
	c.azStall.Store(0)
	c.elStall.Store(0)
	debug.Cal("minima latched az=%d el=%d, sweeping to maxima", azNow, elNow)
	time.Sleep(c.cfg.MotionStartGuard())
	c.setState(StateCalSeekMins, StateCalSeekMaxs)
}

func (c *Controller) actCalSeekMaxs(azNow, elNow uint16) {
	if !c.bothStuck() {
		return
	}
	// A stall less than the calibration store's minimum span (1000
	// counts) above the latched minima is not taken as the maxima; the
	// sweep keeps driving CW/UP until a trusted span is found.
	if int(azNow) < int(c.pendingMins.AzMin)+1000 || int(elNow) < int(c.pendingMins.ElMin)+1000 {
		return
	}
	cal := calibration.Calibration{
		AzMin: c.pendingMins.AzMin, AzMax: azNow,
		ElMin: c.pendingMins.ElMin, ElMax: elNow,
		Valid: true,
	}
	if err := c.calStore.Save(cal); err != nil {
		debug.Error(fmt.Errorf("save calibration: %w", err))
	}
	c.cal.Store(cal)
	debug.Cal("sweep complete az=[%d,%d] el=[%d,%d]", cal.AzMin, cal.AzMax, cal.ElMin, cal.ElMax)
	c.stopAllPins()
	c.setState(StateCalSeekMaxs, StateStop)
}

func (c *Controller) bothStuck() bool {
	n := int32(c.cfg.Motion.StallCount)
	return c.azStall.Load() >= n && c.elStall.Load() >= n
}

// --- faults ---

func (c *Controller) enterError(to State) {
	from := State(c.state.Load())
	c.stopAllPins()
	c.azStall.Store(0)
	c.elStall.Store(0)
	c.setState(from, to)
}

func (c *Controller) setState(from, to State) {
	if from != to {
		debug.State(from.String(), to.String())
	}
	c.state.Store(int32(to))
}

// --- public API used by the control surface ---

// State returns the current controller state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Status returns the published status bitset.
func (c *Controller) Status() uint32 { return c.status.Load() }

// Calibration returns the currently published calibration.
func (c *Controller) Calibration() calibration.Calibration {
	cal, _ := c.cal.Load().(calibration.Calibration)
	return cal
}

// SetCalibration publishes a calibration loaded from disk.
func (c *Controller) SetCalibration(cal calibration.Calibration) {
	c.cal.Store(cal)
}

// Positions returns the last-read az/el ADC counts.
func (c *Controller) Positions() (az, el uint16) {
	return uint16(c.adcAzNow.Load()), uint16(c.adcElNow.Load())
}

// SetTargets writes new az/el ADC targets. A fresh call while RUN is
// already the current state simply redirects motion next tick.
func (c *Controller) SetTargets(az, el uint16) {
	c.adcAzTarget.Store(uint32(az))
	c.adcElTarget.Store(uint32(el))
}

// ElMaxDeg returns the effective elevation ceiling, which tracks the
// active simulator mode.
func (c *Controller) ElMaxDeg() float64 {
	return math.Float64frombits(c.elMaxDegBits.Load())
}

// SetElMaxDeg sets the effective elevation ceiling.
func (c *Controller) SetElMaxDeg(deg float64) {
	c.elMaxDegBits.Store(math.Float64bits(deg))
}

// RequestRun transitions toward RUN. If already RUN, this is a no-op;
// the caller is expected to have already written fresh targets via
// SetTargets, which RUN picks up on its very next tick.
func (c *Controller) RequestRun() {
	from := State(c.state.Load())
	if from == StateRun {
		return
	}
	c.setState(from, StateRun)
}

// RequestStop transitions to STOP. Also used to self-clear a latched
// error state after it has been reported once.
func (c *Controller) RequestStop() {
	c.setState(State(c.state.Load()), StateStop)
}

// RequestCalibration transitions to CAL_START, beginning a fresh sweep.
func (c *Controller) RequestCalibration() {
	c.setState(State(c.state.Load()), StateCalStart)
}

// ResetForSimMode atomically resets all motion state for a simulator
// mode switch: targets, positions, stall counters, status, the
// published calibration, and the elevation ceiling, then stops.
func (c *Controller) ResetForSimMode(cal calibration.Calibration, elMaxDeg float64) {
	c.adcAzTarget.Store(0)
	c.adcElTarget.Store(0)
	c.adcAzNow.Store(uint32(cal.AzMin))
	c.adcElNow.Store(uint32(cal.ElMin))
	c.azStall.Store(0)
	c.elStall.Store(0)
	c.status.Store(0)
	c.cal.Store(cal)
	c.SetElMaxDeg(elMaxDeg)
	c.stopAllPins()
	c.setState(State(c.state.Load()), StateStop)
}
