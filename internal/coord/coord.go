// Package coord implements the linear mapping between mount degrees
// and ADC counts. It holds no state of its own: every function takes
// the calibration and the currently-effective elevation ceiling (which
// tracks the active simulator mode) as arguments.
package coord

import "github.com/wa1hco/g5500d/internal/calibration"

// Mount bounds, fixed for the G-5500.
const (
	AzMin  = 0.0
	AzMax  = 450.0
	AzWrap = 360.0
	ElMin  = 0.0
	ElMax  = 180.0
)

// AzToADC maps an azimuth in degrees to a raw ADC count, clamped to
// the mount's azimuth range. Returns ok=false if cal is not valid.
func AzToADC(cal calibration.Calibration, azDeg float64) (uint16, bool) {
	if !cal.Valid {
		return 0, false
	}
	azDeg = clamp(azDeg, AzMin, AzMax)
	span := float64(cal.AzMax - cal.AzMin)
	counts := float64(cal.AzMin) + (azDeg-AzMin)*span/(AzMax-AzMin)
	return clampCounts(counts), true
}

// ADCToAz maps a raw azimuth ADC count back to degrees, clamped to the
// mount's azimuth range.
func ADCToAz(cal calibration.Calibration, counts uint16) (float64, bool) {
	if !cal.Valid {
		return 0, false
	}
	span := float64(cal.AzMax - cal.AzMin)
	if span == 0 {
		return 0, false
	}
	deg := AzMin + (float64(counts)-float64(cal.AzMin))*(AzMax-AzMin)/span
	return clamp(deg, AzMin, AzMax), true
}

// ElToADC maps an elevation in degrees to a raw ADC count, clamped to
// [0, elMaxDeg]. AZ_ONLY simulator mode passes elMaxDeg == 0, which
// forces every elevation conversion to the bottom endpoint.
func ElToADC(cal calibration.Calibration, elDeg, elMaxDeg float64) (uint16, bool) {
	if !cal.Valid {
		return 0, false
	}
	if elMaxDeg <= 0 {
		return cal.ElMin, true
	}
	elDeg = clamp(elDeg, ElMin, elMaxDeg)
	span := float64(cal.ElMax - cal.ElMin)
	counts := float64(cal.ElMin) + (elDeg-ElMin)*span/(elMaxDeg-ElMin)
	return clampCounts(counts), true
}

// ADCToEl maps a raw elevation ADC count back to degrees, clamped to
// [0, elMaxDeg]. AZ_ONLY simulator mode (elMaxDeg == 0) always yields 0.
func ADCToEl(cal calibration.Calibration, counts uint16, elMaxDeg float64) (float64, bool) {
	if !cal.Valid {
		return 0, false
	}
	if elMaxDeg <= 0 {
		return 0, true
	}
	span := float64(cal.ElMax - cal.ElMin)
	if span == 0 {
		return 0, false
	}
	deg := ElMin + (float64(counts)-float64(cal.ElMin))*(elMaxDeg-ElMin)/span
	return clamp(deg, ElMin, elMaxDeg), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampCounts(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 2047 {
		return 2047
	}
	return uint16(v)
}
