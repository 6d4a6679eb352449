package coord

import (
	"math"
	"testing"

	"github.com/wa1hco/g5500d/internal/calibration"
)

func testCal() calibration.Calibration {
	return calibration.Calibration{AzMin: 100, AzMax: 1900, ElMin: 200, ElMax: 1800, Valid: true}
}

func TestAzToADC_InvalidCalibration(t *testing.T) {
	if _, ok := AzToADC(calibration.Calibration{}, 90); ok {
		t.Error("AzToADC should fail with an invalid calibration")
	}
}

func TestAzRoundTrip(t *testing.T) {
	cal := testCal()
	for _, deg := range []float64{0, 1, 90, 180, 359.5, 450} {
		counts, ok := AzToADC(cal, deg)
		if !ok {
			t.Fatalf("AzToADC(%v) not ok", deg)
		}
		back, ok := ADCToAz(cal, counts)
		if !ok {
			t.Fatalf("ADCToAz(%v) not ok", counts)
		}
		clamped := clamp(deg, AzMin, AzMax)
		if math.Abs(back-clamped) > 0.5 {
			t.Errorf("round trip deg=%v -> counts=%d -> %v, want ~%v", deg, counts, back, clamped)
		}
	}
}

func TestAzToADC_ClampsOutOfRange(t *testing.T) {
	cal := testCal()
	below, _ := AzToADC(cal, -10)
	if below != cal.AzMin {
		t.Errorf("AzToADC(-10) = %d, want clamp to AzMin %d", below, cal.AzMin)
	}
	above, _ := AzToADC(cal, 999)
	if above != cal.AzMax {
		t.Errorf("AzToADC(999) = %d, want clamp to AzMax %d", above, cal.AzMax)
	}
}

func TestElToADC_AzOnlyForcesMinimum(t *testing.T) {
	cal := testCal()
	counts, ok := ElToADC(cal, 45, 0)
	if !ok {
		t.Fatal("ElToADC with elMaxDeg=0 should still report ok")
	}
	if counts != cal.ElMin {
		t.Errorf("ElToADC with elMaxDeg=0 = %d, want ElMin %d", counts, cal.ElMin)
	}
}

func TestADCToEl_AzOnlyAlwaysZero(t *testing.T) {
	cal := testCal()
	deg, ok := ADCToEl(cal, 1500, 0)
	if !ok || deg != 0 {
		t.Errorf("ADCToEl with elMaxDeg=0 = (%v, %v), want (0, true)", deg, ok)
	}
}

func TestElRoundTrip(t *testing.T) {
	cal := testCal()
	for _, ceil := range []float64{90, 180} {
		for _, deg := range []float64{0, 10, 45, ceil} {
			counts, ok := ElToADC(cal, deg, ceil)
			if !ok {
				t.Fatalf("ElToADC(%v, %v) not ok", deg, ceil)
			}
			back, ok := ADCToEl(cal, counts, ceil)
			if !ok {
				t.Fatalf("ADCToEl(%v, %v) not ok", counts, ceil)
			}
			if math.Abs(back-deg) > 0.5 {
				t.Errorf("round trip deg=%v ceil=%v -> counts=%d -> %v", deg, ceil, counts, back)
			}
		}
	}
}

func TestClampCounts(t *testing.T) {
	if got := clampCounts(-5); got != 0 {
		t.Errorf("clampCounts(-5) = %d, want 0", got)
	}
	if got := clampCounts(5000); got != 2047 {
		t.Errorf("clampCounts(5000) = %d, want 2047", got)
	}
}
