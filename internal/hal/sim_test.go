package hal

import (
	"testing"
	"time"
)

func TestSimDriver_InitStartsAtZero(t *testing.T) {
	s := NewSimDriver(1, 2, 3, 4)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	az, ok, _ := s.ReadADC(ChanAz)
	if !ok || az != 0 {
		t.Errorf("fresh SimDriver az = %d, want 0", az)
	}
}

func TestSimDriver_PowerOKToggle(t *testing.T) {
	s := NewSimDriver(1, 2, 3, 4)
	s.Init()
	pow, _, _ := s.ReadADC(ChanPower)
	if pow != 2000 {
		t.Errorf("powerOK counts = %d, want 2000", pow)
	}
	s.SetPowerOK(false)
	pow, _, _ = s.ReadADC(ChanPower)
	if pow != 500 {
		t.Errorf("power-lost counts = %d, want 500", pow)
	}
}

func TestSimDriver_DriveAzAdvancesCounts(t *testing.T) {
	s := NewSimDriver(1, 2, 3, 4)
	s.Init()
	s.SetPin(1, Hi) // azCW
	// ~2 counts at the simulated azimuth rate
	time.Sleep(50 * time.Millisecond)
	az, _, _ := s.ReadADC(ChanAz)
	if az == 0 {
		t.Error("commanding azCW should advance synthetic az counts after elapsed time")
	}
}

func TestSimDriver_StoppedAxisDoesNotDrift(t *testing.T) {
	s := NewSimDriver(1, 2, 3, 4)
	s.Init()
	// neither azCW nor azCCW is driven
	time.Sleep(10 * time.Millisecond)
	az, _, _ := s.ReadADC(ChanAz)
	if az != 0 {
		t.Errorf("az counts drifted to %d with no commanded direction", az)
	}
}

func TestSimDriver_Reset(t *testing.T) {
	s := NewSimDriver(1, 2, 3, 4)
	s.Init()
	s.SetPin(1, Hi)
	time.Sleep(10 * time.Millisecond)
	s.ReadADC(ChanAz)

	s.Reset(500, 700)
	az, _, _ := s.ReadADC(ChanAz)
	el, _, _ := s.ReadADC(ChanEl)
	if az != 500 || el != 700 {
		t.Errorf("after Reset(500, 700), got az=%d el=%d", az, el)
	}
}

func TestSimDriver_ClampsAtMax(t *testing.T) {
	s := NewSimDriver(1, 2, 3, 4)
	s.Init()
	s.Reset(AzSimMaxADC, 0)
	s.SetPin(1, Hi)
	time.Sleep(10 * time.Millisecond)
	az, _, _ := s.ReadADC(ChanAz)
	if az > AzSimMaxADC {
		t.Errorf("az counts = %d, should clamp at %d", az, AzSimMaxADC)
	}
}
