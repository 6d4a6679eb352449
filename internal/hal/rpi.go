package hal

import (
	"fmt"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/wa1hco/g5500d/internal/debug"
)

// ADS1015 register protocol constants, single-shot / single-ended mode.
const (
	adsRegPointerConfig  = 0x01
	adsRegPointerConvert = 0x00

	adsConfigCQueNone    = 0x0003
	adsConfigCLatNonLat  = 0x0000
	adsConfigCPolActvLow = 0x0000
	adsConfigCModeTrad   = 0x0000
	adsConfigDR1600SPS   = 0x0080
	adsConfigModeSingle  = 0x0100
	adsConfigPGA4_096V   = 0x0200
	adsConfigOSSingle    = 0x8000

	adsMuxSingle0 = 0x4000
	adsMuxSingle1 = 0x5000
	adsMuxSingle2 = 0x6000
	adsMuxSingle3 = 0x7000

	adsConversionDelay = 1 * time.Millisecond
)

// RPiDriver drives the four relay pins through go-rpio and the ADS1015
// through a periph.io I2C bus handle.
type RPiDriver struct {
	pins    map[Pin]rpio.Pin
	bus     i2c.BusCloser
	dev     *i2c.Dev
	busName string
	addr    uint16
}

// NewRPiDriver prepares (but does not yet open) a real hardware driver
// for the given I2C bus name ("1" for /dev/i2c-1) and ADS1015 address.
func NewRPiDriver(busName string, addr uint16) *RPiDriver {
	return &RPiDriver{
		pins:    make(map[Pin]rpio.Pin),
		busName: busName,
		addr:    addr,
	}
}

func (r *RPiDriver) Init() error {
	debug.Info("opening GPIO (go-rpio)")
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	debug.Info("opening I2C bus %s for ADS1015 at 0x%02x", r.busName, r.addr)
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init periph host: %w", err)
	}
	bus, err := i2creg.Open(r.busName)
	if err != nil {
		return fmt.Errorf("open I2C bus %s: %w", r.busName, err)
	}
	r.bus = bus
	r.dev = &i2c.Dev{Bus: bus, Addr: r.addr}

	return nil
}

func (r *RPiDriver) SetPin(pin Pin, level Level) error {
	debug.Pin("SetPin", int(pin), level)

	p, ok := r.pins[pin]
	if !ok {
		p = rpio.Pin(pin)
		p.Output()
		r.pins[pin] = p
	}
	if level == Hi {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (r *RPiDriver) ReadADC(ch Channel) (uint16, bool, string) {
	var mux uint16
	switch ch {
	case ChanAz:
		mux = adsMuxSingle0
	case ChanEl:
		mux = adsMuxSingle1
	case ChanPower:
		mux = adsMuxSingle2
	default:
		mux = adsMuxSingle3
	}

	config := uint16(adsConfigCQueNone | adsConfigCLatNonLat | adsConfigCPolActvLow |
		adsConfigCModeTrad | adsConfigDR1600SPS | adsConfigModeSingle |
		adsConfigPGA4_096V | adsConfigOSSingle)
	config |= mux

	if err := r.writeReg16(adsRegPointerConfig, config); err != nil {
		return 0, false, fmt.Sprintf("write config register: %v", err)
	}

	time.Sleep(adsConversionDelay)

	raw, err := r.readReg16(adsRegPointerConvert)
	if err != nil {
		return 0, false, fmt.Sprintf("read conversion register: %v", err)
	}

	counts := raw >> 4
	if counts > 0x7FF {
		// near-ground conversions can read slightly negative
		counts = 0
	}

	debug.ADC(int(ch), counts, true)
	return counts, true, ""
}

func (r *RPiDriver) writeReg16(reg byte, value uint16) error {
	write := []byte{reg, byte(value >> 8), byte(value)}
	return r.dev.Tx(write, nil)
}

func (r *RPiDriver) readReg16(reg byte) (uint16, error) {
	read := make([]byte, 2)
	if err := r.dev.Tx([]byte{reg}, read); err != nil {
		return 0, err
	}
	return uint16(read[0])<<8 | uint16(read[1]), nil
}

func (r *RPiDriver) Shutdown() error {
	debug.Info("shutting down HAL")
	for pin, p := range r.pins {
		debug.Verbose("releasing pin %d to low", int(pin))
		p.Low()
		p.Input()
	}
	if r.bus != nil {
		if err := r.bus.Close(); err != nil {
			return err
		}
	}
	return rpio.Close()
}
