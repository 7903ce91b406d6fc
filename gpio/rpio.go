// Package gpio provides pin capabilities for the bit-banged bus master on
// top of several Raspberry Pi GPIO access libraries.
package gpio

import (
	"fmt"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/gophertribe/softsense"
)

var _ softsense.HAL = &RPiPins{}

// RPiPins drives two Raspberry Pi GPIO pins through /dev/gpiomem using
// go-rpio. Pin numbers follow the BCM numbering scheme.
type RPiPins struct {
	sda rpio.Pin
	scl rpio.Pin
}

// OpenRPiPins maps the GPIO memory range and configures both pins. The clock
// line is always an output; the data line starts as an output and changes
// direction during transfers. The data line keeps its pull-up resistor
// engaged so it floats high while in input mode.
func OpenRPiPins(sdaPin, sclPin int) (*RPiPins, error) {
	if sdaPin < 0 || sclPin < 0 || sdaPin == sclPin {
		return nil, fmt.Errorf("gpio: invalid pin assignment sda=%d scl=%d: %w", sdaPin, sclPin, softsense.ErrInvalidParameter)
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("gpio: could not map gpio memory: %w", err)
	}
	p := &RPiPins{
		sda: rpio.Pin(sdaPin),
		scl: rpio.Pin(sclPin),
	}
	p.sda.PullUp()
	p.sda.Output()
	p.scl.Output()
	p.sda.High()
	p.scl.High()
	return p, nil
}

func (p *RPiPins) Close() error {
	p.sda.Input()
	return rpio.Close()
}

func (p *RPiPins) DelayMicroseconds(us int) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

func (p *RPiPins) SetSDA(high bool) {
	if high {
		p.sda.High()
	} else {
		p.sda.Low()
	}
}

func (p *RPiPins) SetSCL(high bool) {
	if high {
		p.scl.High()
	} else {
		p.scl.Low()
	}
}

func (p *RPiPins) ReadSDA() bool {
	return p.sda.Read() == rpio.High
}

func (p *RPiPins) SetSDAOutput(output bool) {
	if output {
		p.sda.Output()
	} else {
		p.sda.Input()
	}
}
