package gpio

import (
	"fmt"
	"time"

	"gobot.io/x/gobot/v2/platforms/raspi"

	"github.com/gophertribe/softsense"
)

var _ softsense.HAL = &GobotPins{}

// GobotPins drives two pins through a gobot Raspberry Pi adaptor. Pin names
// use the physical header numbering the adaptor expects ("3", "5", ...).
//
// The adaptor exposes no direction control; DigitalRead reconfigures the pin
// as an input on its own, so SetSDAOutput is a no-op and the next write
// flips the line back to an output.
type GobotPins struct {
	adaptor *raspi.Adaptor
	sda     string
	scl     string
}

func OpenGobotPins(sdaPin, sclPin string) (*GobotPins, error) {
	adaptor := raspi.NewAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("gpio: could not connect raspi adaptor: %w", err)
	}
	p := &GobotPins{adaptor: adaptor, sda: sdaPin, scl: sclPin}
	if err := adaptor.DigitalWrite(p.sda, 1); err != nil {
		return nil, fmt.Errorf("gpio: could not configure pin %s: %w", sdaPin, err)
	}
	if err := adaptor.DigitalWrite(p.scl, 1); err != nil {
		return nil, fmt.Errorf("gpio: could not configure pin %s: %w", sclPin, err)
	}
	return p, nil
}

func (p *GobotPins) Close() error {
	return p.adaptor.Finalize()
}

func (p *GobotPins) DelayMicroseconds(us int) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

func (p *GobotPins) SetSDA(high bool) {
	_ = p.adaptor.DigitalWrite(p.sda, level(high))
}

func (p *GobotPins) SetSCL(high bool) {
	_ = p.adaptor.DigitalWrite(p.scl, level(high))
}

func (p *GobotPins) ReadSDA() bool {
	val, err := p.adaptor.DigitalRead(p.sda)
	if err != nil {
		return true
	}
	return val != 0
}

func (p *GobotPins) SetSDAOutput(output bool) {}

func level(high bool) byte {
	if high {
		return 1
	}
	return 0
}
