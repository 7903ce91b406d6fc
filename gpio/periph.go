package gpio

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/gophertribe/softsense"
)

var _ softsense.HAL = &PeriphPins{}

// PeriphPins drives two GPIO pins through the periph.io host drivers. Pin
// names are resolved by the gpio registry, so both BCM names ("GPIO2") and
// board aliases work.
type PeriphPins struct {
	sda gpio.PinIO
	scl gpio.PinIO
}

func OpenPeriphPins(sdaName, sclName string) (*PeriphPins, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: could not init host: %w", err)
	}
	sda := gpioreg.ByName(sdaName)
	if sda == nil {
		return nil, fmt.Errorf("gpio: unknown pin %q: %w", sdaName, softsense.ErrInvalidParameter)
	}
	scl := gpioreg.ByName(sclName)
	if scl == nil {
		return nil, fmt.Errorf("gpio: unknown pin %q: %w", sclName, softsense.ErrInvalidParameter)
	}
	p := &PeriphPins{sda: sda, scl: scl}
	if err := p.sda.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("gpio: could not configure %s: %w", sdaName, err)
	}
	if err := p.scl.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("gpio: could not configure %s: %w", sclName, err)
	}
	return p, nil
}

func (p *PeriphPins) Close() error {
	return p.sda.In(gpio.PullUp, gpio.NoEdge)
}

func (p *PeriphPins) DelayMicroseconds(us int) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

func (p *PeriphPins) SetSDA(high bool) {
	_ = p.sda.Out(gpio.Level(high))
}

func (p *PeriphPins) SetSCL(high bool) {
	_ = p.scl.Out(gpio.Level(high))
}

func (p *PeriphPins) ReadSDA() bool {
	return p.sda.Read() == gpio.High
}

// SetSDAOutput switches the data line between driven and floating. Released
// means input with the pull-up engaged so the peer can drive the line.
func (p *PeriphPins) SetSDAOutput(output bool) {
	if output {
		_ = p.sda.Out(gpio.High)
	} else {
		_ = p.sda.In(gpio.PullUp, gpio.NoEdge)
	}
}
