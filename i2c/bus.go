// Package i2c exposes kernel-managed I2C controllers as a softsense bus.
// Use it when the platform has a hardware controller wired to the sensor
// lines; the bit-banged master in softi2c covers everything else.
package i2c

import (
	"context"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/gophertribe/softsense"
)

var _ softsense.I2CBus = &HardwareBus{}

// HardwareBus wraps a periph.io I2C bus. The bus name follows the periph
// registry conventions ("/dev/i2c-1", "1", or "" for the platform default).
type HardwareBus struct {
	bus i2c.BusCloser
}

func NewHardwareBus(dev string) (*HardwareBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("loaded host driver", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return &HardwareBus{
		bus: bus,
	}, nil
}

func (b *HardwareBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *HardwareBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

// Release is a no-op; the kernel driver terminates every transaction with a
// stop condition on its own.
func (b *HardwareBus) Release(ctx context.Context) error {
	return nil
}

func (b *HardwareBus) Close() error {
	return b.bus.Close()
}
