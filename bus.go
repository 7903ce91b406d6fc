package softsense

import (
	"context"
)

// HAL is the pin and delay capability table consumed by the bit-banged bus
// master. Implementations drive the two bus lines directly (memory-mapped
// GPIO, sysfs, a USB adapter's GP pins) and provide the busy-wait delay that
// paces every bus edge. All calls are synchronous.
type HAL interface {
	// DelayMicroseconds blocks for at least the given number of microseconds.
	DelayMicroseconds(us int)
	// SetSDA drives the data line high or low. Only meaningful while the
	// data line is configured as an output.
	SetSDA(high bool)
	// SetSCL drives the clock line high or low.
	SetSCL(high bool)
	// ReadSDA samples the data line level.
	ReadSDA() bool
	// SetSDAOutput switches the data line between output (true) and
	// input (false) direction.
	SetSDAOutput(output bool)
}

type BusReader interface {
	Read(ctx context.Context, buffer []byte) error
}

type BusWriter interface {
	Write(ctx context.Context, buffer []byte) error
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is the transport contract shared by every device driver in this
// module. A transaction addresses a 7-bit peer and transfers the whole
// buffer; implementations leave the bus in the stopped state on both
// success and failure.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}

type I2CDevice interface {
	BusReader
	BusWriter
}
