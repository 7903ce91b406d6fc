// Package softi2c implements a single-master, bit-banged two-wire bus
// engine on top of a softsense.HAL pin capability. Timing is produced by
// cooperative busy-wait delays; every call blocks for the full duration of
// the transfer (microseconds to low milliseconds) and must not be invoked
// concurrently on the same Master.
package softi2c

import (
	"context"
	"fmt"
	"time"

	"github.com/gophertribe/softsense"
)

const (
	// DefaultClockKHz is the bus clock used when no option overrides it.
	DefaultClockKHz = 100
	// DefaultTimeout bounds a single addressed transaction.
	DefaultTimeout = time.Second
)

var _ softsense.I2CBus = &Master{}

// Master drives start/stop conditions and byte transfers over
// software-toggled lines. It owns the bus for the duration of a
// transaction; no internal locking is provided.
type Master struct {
	hal      softsense.HAL
	clockKHz int
	timeout  time.Duration
	busy     bool
}

type Option func(*Master)

// WithClockKHz sets the bus clock rate. The half-bit delay between edges is
// derived from it as max(1, 500/kHz) microseconds.
func WithClockKHz(khz int) Option {
	return func(m *Master) {
		m.clockKHz = khz
	}
}

// WithTimeout bounds every addressed transaction with a deadline.
// Zero disables the per-transaction deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Master) {
		m.timeout = timeout
	}
}

// NewMaster validates the capability table and configuration and releases
// both lines into the idle (high) state.
func NewMaster(hal softsense.HAL, opts ...Option) (*Master, error) {
	if hal == nil {
		return nil, fmt.Errorf("softi2c: missing pin capability table: %w", softsense.ErrInvalidParameter)
	}
	m := &Master{
		hal:      hal,
		clockKHz: DefaultClockKHz,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clockKHz <= 0 {
		return nil, fmt.Errorf("softi2c: clock rate %d kHz: %w", m.clockKHz, softsense.ErrInvalidParameter)
	}
	m.hal.SetSDAOutput(true)
	m.hal.SetSDA(true)
	m.hal.SetSCL(true)
	return m, nil
}

// halfPeriodMicros is the wait between consecutive bus edges.
func (m *Master) halfPeriodMicros() int {
	d := 500 / m.clockKHz
	if d < 1 {
		return 1
	}
	return d
}

func (m *Master) delay() {
	m.hal.DelayMicroseconds(m.halfPeriodMicros())
}

// Start issues a start condition (data falling while clock is high) and
// marks the bus busy.
func (m *Master) Start() {
	m.hal.SetSDAOutput(true)
	m.hal.SetSDA(true)
	m.hal.SetSCL(true)
	m.delay()

	m.hal.SetSDA(false)
	m.delay()
	m.hal.SetSCL(false)

	m.busy = true
}

// Stop issues a stop condition (data rising while clock is high) and marks
// the bus idle.
func (m *Master) Stop() {
	m.hal.SetSDAOutput(true)
	m.hal.SetSCL(false)
	m.hal.SetSDA(false)
	m.delay()

	m.hal.SetSCL(true)
	m.delay()
	m.hal.SetSDA(true)
	m.delay()

	m.busy = false
}

// WriteByte shifts one byte out MSB first, then releases the data line and
// samples the peer's acknowledge bit on a ninth clock pulse. A sampled low
// level is an ACK; high reports softsense.ErrNack.
func (m *Master) WriteByte(data byte) error {
	m.hal.SetSDAOutput(true)
	m.hal.SetSCL(false)

	for i := 0; i < 8; i++ {
		m.hal.SetSDA(data&0x80 != 0)
		data <<= 1
		m.delay()
		m.hal.SetSCL(true)
		m.delay()
		m.hal.SetSCL(false)
	}

	// release the line and sample the peer's ACK
	m.hal.SetSDA(true)
	m.hal.SetSDAOutput(false)
	m.delay()
	m.hal.SetSCL(true)
	m.delay()

	nack := m.hal.ReadSDA()
	m.hal.SetSCL(false)

	if nack {
		return softsense.ErrNack
	}
	return nil
}

// ReadByte shifts one byte in MSB first, then drives the data line to the
// requested acknowledge level and pulses the clock once more to signal it.
// ack true acknowledges the byte; false signals NACK (last byte of a read).
func (m *Master) ReadByte(ack bool) byte {
	var data byte
	m.hal.SetSDAOutput(false)

	for i := 0; i < 8; i++ {
		m.hal.SetSCL(false)
		m.delay()
		m.hal.SetSCL(true)
		data <<= 1
		if m.hal.ReadSDA() {
			data |= 0x01
		}
		m.delay()
	}

	m.hal.SetSCL(false)
	m.hal.SetSDAOutput(true)
	m.hal.SetSDA(!ack)
	m.delay()
	m.hal.SetSCL(true)
	m.delay()
	m.hal.SetSCL(false)

	return data
}

// WriteToAddr performs a complete write transaction: start, address with
// the write bit, payload, stop. The bus is stopped on both success and
// failure. An empty payload is a valid address-only probe.
func (m *Master) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if m.busy {
		return softsense.ErrBusBusy
	}
	ctx, cancel := m.transactionContext(ctx)
	defer cancel()

	m.Start()
	defer m.Stop()

	if err := m.WriteByte(address << 1); err != nil {
		return fmt.Errorf("softi2c: address %#x write phase: %w", address, err)
	}
	for i, b := range buffer {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("softi2c: write to %#x interrupted: %w", address, err)
		}
		if err := m.WriteByte(b); err != nil {
			return fmt.Errorf("softi2c: data byte %d to %#x: %w", i, address, err)
		}
	}
	return nil
}

// ReadFromAddr performs a complete read transaction: start, address with
// the read bit, then one ReadByte per buffer byte, acknowledging every byte
// except the last. The bus is stopped on both success and failure.
func (m *Master) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if len(buffer) == 0 {
		return fmt.Errorf("softi2c: zero-length read from %#x: %w", address, softsense.ErrInvalidParameter)
	}
	if m.busy {
		return softsense.ErrBusBusy
	}
	ctx, cancel := m.transactionContext(ctx)
	defer cancel()

	m.Start()
	defer m.Stop()

	if err := m.WriteByte(address<<1 | 0x01); err != nil {
		return fmt.Errorf("softi2c: address %#x read phase: %w", address, err)
	}
	for i := range buffer {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("softi2c: read from %#x interrupted: %w", address, err)
		}
		buffer[i] = m.ReadByte(i < len(buffer)-1)
	}
	return nil
}

// Release forces the bus back into the stopped state if a prior manual
// Start was never closed.
func (m *Master) Release(ctx context.Context) error {
	if m.busy {
		m.Stop()
	}
	return nil
}

func (m *Master) transactionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.timeout)
}
