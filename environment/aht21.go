package environment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gophertribe/softsense"
)

// AHT21 I2C address (7-bit)
const aht21Address = 0x38

// Commands (single command byte, trigger and init carry two fixed
// parameter bytes)
const (
	aht21CmdInit      byte = 0xBE
	aht21CmdTrigger   byte = 0xAC
	aht21CmdSoftReset byte = 0xBA
)

// Status byte bits
const (
	aht21StatusBusy       byte = 0x80
	aht21StatusCalibrated byte = 0x08
)

var (
	aht21InitArgs    = []byte{aht21CmdInit, 0x08, 0x00}
	aht21TriggerArgs = []byte{aht21CmdTrigger, 0x33, 0x00}
)

// Device timing constants (datasheet)
const (
	aht21PowerUpDelay    = 40 * time.Millisecond
	aht21InitSettle      = 10 * time.Millisecond
	aht21ResetSettle     = 20 * time.Millisecond
	aht21MeasureDuration = 80 * time.Millisecond
)

// ErrCRCMismatch is reported when payload validation is enabled and the
// checksum byte does not match the first six payload bytes.
var ErrCRCMismatch = fmt.Errorf("aht21: payload crc mismatch")

// AHT21State is the device state machine tag.
type AHT21State int

const (
	AHT21Idle AHT21State = iota
	AHT21Initializing
	AHT21WaitingForMeasurement
	AHT21Ready
	AHT21Error
)

func (s AHT21State) String() string {
	switch s {
	case AHT21Idle:
		return "idle"
	case AHT21Initializing:
		return "initializing"
	case AHT21WaitingForMeasurement:
		return "waiting-for-measurement"
	case AHT21Ready:
		return "ready"
	case AHT21Error:
		return "error"
	default:
		return "unknown"
	}
}

type AHT21Opts struct {
	// MeasureInterval is the pause between the end of one measurement
	// cycle and the start of the next one in the Tick state machine.
	MeasureInterval time.Duration
	// TickPeriod is the cadence Tick is assumed to be invoked at. All
	// state machine thresholds are tick counts derived from it; the timing
	// is only accurate if the caller's actual cadence matches.
	TickPeriod time.Duration
	// ValidateCRC enables the CRC-8 check of the 7th payload byte.
	ValidateCRC bool
}

type AHT21Opt func(*AHT21Opts)

func WithMeasureInterval(interval time.Duration) AHT21Opt {
	return func(o *AHT21Opts) {
		o.MeasureInterval = interval
	}
}

func WithTickPeriod(period time.Duration) AHT21Opt {
	return func(o *AHT21Opts) {
		o.TickPeriod = period
	}
}

func WithCRCValidation() AHT21Opt {
	return func(o *AHT21Opts) {
		o.ValidateCRC = true
	}
}

// AHT21 represents an Aosong AHT21 temperature/humidity sensor driven as a
// non-blocking state machine. Typical usage with a periodic scheduler:
//
//	s := NewAHT21(bus)
//	err := s.Init(ctx)
//	// every 5ms:
//	s.Tick(ctx)
//
// or as a one-shot blocking read:
//
//	t, h, err := s.ReadBlocking(ctx)
//
// Decoded values are trustworthy only in the Ready state; outside it they
// hold the last successfully decoded reading.
type AHT21 struct {
	transport softsense.I2CBus
	config    AHT21Opts

	state AHT21State
	// elapsed Tick invocations in the current state
	ticks int

	raw         [7]byte
	temperature float32
	humidity    float32

	measureTicks  int
	intervalTicks int
}

// NewAHT21 validates the transport and configuration; the state machine
// thresholds are tick counts derived from the tick period, so a
// non-positive period or interval is rejected with
// softsense.ErrInvalidParameter.
func NewAHT21(transport softsense.I2CBus, opts ...AHT21Opt) (*AHT21, error) {
	if transport == nil {
		return nil, fmt.Errorf("aht21: missing transport: %w", softsense.ErrInvalidParameter)
	}
	config := AHT21Opts{
		MeasureInterval: 100 * time.Millisecond,
		TickPeriod:      5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.TickPeriod <= 0 {
		return nil, fmt.Errorf("aht21: tick period %s: %w", config.TickPeriod, softsense.ErrInvalidParameter)
	}
	if config.MeasureInterval <= 0 {
		return nil, fmt.Errorf("aht21: measurement interval %s: %w", config.MeasureInterval, softsense.ErrInvalidParameter)
	}
	return &AHT21{
		transport:     transport,
		config:        config,
		state:         AHT21Idle,
		measureTicks:  int(aht21MeasureDuration / config.TickPeriod),
		intervalTicks: int(config.MeasureInterval / config.TickPeriod),
	}, nil
}

// Init waits out the power-up stabilization delay, sends the initialization
// command and verifies the calibration bit of the status register. The
// device ends up Idle on success and Error on any failure.
func (s *AHT21) Init(ctx context.Context) error {
	s.state = AHT21Initializing
	if err := wait(ctx, aht21PowerUpDelay); err != nil {
		s.state = AHT21Error
		return err
	}
	if err := s.transport.WriteToAddr(ctx, aht21Address, aht21InitArgs); err != nil {
		s.state = AHT21Error
		return fmt.Errorf("aht21: init command failed: %w", err)
	}
	if err := wait(ctx, aht21InitSettle); err != nil {
		s.state = AHT21Error
		return err
	}
	status, err := s.readStatus(ctx)
	if err != nil {
		s.state = AHT21Error
		return fmt.Errorf("aht21: status read failed: %w", err)
	}
	if status&aht21StatusCalibrated == 0 {
		s.state = AHT21Error
		return fmt.Errorf("aht21: status %#x: %w", status, softsense.ErrNotCalibrated)
	}
	s.state = AHT21Idle
	return nil
}

// SoftReset issues the reset command and returns the device to Idle
// regardless of its prior state.
func (s *AHT21) SoftReset(ctx context.Context) error {
	if err := s.transport.WriteToAddr(ctx, aht21Address, []byte{aht21CmdSoftReset}); err != nil {
		return fmt.Errorf("aht21: soft reset failed: %w", err)
	}
	if err := wait(ctx, aht21ResetSettle); err != nil {
		return err
	}
	s.state = AHT21Idle
	s.ticks = 0
	return nil
}

// TriggerMeasurement starts a measurement cycle. It fails with
// softsense.ErrBusy while a previous cycle is still pending.
func (s *AHT21) TriggerMeasurement(ctx context.Context) error {
	if s.state == AHT21WaitingForMeasurement {
		return fmt.Errorf("aht21: measurement already in progress: %w", softsense.ErrBusy)
	}
	if err := s.transport.WriteToAddr(ctx, aht21Address, aht21TriggerArgs); err != nil {
		return fmt.Errorf("aht21: trigger command failed: %w", err)
	}
	s.state = AHT21WaitingForMeasurement
	s.ticks = 0
	return nil
}

// ReadData polls the status byte and, once the device's busy bit clears,
// reads and decodes the raw payload, transitioning to Ready. While the
// device is still measuring it fails with softsense.ErrBusy and changes
// nothing; callers retry on the next tick.
func (s *AHT21) ReadData(ctx context.Context) error {
	status, err := s.readStatus(ctx)
	if err != nil {
		return fmt.Errorf("aht21: status read failed: %w", err)
	}
	if status&aht21StatusBusy != 0 {
		return fmt.Errorf("aht21: measurement pending: %w", softsense.ErrBusy)
	}
	if err := s.transport.ReadFromAddr(ctx, aht21Address, s.raw[:]); err != nil {
		return fmt.Errorf("aht21: payload read failed: %w", err)
	}
	if s.config.ValidateCRC && crc8(s.raw[:6]) != s.raw[6] {
		return ErrCRCMismatch
	}
	s.humidity = convertHumidity(s.raw[1:4])
	s.temperature = convertTemperature(s.raw[3:6])
	s.state = AHT21Ready
	s.ticks = 0
	return nil
}

// Temperature returns the last decoded temperature in Celsius. Outside the
// Ready state it fails with softsense.ErrNotReady.
func (s *AHT21) Temperature() (float32, error) {
	if s.state != AHT21Ready {
		return s.temperature, softsense.ErrNotReady
	}
	return s.temperature, nil
}

// Humidity returns the last decoded relative humidity in %RH. Outside the
// Ready state it fails with softsense.ErrNotReady.
func (s *AHT21) Humidity() (float32, error) {
	if s.state != AHT21Ready {
		return s.humidity, softsense.ErrNotReady
	}
	return s.humidity, nil
}

func (s *AHT21) State() AHT21State {
	return s.state
}

// Tick advances the state machine by one scheduler invocation. Idle
// auto-triggers a measurement; WaitingForMeasurement counts ticks up to the
// measurement duration and then attempts a read, staying put while the
// device is busy; Ready counts out the configured re-measurement interval;
// Error attempts a soft reset.
func (s *AHT21) Tick(ctx context.Context) {
	switch s.state {
	case AHT21Idle:
		_ = s.TriggerMeasurement(ctx)
	case AHT21WaitingForMeasurement:
		s.ticks++
		if s.ticks >= s.measureTicks {
			_ = s.ReadData(ctx)
		}
	case AHT21Ready:
		s.ticks++
		if s.ticks >= s.intervalTicks {
			s.state = AHT21Idle
			s.ticks = 0
		}
	case AHT21Error:
		_ = s.SoftReset(ctx)
	default:
		s.state = AHT21Idle
	}
}

// ReadBlocking triggers a measurement, waits out the measurement duration
// and reads the result, retrying shortly while the device's busy bit is
// still set. It blocks for the full cycle (roughly 80ms).
func (s *AHT21) ReadBlocking(ctx context.Context) (float32, float32, error) {
	if err := s.TriggerMeasurement(ctx); err != nil {
		return 0, 0, err
	}
	if err := wait(ctx, aht21MeasureDuration); err != nil {
		return 0, 0, err
	}
	const attempts = 15
	for i := 0; ; i++ {
		err := s.ReadData(ctx)
		if err == nil {
			break
		}
		if !errors.Is(err, softsense.ErrBusy) || i == attempts-1 {
			return 0, 0, err
		}
		if err := wait(ctx, 10*time.Millisecond); err != nil {
			return 0, 0, err
		}
	}
	return s.temperature, s.humidity, nil
}

func (s *AHT21) readStatus(ctx context.Context) (byte, error) {
	var status [1]byte
	if err := s.transport.ReadFromAddr(ctx, aht21Address, status[:]); err != nil {
		return 0, err
	}
	return status[0], nil
}

// convertHumidity decodes the 20-bit raw humidity field packed into the
// first three payload bytes after the status byte (the third byte is
// shared with the temperature field).
func convertHumidity(raw []byte) float32 {
	h := uint32(raw[0])<<12 | uint32(raw[1])<<4 | uint32(raw[2])>>4
	return float32(h) * 100.0 / 1048576.0
}

// convertTemperature decodes the 20-bit raw temperature field: the low
// nibble of the shared byte concatenated with the last two payload bytes.
func convertTemperature(raw []byte) float32 {
	t := (uint32(raw[0])&0x0F)<<16 | uint32(raw[1])<<8 | uint32(raw[2])
	return float32(t)*200.0/1048576.0 - 50.0
}

// crc8 calculates the CRC-8 checksum with initial value 0xFF and polynomial
// 0x31 (x^8 + x^5 + x^4 + 1).
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
