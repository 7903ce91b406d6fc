// Package poller multiplexes heterogeneous sensor state machines behind one
// handle type and one periodic scheduling call. A Sensor mirrors its
// device's state into a simplified four-state automaton and caches the last
// successfully read values; a Registry advances every bound sensor once per
// AdvanceAll invocation.
//
// The package is single-threaded by design: AdvanceAll and all registry
// mutations are expected to run from one non-reentrant scheduling context,
// typically a recurring timer tick. No internal locking is provided.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gophertribe/softsense"
)

// State is the façade's simplified state mirror. It is coarser than the
// underlying device's own state machine (device initialization shows up
// here as Idle).
type State int

const (
	Idle State = iota
	Measuring
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Measuring:
		return "measuring"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Kind tags the sensor model bound to a handle.
type Kind string

const (
	KindUnknown Kind = ""
	KindAHT21   Kind = "aht21"
	KindSHT30   Kind = "sht30"
	KindDHT11   Kind = "dht11"
	KindDHT22   Kind = "dht22"
)

// Driver is the polymorphic operation table a device adapter implements to
// join the scheduling pool. Trigger and Read report softsense.ErrBusy when
// the device cannot serve them yet; callers treat that as "retry on the
// next tick".
type Driver interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
	Trigger(ctx context.Context) error
	Read(ctx context.Context) error
	Temperature() (float32, error)
	Humidity() (float32, error)
	State() State
}

const (
	// blockingPollLimit bounds ReadBlocking's state poll by iteration
	// count, not wall-clock time.
	blockingPollLimit    = 1000
	blockingPollInterval = time.Millisecond
)

// Sensor is the generic non-blocking handle binding one device driver to
// the scheduling pool. Cached values are updated only by a successful
// ReadData and served only while the mirrored state is Ready.
type Sensor struct {
	kind   Kind
	driver Driver
	state  State

	temperature float32
	humidity    float32
}

// Bind associates a handle with a concrete device driver and runs the
// driver's initialization.
func Bind(ctx context.Context, kind Kind, driver Driver) (*Sensor, error) {
	if driver == nil {
		return nil, fmt.Errorf("poller: missing driver: %w", softsense.ErrInvalidParameter)
	}
	if err := driver.Init(ctx); err != nil {
		return nil, fmt.Errorf("poller: %s driver init failed: %w", kind, err)
	}
	return &Sensor{kind: kind, driver: driver, state: Idle}, nil
}

func (s *Sensor) Kind() Kind {
	return s.kind
}

// State returns the mirrored façade state.
func (s *Sensor) State() State {
	return s.state
}

// Reset resets the underlying device and returns the mirror to Idle on
// success.
func (s *Sensor) Reset(ctx context.Context) error {
	if err := s.driver.Reset(ctx); err != nil {
		return err
	}
	s.state = Idle
	return nil
}

// TriggerMeasurement starts a measurement cycle on the underlying device
// and moves the mirror to Measuring on success.
func (s *Sensor) TriggerMeasurement(ctx context.Context) error {
	if err := s.driver.Trigger(ctx); err != nil {
		return err
	}
	s.state = Measuring
	return nil
}

// ReadData reads and decodes the pending measurement. On success it updates
// the cached values and moves the mirror to Ready; on failure nothing
// changes.
func (s *Sensor) ReadData(ctx context.Context) error {
	if err := s.driver.Read(ctx); err != nil {
		return err
	}
	temp, err := s.driver.Temperature()
	if err != nil {
		return err
	}
	hum, err := s.driver.Humidity()
	if err != nil {
		return err
	}
	s.temperature = temp
	s.humidity = hum
	s.state = Ready
	return nil
}

// Temperature returns the cached temperature; it fails with
// softsense.ErrNotReady unless the mirrored state is Ready.
func (s *Sensor) Temperature() (float32, error) {
	if s.state != Ready {
		return 0, softsense.ErrNotReady
	}
	return s.temperature, nil
}

// Humidity returns the cached humidity; it fails with
// softsense.ErrNotReady unless the mirrored state is Ready.
func (s *Sensor) Humidity() (float32, error) {
	if s.state != Ready {
		return 0, softsense.ErrNotReady
	}
	return s.humidity, nil
}

// Both returns the cached temperature and humidity; it fails with
// softsense.ErrNotReady unless the mirrored state is Ready.
func (s *Sensor) Both() (float32, float32, error) {
	if s.state != Ready {
		return 0, 0, softsense.ErrNotReady
	}
	return s.temperature, s.humidity, nil
}

// ReadBlocking triggers a measurement, polls the driver state for a bounded
// number of iterations and then performs the read. It stalls for the full
// measurement duration and is meant for callers without a scheduling loop.
func (s *Sensor) ReadBlocking(ctx context.Context) (float32, float32, error) {
	if err := s.TriggerMeasurement(ctx); err != nil {
		return 0, 0, err
	}
	for i := 0; i < blockingPollLimit; i++ {
		if s.driver.State() != Measuring {
			break
		}
		if err := wait(ctx, blockingPollInterval); err != nil {
			return 0, 0, err
		}
	}
	for i := 0; ; i++ {
		err := s.ReadData(ctx)
		if err == nil {
			break
		}
		if !errors.Is(err, softsense.ErrBusy) || i == blockingPollLimit-1 {
			return 0, 0, err
		}
		if err := wait(ctx, blockingPollInterval); err != nil {
			return 0, 0, err
		}
	}
	return s.Both()
}

// advance executes one step of the generic automaton, dispatching on the
// device's live state: Idle triggers, Measuring attempts a read, Error
// attempts a reset. Ready is a no-op; re-measure timing belongs to the
// device state machine and is not duplicated here. Busy errors are
// expected and retried on the next call.
func (s *Sensor) advance(ctx context.Context) {
	switch s.driver.State() {
	case Idle:
		_ = s.TriggerMeasurement(ctx)
	case Measuring:
		_ = s.ReadData(ctx)
	case Ready:
	case Error:
		_ = s.Reset(ctx)
	}
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
