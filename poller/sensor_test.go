package poller

import (
	"context"
	"fmt"
	"testing"

	"github.com/gophertribe/softsense"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind_Validation(t *testing.T) {
	_, err := Bind(context.Background(), KindAHT21, nil)
	assert.ErrorIs(t, err, softsense.ErrInvalidParameter)

	_, err = Bind(context.Background(), KindAHT21, NewMockDriver(DriverBehavior{
		InitFunc: func(ctx context.Context) error {
			return fmt.Errorf("init failed: %w", softsense.ErrNack)
		},
	}))
	assert.ErrorIs(t, err, softsense.ErrNack)
}

func TestSensor_NotReadyGating(t *testing.T) {
	s, err := Bind(context.Background(), KindAHT21, NewMockDriver(DriverBehavior{}))
	require.NoError(t, err)

	_, err = s.Temperature()
	assert.ErrorIs(t, err, softsense.ErrNotReady)
	_, err = s.Humidity()
	assert.ErrorIs(t, err, softsense.ErrNotReady)
	_, _, err = s.Both()
	assert.ErrorIs(t, err, softsense.ErrNotReady)
}

func TestSensor_ReadDataUpdatesCache(t *testing.T) {
	drv := NewMockDriver(DriverBehavior{
		TemperatureFunc: func() (float32, error) { return 22.5, nil },
		HumidityFunc:    func() (float32, error) { return 45.0, nil },
	})
	s, err := Bind(context.Background(), KindAHT21, drv)
	require.NoError(t, err)

	require.NoError(t, s.ReadData(context.Background()))
	assert.Equal(t, Ready, s.State())

	temp, hum, err := s.Both()
	require.NoError(t, err)
	assert.Equal(t, float32(22.5), temp)
	assert.Equal(t, float32(45.0), hum)
}

func TestSensor_ReadFailureLeavesStateUnchanged(t *testing.T) {
	drv := NewMockDriver(DriverBehavior{
		ReadFunc: func(ctx context.Context) error { return softsense.ErrBusy },
	})
	s, err := Bind(context.Background(), KindAHT21, drv)
	require.NoError(t, err)

	require.NoError(t, s.TriggerMeasurement(context.Background()))
	assert.Equal(t, Measuring, s.State())

	assert.ErrorIs(t, s.ReadData(context.Background()), softsense.ErrBusy)
	assert.Equal(t, Measuring, s.State())
}

func TestSensor_AdvanceAutomaton(t *testing.T) {
	ctx := context.Background()

	deviceState := Idle
	var triggers, reads, resets int
	readErr := error(softsense.ErrBusy)

	drv := NewMockDriver(DriverBehavior{
		TriggerFunc: func(ctx context.Context) error {
			triggers++
			deviceState = Measuring
			return nil
		},
		ReadFunc: func(ctx context.Context) error {
			reads++
			if readErr != nil {
				return readErr
			}
			deviceState = Ready
			return nil
		},
		ResetFunc: func(ctx context.Context) error {
			resets++
			deviceState = Idle
			return nil
		},
		TemperatureFunc: func() (float32, error) { return 21.0, nil },
		HumidityFunc:    func() (float32, error) { return 40.0, nil },
		StateFunc:       func() State { return deviceState },
	})
	s, err := Bind(ctx, KindAHT21, drv)
	require.NoError(t, err)

	// Idle: advance triggers
	s.advance(ctx)
	assert.Equal(t, 1, triggers)
	assert.Equal(t, Measuring, s.State())

	// Measuring with the device still busy: read attempted, mirror kept
	s.advance(ctx)
	assert.Equal(t, 1, reads)
	assert.Equal(t, Measuring, s.State())

	// device completes: next advance reads and promotes to Ready
	readErr = nil
	s.advance(ctx)
	assert.Equal(t, 2, reads)
	assert.Equal(t, Ready, s.State())
	temp, hum, err := s.Both()
	require.NoError(t, err)
	assert.Equal(t, float32(21.0), temp)
	assert.Equal(t, float32(40.0), hum)

	// Ready is a no-op for the façade
	s.advance(ctx)
	assert.Equal(t, 1, triggers)
	assert.Equal(t, 2, reads)

	// Error state gets a reset
	deviceState = Error
	s.advance(ctx)
	assert.Equal(t, 1, resets)
	assert.Equal(t, Idle, s.State())
}

func TestSensor_ReadBlocking(t *testing.T) {
	deviceState := Idle
	polls := 0

	drv := NewMockDriver(DriverBehavior{
		TriggerFunc: func(ctx context.Context) error {
			deviceState = Measuring
			return nil
		},
		StateFunc: func() State {
			polls++
			if polls >= 3 {
				deviceState = Ready
			}
			return deviceState
		},
		TemperatureFunc: func() (float32, error) { return 19.5, nil },
		HumidityFunc:    func() (float32, error) { return 55.0, nil },
	})
	s, err := Bind(context.Background(), KindAHT21, drv)
	require.NoError(t, err)

	temp, hum, err := s.ReadBlocking(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(19.5), temp)
	assert.Equal(t, float32(55.0), hum)
	// the poll loop is iteration-bounded and exits as soon as the device
	// leaves Measuring
	assert.Less(t, polls, blockingPollLimit)
}
