package poller

import (
	"context"
)

// DriverBehavior holds the behavior functions of a MockDriver. Nil entries
// fall back to benign defaults (no error, zero values, Idle state).
type DriverBehavior struct {
	InitFunc        func(ctx context.Context) error
	ResetFunc       func(ctx context.Context) error
	TriggerFunc     func(ctx context.Context) error
	ReadFunc        func(ctx context.Context) error
	TemperatureFunc func() (float32, error)
	HumidityFunc    func() (float32, error)
	StateFunc       func() State
}

// MockDriver is a behavior-function implementation of Driver for tests and
// hardware-free development, in the spirit of the behavior mocks used for
// the concrete sensor drivers.
//
// Example usage:
//
//	drv := NewMockDriver(DriverBehavior{
//		TemperatureFunc: func() (float32, error) { return 22.5, nil },
//		HumidityFunc:    func() (float32, error) { return 45.0, nil },
//	})
type MockDriver struct {
	behavior DriverBehavior
}

func NewMockDriver(behavior DriverBehavior) *MockDriver {
	return &MockDriver{behavior: behavior}
}

func (m *MockDriver) Init(ctx context.Context) error {
	if m.behavior.InitFunc == nil {
		return nil
	}
	return m.behavior.InitFunc(ctx)
}

func (m *MockDriver) Reset(ctx context.Context) error {
	if m.behavior.ResetFunc == nil {
		return nil
	}
	return m.behavior.ResetFunc(ctx)
}

func (m *MockDriver) Trigger(ctx context.Context) error {
	if m.behavior.TriggerFunc == nil {
		return nil
	}
	return m.behavior.TriggerFunc(ctx)
}

func (m *MockDriver) Read(ctx context.Context) error {
	if m.behavior.ReadFunc == nil {
		return nil
	}
	return m.behavior.ReadFunc(ctx)
}

func (m *MockDriver) Temperature() (float32, error) {
	if m.behavior.TemperatureFunc == nil {
		return 0, nil
	}
	return m.behavior.TemperatureFunc()
}

func (m *MockDriver) Humidity() (float32, error) {
	if m.behavior.HumidityFunc == nil {
		return 0, nil
	}
	return m.behavior.HumidityFunc()
}

func (m *MockDriver) State() State {
	if m.behavior.StateFunc == nil {
		return Idle
	}
	return m.behavior.StateFunc()
}
