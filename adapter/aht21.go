package adapter

import (
	"context"

	"github.com/gophertribe/softsense/environment"
	"github.com/gophertribe/softsense/poller"
)

var _ poller.Driver = &AHT21{}

// AHT21 binds an environment.AHT21 state machine to the poller's generic
// operation table, folding the device's five states into the façade's four.
type AHT21 struct {
	dev *environment.AHT21
}

func NewAHT21(dev *environment.AHT21) *AHT21 {
	return &AHT21{dev: dev}
}

// Init is a no-op: the device is initialized by whoever constructed it,
// before it joins the scheduling pool.
func (a *AHT21) Init(ctx context.Context) error {
	return nil
}

func (a *AHT21) Reset(ctx context.Context) error {
	return a.dev.SoftReset(ctx)
}

func (a *AHT21) Trigger(ctx context.Context) error {
	return a.dev.TriggerMeasurement(ctx)
}

func (a *AHT21) Read(ctx context.Context) error {
	return a.dev.ReadData(ctx)
}

func (a *AHT21) Temperature() (float32, error) {
	return a.dev.Temperature()
}

func (a *AHT21) Humidity() (float32, error) {
	return a.dev.Humidity()
}

func (a *AHT21) State() poller.State {
	switch a.dev.State() {
	case environment.AHT21Idle:
		return poller.Idle
	case environment.AHT21WaitingForMeasurement:
		return poller.Measuring
	case environment.AHT21Ready:
		return poller.Ready
	case environment.AHT21Error:
		return poller.Error
	default:
		// Initializing and anything unknown map to Idle
		return poller.Idle
	}
}
