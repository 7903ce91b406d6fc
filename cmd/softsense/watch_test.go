package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophertribe/softsense"
	"github.com/gophertribe/softsense/adapter"
	"github.com/gophertribe/softsense/environment"
	"github.com/gophertribe/softsense/poller"
)

type scriptedBus struct {
	writes [][]byte
	reads  [][]byte
}

func (b *scriptedBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.writes = append(b.writes, append([]byte(nil), buffer...))
	return nil
}

func (b *scriptedBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if len(b.reads) == 0 {
		return softsense.ErrNack
	}
	copy(buffer, b.reads[0])
	b.reads = b.reads[1:]
	return nil
}

func (b *scriptedBus) Release(ctx context.Context) error {
	return nil
}

func TestNewReading(t *testing.T) {
	assert.True(t, newReading(environment.AHT21WaitingForMeasurement, environment.AHT21Ready))
	assert.True(t, newReading(environment.AHT21Idle, environment.AHT21Ready))
	assert.False(t, newReading(environment.AHT21Ready, environment.AHT21Ready))
	assert.False(t, newReading(environment.AHT21Ready, environment.AHT21Idle))
	assert.False(t, newReading(environment.AHT21Idle, environment.AHT21WaitingForMeasurement))
}

// When the device's own tick completes the read, the facade sees Ready as a
// no-op and its mirror stays in Measuring. The watch loop must still report
// the reading, so it watches the device state, not the mirror.
func TestWatchLoop_DeviceTickWinsRace(t *testing.T) {
	ctx := context.Background()
	bus := &scriptedBus{}
	dev, err := environment.NewAHT21(bus)
	require.NoError(t, err)

	registry := poller.NewRegistry()
	sensor, err := poller.Bind(ctx, poller.KindAHT21, adapter.NewAHT21(dev))
	require.NoError(t, err)
	require.NoError(t, registry.Register(sensor))

	last := dev.State()
	step := func() {
		last = dev.State()
		dev.Tick(ctx)
		registry.AdvanceAll(ctx)
	}

	// trigger pass, then count up to the measurement threshold
	step()
	require.Equal(t, environment.AHT21WaitingForMeasurement, dev.State())
	for i := 0; i < 15; i++ {
		step()
	}

	// status clear, payload 50.0/50.0: the device tick reads first and the
	// facade's advance in the same pass is a no-op
	bus.reads = [][]byte{{0x1C}, {0x1C, 0x80, 0x00, 0x08, 0x00, 0x00, 0x00}}
	step()
	require.Equal(t, environment.AHT21Ready, dev.State())
	assert.NotEqual(t, poller.Ready, sensor.State())

	// the device transition still reports the reading
	assert.True(t, newReading(last, dev.State()))
	temp, err := dev.Temperature()
	require.NoError(t, err)
	assert.Equal(t, float32(50.0), temp)
	hum, err := dev.Humidity()
	require.NoError(t, err)
	assert.Equal(t, float32(50.0), hum)
}
