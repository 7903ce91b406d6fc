package adapter

import (
	"context"
	"testing"

	"github.com/gophertribe/softsense"
	"github.com/gophertribe/softsense/environment"
	"github.com/gophertribe/softsense/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedBus records writes and serves queued read responses.
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

func TestAHT21_StateMapping(t *testing.T) {
	bus := &scriptedBus{}
	dev, err := environment.NewAHT21(bus)
	require.NoError(t, err)
	drv := NewAHT21(dev)

	assert.Equal(t, poller.Idle, drv.State())

	require.NoError(t, dev.TriggerMeasurement(context.Background()))
	assert.Equal(t, poller.Measuring, drv.State())

	// status clear, payload decoding to 50.0/50.0
	bus.reads = [][]byte{{0x1C}, {0x1C, 0x80, 0x00, 0x08, 0x00, 0x00, 0x00}}
	require.NoError(t, dev.ReadData(context.Background()))
	assert.Equal(t, poller.Ready, drv.State())
}

func TestAHT21_EndToEnd(t *testing.T) {
	ctx := context.Background()
	bus := &scriptedBus{}
	dev, err := environment.NewAHT21(bus)
	require.NoError(t, err)

	reg := poller.NewRegistry()
	sensor, err := poller.Bind(ctx, poller.KindAHT21, NewAHT21(dev))
	require.NoError(t, err)
	require.NoError(t, reg.Register(sensor))

	// an idle handle gets triggered by the scheduler
	reg.AdvanceAll(ctx)
	assert.Equal(t, poller.Measuring, sensor.State())
	require.Len(t, bus.writes, 1)
	assert.Equal(t, []byte{0xAC, 0x33, 0x00}, bus.writes[0])

	// device still measuring: the read attempt reports busy and the
	// handle stays in Measuring
	bus.reads = [][]byte{{0x8C}}
	reg.AdvanceAll(ctx)
	assert.Equal(t, poller.Measuring, sensor.State())
	_, err = sensor.Temperature()
	assert.ErrorIs(t, err, softsense.ErrNotReady)

	// measurement completed: the next advance reads, decodes and caches
	bus.reads = [][]byte{{0x1C}, {0x1C, 0x80, 0x00, 0x08, 0x00, 0x00, 0x00}}
	reg.AdvanceAll(ctx)
	assert.Equal(t, poller.Ready, sensor.State())

	temp, hum, err := sensor.Both()
	require.NoError(t, err)
	assert.Equal(t, float32(50.0), temp)
	assert.Equal(t, float32(50.0), hum)
}
