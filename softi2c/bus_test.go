package softi2c

import (
	"context"
	"testing"

	"github.com/gophertribe/softsense"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// peerHAL simulates the far end of the bus at the pin level: it decodes
// start/stop conditions and byte transfers from the edges the master
// produces, acknowledges written bytes and serves queued read bytes.
type peerHAL struct {
	sda   bool
	scl   bool
	sdaIn bool

	delays []int

	starts int
	stops  int

	cur     byte
	bit     int
	written []byte

	// per written byte; true makes the peer NACK that byte
	nacks  []bool
	ackIdx int
	// set after a complete written byte, consumed by the master's ack sample
	pendingAck bool

	readQueue []byte
	readBits  int
	// set after serving the 8th bit of a read byte; the next clock rise
	// with the master driving carries the master's ack/nack level
	expectMasterAck bool
	masterAcks      []bool
}

func (h *peerHAL) DelayMicroseconds(us int) {
	h.delays = append(h.delays, us)
}

func (h *peerHAL) SetSDA(high bool) {
	if h.scl {
		if !high && h.sda {
			h.starts++
			h.cur, h.bit = 0, 0
			h.pendingAck = false
		}
		if high && !h.sda {
			h.stops++
		}
	}
	h.sda = high
}

func (h *peerHAL) SetSCL(high bool) {
	if high && !h.scl {
		h.onClockRise()
	}
	h.scl = high
}

func (h *peerHAL) ReadSDA() bool {
	if h.pendingAck {
		h.pendingAck = false
		nack := false
		if h.ackIdx < len(h.nacks) {
			nack = h.nacks[h.ackIdx]
		}
		h.ackIdx++
		return nack
	}
	byteIdx := h.readBits / 8
	h.readBits++
	if h.readBits%8 == 0 {
		h.expectMasterAck = true
	}
	if byteIdx >= len(h.readQueue) {
		return true
	}
	return h.readQueue[byteIdx]&(0x80>>((h.readBits-1)%8)) != 0
}

func (h *peerHAL) SetSDAOutput(output bool) {
	h.sdaIn = !output
}

func (h *peerHAL) onClockRise() {
	if h.sdaIn {
		// master is listening: peer ack sample or read data bit
		return
	}
	if h.expectMasterAck {
		h.masterAcks = append(h.masterAcks, h.sda)
		h.expectMasterAck = false
		return
	}
	h.cur = h.cur << 1
	if h.sda {
		h.cur |= 0x01
	}
	h.bit++
	if h.bit == 8 {
		h.written = append(h.written, h.cur)
		h.cur, h.bit = 0, 0
		h.pendingAck = true
	}
}

func TestMaster_Validation(t *testing.T) {
	_, err := NewMaster(nil)
	assert.ErrorIs(t, err, softsense.ErrInvalidParameter)

	_, err = NewMaster(&peerHAL{}, WithClockKHz(0))
	assert.ErrorIs(t, err, softsense.ErrInvalidParameter)

	_, err = NewMaster(&peerHAL{}, WithClockKHz(-10))
	assert.ErrorIs(t, err, softsense.ErrInvalidParameter)
}

func TestMaster_HalfPeriod(t *testing.T) {
	tests := []struct {
		clockKHz int
		expected int
	}{
		{1, 500},
		{10, 50},
		{100, 5},
		{333, 1},
		{500, 1},
		{1000, 1},
	}
	for _, test := range tests {
		m, err := NewMaster(&peerHAL{}, WithClockKHz(test.clockKHz))
		require.NoError(t, err)
		assert.Equal(t, test.expected, m.halfPeriodMicros(), "clock %d kHz", test.clockKHz)
	}
}

func TestMaster_WriteTransaction(t *testing.T) {
	hal := &peerHAL{}
	m, err := NewMaster(hal)
	require.NoError(t, err)

	err = m.WriteToAddr(context.Background(), 0x38, []byte{0xAC, 0x33, 0x00})
	require.NoError(t, err)

	assert.Equal(t, []byte{0x70, 0xAC, 0x33, 0x00}, hal.written)
	assert.Equal(t, 1, hal.starts)
	assert.Equal(t, 1, hal.stops)
}

func TestMaster_AddressOnlyProbe(t *testing.T) {
	hal := &peerHAL{}
	m, err := NewMaster(hal)
	require.NoError(t, err)

	require.NoError(t, m.WriteToAddr(context.Background(), 0x38, nil))
	assert.Equal(t, []byte{0x70}, hal.written)
	assert.Equal(t, 1, hal.stops)
}

func TestMaster_NackAtAddress(t *testing.T) {
	hal := &peerHAL{nacks: []bool{true}}
	m, err := NewMaster(hal)
	require.NoError(t, err)

	err = m.WriteToAddr(context.Background(), 0x38, []byte{0xAC})
	assert.ErrorIs(t, err, softsense.ErrNack)
	// no partial transaction left open
	assert.Equal(t, 1, hal.stops)
	assert.Equal(t, []byte{0x70}, hal.written)
}

func TestMaster_NackAtDataPhase(t *testing.T) {
	hal := &peerHAL{nacks: []bool{false, true}}
	m, err := NewMaster(hal)
	require.NoError(t, err)

	err = m.WriteToAddr(context.Background(), 0x38, []byte{0xAC, 0x33})
	assert.ErrorIs(t, err, softsense.ErrNack)
	assert.Equal(t, 1, hal.stops)
	// transfer aborted after the refused byte
	assert.Equal(t, []byte{0x70, 0xAC}, hal.written)
}

func TestMaster_ReadTransaction(t *testing.T) {
	hal := &peerHAL{readQueue: []byte{0x1C, 0xA5}}
	m, err := NewMaster(hal)
	require.NoError(t, err)

	buf := make([]byte, 2)
	err = m.ReadFromAddr(context.Background(), 0x38, buf)
	require.NoError(t, err)

	assert.Equal(t, []byte{0x1C, 0xA5}, buf)
	// address with the read bit set
	assert.Equal(t, []byte{0x71}, hal.written)
	// every byte acknowledged (low) except the last (high)
	assert.Equal(t, []bool{false, true}, hal.masterAcks)
	assert.Equal(t, 1, hal.starts)
	assert.Equal(t, 1, hal.stops)
}

func TestMaster_ZeroLengthRead(t *testing.T) {
	m, err := NewMaster(&peerHAL{})
	require.NoError(t, err)

	err = m.ReadFromAddr(context.Background(), 0x38, nil)
	assert.ErrorIs(t, err, softsense.ErrInvalidParameter)
}

func TestMaster_BusyGuard(t *testing.T) {
	hal := &peerHAL{}
	m, err := NewMaster(hal)
	require.NoError(t, err)

	m.Start()
	assert.ErrorIs(t, m.WriteToAddr(context.Background(), 0x38, nil), softsense.ErrBusBusy)
	assert.ErrorIs(t, m.ReadFromAddr(context.Background(), 0x38, make([]byte, 1)), softsense.ErrBusBusy)

	require.NoError(t, m.Release(context.Background()))
	assert.Equal(t, 1, hal.stops)
	require.NoError(t, m.WriteToAddr(context.Background(), 0x38, nil))
}

func TestMaster_ContextCancelled(t *testing.T) {
	hal := &peerHAL{}
	m, err := NewMaster(hal)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = m.WriteToAddr(ctx, 0x38, []byte{0xAC, 0x33, 0x00})
	assert.ErrorIs(t, err, context.Canceled)
	// the engine still closes the transaction
	assert.Equal(t, 1, hal.stops)
}
