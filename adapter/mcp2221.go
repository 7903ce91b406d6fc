package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/gophertribe/softsense"
	"github.com/gophertribe/softsense/cmd/softsense/console"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

var ErrCommandFailed = errors.New("mcp2221: command failed")
var ErrDeviceNotFound = errors.New("mcp2221: device not found")
var ErrNotOpen = errors.New("mcp2221: device not open")

// HID command codes (datasheet section 3.1)
const (
	cmdStatusSetParameters byte = 0x10
	cmdGetI2CData          byte = 0x40
	cmdSetGPIOValues       byte = 0x50
	cmdGetGPIOValues       byte = 0x51
	cmdI2CWriteData        byte = 0x90
	cmdI2CReadData         byte = 0x91
)

var _ softsense.I2CBus = &MCP2221{}
var _ softsense.HAL = &MCP2221{}

// MCP2221 drives a Microchip MCP2221 USB-to-I2C/GPIO adapter over HID. It
// serves two roles: its hardware I2C engine is a softsense.I2CBus, and its
// four GP pins double as a softsense.HAL so the bit-banged master can run
// over them when the hardware engine cannot (e.g. peers needing clock
// stretching the engine does not support).
type MCP2221 struct {
	mx           sync.Mutex
	dev          *hid.Device
	request      []byte
	response     []byte
	responseWait time.Duration

	sdaPin int
	sclPin int
}

type MCP2221Status struct {
	I2CDataBufferCounter   int
	I2CSpeedDivider        int
	I2CTimeout             int
	CurrentAddress         string
	LastWriteRequestedSize uint16
	LastWriteSentSize      uint16
	ReadPending            int
}

type MCP2221Option func(*MCP2221)

// WithBitBangPins selects which GP pins carry the data and clock lines when
// the adapter is used as a pin capability (defaults GP0/GP1).
func WithBitBangPins(sda, scl int) MCP2221Option {
	return func(d *MCP2221) {
		d.sdaPin = sda
		d.sclPin = scl
	}
}

// WithResponseWait overrides the pause between a command write and the
// response read.
func WithResponseWait(wait time.Duration) MCP2221Option {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

func NewMCP2221(opts ...MCP2221Option) *MCP2221 {
	d := &MCP2221{
		request:      make([]byte, 64),
		response:     make([]byte, 64),
		responseWait: 10 * time.Millisecond,
		sdaPin:       0,
		sclPin:       1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open enumerates attached adapters and keeps the selected one open for the
// lifetime of the handle. With more than one adapter attached an explicit
// id is required.
func (d *MCP2221) Open(id ...int) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.dev != nil {
		return nil
	}
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return ErrDeviceNotFound
	}
	if len(devs) > 1 && len(id) == 0 {
		return fmt.Errorf("mcp2221: ambiguous device identification (%d attached)", len(devs))
	}
	idx := 0
	if len(id) > 0 {
		idx = id[0]
	}
	if idx < 0 || idx >= len(devs) {
		return fmt.Errorf("mcp2221: no device with id %d: %w", idx, ErrDeviceNotFound)
	}
	dev, err := devs[idx].Open()
	if err != nil {
		return fmt.Errorf("mcp2221: error opening device: %w", err)
	}
	d.dev = dev
	return nil
}

func (d *MCP2221) Close() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.dev == nil {
		return nil
	}
	err := d.dev.Close()
	d.dev = nil
	return err
}

// WriteToAddr performs a write transaction through the adapter's hardware
// I2C engine.
func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdI2CWriteData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	if len(buffer) > 0 {
		copy(d.request[4:], buffer)
	}
	if err := d.send(ctx, true); err != nil {
		return fmt.Errorf("mcp2221: write to %#x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		console.Debug("mcp2221: engine busy")
		return softsense.ErrBusBusy
	}
	return nil
}

// ReadFromAddr performs a read transaction through the adapter's hardware
// I2C engine and copies the received bytes into the buffer.
func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdI2CReadData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	if err := d.send(ctx, true); err != nil {
		return fmt.Errorf("mcp2221: read from %#x failed: %w", address, err)
	}
	d.resetBuffers()
	d.request[0] = cmdGetI2CData
	if err := d.send(ctx, true); err != nil {
		return fmt.Errorf("mcp2221: error getting read data: %w", err)
	}
	if d.response[1] == 0x41 {
		return fmt.Errorf("mcp2221: error reading peer data from the I2C engine: %w", ErrCommandFailed)
	}
	if d.response[3] == 127 || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("mcp2221: invalid data size byte; expected %d, got %d", len(buffer), d.response[3])
	}
	copy(buffer, d.response[4:])
	return nil
}

// Release cancels any pending transfer and returns the engine to idle.
func (d *MCP2221) Release(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	_, err := d.releaseBus(ctx)
	return err
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParameters
	if err := d.send(ctx, true); err != nil {
		return nil, fmt.Errorf("mcp2221: status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) releaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.resetBuffers()
	d.request[0] = cmdStatusSetParameters
	d.request[2] = 0x10 // cancel current transfer
	if err := d.send(ctx, true); err != nil {
		return nil, fmt.Errorf("mcp2221: transfer cancel failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// DelayMicroseconds sleeps at least the requested time. HID round trips
// dominate every edge by orders of magnitude, so the bit-banged clock over
// this adapter runs far below its configured rate; the delay is only a
// floor.
func (d *MCP2221) DelayMicroseconds(us int) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

func (d *MCP2221) SetSDA(high bool) {
	if err := d.writePin(d.sdaPin, high); err != nil {
		console.Debugf("mcp2221: sda write failed: %v", err)
	}
}

func (d *MCP2221) SetSCL(high bool) {
	if err := d.writePin(d.sclPin, high); err != nil {
		console.Debugf("mcp2221: scl write failed: %v", err)
	}
}

func (d *MCP2221) ReadSDA() bool {
	level, err := d.readPin(d.sdaPin)
	if err != nil {
		console.Debugf("mcp2221: sda read failed: %v", err)
		return true
	}
	return level
}

func (d *MCP2221) SetSDAOutput(output bool) {
	if err := d.setPinDirection(d.sdaPin, output); err != nil {
		console.Debugf("mcp2221: sda direction change failed: %v", err)
	}
}

// writePin alters a single GP pin output value through the Set GPIO Output
// Values command (four bytes per pin: alter value, value, alter direction,
// direction).
func (d *MCP2221) writePin(pin int, high bool) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdSetGPIOValues
	base := 2 + pin*4
	d.request[base] = 0x01
	if high {
		d.request[base+1] = 0x01
	}
	if err := d.send(context.Background(), true); err != nil {
		return err
	}
	if d.response[1] != 0x00 {
		return ErrCommandFailed
	}
	return nil
}

func (d *MCP2221) setPinDirection(pin int, output bool) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdSetGPIOValues
	base := 2 + pin*4
	d.request[base+2] = 0x01
	if !output {
		d.request[base+3] = 0x01
	}
	if err := d.send(context.Background(), true); err != nil {
		return err
	}
	if d.response[1] != 0x00 {
		return ErrCommandFailed
	}
	return nil
}

// readPin samples a single GP pin level through the Get GPIO Values
// command (two bytes per pin: value, direction).
func (d *MCP2221) readPin(pin int) (bool, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdGetGPIOValues
	if err := d.send(context.Background(), true); err != nil {
		return false, err
	}
	if d.response[1] != 0x00 {
		return false, ErrCommandFailed
	}
	return d.response[2+pin*2] != 0x00, nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

func (d *MCP2221) send(ctx context.Context, response bool) error {
	if d.dev == nil {
		return ErrNotOpen
	}
	verbose := console.IsVerbose(ctx)
	if verbose {
		console.Printf("sending message to adapter:\n%s\n", hex.Dump(d.request))
	}
	n, err := d.dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short write: %d", n)
	}
	if !response {
		return nil
	}
	time.Sleep(d.responseWait)
	n, err = d.dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		console.Printf("read message from adapter:\n%s\n", hex.Dump(d.response))
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0x00
	}
}
