package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/gophertribe/softsense"
	"github.com/gophertribe/softsense/adapter"
	"github.com/gophertribe/softsense/gpio"
	"github.com/gophertribe/softsense/i2c"
	"github.com/gophertribe/softsense/softi2c"
)

// busFlags are shared by every command that talks to the bus.
var busFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "transport",
		Value: "soft",
		Usage: "bus backend: soft, i2c or mcp2221",
	},
	&cli.StringFlag{
		Name:  "hal",
		Value: "rpio",
		Usage: "pin backend for the soft transport: rpio, periph, gobot or mcp2221",
	},
	&cli.StringFlag{
		Name:  "dev",
		Value: "/dev/i2c-1",
		Usage: "i2c device for the i2c transport",
	},
	&cli.StringFlag{
		Name:  "sda",
		Value: "2",
		Usage: "data pin for the soft transport",
	},
	&cli.StringFlag{
		Name:  "scl",
		Value: "3",
		Usage: "clock pin for the soft transport",
	},
	&cli.IntFlag{
		Name:  "clock",
		Value: softi2c.DefaultClockKHz,
		Usage: "soft transport clock in kHz",
	},
	&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
}

func busConfigFromFlags(c *cli.Context) BusConfig {
	cfg := defaultConfig().Bus
	cfg.Transport = c.String("transport")
	cfg.HAL = c.String("hal")
	cfg.Device = c.String("dev")
	cfg.SDAPin = c.String("sda")
	cfg.SCLPin = c.String("scl")
	cfg.ClockKHz = c.Int("clock")
	return cfg
}

// openBus builds the transport described by the config. The returned closer
// tears down whatever backend was opened and is always safe to call.
func openBus(cfg BusConfig) (softsense.I2CBus, func() error, error) {
	switch cfg.Transport {
	case "soft":
		hal, closeHAL, err := openHAL(cfg)
		if err != nil {
			return nil, noopClose, err
		}
		master, err := softi2c.NewMaster(hal,
			softi2c.WithClockKHz(cfg.ClockKHz),
			softi2c.WithTimeout(cfg.Timeout()),
		)
		if err != nil {
			_ = closeHAL()
			return nil, noopClose, err
		}
		return master, closeHAL, nil
	case "i2c":
		bus, err := i2c.NewHardwareBus(cfg.Device)
		if err != nil {
			return nil, noopClose, err
		}
		return bus, bus.Close, nil
	case "mcp2221":
		mcp := adapter.NewMCP2221()
		if err := mcp.Open(); err != nil {
			return nil, noopClose, err
		}
		return mcp, mcp.Close, nil
	default:
		return nil, noopClose, fmt.Errorf("unknown transport %q: %w", cfg.Transport, softsense.ErrInvalidParameter)
	}
}

func openHAL(cfg BusConfig) (softsense.HAL, func() error, error) {
	switch cfg.HAL {
	case "rpio":
		sda, scl, err := numericPins(cfg)
		if err != nil {
			return nil, noopClose, err
		}
		pins, err := gpio.OpenRPiPins(sda, scl)
		if err != nil {
			return nil, noopClose, err
		}
		return pins, pins.Close, nil
	case "periph":
		pins, err := gpio.OpenPeriphPins(cfg.SDAPin, cfg.SCLPin)
		if err != nil {
			return nil, noopClose, err
		}
		return pins, pins.Close, nil
	case "gobot":
		pins, err := gpio.OpenGobotPins(cfg.SDAPin, cfg.SCLPin)
		if err != nil {
			return nil, noopClose, err
		}
		return pins, pins.Close, nil
	case "mcp2221":
		sda, scl, err := numericPins(cfg)
		if err != nil {
			return nil, noopClose, err
		}
		mcp := adapter.NewMCP2221(adapter.WithBitBangPins(sda, scl))
		if err := mcp.Open(); err != nil {
			return nil, noopClose, err
		}
		return mcp, mcp.Close, nil
	default:
		return nil, noopClose, fmt.Errorf("unknown pin backend %q: %w", cfg.HAL, softsense.ErrInvalidParameter)
	}
}

func numericPins(cfg BusConfig) (int, int, error) {
	sda, err := strconv.Atoi(cfg.SDAPin)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sda pin %q: %w", cfg.SDAPin, softsense.ErrInvalidParameter)
	}
	scl, err := strconv.Atoi(cfg.SCLPin)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid scl pin %q: %w", cfg.SCLPin, softsense.ErrInvalidParameter)
	}
	return sda, scl, nil
}

func noopClose() error {
	return nil
}
