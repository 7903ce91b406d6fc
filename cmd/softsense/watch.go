package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gophertribe/softsense/adapter"
	"github.com/gophertribe/softsense/cmd/softsense/console"
	"github.com/gophertribe/softsense/environment"
	"github.com/gophertribe/softsense/poller"
)

// newReading reports whether the device just completed a measurement cycle.
func newReading(prev, cur environment.AHT21State) bool {
	return cur == environment.AHT21Ready && prev != environment.AHT21Ready
}

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "poll the sensor continuously and print every completed measurement",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   "softsense.yaml",
			Usage:   "configuration file path",
		},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
	},
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = console.SetVerbose(ctx, c.Bool("verbose"))

		cfg, err := LoadConfig(c.String("config"))
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		if cfg.Sensor.Kind != string(poller.KindAHT21) {
			return console.Exit(1, "unsupported sensor kind: %s", console.Red(cfg.Sensor.Kind))
		}

		bus, closeBus, err := openBus(cfg.Bus)
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		defer func() { _ = closeBus() }()

		opts := []environment.AHT21Opt{
			environment.WithMeasureInterval(cfg.Sensor.Interval()),
			environment.WithTickPeriod(cfg.Sensor.TickPeriod()),
		}
		if cfg.Sensor.ValidateCRC {
			opts = append(opts, environment.WithCRCValidation())
		}
		dev, err := environment.NewAHT21(bus, opts...)
		if err != nil {
			return console.Exit(1, "sensor configuration error: %s", console.Red(err))
		}
		err = dev.Init(ctx)
		if err != nil {
			return console.Exit(1, "sensor initialization error: %s", console.Red(err))
		}

		registry := poller.NewRegistry()
		sensor, err := poller.Bind(ctx, poller.KindAHT21, adapter.NewAHT21(dev))
		if err != nil {
			return console.Exit(1, "sensor binding error: %s", console.Red(err))
		}
		err = registry.Register(sensor)
		if err != nil {
			return console.Exit(1, "sensor registration error: %s", console.Red(err))
		}

		console.PInfof(console.PictoSatellite, "watching %s every %s", cfg.Sensor.Kind, cfg.Sensor.Interval())
		ticker := time.NewTicker(cfg.Sensor.TickPeriod())
		defer ticker.Stop()
		// readings are reported off the device state machine: the facade
		// mirror can miss a cycle when the device's own tick completes the
		// read before the scheduler advances the handle
		last := dev.State()
		for {
			select {
			case <-ctx.Done():
				console.Info("shutting down")
				return nil
			case <-ticker.C:
				dev.Tick(ctx)
				registry.AdvanceAll(ctx)
				state := dev.State()
				if newReading(last, state) {
					temp, terr := dev.Temperature()
					hum, herr := dev.Humidity()
					if terr == nil && herr == nil {
						console.Printf("%s  %s\n%s %s\n", console.PictoThermometer, console.White(temp), console.PictoHumidity, console.White(hum))
					}
				}
				if state == environment.AHT21Error && last != environment.AHT21Error {
					console.Warn("sensor entered error state, resetting")
				}
				last = state
			}
		}
	},
}
