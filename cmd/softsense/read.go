package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/gophertribe/softsense/cmd/softsense/console"
	"github.com/gophertribe/softsense/environment"
)

var readCmd = cli.Command{
	Name:  "read",
	Usage: "perform a single blocking temperature and humidity read",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "crc",
			Usage: "validate the payload checksum",
		},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))

		bus, closeBus, err := openBus(busConfigFromFlags(c))
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		defer func() { _ = closeBus() }()

		var opts []environment.AHT21Opt
		if c.Bool("crc") {
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
		temp, hum, err := dev.ReadBlocking(ctx)
		if err != nil {
			return console.Exit(1, "error getting sensor read: %s", console.Red(err))
		}
		console.Printf("%s  %s\n%s %s\n", console.PictoThermometer, console.White(temp), console.PictoHumidity, console.White(hum))
		return nil
	},
}
