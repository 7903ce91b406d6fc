package main

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"

	"github.com/gophertribe/softsense/cmd/softsense/console"
	"github.com/gophertribe/softsense/environment"
)

var shellCmd = cli.Command{
	Name:  "shell",
	Usage: "interactive sensor shell",
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

		rl, err := readline.New(console.Bold("softsense> "))
		if err != nil {
			return console.Exit(1, "could not open prompt: %s", console.Red(err))
		}
		defer func() { _ = rl.Close() }()

		console.Info("commands: trigger, read, temp, hum, state, reset, quit")
		for {
			line, err := rl.Readline()
			if err != nil {
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					return nil
				}
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			switch strings.TrimSpace(line) {
			case "":
			case "trigger":
				err = dev.TriggerMeasurement(ctx)
				if err != nil {
					console.Error(err.Error())
				}
			case "read":
				err = dev.ReadData(ctx)
				if err != nil {
					console.Error(err.Error())
					continue
				}
				temp, _ := dev.Temperature()
				hum, _ := dev.Humidity()
				console.Printf("%s  %s\n%s %s\n", console.PictoThermometer, console.White(temp), console.PictoHumidity, console.White(hum))
			case "temp":
				temp, err := dev.Temperature()
				if err != nil {
					console.Error(err.Error())
					continue
				}
				console.Printf("%s  %s\n", console.PictoThermometer, console.White(temp))
			case "hum":
				hum, err := dev.Humidity()
				if err != nil {
					console.Error(err.Error())
					continue
				}
				console.Printf("%s %s\n", console.PictoHumidity, console.White(hum))
			case "state":
				console.Infof("state: %s", dev.State())
			case "reset":
				err = dev.SoftReset(ctx)
				if err != nil {
					console.Error(err.Error())
				}
			case "quit", "exit":
				if dev.State() == environment.AHT21WaitingForMeasurement {
					answer, err := console.YesOrNo("measurement in progress, quit anyway?")
					if err != nil || answer != console.Yes {
						continue
					}
				}
				return nil
			default:
				console.Warnf("unknown command: %s", line)
			}
		}
	},
}
