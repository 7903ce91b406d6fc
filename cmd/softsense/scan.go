package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/gophertribe/softsense/cmd/softsense/console"
)

// The scan probes the full 7-bit address range reserved for peers
// (0x08-0x77); addresses outside it are reserved by the protocol.
var scanCmd = cli.Command{
	Name:  "scan",
	Usage: "probe the bus for responding peers",
	Flags: busFlags,
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))

		bus, closeBus, err := openBus(busConfigFromFlags(c))
		if err != nil {
			return console.Exit(1, "bus initialization error: %s", console.Red(err))
		}
		defer func() { _ = closeBus() }()

		console.PInfof(console.PictoSearch, "scanning addresses 0x08-0x77")
		found := 0
		for addr := byte(0x08); addr <= 0x77; addr++ {
			err := bus.WriteToAddr(ctx, addr, nil)
			if err != nil {
				continue
			}
			console.PInfof(console.PictoPin, "peer at %#02x", addr)
			found++
		}
		if found == 0 {
			console.PInfof(console.PictoStop, "no peers found")
		}
		return nil
	},
}
