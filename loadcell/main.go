// loadcell acquires, records and displays load-cell telemetry.
package main

import (
	"log"
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
)

var app *commander.Command

func init() {
	app = &commander.Command{
		UsageLine: "loadcell",
		Subcommands: []*commander.Command{
			lcMakeCmdRun(),
			lcMakeCmdPorts(),
			lcMakeCmdPlot(),
			lcMakeCmdListen(),
			lcMakeCmdSim(),
			lcMakeCmdDemo(),
			lcMakeCmdLocalDB(),
		},
		Flag: *flag.NewFlagSet("loadcell", flag.ExitOnError),
	}
}

func main() {
	log.SetPrefix("loadcell: ")
	log.SetFlags(0)

	err := app.Flag.Parse(os.Args[1:])
	if err != nil {
		log.Printf("error parsing flags: %v\n", err)
		os.Exit(1)
	}

	args := app.Flag.Args()
	err = app.Dispatch(args)
	if err != nil {
		log.Printf("error dispatching command: %v\n", err)
		os.Exit(1)
	}

	os.Exit(0)
}
