package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/store"
)

func lcMakeCmdListen() *commander.Command {
	cmd := &commander.Command{
		Run:       cmdListen,
		UsageLine: "listen [options]",
		Short:     "print samples published on the telemetry bus",
		Long: `
listen joins the telemetry bus of a running acquisition and prints the
samples it receives.

ex:
 $ loadcell run -bus &
 $ loadcell listen
 $ loadcell listen -addr=tcp://192.168.0.10:40000
`,
		Flag: *flag.NewFlagSet("loadcell-listen", flag.ExitOnError),
	}
	cmd.Flag.String("addr", fwk.BusAddr, "address of the telemetry bus")
	return cmd
}

func cmdListen(cmdr *commander.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf(
			"invalid number of arguments. got %d. want 0",
			len(args),
		)
	}

	addr := cmdr.Flag.Lookup("addr").Value.Get().(string)
	bus, err := fwk.DialBus(addr)
	if err != nil {
		return fmt.Errorf("could not join telemetry bus %s: %w", addr, err)
	}
	defer bus.Close()
	log.Printf("listening on %s...\n", addr)

	done := make(chan struct{})
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		close(done)
		bus.Close()
	}()

	for {
		msg, err := bus.Recv()
		if err != nil {
			select {
			case <-done:
				return nil
			default:
				return err
			}
		}
		rec, err := store.DecodeRecord(msg)
		if err != nil {
			log.Printf("%v\n", err)
			continue
		}
		fmt.Printf(
			"%s %-20s time: %f value: %f\n",
			rec.Stamp.Format("15:04:05.000"), rec.Name, rec.X, rec.Y,
		)
	}
}
