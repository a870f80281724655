package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"golang.org/x/net/context"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk/drivers/loadcell"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk/drivers/serial"
)

func lcMakeCmdSim() *commander.Command {
	cmd := &commander.Command{
		Run:       cmdSim,
		UsageLine: "sim [options]",
		Short:     "emulate the acquisition board",
		Long: `
sim emulates the acquisition board firmware: it prints READY, then one
telemetry frame per sample for the duration of the run, then DONE.

Frames are written to a serial port (e.g. one end of a null-modem or a
virtual pair) or, with -port=-, to the standard output.

ex:
 $ socat pty,raw,echo=0,link=/tmp/board pty,raw,echo=0,link=/tmp/host &
 $ loadcell sim -port=/tmp/board &
 $ loadcell run -port=/tmp/host
 $ loadcell sim -port=- -rate=10 -duration=2s
`,
		Flag: *flag.NewFlagSet("loadcell-sim", flag.ExitOnError),
	}
	cmd.Flag.String("port", "-", "serial port to write to (- for stdout)")
	cmd.Flag.Int("baud", serial.DefaultBaud, "serial baud rate")
	cmd.Flag.Float64("rate", loadcell.DefaultSampleRate, "sample rate (Hz)")
	cmd.Flag.Duration("duration", loadcell.DefaultDuration, "duration of the run")
	cmd.Flag.String("label", "raw", "label of the emitted value")
	cmd.Flag.Bool("realtime", true, "pace frames with the sample rate")
	return cmd
}

func cmdSim(cmdr *commander.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf(
			"invalid number of arguments. got %d. want 0",
			len(args),
		)
	}

	fw := loadcell.Firmware{
		Rate:       cmdr.Flag.Lookup("rate").Value.Get().(float64),
		Duration:   cmdr.Flag.Lookup("duration").Value.Get().(time.Duration),
		TimeLabel:  "time",
		ValueLabel: cmdr.Flag.Lookup("label").Value.Get().(string),
		Realtime:   cmdr.Flag.Lookup("realtime").Value.Get().(bool),
	}

	var w io.Writer = os.Stdout
	if port := cmdr.Flag.Lookup("port").Value.Get().(string); port != "-" {
		conn, err := serial.Open(serial.Config{
			Name: port,
			Baud: cmdr.Flag.Lookup("baud").Value.Get().(int),
		})
		if err != nil {
			return err
		}
		defer conn.Close()
		log.Printf("emulating board on %s (%v Hz, %v)\n", port, fw.Rate, fw.Duration)
		w = conn
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := fw.Run(ctx, w)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
