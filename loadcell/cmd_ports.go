package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk/drivers/serial"
)

func lcMakeCmdPorts() *commander.Command {
	cmd := &commander.Command{
		Run:       cmdPorts,
		UsageLine: "ports",
		Short:     "list serial ports",
		Long: `
ports lists the serial ports detected on this machine, with their USB details.

ex:
 $ loadcell ports
`,
		Flag: *flag.NewFlagSet("loadcell-ports", flag.ExitOnError),
	}
	return cmd
}

func cmdPorts(cmdr *commander.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf(
			"invalid number of arguments. got %d. want 0",
			len(args),
		)
	}

	ports, err := serial.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Printf("no serial port found\n")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "PORT\tVID:PID\tSERIAL\tPRODUCT\n")
	for _, p := range ports {
		ids := "-"
		if p.USB {
			ids = p.VID + ":" + p.PID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, ids, p.Serial, p.Product)
	}
	return w.Flush()
}
