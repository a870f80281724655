package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/render"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/store"
)

func lcMakeCmdPlot() *commander.Command {
	cmd := &commander.Command{
		Run:       cmdPlot,
		UsageLine: "plot [options] <data.csv>",
		Short:     "plot a recorded run",
		Long: `
plot draws the whole content of a recorded CSV log into a PNG chart.

The time column is either 'time' (in seconds) or 'time_ms' (in milliseconds).

ex:
 $ loadcell plot data.csv
 $ loadcell plot -o run.png -y raw_reading -points data.csv
`,
		Flag: *flag.NewFlagSet("loadcell-plot", flag.ExitOnError),
	}
	cmd.Flag.String("o", "", "output PNG file (default: <data>.png)")
	cmd.Flag.String("y", "", "plotted column (default: first value column)")
	cmd.Flag.String("title", "Load Cell Raw Output vs Time", "chart title")
	cmd.Flag.Int("width", 1024, "chart width in pixels")
	cmd.Flag.Int("height", 512, "chart height in pixels")
	cmd.Flag.Bool("points", false, "draw points instead of a line")
	return cmd
}

func cmdPlot(cmdr *commander.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf(
			"invalid number of arguments. got %d. want 1",
			len(args),
		)
	}
	fname := args[0]

	oname := cmdr.Flag.Lookup("o").Value.Get().(string)
	if oname == "" {
		oname = strings.TrimSuffix(fname, filepath.Ext(fname)) + ".png"
	}

	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	tbl, err := store.ReadCSV(f, cmdr.Flag.Lookup("y").Value.Get().(string))
	if err != nil {
		return err
	}
	log.Printf("read %d samples (%s vs %s) from %q\n", len(tbl.X), tbl.YName, tbl.XName, fname)

	o, err := os.Create(oname)
	if err != nil {
		return err
	}
	defer o.Close()

	err = render.WriteChart(o, render.ChartOptions{
		Title:  cmdr.Flag.Lookup("title").Value.Get().(string),
		XLabel: "Time (s)",
		YLabel: tbl.YName,
		Series: tbl.YName,
		Width:  cmdr.Flag.Lookup("width").Value.Get().(int),
		Height: cmdr.Flag.Lookup("height").Value.Get().(int),
		Points: cmdr.Flag.Lookup("points").Value.Get().(bool),
	}, tbl.X, tbl.Y)
	if err != nil {
		return err
	}

	err = o.Close()
	if err != nil {
		return err
	}
	log.Printf("chart written to %q\n", oname)
	return nil
}
