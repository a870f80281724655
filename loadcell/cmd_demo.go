package main

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/config"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/render"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/render/window"
)

func lcMakeCmdDemo() *commander.Command {
	cmd := &commander.Command{
		Run:       cmdDemo,
		UsageLine: "demo [options]",
		Short:     "measure the live plot frame rate",
		Long: `
demo animates circling dots on the live plot and reports the average
number of frames per second.

ex:
 $ loadcell demo
 $ loadcell demo -display=window -frames=50000
`,
		Flag: *flag.NewFlagSet("loadcell-demo", flag.ExitOnError),
	}
	cmd.Flag.Int("frames", 5000, "number of frames to draw")
	cmd.Flag.Int("dots", 15, "number of dots")
	cmd.Flag.Float64("speed", 0.005, "angular step per frame")
	cmd.Flag.String("display", config.DisplayNone, "display of the animation (window, png, none)")
	cmd.Flag.String("png", "demo.png", "output file of the png display")
	return cmd
}

func cmdDemo(cmdr *commander.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf(
			"invalid number of arguments. got %d. want 0",
			len(args),
		)
	}

	var (
		nframes = cmdr.Flag.Lookup("frames").Value.Get().(int)
		ndots   = cmdr.Flag.Lookup("dots").Value.Get().(int)
		speed   = cmdr.Flag.Lookup("speed").Value.Get().(float64)

		disp render.Display = render.Discard
		win  *window.Window
	)
	if ndots <= 0 {
		return fmt.Errorf("invalid number of dots %d", ndots)
	}

	switch kind := cmdr.Flag.Lookup("display").Value.Get().(string); kind {
	case config.DisplayNone:
	case config.DisplayPNG:
		disp = &render.PNGFile{
			Path:  cmdr.Flag.Lookup("png").Value.Get().(string),
			Every: 100 * time.Millisecond,
		}
	case config.DisplayWindow:
		win = window.New("Dots circling", render.DefaultWidth, render.DefaultHeight)
		disp = win
	default:
		return fmt.Errorf("unknown display %q", kind)
	}

	plot, err := render.New(render.Options{
		Title:  "Dots circling",
		XLim:   [2]float64{-1, 1},
		Legend: true,
	}, disp)
	if err != nil {
		return err
	}
	for _, s := range []struct{ label, marker string }{
		{"dots", "o"},
		{"lines", "-"},
	} {
		err = plot.RegisterSeries(s.label, s.marker, 1)
		if err != nil {
			return err
		}
	}

	animate := func() error {
		xs := make([]float64, ndots)
		ys := make([]float64, ndots)
		start := time.Now()
		for i := 0; i < nframes; i++ {
			for j := range xs {
				t := 2*math.Pi/float64(ndots)*float64(j) + float64(i)*speed
				xs[j] = math.Cos(t) * math.Cos(4*t)
				ys[j] = math.Sin(t) * math.Cos(4*t)
			}

			err := plot.BeginFrame()
			if err != nil {
				return err
			}
			for _, label := range []string{"dots", "lines"} {
				err = plot.DrawSeries(label, xs, ys)
				if err != nil {
					return err
				}
			}
			err = plot.EndFrame(0)
			if err != nil {
				return err
			}
		}
		log.Printf("average FPS: %.1f\n", float64(nframes)/time.Since(start).Seconds())
		return nil
	}

	if win != nil {
		return win.Run(animate)
	}
	return animate()
}
