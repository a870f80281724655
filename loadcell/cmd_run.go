package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/context"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/config"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk/drivers/loadcell"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk/drivers/serial"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/render"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/render/window"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/store"
)

func lcMakeCmdRun() *commander.Command {
	cmd := &commander.Command{
		Run:       cmdRun,
		UsageLine: "run [options]",
		Short:     "acquire and plot load-cell telemetry",
		Long: `
run reads telemetry frames from the acquisition board, keeps the trailing
window of samples and plots it live.

Settings are read from the -cfg YAML file, if any, then overridden by the
flags given on the command line.

ex:
 $ loadcell run
 $ loadcell run -port=/dev/ttyUSB0 -csv=data.csv
 $ loadcell run -cfg=bench.yaml -label=modified_weight
 $ loadcell run -display=web -addr=:8080 -bus
 $ loadcell run -mock -display=png -png=live.png
`,
		Flag: *flag.NewFlagSet("loadcell-run", flag.ExitOnError),
	}
	def := config.Default()
	cmd.Flag.String("cfg", "", "YAML configuration file")
	cmd.Flag.String("port", def.Serial.Port, "serial port of the acquisition board")
	cmd.Flag.Int("baud", def.Serial.Baud, "serial baud rate")
	cmd.Flag.Duration("timeout", def.Serial.ReadTimeout, "serial read timeout")
	cmd.Flag.Int("window", def.Window, "number of trailing samples displayed")
	cmd.Flag.Int("min-bytes", def.MinMessageBytes, "minimum size of a telemetry frame")
	cmd.Flag.String("label", def.ValueLabel, "label of the plotted value (raw, modified_weight, ...)")
	cmd.Flag.String("display", def.Display.Kind, "display of the live plot (window, png, web, none)")
	cmd.Flag.String("png", def.Display.PNG, "output file of the png display")
	cmd.Flag.String("addr", def.Display.Addr, "listen address of the web display")
	cmd.Flag.Duration("delay", def.Display.FrameDelay, "pause after each frame")
	cmd.Flag.String("csv", "", "CSV log file")
	cmd.Flag.Bool("bus", false, "publish samples on the telemetry bus")
	cmd.Flag.String("bus-addr", def.Bus.Addr, "address of the telemetry bus")
	cmd.Flag.Bool("mysql", false, "store samples in the trending database")
	cmd.Flag.String("mysql-addr", def.MySQL.Addr, "address of the trending database")
	cmd.Flag.String("mysql-user", def.MySQL.User, "trending database user")
	cmd.Flag.String("mysql-pass", "", "trending database password")
	cmd.Flag.String("log", "", "log file (rotated)")
	cmd.Flag.Bool("v", false, "enable debug messages")
	cmd.Flag.Bool("mock", false, "acquire from a simulated board")
	return cmd
}

// runConfig loads the -cfg file and applies the flags set explicitly.
func runConfig(cmdr *commander.Command) (config.Config, error) {
	var err error
	cfg := config.Default()
	if fname := cmdr.Flag.Lookup("cfg").Value.Get().(string); fname != "" {
		cfg, err = config.Load(fname)
		if err != nil {
			return cfg, err
		}
	}

	cmdr.Flag.Visit(func(f *flag.Flag) {
		v := f.Value.Get()
		switch f.Name {
		case "port":
			cfg.Serial.Port = v.(string)
		case "baud":
			cfg.Serial.Baud = v.(int)
		case "timeout":
			cfg.Serial.ReadTimeout = v.(time.Duration)
		case "window":
			cfg.Window = v.(int)
		case "min-bytes":
			cfg.MinMessageBytes = v.(int)
		case "label":
			cfg.ValueLabel = v.(string)
		case "display":
			cfg.Display.Kind = v.(string)
		case "png":
			cfg.Display.PNG = v.(string)
		case "addr":
			cfg.Display.Addr = v.(string)
		case "delay":
			cfg.Display.FrameDelay = v.(time.Duration)
		case "csv":
			cfg.CSV = v.(string)
		case "bus":
			cfg.Bus.Enable = v.(bool)
		case "bus-addr":
			cfg.Bus.Addr = v.(string)
		case "mysql":
			cfg.MySQL.Enable = v.(bool)
		case "mysql-addr":
			cfg.MySQL.Addr = v.(string)
		case "mysql-user":
			cfg.MySQL.User = v.(string)
		case "mysql-pass":
			cfg.MySQL.Password = v.(string)
		case "log":
			cfg.Log.File = v.(string)
		case "v":
			if v.(bool) {
				cfg.Log.Level = "debug"
			}
		}
	})
	return cfg, cfg.Validate()
}

func cmdRun(cmdr *commander.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf(
			"invalid number of arguments. got %d. want 0",
			len(args),
		)
	}

	cfg, err := runConfig(cmdr)
	if err != nil {
		return err
	}

	flog, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer flog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		disp render.Display
		win  *window.Window
	)
	switch cfg.Display.Kind {
	case config.DisplayWindow:
		win = window.New(cfg.Axis.Title, cfg.Display.Width, cfg.Display.Height)
		go func() {
			select {
			case <-win.Done():
				cancel()
			case <-ctx.Done():
			}
		}()
		disp = win
	case config.DisplayPNG:
		disp = &render.PNGFile{Path: cfg.Display.PNG, Every: 100 * time.Millisecond}
	case config.DisplayWeb:
		web := render.NewWeb(cfg.Axis.Title, reg)
		err = web.ListenAndServe(cfg.Display.Addr)
		if err != nil {
			return err
		}
		defer web.Close()
		disp = web
	}

	var plot *render.Plot
	if disp != nil {
		plot, err = render.New(cfg.Render(), disp)
		if err != nil {
			return err
		}
	}

	sinks, err := openSinks(ctx, cfg)
	if err != nil {
		return err
	}

	dev := loadcell.New("loadcell", cfg.LoadCell(), plot, reg, sinks...)
	if cmdr.Flag.Lookup("mock").Value.Get().(bool) {
		dev.SetOpener(mockBoard(ctx, cfg))
	}

	acq, err := fwk.New("loadcell-app", dev)
	if err != nil {
		store.Multi(sinks).Close()
		return err
	}

	run := func() error {
		err := acq.Run(ctx)
		if errors.Is(err, window.ErrClosed) {
			return nil
		}
		return err
	}
	if win != nil {
		return win.Run(run)
	}
	return run()
}

func openSinks(ctx context.Context, cfg config.Config) ([]store.Sink, error) {
	var sinks []store.Sink
	fail := func(err error) ([]store.Sink, error) {
		store.Multi(sinks).Close()
		return nil, err
	}

	if cfg.CSV != "" {
		o, err := store.CreateCSV(cfg.CSV, cfg.ValueLabel)
		if err != nil {
			return fail(err)
		}
		log.Printf("logging samples to %q\n", cfg.CSV)
		sinks = append(sinks, o)
	}

	if cfg.Bus.Enable {
		b, err := fwk.ListenBus(cfg.Bus.Addr)
		if err != nil {
			return fail(fmt.Errorf("could not create telemetry bus: %w", err))
		}
		log.Printf("publishing samples on %s\n", cfg.Bus.Addr)
		sinks = append(sinks, store.NewBus(b))
	}

	if cfg.MySQL.Enable {
		o, err := store.OpenSQL(ctx, cfg.MySQL.DBConfig)
		if err != nil {
			return fail(err)
		}
		log.Printf("storing samples in %s/%s\n", cfg.MySQL.Addr, cfg.MySQL.Name)
		sinks = append(sinks, o)
	}
	return sinks, nil
}

// mockBoard returns an opener connecting to a simulated acquisition board.
func mockBoard(ctx context.Context, cfg config.Config) loadcell.Opener {
	return func(scfg serial.Config) (*serial.Conn, error) {
		port := serial.NewLiveMock(scfg.ReadTimeout)
		fw := loadcell.Firmware{
			TimeLabel:  cfg.TimeLabel,
			ValueLabel: cfg.ValueLabel,
			Realtime:   true,
		}
		go func() {
			err := fw.Run(ctx, port.Remote())
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, serial.ErrClosed) {
				log.Printf("simulated board: %v\n", err)
			}
		}()
		return serial.NewConn("mock:"+scfg.Name, port), nil
	}
}
