// Package loadcell acquires load-cell telemetry from a serial link and
// feeds it to the live plot and the sample sinks.
package loadcell

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/context"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk/drivers/serial"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/render"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/store"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/telemetry"
)

// Config drives the acquisition loop.
type Config struct {
	Serial serial.Config

	Window          int // number of trailing samples kept
	MinMessageBytes int // shorter lines are skipped

	TimeLabel  string
	ValueLabel string

	Series      string
	Marker      string
	Alpha       float64
	Calibration telemetry.Calibration
	FrameDelay  time.Duration
}

// Opener opens the serial connection at boot.
type Opener func(cfg serial.Config) (*serial.Conn, error)

// Device is the acquisition loop: serial lines are parsed into samples,
// appended to the trailing window, persisted and plotted.
type Device struct {
	*fwk.Base
	cfg   Config
	open  Opener
	plot  *render.Plot
	sinks store.Multi
	stats *stats

	conn *serial.Conn
	win  *telemetry.Window
}

// New creates the acquisition device. plot may be nil to acquire without
// display. Metrics are registered with reg, if not nil.
func New(name string, cfg Config, plot *render.Plot, reg prometheus.Registerer, sinks ...store.Sink) *Device {
	return &Device{
		Base:  fwk.NewBase(name),
		cfg:   cfg,
		open:  serial.Open,
		plot:  plot,
		sinks: store.Multi(sinks),
		stats: newStats(name, reg),
	}
}

// SetOpener replaces the function used to open the serial connection.
func (dev *Device) SetOpener(open Opener) {
	dev.open = open
}

// Window returns the trailing window. It is nil before boot.
func (dev *Device) Window() *telemetry.Window {
	return dev.win
}

func (dev *Device) Boot(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			// not booted: Shutdown will not be called.
			dev.sinks.Close()
		}
	}()

	dev.win, err = telemetry.NewWindow(dev.cfg.Window)
	if err != nil {
		return err
	}

	if dev.plot != nil {
		err = dev.plot.RegisterSeries(dev.cfg.Series, dev.cfg.Marker, dev.cfg.Alpha)
		if err != nil {
			return err
		}
	}

	dev.conn, err = dev.open(dev.cfg.Serial)
	if err != nil {
		return err
	}
	dev.Infof("connected to: %s\n", dev.conn.Port())
	return nil
}

func (dev *Device) Start(ctx context.Context) error {
	var err error
	return err
}

// Run reads and processes frames until ctx is done or a fatal error
// occurs. Malformed frames are logged and dropped.
func (dev *Device) Run(ctx context.Context) error {
	if dev.conn == nil {
		return fmt.Errorf("loadcell: %s not booted", dev.Name())
	}
	for {
		line, err := dev.conn.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("loadcell: could not read from %s: %w", dev.conn.Port(), err)
		}
		err = dev.process(line)
		if err != nil {
			return err
		}
	}
}

func (dev *Device) process(line string) error {
	dev.stats.read.Inc()
	if len(line) < dev.cfg.MinMessageBytes {
		dev.Debugf("skipping message %q\n", line)
		dev.stats.skipped.Inc()
		return nil
	}

	smp, err := telemetry.ParseFrame(line).Sample(dev.cfg.TimeLabel, dev.cfg.ValueLabel)
	if err != nil {
		dev.Errorf("dropping frame %q: %v\n", line, err)
		dev.stats.dropped.Inc()
		return nil
	}
	smp.Y = dev.cfg.Calibration.Apply(smp.Y)
	dev.win.Append(smp)
	dev.stats.appended.Inc()
	dev.stats.last.Set(smp.Y)
	dev.Debugf("%s: %v %s: %v\n", dev.cfg.TimeLabel, smp.X, dev.cfg.ValueLabel, smp.Y)

	err = dev.sinks.Write(store.Record{
		Name:  dev.cfg.Series,
		Stamp: time.Now().UTC(),
		X:     smp.X,
		Y:     smp.Y,
	})
	if err != nil {
		return err
	}
	return dev.draw()
}

func (dev *Device) draw() error {
	if dev.plot == nil {
		return nil
	}
	err := dev.plot.BeginFrame()
	if err != nil {
		return err
	}
	xs, ys := dev.win.XYs()
	err = dev.plot.DrawSeries(dev.cfg.Series, xs, ys)
	if err != nil {
		return err
	}
	err = dev.plot.EndFrame(dev.cfg.FrameDelay)
	if err != nil {
		return err
	}
	dev.stats.frames.Inc()
	return nil
}

func (dev *Device) Stop(ctx context.Context) error {
	var err error
	return err
}

// Shutdown releases the serial connection and the sinks.
func (dev *Device) Shutdown(ctx context.Context) error {
	var err error
	if dev.conn != nil {
		err = dev.conn.Close()
		dev.conn = nil
		dev.Infof("closed connection\n")
	}
	if e := dev.sinks.Close(); e != nil && err == nil {
		err = e
	}
	dev.sinks = nil
	return err
}
