package loadcell

import (
	"fmt"
	"io"
	"math"
	"time"

	"golang.org/x/net/context"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/telemetry"
)

const (
	DefaultSampleRate = 320 // Hz
	DefaultDuration   = 20 * time.Second
)

// Firmware emulates the acquisition board: it prints READY, then one
// frame per sample for the duration of the run, then DONE.
type Firmware struct {
	Rate       float64 // samples per second
	Duration   time.Duration
	TimeLabel  string
	ValueLabel string

	// Signal returns the raw reading at t seconds.
	Signal func(t float64) float64

	// Realtime paces frames with the wall clock.
	Realtime bool
}

// DefaultSignal mimics an unloaded cell with a slow periodic load.
func DefaultSignal(t float64) float64 {
	return math.Round(-20300 + 15000*math.Sin(2*math.Pi*t/10))
}

// Run writes the firmware output to w until the run completes or ctx is
// done.
func (fw Firmware) Run(ctx context.Context, w io.Writer) error {
	rate := fw.Rate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	dur := fw.Duration
	if dur <= 0 {
		dur = DefaultDuration
	}
	signal := fw.Signal
	if signal == nil {
		signal = DefaultSignal
	}
	labels := []string{fw.TimeLabel, fw.ValueLabel}

	_, err := io.WriteString(w, "READY\r\n")
	if err != nil {
		return err
	}

	var tick <-chan time.Time
	if fw.Realtime {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
		defer ticker.Stop()
		tick = ticker.C
	}

	end := dur.Seconds()
	for i := 0; ; i++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		t := float64(i) / rate
		line, err := telemetry.FormatFrame(labels, []float64{t, signal(t)})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\r\n", line)
		if err != nil {
			return err
		}
		if t >= end {
			break
		}
	}

	_, err = io.WriteString(w, "DONE\r\n")
	return err
}
