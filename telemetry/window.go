package telemetry

import (
	"fmt"

	"gonum.org/v1/plot/plotter"
)

// Sample is one decoded (time, value) pair.
type Sample struct {
	X float64
	Y float64
}

// Window is the trailing FIFO of the most recent samples.
type Window struct {
	max int
	pts plotter.XYs
}

func NewWindow(max int) (*Window, error) {
	if max <= 0 {
		return nil, fmt.Errorf("telemetry: invalid window size %d", max)
	}
	return &Window{
		max: max,
		pts: make(plotter.XYs, 0, max+1),
	}, nil
}

// Append adds s and evicts the oldest sample once over capacity.
func (w *Window) Append(s Sample) {
	w.pts = append(w.pts, plotter.XY{X: s.X, Y: s.Y})
	if len(w.pts) > w.max {
		n := copy(w.pts, w.pts[1:])
		w.pts = w.pts[:n]
	}
}

func (w *Window) Len() int { return len(w.pts) }

func (w *Window) Cap() int { return w.max }

// Points returns a copy of the window content, oldest first.
func (w *Window) Points() plotter.XYs {
	return append(plotter.XYs(nil), w.pts...)
}

// XYs returns copies of the abscissae and ordinates, oldest first.
func (w *Window) XYs() (xs, ys []float64) {
	xs = make([]float64, len(w.pts))
	ys = make([]float64, len(w.pts))
	for i, pt := range w.pts {
		xs[i] = pt.X
		ys[i] = pt.Y
	}
	return xs, ys
}

// Calibration converts raw ADC counts into a weight.
// The zero value leaves values untouched.
type Calibration struct {
	Offset float64 `yaml:"offset"`
	Gain   float64 `yaml:"gain"`
}

func (c Calibration) Apply(raw float64) float64 {
	if c.Gain == 0 {
		return raw - c.Offset
	}
	return (raw - c.Offset) * c.Gain
}
