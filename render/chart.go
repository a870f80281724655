package render

import (
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/plot/plotutil"
)

// ChartOptions configures an offline chart of a recorded run.
type ChartOptions struct {
	Title  string
	XLabel string
	YLabel string
	Series string
	Width  int // in pixels
	Height int // in pixels
	Points bool
}

// WriteChart renders the whole (xs, ys) series as a PNG chart, with axes
// fitted to the data.
func WriteChart(w io.Writer, opts ChartOptions, xs, ys []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("render: chart has %d abscissae for %d ordinates", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return fmt.Errorf("render: chart needs at least 2 points (got %d)", len(xs))
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	r, g, b, _ := plotutil.Color(0).RGBA()
	col := drawing.Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
	style := chart.Style{
		StrokeColor: col,
		StrokeWidth: 1.5,
	}
	if opts.Points {
		style = chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    2,
			DotColor:    col,
		}
	}
	grid := chart.Style{
		StrokeColor: drawing.ColorFromHex("dddddd"),
		StrokeWidth: 1,
	}

	ch := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name:           opts.XLabel,
			GridMajorStyle: grid,
		},
		YAxis: chart.YAxis{
			Name:           opts.YLabel,
			GridMajorStyle: grid,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    opts.Series,
				XValues: xs,
				YValues: ys,
				Style:   style,
			},
		},
	}
	if opts.Series != "" {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	return ch.Render(chart.PNG, w)
}
