// Package render draws live point series over a static plot background.
//
// The axes, labels and grid are rendered once with gonum/plot and cached.
// Every frame restores that background, rasterises the registered series
// on top of it and blits the result to a Display, so the cost of a frame
// only depends on the number of points drawn.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	imgdraw "image/draw"
	"time"

	"golang.org/x/image/vector"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultDPI    = 96
)

var (
	ErrNotInitialized = errors.New("render: plot not initialized")
	ErrUnknownSeries  = errors.New("render: series not registered")
	ErrDuplicate      = errors.New("render: series already registered")
)

// Options configures the plotting surface.
type Options struct {
	Title  string
	XLabel string
	YLabel string

	// XLim and YLim are the fixed axis ranges.
	// A zero YLim reuses XLim.
	XLim [2]float64
	YLim [2]float64

	Width  int // in pixels
	Height int // in pixels

	HideAxis bool
	Grid     bool
	Legend   bool
}

// Series is a named set of points drawn every frame.
type Series struct {
	Label  string
	Marker Marker
	Alpha  float64
	Color  color.Color
	XYs    plotter.XYs
}

// Plot is a live plotting surface.
type Plot struct {
	*fwk.Base
	opts Options
	disp Display

	bg    *image.RGBA // cached static background
	frame *image.RGBA // frame being composed
	area  box         // data area, in pixels
	toPx  func(x, y float64) (float64, float64)

	series map[string]*Series
	order  []string
	z      vector.Rasterizer
}

// New initializes a plotting surface blitting frames to disp.
// Axis limits are fixed; the background snapshot is taken once here.
func New(opts Options, disp Display) (*Plot, error) {
	if disp == nil {
		disp = Discard
	}
	p := &Plot{
		Base:   fwk.NewBase("render"),
		disp:   disp,
		series: make(map[string]*Series),
	}
	err := p.init(opts)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Plot) init(opts Options) error {
	if opts.YLim == [2]float64{} {
		opts.YLim = opts.XLim
	}
	if !(opts.XLim[0] < opts.XLim[1]) {
		return fmt.Errorf("render: invalid x-range %v", opts.XLim)
	}
	if !(opts.YLim[0] < opts.YLim[1]) {
		return fmt.Errorf("render: invalid y-range %v", opts.YLim)
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	p.opts = opts

	pl := plot.New()
	pl.Title.Text = opts.Title
	pl.X.Label.Text = opts.XLabel
	pl.Y.Label.Text = opts.YLabel
	pl.X.Min, pl.X.Max = opts.XLim[0], opts.XLim[1]
	pl.Y.Min, pl.Y.Max = opts.YLim[0], opts.YLim[1]
	if opts.HideAxis {
		pl.HideAxes()
	}
	if opts.Grid {
		pl.Add(plotter.NewGrid())
	}

	const dpi = DefaultDPI
	c := vgimg.NewWith(
		vgimg.UseWH(
			vg.Length(opts.Width)*vg.Inch/dpi,
			vg.Length(opts.Height)*vg.Inch/dpi,
		),
		vgimg.UseDPI(dpi),
	)
	dc := draw.New(c)
	pl.Draw(dc)

	img := c.Image()
	bounds := img.Bounds()
	p.bg = image.NewRGBA(bounds)
	imgdraw.Draw(p.bg, bounds, img, bounds.Min, imgdraw.Src)
	p.frame = image.NewRGBA(bounds)
	copy(p.frame.Pix, p.bg.Pix)

	// vg coordinates grow upwards, image ones downwards.
	h := float64(bounds.Dy())
	da := pl.DataCanvas(dc)
	trX, trY := pl.Transforms(&da)
	p.toPx = func(x, y float64) (float64, float64) {
		return trX(x).Dots(dpi), h - trY(y).Dots(dpi)
	}
	p.area = box{
		x0: da.Min.X.Dots(dpi),
		y0: h - da.Max.Y.Dots(dpi),
		x1: da.Max.X.Dots(dpi),
		y1: h - da.Min.Y.Dots(dpi),
	}
	p.z.Reset(bounds.Dx(), bounds.Dy())

	p.Debugf("surface %dx%d, data area %+v\n", bounds.Dx(), bounds.Dy(), p.area)
	return nil
}

// Options returns the effective options of the surface.
func (p *Plot) Options() Options { return p.opts }

// Frame returns the frame buffer. It is only valid until the next call
// to BeginFrame.
func (p *Plot) Frame() *image.RGBA { return p.frame }

// RegisterSeries creates the empty series label, drawn with the given
// marker specification and opacity in [0, 1].
func (p *Plot) RegisterSeries(label, marker string, alpha float64) error {
	if p == nil || p.bg == nil {
		return ErrNotInitialized
	}
	if _, dup := p.series[label]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicate, label)
	}
	m, err := ParseMarker(marker)
	if err != nil {
		return err
	}
	if alpha < 0 || alpha > 1 {
		return fmt.Errorf("render: invalid opacity %v for series %q", alpha, label)
	}
	p.series[label] = &Series{
		Label:  label,
		Marker: m,
		Alpha:  alpha,
		Color:  plotutil.Color(len(p.order)),
	}
	p.order = append(p.order, label)
	return nil
}

// Series returns the registered series label.
func (p *Plot) Series(label string) (Series, bool) {
	s, ok := p.series[label]
	if !ok {
		return Series{}, false
	}
	o := *s
	o.XYs = append(plotter.XYs(nil), s.XYs...)
	return o, true
}

// BeginFrame restores the cached background, discarding the series drawn
// in the previous frame.
func (p *Plot) BeginFrame() error {
	if p == nil || p.bg == nil {
		return ErrNotInitialized
	}
	copy(p.frame.Pix, p.bg.Pix)
	return nil
}

// DrawSeries replaces the points of the series label and draws them on
// the current frame.
func (p *Plot) DrawSeries(label string, xs, ys []float64) error {
	if p == nil || p.bg == nil {
		return ErrNotInitialized
	}
	s, ok := p.series[label]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSeries, label)
	}
	if len(xs) != len(ys) {
		return fmt.Errorf(
			"render: series %q has %d abscissae for %d ordinates",
			label, len(xs), len(ys),
		)
	}

	s.XYs = s.XYs[:0]
	for i := range xs {
		s.XYs = append(s.XYs, plotter.XY{X: xs[i], Y: ys[i]})
	}
	p.draw(s)
	return nil
}

func (p *Plot) draw(s *Series) {
	b := p.frame.Bounds()
	p.z.Reset(b.Dx(), b.Dy())
	n := 0

	if s.Marker.Line {
		for i := 1; i < len(s.XYs); i++ {
			x0, y0 := p.toPx(s.XYs[i-1].X, s.XYs[i-1].Y)
			x1, y1 := p.toPx(s.XYs[i].X, s.XYs[i].Y)
			x0, y0, x1, y1, ok := p.area.clip(x0, y0, x1, y1)
			if !ok {
				continue
			}
			segment(&p.z, x0, y0, x1, y1, lineWidth)
			n++
		}
	}
	if s.Marker.Glyph != 0 {
		for _, pt := range s.XYs {
			x, y := p.toPx(pt.X, pt.Y)
			if !p.area.contains(x, y) {
				continue
			}
			s.Marker.glyph(&p.z, x, y)
			n++
		}
	}
	if n == 0 {
		return
	}
	p.z.Draw(p.frame, b, image.NewUniform(withAlpha(s.Color, s.Alpha)), image.Point{})
}

// EndFrame composites the legend, blits the frame to the display and
// then waits for delay, if positive.
func (p *Plot) EndFrame(delay time.Duration) error {
	if p == nil || p.bg == nil {
		return ErrNotInitialized
	}
	if p.opts.Legend {
		p.drawLegend()
	}
	err := p.disp.Blit(p.frame)
	if err != nil {
		return fmt.Errorf("render: could not blit frame: %w", err)
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return nil
}

func withAlpha(c color.Color, alpha float64) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{
		R: uint8(r >> 8),
		G: uint8(g >> 8),
		B: uint8(b >> 8),
		A: uint8(alpha*255 + 0.5),
	}
}
