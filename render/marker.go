package render

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/image/vector"
)

// Marker describes how the points of a series are drawn.
type Marker struct {
	Glyph byte // 'o', '.', 's', '+' or 0 for none
	Line  bool // join consecutive points
}

// ParseMarker decodes a marker specification such as "o", "-" or "o-".
// The empty string selects circles.
func ParseMarker(spec string) (Marker, error) {
	var m Marker
	if spec == "" {
		spec = "o"
	}
	for _, c := range []byte(spec) {
		switch c {
		case 'o', '.', 's', '+':
			if m.Glyph != 0 {
				return m, fmt.Errorf("render: marker %q has more than one glyph", spec)
			}
			m.Glyph = c
		case '-':
			if m.Line {
				return m, fmt.Errorf("render: invalid marker %q", spec)
			}
			m.Line = true
		default:
			return m, fmt.Errorf("render: unknown marker %q", spec)
		}
	}
	return m, nil
}

func (m Marker) String() string {
	o := new(strings.Builder)
	if m.Glyph != 0 {
		o.WriteByte(m.Glyph)
	}
	if m.Line {
		o.WriteByte('-')
	}
	return o.String()
}

const (
	circleRadius = 4.0
	pointRadius  = 1.5
	squareHalf   = 3.5
	plusHalf     = 4.5
	plusWidth    = 1.5
	lineWidth    = 1.5

	// control point distance approximating a quarter circle with a cubic.
	kappa = 0.5522847498
)

// glyph adds the outline of the marker glyph centred on (x, y).
func (m Marker) glyph(z *vector.Rasterizer, x, y float64) {
	switch m.Glyph {
	case 'o':
		circle(z, x, y, circleRadius)
	case '.':
		circle(z, x, y, pointRadius)
	case 's':
		rect(z, x-squareHalf, y-squareHalf, x+squareHalf, y+squareHalf)
	case '+':
		rect(z, x-plusHalf, y-plusWidth/2, x+plusHalf, y+plusWidth/2)
		rect(z, x-plusWidth/2, y-plusHalf, x+plusWidth/2, y-plusWidth/2)
		rect(z, x-plusWidth/2, y+plusWidth/2, x+plusWidth/2, y+plusHalf)
	}
}

func circle(z *vector.Rasterizer, x, y, r float64) {
	k := kappa * r
	z.MoveTo(f32(x+r), f32(y))
	z.CubeTo(f32(x+r), f32(y+k), f32(x+k), f32(y+r), f32(x), f32(y+r))
	z.CubeTo(f32(x-k), f32(y+r), f32(x-r), f32(y+k), f32(x-r), f32(y))
	z.CubeTo(f32(x-r), f32(y-k), f32(x-k), f32(y-r), f32(x), f32(y-r))
	z.CubeTo(f32(x+k), f32(y-r), f32(x+r), f32(y-k), f32(x+r), f32(y))
	z.ClosePath()
}

func rect(z *vector.Rasterizer, x0, y0, x1, y1 float64) {
	z.MoveTo(f32(x0), f32(y0))
	z.LineTo(f32(x1), f32(y0))
	z.LineTo(f32(x1), f32(y1))
	z.LineTo(f32(x0), f32(y1))
	z.ClosePath()
}

// segment adds a segment of the given width as a quadrilateral.
func segment(z *vector.Rasterizer, x0, y0, x1, y1, width float64) {
	dx, dy := x1-x0, y1-y0
	n := math.Hypot(dx, dy)
	if n == 0 {
		return
	}
	nx, ny := -dy/n*width/2, dx/n*width/2
	z.MoveTo(f32(x0+nx), f32(y0+ny))
	z.LineTo(f32(x1+nx), f32(y1+ny))
	z.LineTo(f32(x1-nx), f32(y1-ny))
	z.LineTo(f32(x0-nx), f32(y0-ny))
	z.ClosePath()
}

func f32(v float64) float32 { return float32(v) }

// box is an axis aligned clipping rectangle in pixel coordinates.
type box struct {
	x0, y0, x1, y1 float64
}

func (b box) contains(x, y float64) bool {
	return b.x0 <= x && x <= b.x1 && b.y0 <= y && y <= b.y1
}

// clip restricts the segment to the box (Liang-Barsky).
func (b box) clip(x0, y0, x1, y1 float64) (float64, float64, float64, float64, bool) {
	t0, t1 := 0.0, 1.0
	dx, dy := x1-x0, y1-y0
	for _, e := range [4][2]float64{
		{-dx, x0 - b.x0},
		{dx, b.x1 - x0},
		{-dy, y0 - b.y0},
		{dy, b.y1 - y0},
	} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		switch {
		case p < 0:
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			if r > t0 {
				t0 = r
			}
		default:
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			if r < t1 {
				t1 = r
			}
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}
