package render

import (
	"image"
	"image/color"
	imgdraw "image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	legendPad    = 6
	legendSwatch = 22
	legendMargin = 8
)

var (
	legendFill   = color.NRGBA{R: 255, G: 255, B: 255, A: 204}
	legendBorder = color.NRGBA{R: 204, G: 204, B: 204, A: 255}
)

// legendBox returns the rectangle occupied by the legend, anchored in the
// upper right corner of the data area.
func (p *Plot) legendBox() image.Rectangle {
	face := basicfont.Face7x13
	w := 0
	for _, label := range p.order {
		if lw := font.MeasureString(face, label).Ceil(); lw > w {
			w = lw
		}
	}
	lh := face.Metrics().Height.Ceil()
	width := 2*legendPad + legendSwatch + legendPad + w
	height := 2*legendPad + len(p.order)*lh

	x1 := int(p.area.x1) - legendMargin
	y0 := int(p.area.y0) + legendMargin
	return image.Rect(x1-width, y0, x1, y0+height)
}

func (p *Plot) drawLegend() {
	if len(p.order) == 0 {
		return
	}
	face := basicfont.Face7x13
	r := p.legendBox()

	imgdraw.Draw(p.frame, r, image.NewUniform(legendFill), image.Point{}, imgdraw.Over)
	border := image.NewUniform(legendBorder)
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		imgdraw.Draw(p.frame, edge, border, image.Point{}, imgdraw.Src)
	}

	lh := face.Metrics().Height.Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	b := p.frame.Bounds()
	for i, label := range p.order {
		s := p.series[label]
		top := r.Min.Y + legendPad + i*lh
		cy := float64(top) + float64(lh)/2
		x0 := float64(r.Min.X + legendPad)

		p.z.Reset(b.Dx(), b.Dy())
		if s.Marker.Line {
			segment(&p.z, x0, cy, x0+legendSwatch, cy, lineWidth)
		}
		s.Marker.glyph(&p.z, x0+legendSwatch/2, cy)
		p.z.Draw(p.frame, b, image.NewUniform(withAlpha(s.Color, s.Alpha)), image.Point{})

		d := &font.Drawer{
			Dst:  p.frame,
			Src:  image.NewUniform(color.Black),
			Face: face,
			Dot:  fixed.P(r.Min.X+2*legendPad+legendSwatch, top+ascent),
		}
		d.DrawString(label)
	}
}
