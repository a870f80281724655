package render

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gonuts/logger"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
)

func init() {
	fwk.SetLogOutput(io.Discard, logger.ERROR)
}

type counter struct {
	n    int
	last []byte
}

func (c *counter) Blit(frame *image.RGBA) error {
	c.n++
	c.last = append(c.last[:0], frame.Pix...)
	return nil
}

func newTestPlot(t *testing.T, legend bool, disp Display) *Plot {
	t.Helper()
	p, err := New(Options{
		Title:  "Raw Data vs. Time",
		XLabel: "Time (s)",
		YLabel: "Value (?)",
		XLim:   [2]float64{0, 55},
		YLim:   [2]float64{-1e6, 1e6},
		Grid:   true,
		Legend: legend,
	}, disp)
	if err != nil {
		t.Fatalf("could not create plot: %v", err)
	}
	return p
}

func TestNewInvalid(t *testing.T) {
	for _, opts := range []Options{
		{},
		{XLim: [2]float64{1, 1}},
		{XLim: [2]float64{0, 1}, YLim: [2]float64{2, -2}},
	} {
		_, err := New(opts, nil)
		if err == nil {
			t.Fatalf("%+v: expected an error", opts)
		}
	}
}

func TestDefaultYRange(t *testing.T) {
	p, err := New(Options{XLim: [2]float64{-1, 1}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Options().YLim; got != [2]float64{-1, 1} {
		t.Fatalf("got y-range %v, want x-range", got)
	}
	b := p.Frame().Bounds()
	if b.Dx() != DefaultWidth || b.Dy() != DefaultHeight {
		t.Fatalf("got %v, want %dx%d", b, DefaultWidth, DefaultHeight)
	}
}

func TestUninitialized(t *testing.T) {
	var p *Plot
	for _, err := range []error{
		p.RegisterSeries("a", "o", 1),
		p.BeginFrame(),
		p.DrawSeries("a", nil, nil),
		p.EndFrame(0),
	} {
		if !errors.Is(err, ErrNotInitialized) {
			t.Fatalf("got err=%v, want %v", err, ErrNotInitialized)
		}
	}
}

func TestRegisterSeries(t *testing.T) {
	p := newTestPlot(t, false, nil)
	err := p.RegisterSeries("Position Tracking", "o", 0.5)
	if err != nil {
		t.Fatal(err)
	}
	err = p.RegisterSeries("Position Tracking", "-", 1)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("got err=%v, want %v", err, ErrDuplicate)
	}
	err = p.RegisterSeries("bad", "x", 1)
	if err == nil {
		t.Fatalf("expected an error for an unknown marker")
	}
	err = p.RegisterSeries("bad", "o", 1.5)
	if err == nil {
		t.Fatalf("expected an error for an invalid opacity")
	}
	if _, ok := p.Series("bad"); ok {
		t.Fatalf("invalid series was registered")
	}
}

func TestDrawUnknownSeries(t *testing.T) {
	p := newTestPlot(t, false, nil)
	err := p.RegisterSeries("known", "o", 1)
	if err != nil {
		t.Fatal(err)
	}
	err = p.DrawSeries("known", []float64{1, 2}, []float64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	before := append([]byte(nil), p.Frame().Pix...)

	err = p.DrawSeries("unknown", []float64{10}, []float64{10})
	if !errors.Is(err, ErrUnknownSeries) {
		t.Fatalf("got err=%v, want %v", err, ErrUnknownSeries)
	}
	err = p.DrawSeries("known", []float64{10, 20}, []float64{10})
	if err == nil {
		t.Fatalf("expected an error for mismatched lengths")
	}

	if !bytes.Equal(before, p.Frame().Pix) {
		t.Fatalf("failed draws modified the frame")
	}
	if _, ok := p.Series("unknown"); ok {
		t.Fatalf("failed draw registered a series")
	}
	s, _ := p.Series("known")
	if len(s.XYs) != 2 || s.XYs[1].X != 2 {
		t.Fatalf("failed draw modified the series: %v", s.XYs)
	}
}

func TestDrawAndRestore(t *testing.T) {
	p := newTestPlot(t, false, nil)
	err := p.RegisterSeries("pts", "o", 1)
	if err != nil {
		t.Fatal(err)
	}

	err = p.BeginFrame()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p.Frame().Pix, p.bg.Pix) {
		t.Fatalf("frame does not match background after restore")
	}

	err = p.DrawSeries("pts", []float64{27.5}, []float64{0})
	if err != nil {
		t.Fatal(err)
	}
	x, y := p.toPx(27.5, 0)
	at := image.Pt(int(x), int(y))
	if p.Frame().RGBAAt(at.X, at.Y) == p.bg.RGBAAt(at.X, at.Y) {
		t.Fatalf("point not drawn at %v", at)
	}

	err = p.BeginFrame()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p.Frame().Pix, p.bg.Pix) {
		t.Fatalf("previous series still visible after restore")
	}
}

func TestDrawClipped(t *testing.T) {
	p := newTestPlot(t, false, nil)
	err := p.RegisterSeries("out", "o-", 1)
	if err != nil {
		t.Fatal(err)
	}
	err = p.DrawSeries("out", []float64{-10, 60, 100}, []float64{2e6, 3e6, -5e6})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p.Frame().Pix, p.bg.Pix) {
		t.Fatalf("points outside of the axes were drawn")
	}
}

func TestEndFrame(t *testing.T) {
	disp := new(counter)
	p := newTestPlot(t, true, disp)
	for _, s := range []struct{ label, marker string }{
		{"Position Tracking", "o"},
		{"trend", "-"},
	} {
		err := p.RegisterSeries(s.label, s.marker, 0.5)
		if err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 3; i++ {
		err := p.BeginFrame()
		if err != nil {
			t.Fatal(err)
		}
		err = p.DrawSeries("Position Tracking", []float64{1, 2, 3}, []float64{0, 1e5, 2e5})
		if err != nil {
			t.Fatal(err)
		}
		err = p.EndFrame(0)
		if err != nil {
			t.Fatal(err)
		}
	}
	if disp.n != 3 {
		t.Fatalf("got %d blits, want 3", disp.n)
	}
	if !bytes.Equal(disp.last, p.Frame().Pix) {
		t.Fatalf("display did not receive the composited frame")
	}

	r := p.legendBox()
	if !r.In(p.Frame().Bounds()) {
		t.Fatalf("legend %v outside of frame %v", r, p.Frame().Bounds())
	}
	diff := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if p.Frame().RGBAAt(x, y) != p.bg.RGBAAt(x, y) {
				diff++
			}
		}
	}
	if diff == 0 {
		t.Fatalf("legend not drawn")
	}
}

func TestEndFrameDisplayError(t *testing.T) {
	errDisp := errors.New("window closed")
	p := newTestPlot(t, false, DisplayFunc(func(*image.RGBA) error { return errDisp }))
	err := p.EndFrame(0)
	if !errors.Is(err, errDisp) {
		t.Fatalf("got err=%v, want %v", err, errDisp)
	}
}

func TestParseMarker(t *testing.T) {
	for _, tc := range []struct {
		spec string
		want Marker
		err  bool
	}{
		{spec: "", want: Marker{Glyph: 'o'}},
		{spec: "o", want: Marker{Glyph: 'o'}},
		{spec: ".", want: Marker{Glyph: '.'}},
		{spec: "s", want: Marker{Glyph: 's'}},
		{spec: "+", want: Marker{Glyph: '+'}},
		{spec: "-", want: Marker{Line: true}},
		{spec: "o-", want: Marker{Glyph: 'o', Line: true}},
		{spec: "-s", want: Marker{Glyph: 's', Line: true}},
		{spec: "--", err: true},
		{spec: "os", err: true},
		{spec: "^", err: true},
	} {
		got, err := ParseMarker(tc.spec)
		switch {
		case tc.err && err == nil:
			t.Fatalf("%q: expected an error", tc.spec)
		case !tc.err && err != nil:
			t.Fatalf("%q: %v", tc.spec, err)
		case !tc.err && got != tc.want:
			t.Fatalf("%q: got %+v, want %+v", tc.spec, got, tc.want)
		}
	}
}

func TestClip(t *testing.T) {
	b := box{x0: 0, y0: 0, x1: 10, y1: 10}
	x0, y0, x1, y1, ok := b.clip(-5, 5, 15, 5)
	if !ok || x0 != 0 || x1 != 10 || y0 != 5 || y1 != 5 {
		t.Fatalf("got (%v,%v)-(%v,%v) ok=%v", x0, y0, x1, y1, ok)
	}
	_, _, _, _, ok = b.clip(-5, -5, -1, 20)
	if ok {
		t.Fatalf("segment outside of box was kept")
	}
}

func TestPNGFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "live.png")
	disp := &PNGFile{Path: fname}
	p := newTestPlot(t, true, disp)
	err := p.RegisterSeries("pts", "o", 1)
	if err != nil {
		t.Fatal(err)
	}
	err = p.EndFrame(0)
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("could not decode frame: %v", err)
	}
	if img.Bounds() != p.Frame().Bounds() {
		t.Fatalf("got bounds %v, want %v", img.Bounds(), p.Frame().Bounds())
	}
}

func TestWeb(t *testing.T) {
	reg := prometheus.NewRegistry()
	frames := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_frames_total"})
	reg.MustRegister(frames)
	frames.Inc()

	web := NewWeb("load cell", reg)
	srv := httptest.NewServer(web)
	defer srv.Close()

	get := func(path string) (*http.Response, []byte) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		return resp, body
	}

	resp, _ := get("/frame.png")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("got status %d before first frame", resp.StatusCode)
	}

	p := newTestPlot(t, false, web)
	err := p.EndFrame(0)
	if err != nil {
		t.Fatal(err)
	}

	resp, body := get("/frame.png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Frame-Seq") != "1" {
		t.Fatalf("got frame seq %q", resp.Header.Get("X-Frame-Seq"))
	}
	img, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != p.Frame().Bounds() {
		t.Fatalf("got bounds %v", img.Bounds())
	}

	_, body = get("/")
	if !strings.Contains(string(body), "<title>load cell</title>") {
		t.Fatalf("page does not contain title:\n%s", body)
	}

	_, body = get("/metrics")
	if !strings.Contains(string(body), "test_frames_total 1") {
		t.Fatalf("metrics not exposed:\n%s", body)
	}

	resp, _ = get("/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got status %d for unknown page", resp.StatusCode)
	}
}

func TestWriteChart(t *testing.T) {
	xs := make([]float64, 200)
	ys := make([]float64, len(xs))
	for i := range xs {
		xs[i] = float64(i) / 320
		ys[i] = float64(-20300 + 10*i)
	}

	for _, points := range []bool{false, true} {
		buf := new(bytes.Buffer)
		err := WriteChart(buf, ChartOptions{
			Title:  "Load Cell Raw Output vs Time",
			XLabel: "Time (s)",
			YLabel: "Raw ADC Reading",
			Series: "raw",
			Width:  400,
			Height: 300,
			Points: points,
		}, xs, ys)
		if err != nil {
			t.Fatalf("points=%v: %v", points, err)
		}
		img, err := png.Decode(buf)
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
			t.Fatalf("got bounds %v", b)
		}
	}

	err := WriteChart(io.Discard, ChartOptions{}, xs[:1], ys[:1])
	if err == nil {
		t.Fatalf("expected an error for a single point")
	}
	err = WriteChart(io.Discard, ChartOptions{}, xs, ys[:3])
	if err == nil {
		t.Fatalf("expected an error for mismatched lengths")
	}
}
