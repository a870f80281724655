package loadcell

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gonuts/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/net/context"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk/drivers/serial"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/render"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/store"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/telemetry"
)

func init() {
	fwk.SetLogOutput(io.Discard, logger.ERROR)
}

func newConfig() Config {
	return Config{
		Serial:          serial.Config{Name: "mock"},
		Window:          100,
		MinMessageBytes: 16,
		TimeLabel:       "time",
		ValueLabel:      "raw",
		Series:          "Position Tracking",
		Marker:          "o",
		Alpha:           0.5,
	}
}

func mockOpener(p *serial.Mock) Opener {
	return func(cfg serial.Config) (*serial.Conn, error) {
		return serial.NewConn(cfg.Name, p), nil
	}
}

type blits struct{ n int }

func (b *blits) Blit(*image.RGBA) error { b.n++; return nil }

type sink struct {
	recs   []store.Record
	closed bool
}

func (s *sink) Write(rec store.Record) error { s.recs = append(s.recs, rec); return nil }
func (s *sink) Close() error                 { s.closed = true; return nil }

func TestRun(t *testing.T) {
	port := serial.NewMock(
		"READY",
		"time: 0.003125 raw: -20311.0",
		"time: 1.500000 weight: 3.0",
		"time: 1.5 raw: 42.0 extra: 3.0",
		"time: 2.0 raw: not-a-number",
		"DONE",
	)

	disp := new(blits)
	plot, err := render.New(render.Options{
		XLim: [2]float64{0, 55},
		YLim: [2]float64{-1e6, 1e6},
	}, disp)
	if err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	out := new(sink)
	dev := New("loadcell-run", newConfig(), plot, reg, out)
	dev.SetOpener(mockOpener(port))

	ctx := context.Background()
	err = dev.Boot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	err = dev.Run(ctx)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("got err=%v, want %v", err, io.EOF)
	}
	err = dev.Shutdown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !port.Closed() {
		t.Fatalf("serial port not closed")
	}
	if !out.closed {
		t.Fatalf("sink not closed")
	}

	want := []telemetry.Sample{{X: 0.003125, Y: -20311}, {X: 1.5, Y: 42}}
	got := dev.Window().Points()
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].X != want[i].X || got[i].Y != want[i].Y {
			t.Fatalf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}

	if len(out.recs) != 2 || out.recs[1].Name != "Position Tracking" || out.recs[1].Y != 42 {
		t.Fatalf("invalid records: %+v", out.recs)
	}
	if disp.n != 2 {
		t.Fatalf("got %d frames, want 2", disp.n)
	}
	s, ok := plot.Series("Position Tracking")
	if !ok || len(s.XYs) != 2 {
		t.Fatalf("series not drawn: %+v", s)
	}

	for _, tc := range []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"read", dev.stats.read, 6},
		{"skipped", dev.stats.skipped, 2},
		{"dropped", dev.stats.dropped, 2},
		{"appended", dev.stats.appended, 2},
		{"frames", dev.stats.frames, 2},
		{"last", dev.stats.last, 42},
	} {
		if got := testutil.ToFloat64(tc.c); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Fatalf("got %d registered metrics, want 6", n)
	}
}

func TestMissingLabelLeavesWindow(t *testing.T) {
	port := serial.NewMock(
		"time: 1.500000 raw: 42.0",
		"time: 1.500000   ",
		"time: 2.500000 value: 7",
	)
	dev := New("loadcell-missing", newConfig(), nil, nil)
	dev.SetOpener(mockOpener(port))

	ctx := context.Background()
	err := dev.Boot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Shutdown(ctx)

	err = dev.Run(ctx)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("got err=%v, want %v", err, io.EOF)
	}
	pts := dev.Window().Points()
	if len(pts) != 1 || pts[0].X != 1.5 || pts[0].Y != 42 {
		t.Fatalf("window mutated by malformed frames: %v", pts)
	}
	if got := testutil.ToFloat64(dev.stats.dropped); got != 2 {
		t.Fatalf("got %v dropped frames, want 2", got)
	}
}

func TestTrailingWindow(t *testing.T) {
	lines := make([]string, 101)
	for i := range lines {
		lines[i] = fmt.Sprintf("time: %d.000000 raw: %d.0", i+1, 10*(i+1))
	}
	port := serial.NewMock(lines...)

	cfg := newConfig()
	cfg.Calibration = telemetry.Calibration{Offset: 10, Gain: 0.5}
	dev := New("loadcell-window", cfg, nil, nil)
	dev.SetOpener(mockOpener(port))

	ctx := context.Background()
	err := dev.Boot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Shutdown(ctx)

	err = dev.Run(ctx)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("got err=%v, want %v", err, io.EOF)
	}

	pts := dev.Window().Points()
	if len(pts) != 100 {
		t.Fatalf("got %d samples, want 100", len(pts))
	}
	for i, pt := range pts {
		n := float64(i + 2)
		if pt.X != n || pt.Y != (10*n-10)*0.5 {
			t.Fatalf("sample %d: got %v, want (%v, %v)", i, pt, n, (10*n-10)*0.5)
		}
	}
}

func TestAppReleasesResources(t *testing.T) {
	for _, tc := range []struct {
		name  string
		lines []string
		err   error
	}{
		{
			name:  "hangup",
			lines: []string{"time: 1.500000 raw: 42.0"},
			err:   io.EOF,
		},
		{
			name:  "invalid-utf8",
			lines: []string{"time: 1.500000 raw: \xff\xfe"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			port := serial.NewMock(tc.lines...)
			out := new(sink)
			dev := New("loadcell-app-"+tc.name, newConfig(), nil, nil, out)
			dev.SetOpener(mockOpener(port))

			app, err := fwk.New("app-"+tc.name, dev)
			if err != nil {
				t.Fatal(err)
			}
			err = app.Run(context.Background())
			if err == nil {
				t.Fatalf("expected an error")
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Fatalf("got err=%v, want %v", err, tc.err)
			}
			if !port.Closed() || !out.closed {
				t.Fatalf("resources not released: port=%v sink=%v", port.Closed(), out.closed)
			}
			if fwk.System.Device(dev.Name()) != nil {
				t.Fatalf("device still registered")
			}
		})
	}
}

func TestAppCancel(t *testing.T) {
	port := serial.NewLiveMock(time.Millisecond)
	out := new(sink)
	dev := New("loadcell-cancel", newConfig(), nil, nil, out)
	dev.SetOpener(mockOpener(port))

	app, err := fwk.New("app-cancel", dev)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		port.Feed("time: 1.500000 raw: 42.0\r\n")
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err = app.Run(ctx)
	if err != nil {
		t.Fatalf("interrupted run failed: %v", err)
	}
	if !port.Closed() || !out.closed {
		t.Fatalf("resources not released")
	}
}

func TestBootOpenError(t *testing.T) {
	errBusy := errors.New("port busy")
	out := new(sink)
	dev := New("loadcell-busy", newConfig(), nil, nil, out)
	dev.SetOpener(func(serial.Config) (*serial.Conn, error) { return nil, errBusy })

	app, err := fwk.New("app-busy", dev)
	if err != nil {
		t.Fatal(err)
	}
	err = app.Run(context.Background())
	if !errors.Is(err, errBusy) {
		t.Fatalf("got err=%v, want %v", err, errBusy)
	}
	if !out.closed {
		t.Fatalf("sink not closed after failed boot")
	}
}

func TestFirmware(t *testing.T) {
	buf := new(bytes.Buffer)
	fw := Firmware{
		Rate:       10,
		Duration:   time.Second,
		TimeLabel:  "time",
		ValueLabel: "raw",
	}
	err := fw.Run(context.Background(), buf)
	if err != nil {
		t.Fatal(err)
	}

	var lines []string
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if len(lines) != 13 {
		t.Fatalf("got %d lines, want 13:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if lines[0] != "READY" || lines[12] != "DONE" {
		t.Fatalf("invalid run framing: %q ... %q", lines[0], lines[12])
	}
	if got, want := lines[1], "time: 0.000000 raw: -20300.000000"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	last, err := telemetry.ParseFrame(lines[11]).Sample("time", "raw")
	if err != nil {
		t.Fatal(err)
	}
	if last.X != 1 {
		t.Fatalf("last frame at t=%v, want 1", last.X)
	}
}

func TestFirmwareLoopback(t *testing.T) {
	port := serial.NewLiveMock(time.Millisecond)
	fw := Firmware{
		Rate:       50,
		Duration:   time.Second,
		TimeLabel:  "time",
		ValueLabel: "raw",
	}
	err := fw.Run(context.Background(), port.Remote())
	if err != nil {
		t.Fatal(err)
	}
	port.Hangup()

	dev := New("loadcell-loopback", newConfig(), nil, nil)
	dev.SetOpener(mockOpener(port))
	ctx := context.Background()
	err = dev.Boot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Shutdown(ctx)

	err = dev.Run(ctx)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("got err=%v, want %v", err, io.EOF)
	}
	if got := dev.Window().Len(); got != 51 {
		t.Fatalf("got %d samples, want 51", got)
	}
	if got := testutil.ToFloat64(dev.stats.skipped); got != 2 {
		t.Fatalf("got %v skipped lines, want 2 (READY, DONE)", got)
	}
}
