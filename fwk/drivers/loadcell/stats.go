package loadcell

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stats struct {
	read     prometheus.Counter
	skipped  prometheus.Counter
	dropped  prometheus.Counter
	appended prometheus.Counter
	frames   prometheus.Counter
	last     prometheus.Gauge
}

// newStats creates the acquisition metrics, registered with reg unless nil.
func newStats(name string, reg prometheus.Registerer) *stats {
	f := promauto.With(reg)
	labels := prometheus.Labels{"device": name}
	counter := func(metric, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace:   "loadcell",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		})
	}
	return &stats{
		read:     counter("lines_read_total", "Lines read from the serial link."),
		skipped:  counter("lines_skipped_total", "Lines too short to hold a frame."),
		dropped:  counter("frames_dropped_total", "Frames dropped because of parse errors."),
		appended: counter("samples_total", "Samples appended to the trailing window."),
		frames:   counter("plot_frames_total", "Plot frames rendered."),
		last: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   "loadcell",
			Name:        "last_value",
			Help:        "Last calibrated value acquired.",
			ConstLabels: labels,
		}),
	}
}
