// Package config holds the settings of a load-cell acquisition session.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/gonuts/logger"
	"gopkg.in/yaml.v3"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk/drivers/loadcell"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk/drivers/serial"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/render"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/store"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/telemetry"
)

type Config struct {
	Serial SerialConfig `yaml:"serial"`

	Window          int    `yaml:"trailing_window_size"`
	MinMessageBytes int    `yaml:"min_message_bytes"`
	TimeLabel       string `yaml:"time_label"`
	ValueLabel      string `yaml:"value_label"`

	Series      SeriesConfig          `yaml:"series"`
	Axis        AxisConfig            `yaml:"axis"`
	Display     DisplayConfig         `yaml:"display"`
	Calibration telemetry.Calibration `yaml:"calibration"`

	CSV   string    `yaml:"csv"` // CSV log file, if any
	Bus   BusConfig `yaml:"bus"`
	MySQL DBConfig  `yaml:"mysql"`
	Log   LogConfig `yaml:"log"`
}

type SerialConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type SeriesConfig struct {
	Name   string  `yaml:"name"`
	Marker string  `yaml:"marker"`
	Alpha  float64 `yaml:"alpha"`
}

type AxisConfig struct {
	Title  string     `yaml:"title"`
	XLabel string     `yaml:"xlabel"`
	YLabel string     `yaml:"ylabel"`
	XLim   [2]float64 `yaml:"xlim"`
	YLim   [2]float64 `yaml:"ylim"`
	Grid   bool       `yaml:"enable_grid"`
	Legend bool       `yaml:"enable_legend"`
	Hide   bool       `yaml:"hide_axis"`
}

// Display kinds.
const (
	DisplayWindow = "window"
	DisplayPNG    = "png"
	DisplayWeb    = "web"
	DisplayNone   = "none"
)

type DisplayConfig struct {
	Kind       string        `yaml:"kind"`
	Width      int           `yaml:"width"`
	Height     int           `yaml:"height"`
	PNG        string        `yaml:"png"`  // output file of the png display
	Addr       string        `yaml:"addr"` // listen address of the web display
	FrameDelay time.Duration `yaml:"frame_delay"`
}

type BusConfig struct {
	Enable bool   `yaml:"enable"`
	Addr   string `yaml:"addr"`
}

type DBConfig struct {
	Enable         bool `yaml:"enable"`
	store.DBConfig `yaml:",inline"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
	Compress   bool   `yaml:"compress"`
}

// DefaultPort is the serial port of the acquisition board on this platform.
func DefaultPort() string {
	if runtime.GOOS == "windows" {
		return "COM3"
	}
	return "/dev/ttyACM0"
}

// Default returns the settings of the historical bench setup.
func Default() Config {
	return Config{
		Serial: SerialConfig{
			Port:        DefaultPort(),
			Baud:        serial.DefaultBaud,
			ReadTimeout: serial.DefaultReadTimeout,
		},
		Window:          100,
		MinMessageBytes: 16,
		TimeLabel:       "time",
		ValueLabel:      "raw",
		Series: SeriesConfig{
			Name:   "Position Tracking",
			Marker: "o",
			Alpha:  0.5,
		},
		Axis: AxisConfig{
			Title:  "Raw Data vs. Time",
			XLabel: "Time (s)",
			YLabel: "Value (?)",
			XLim:   [2]float64{0, 55},
			YLim:   [2]float64{-1e6, 1e6},
			Grid:   true,
			Legend: true,
		},
		Display: DisplayConfig{
			Kind:   DisplayWindow,
			Width:  render.DefaultWidth,
			Height: render.DefaultHeight,
			PNG:    "loadcell.png",
			Addr:   "localhost:8080",
		},
		Bus: BusConfig{Addr: fwk.BusAddr},
		MySQL: DBConfig{
			DBConfig: store.DBConfig{
				User:     "ccs",
				Password: "ccs",
				Addr:     "127.0.0.1:3306",
				Name:     "ccs",
				Table:    "loadcell",
			},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Load reads a YAML file over the default settings.
func Load(fname string) (Config, error) {
	cfg := Default()
	f, err := os.Open(fname)
	if err != nil {
		return cfg, fmt.Errorf("config: could not open file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: could not parse %q: %w", fname, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (cfg Config) Validate() error {
	var errs []error
	bad := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	if cfg.Serial.Port == "" {
		bad("missing serial port")
	}
	if cfg.Serial.Baud <= 0 {
		bad("invalid baud rate %d", cfg.Serial.Baud)
	}
	if cfg.Serial.ReadTimeout <= 0 {
		bad("invalid read timeout %v", cfg.Serial.ReadTimeout)
	}
	if cfg.Window <= 0 {
		bad("invalid trailing window size %d", cfg.Window)
	}
	if cfg.MinMessageBytes < 0 {
		bad("invalid minimum message size %d", cfg.MinMessageBytes)
	}
	for _, label := range []string{cfg.TimeLabel, cfg.ValueLabel} {
		if label == "" || strings.ContainsAny(label, ": \t\r\n") {
			bad("invalid frame label %q", label)
		}
	}
	if cfg.TimeLabel == cfg.ValueLabel {
		bad("time and value share the label %q", cfg.TimeLabel)
	}

	if cfg.Series.Name == "" {
		bad("missing series name")
	}
	if _, err := render.ParseMarker(cfg.Series.Marker); err != nil {
		errs = append(errs, err)
	}
	if cfg.Series.Alpha < 0 || cfg.Series.Alpha > 1 {
		bad("invalid series opacity %v", cfg.Series.Alpha)
	}

	if !(cfg.Axis.XLim[0] < cfg.Axis.XLim[1]) {
		bad("invalid x-range %v", cfg.Axis.XLim)
	}
	if cfg.Axis.YLim != [2]float64{} && !(cfg.Axis.YLim[0] < cfg.Axis.YLim[1]) {
		bad("invalid y-range %v", cfg.Axis.YLim)
	}

	switch cfg.Display.Kind {
	case DisplayWindow, DisplayNone:
	case DisplayPNG:
		if cfg.Display.PNG == "" {
			bad("missing png display file")
		}
	case DisplayWeb:
		if cfg.Display.Addr == "" {
			bad("missing web display address")
		}
	default:
		bad("unknown display %q", cfg.Display.Kind)
	}
	if cfg.Display.Width < 0 || cfg.Display.Height < 0 {
		bad("invalid display size %dx%d", cfg.Display.Width, cfg.Display.Height)
	}
	if cfg.Display.FrameDelay < 0 {
		bad("invalid frame delay %v", cfg.Display.FrameDelay)
	}

	if cfg.Bus.Enable && cfg.Bus.Addr == "" {
		bad("missing bus address")
	}
	if cfg.MySQL.Enable {
		if cfg.MySQL.Addr == "" || cfg.MySQL.Name == "" {
			bad("incomplete mysql settings")
		}
		if !store.ValidTable(cfg.MySQL.Table) {
			bad("invalid mysql table %q", cfg.MySQL.Table)
		}
	}

	if _, err := cfg.Log.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LogLevel decodes the configured verbosity.
func (cfg LogConfig) LogLevel() (logger.Level, error) {
	switch strings.ToLower(cfg.Level) {
	case "debug":
		return logger.DEBUG, nil
	case "", "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	}
	return logger.INFO, fmt.Errorf("config: unknown log level %q", cfg.Level)
}

// LoadCell returns the settings of the acquisition device.
func (cfg Config) LoadCell() loadcell.Config {
	return loadcell.Config{
		Serial: serial.Config{
			Name:        cfg.Serial.Port,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.ReadTimeout,
		},
		Window:          cfg.Window,
		MinMessageBytes: cfg.MinMessageBytes,
		TimeLabel:       cfg.TimeLabel,
		ValueLabel:      cfg.ValueLabel,
		Series:          cfg.Series.Name,
		Marker:          cfg.Series.Marker,
		Alpha:           cfg.Series.Alpha,
		Calibration:     cfg.Calibration,
		FrameDelay:      cfg.Display.FrameDelay,
	}
}

// Render returns the options of the plotting surface.
func (cfg Config) Render() render.Options {
	return render.Options{
		Title:    cfg.Axis.Title,
		XLabel:   cfg.Axis.XLabel,
		YLabel:   cfg.Axis.YLabel,
		XLim:     cfg.Axis.XLim,
		YLim:     cfg.Axis.YLim,
		Width:    cfg.Display.Width,
		Height:   cfg.Display.Height,
		HideAxis: cfg.Axis.Hide,
		Grid:     cfg.Axis.Grid,
		Legend:   cfg.Axis.Legend,
	}
}
