package main

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/config"
	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupLogging routes component and command logs to stdout and, when
// configured, to a rotated log file.
func setupLogging(cfg config.LogConfig) (io.Closer, error) {
	lvl, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}

	var (
		w io.Writer = os.Stdout
		c io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		rot := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		w = io.MultiWriter(os.Stdout, rot)
		c = rot
	}

	fwk.SetLogOutput(w, lvl)
	log.SetOutput(w)
	return c, nil
}
