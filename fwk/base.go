package fwk

import (
	"io"
	"os"
	"sync"

	"github.com/gonuts/logger"
)

var logcfg = struct {
	sync.RWMutex
	w   io.Writer
	lvl logger.Level
}{
	w:   os.Stdout,
	lvl: logger.INFO,
}

// SetLogOutput configures the writer and verbosity used by components
// created afterwards.
func SetLogOutput(w io.Writer, lvl logger.Level) {
	logcfg.Lock()
	defer logcfg.Unlock()
	logcfg.w = w
	logcfg.lvl = lvl
}

// Base is embedded by every component and provides its named logger.
type Base struct {
	*logger.Logger
	name string
}

func NewBase(name string) *Base {
	logcfg.RLock()
	defer logcfg.RUnlock()
	return &Base{
		Logger: logger.NewLogger(name, logcfg.lvl, logcfg.w),
		name:   name,
	}
}

func (b *Base) Name() string { return b.name }
