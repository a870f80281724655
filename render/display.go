package render

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Display receives composited frames.
// The frame is owned by the caller and reused: implementations keeping
// it beyond Blit must copy it.
type Display interface {
	Blit(frame *image.RGBA) error
}

// DisplayFunc adapts a function to a Display.
type DisplayFunc func(frame *image.RGBA) error

func (f DisplayFunc) Blit(frame *image.RGBA) error { return f(frame) }

// Discard drops every frame.
var Discard Display = DisplayFunc(func(*image.RGBA) error { return nil })

// PNGFile writes the latest frame to a PNG file.
// The file is replaced atomically so readers never see a partial image.
type PNGFile struct {
	Path string

	// Every is the minimum time between two writes.
	// Frames blitted in between are dropped.
	Every time.Duration

	mu   sync.Mutex
	last time.Time
	enc  png.Encoder
}

func (f *PNGFile) Blit(frame *image.RGBA) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	if f.Every > 0 && !f.last.IsZero() && now.Sub(f.last) < f.Every {
		return nil
	}
	f.last = now

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".frame-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	f.enc.CompressionLevel = png.BestSpeed
	err = f.enc.Encode(tmp, frame)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("render: could not encode frame: %w", err)
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// snapshot keeps a private copy of the latest frame.
type snapshot struct {
	mu    sync.RWMutex
	img   *image.RGBA
	seq   uint64
	stamp time.Time
}

func (s *snapshot) store(frame *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil || s.img.Bounds() != frame.Bounds() {
		s.img = image.NewRGBA(frame.Bounds())
	}
	copy(s.img.Pix, frame.Pix)
	s.seq++
	s.stamp = time.Now()
}

// with calls f with the latest frame, or nil before the first blit.
func (s *snapshot) with(f func(img *image.RGBA, seq uint64) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f(s.img, s.seq)
}
