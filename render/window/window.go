// Package window displays live frames in a desktop window.
package window

import (
	"errors"
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
)

var ErrClosed = errors.New("window: closed")

// Window is a render.Display showing frames in a native window.
// Frames may be blitted from any goroutine; Run must be called from the
// main goroutine.
type Window struct {
	*fwk.Base
	app fyne.App
	win fyne.Window
	img *canvas.Image

	mu     sync.Mutex
	buf    [2]*image.RGBA
	cur    int
	closed bool
	done   chan struct{}
}

// New creates a window of the given size, in pixels.
func New(title string, width, height int) *Window {
	a := app.New()
	w := &Window{
		Base: fwk.NewBase("window"),
		app:  a,
		win:  a.NewWindow(title),
		done: make(chan struct{}),
	}
	w.img = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, width, height)))
	w.img.FillMode = canvas.ImageFillContain
	w.img.ScaleMode = canvas.ImageScaleFastest
	w.win.SetContent(w.img)
	w.win.Resize(fyne.NewSize(float32(width), float32(height)))
	w.win.SetOnClosed(w.markClosed)
	return w
}

func (w *Window) markClosed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.done)
	w.Infof("window closed\n")
}

// Done is closed once the window has been closed.
func (w *Window) Done() <-chan struct{} { return w.done }

// Blit copies frame into one of two back buffers and hands it to the
// window, leaving the other one free for the next frame.
func (w *Window) Blit(frame *image.RGBA) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.cur = 1 - w.cur
	buf := w.buf[w.cur]
	if buf == nil || buf.Bounds() != frame.Bounds() {
		buf = image.NewRGBA(frame.Bounds())
		w.buf[w.cur] = buf
	}
	copy(buf.Pix, frame.Pix)
	w.mu.Unlock()

	fyne.Do(func() {
		w.img.Image = buf
		w.img.Refresh()
	})
	return nil
}

// Run shows the window and runs f in the background.
// The window is closed when f returns; closing the window does not stop f
// but makes subsequent calls to Blit fail.
func (w *Window) Run(f func() error) error {
	errc := make(chan error, 1)
	go func() {
		err := f()
		errc <- err
		select {
		case <-w.done:
			return
		default:
		}
		fyne.Do(func() {
			w.win.Close()
			w.app.Quit()
		})
	}()
	w.win.ShowAndRun()
	w.markClosed()
	return <-errc
}
