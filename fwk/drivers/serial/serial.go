// Package serial drives the serial link to the load-cell firmware.
package serial

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"go.bug.st/serial"
	"golang.org/x/net/context"

	"github.com/yuchanchoi/HAND-ERC-PCBProject/fwk"
)

const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 500 * time.Millisecond

	bufsz   = 256
	maxLine = 4096
)

var (
	ErrClosed      = errors.New("serial: connection closed")
	ErrLineTooLong = errors.New("serial: line too long")
)

// Port is the subset of a serial port the connection relies on.
type Port interface {
	io.ReadWriteCloser
}

// Config describes the serial line. Framing is fixed: 8 data bits,
// no parity, one stop bit.
type Config struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

func (cfg Config) mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Conn is a line oriented connection over a serial port.
type Conn struct {
	*fwk.Base
	name    string
	port    Port
	buf     []byte
	pending []byte
}

// Open opens the named serial port. Reads block for at most
// cfg.ReadTimeout, so a silent device never spins the caller.
func Open(cfg Config) (*Conn, error) {
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	p, err := serial.Open(cfg.Name, cfg.mode())
	if err != nil {
		return nil, fmt.Errorf("serial: could not open %q: %w", cfg.Name, err)
	}
	err = p.SetReadTimeout(cfg.ReadTimeout)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("serial: could not set read timeout on %q: %w", cfg.Name, err)
	}
	// drop whatever the device sent before we were listening.
	err = p.ResetInputBuffer()
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("serial: could not reset input of %q: %w", cfg.Name, err)
	}
	return NewConn(cfg.Name, p), nil
}

// NewConn wraps an already opened port.
func NewConn(name string, p Port) *Conn {
	return &Conn{
		Base: fwk.NewBase("serial"),
		name: name,
		port: p,
		buf:  make([]byte, bufsz),
	}
}

func (c *Conn) Port() string { return c.name }

// ReadLine returns the next line received, without its line terminator.
// Read timeouts are retried until ctx is done.
func (c *Conn) ReadLine(ctx context.Context) (string, error) {
	if c.port == nil {
		return "", ErrClosed
	}
	for {
		if i := bytes.IndexByte(c.pending, '\n'); i >= 0 {
			line := bytes.TrimRight(c.pending[:i], "\r\x00")
			c.pending = c.pending[i+1:]
			if !utf8.Valid(line) {
				return "", fmt.Errorf("serial: invalid utf-8 line %q", line)
			}
			return string(line), nil
		}
		if len(c.pending) > maxLine {
			return "", ErrLineTooLong
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := c.port.Read(c.buf)
		if n > 0 {
			c.pending = append(c.pending, c.buf[:n]...)
		}
		if err != nil {
			return "", err
		}
		if n == 0 {
			c.Debugf("read timeout on %s\n", c.name)
		}
	}
}

func (c *Conn) Write(p []byte) (int, error) {
	if c.port == nil {
		return 0, ErrClosed
	}
	return c.port.Write(p)
}

// WriteLine sends line followed by a CRLF terminator.
func (c *Conn) WriteLine(line string) error {
	if c.port == nil {
		return ErrClosed
	}
	_, err := io.WriteString(c.port, line+"\r\n")
	return err
}

func (c *Conn) Close() error {
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}
