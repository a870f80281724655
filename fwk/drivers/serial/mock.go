package serial

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"
)

// Mock is an in-memory serial port.
// Reads drain the fed data; once drained, they time out like a silent
// device, or report io.EOF when the mock was hung up.
type Mock struct {
	mu      sync.Mutex
	in      bytes.Buffer
	out     bytes.Buffer
	hangup  bool
	closed  bool
	timeout time.Duration
}

// NewMock returns a port that will deliver lines and then hang up.
func NewMock(lines ...string) *Mock {
	m := &Mock{timeout: time.Millisecond}
	for _, line := range lines {
		m.in.WriteString(line + "\r\n")
	}
	m.hangup = true
	return m
}

// NewLiveMock returns a port that stays connected until Hangup or Close.
func NewLiveMock(timeout time.Duration) *Mock {
	return &Mock{timeout: timeout}
}

// Feed queues raw bytes for reading.
func (m *Mock) Feed(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.in.WriteString(data)
}

// Hangup makes reads fail with io.EOF once the fed data is consumed.
func (m *Mock) Hangup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hangup = true
}

func (m *Mock) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrClosed
	}
	if m.in.Len() > 0 {
		n, _ := m.in.Read(p)
		m.mu.Unlock()
		return n, nil
	}
	hangup := m.hangup
	m.mu.Unlock()

	if hangup {
		return 0, io.EOF
	}
	time.Sleep(m.timeout)
	return 0, nil
}

func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	return m.out.Write(p)
}

// Written returns what was written to the port so far.
func (m *Mock) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.String()
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Lines splits what was written to the port into lines.
func (m *Mock) Lines() []string {
	out := strings.TrimRight(m.Written(), "\r\n")
	if out == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
}

// Remote returns the device end of the mock: bytes written to it are
// read back from the port.
func (m *Mock) Remote() io.Writer {
	return remote{m}
}

type remote struct{ m *Mock }

func (r remote) Write(p []byte) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.closed || r.m.hangup {
		return 0, ErrClosed
	}
	return r.m.in.Write(p)
}
