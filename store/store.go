// Package store persists acquired samples.
package store

import (
	"time"
)

// Record is one calibrated sample, as persisted by a Sink.
type Record struct {
	Name  string    `json:"name"`  // series name
	Stamp time.Time `json:"stamp"` // host time of acquisition
	X     float64   `json:"x"`     // device time
	Y     float64   `json:"y"`
}

// Sink consumes records. Errors returned by Write are fatal to the
// acquisition.
type Sink interface {
	Write(rec Record) error
	Close() error
}

// Multi fans records out to several sinks.
type Multi []Sink

func (m Multi) Write(rec Record) error {
	for _, s := range m {
		err := s.Write(rec)
		if err != nil {
			return err
		}
	}
	return nil
}

// Close closes all sinks and returns the first error.
func (m Multi) Close() error {
	var err error
	for _, s := range m {
		e := s.Close()
		if e != nil && err == nil {
			err = e
		}
	}
	return err
}
