// Package telemetry decodes the text frames emitted by the load-cell
// firmware and keeps the trailing window of recent samples.
//
// A frame is one line of whitespace separated tokens alternating labels,
// terminated by a colon, and numeric values:
//
//	time: 1.503125 raw: -20311.0
package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMissingLabel = errors.New("telemetry: label not found")
	ErrMissingValue = errors.New("telemetry: label has no value")
)

// ParseError describes a label that could not be resolved in a frame.
type ParseError struct {
	Label string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("telemetry: label %q: %v", e.Label, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Frame is a tokenized telemetry line.
type Frame []string

// ParseFrame splits a telemetry line into its tokens.
func ParseFrame(line string) Frame {
	return Frame(strings.Fields(line))
}

// Value returns the number following the first "label:" token.
func (f Frame) Value(label string) (float64, error) {
	key := label + ":"
	for i, tok := range f {
		if tok != key {
			continue
		}
		if i+1 >= len(f) {
			return 0, &ParseError{Label: label, Err: ErrMissingValue}
		}
		v, err := strconv.ParseFloat(f[i+1], 64)
		if err != nil {
			return 0, &ParseError{Label: label, Err: err}
		}
		return v, nil
	}
	return 0, &ParseError{Label: label, Err: ErrMissingLabel}
}

// Values resolves all labels, in order.
// Either every label resolves or an error is returned with no values.
func (f Frame) Values(labels ...string) ([]float64, error) {
	vs := make([]float64, len(labels))
	for i, label := range labels {
		v, err := f.Value(label)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

// Sample decodes the (time, value) pair of a frame.
func (f Frame) Sample(xlabel, ylabel string) (Sample, error) {
	vs, err := f.Values(xlabel, ylabel)
	if err != nil {
		return Sample{}, err
	}
	return Sample{X: vs[0], Y: vs[1]}, nil
}

// FormatFrame renders labels and values the way the firmware prints them.
func FormatFrame(labels []string, values []float64) (string, error) {
	if len(labels) != len(values) {
		return "", fmt.Errorf(
			"telemetry: %d labels for %d values",
			len(labels), len(values),
		)
	}
	o := new(strings.Builder)
	for i, label := range labels {
		if i > 0 {
			o.WriteByte(' ')
		}
		o.WriteString(label)
		o.WriteString(": ")
		o.WriteString(strconv.FormatFloat(values[i], 'f', 6, 64))
	}
	return o.String(), nil
}
