package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// CSV writes records as a two-column table with a "time,<column>" header.
// Rows are flushed as soon as they are written.
type CSV struct {
	w *csv.Writer
	c io.Closer
}

// CreateCSV creates (or truncates) fname and writes the header.
func CreateCSV(fname, column string) (*CSV, error) {
	f, err := os.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("store: could not create CSV log: %w", err)
	}
	o, err := NewCSV(f, column)
	if err != nil {
		f.Close()
		return nil, err
	}
	o.c = f
	return o, nil
}

// NewCSV writes the header to w.
func NewCSV(w io.Writer, column string) (*CSV, error) {
	o := &CSV{w: csv.NewWriter(w)}
	err := o.row("time", column)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (o *CSV) Write(rec Record) error {
	return o.row(
		strconv.FormatFloat(rec.X, 'g', -1, 64),
		strconv.FormatFloat(rec.Y, 'g', -1, 64),
	)
}

func (o *CSV) row(x, y string) error {
	err := o.w.Write([]string{x, y})
	if err != nil {
		return fmt.Errorf("store: could not write CSV row: %w", err)
	}
	o.w.Flush()
	err = o.w.Error()
	if err != nil {
		return fmt.Errorf("store: could not flush CSV row: %w", err)
	}
	return nil
}

func (o *CSV) Close() error {
	if o.c == nil {
		return nil
	}
	o.w.Flush()
	err := o.w.Error()
	if e := o.c.Close(); e != nil && err == nil {
		err = e
	}
	o.c = nil
	return err
}

// Table is a two-column log read back from disk.
// X is in seconds.
type Table struct {
	XName string
	YName string
	X     []float64
	Y     []float64
}

// ReadCSV reads a recorded log. The abscissa is the "time" column, in
// seconds, or the "time_ms" column, in milliseconds. The ordinate is the
// named column, or the first other column when column is empty.
func ReadCSV(r io.Reader, column string) (Table, error) {
	var tbl Table
	rd := csv.NewReader(r)
	rd.TrimLeadingSpace = true
	hdr, err := rd.Read()
	if err != nil {
		return tbl, fmt.Errorf("store: could not read CSV header: %w", err)
	}

	var (
		ix   = -1
		iy   = -1
		unit = 1.0
	)
	for i, name := range hdr {
		switch name {
		case "time":
			ix = i
		case "time_ms":
			if ix < 0 {
				ix = i
				unit = 1000
			}
		}
	}
	if ix < 0 {
		return tbl, fmt.Errorf("store: no time column in CSV header %q", hdr)
	}
	for i, name := range hdr {
		if i == ix || name == "time" || name == "time_ms" {
			continue
		}
		if column == "" || name == column {
			iy = i
			break
		}
	}
	if iy < 0 {
		if column != "" {
			return tbl, fmt.Errorf("store: no column %q in CSV header %q", column, hdr)
		}
		return tbl, fmt.Errorf("store: no value column in CSV header %q", hdr)
	}
	tbl.XName = hdr[ix]
	tbl.YName = hdr[iy]

	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return tbl, fmt.Errorf("store: could not read CSV row: %w", err)
		}
		line, _ := rd.FieldPos(0)
		x, err := strconv.ParseFloat(rec[ix], 64)
		if err != nil {
			return tbl, fmt.Errorf("store: line %d: invalid %s: %w", line, tbl.XName, err)
		}
		y, err := strconv.ParseFloat(rec[iy], 64)
		if err != nil {
			return tbl, fmt.Errorf("store: line %d: invalid %s: %w", line, tbl.YName, err)
		}
		tbl.X = append(tbl.X, x/unit)
		tbl.Y = append(tbl.Y, y)
	}
	return tbl, nil
}
