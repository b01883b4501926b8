// Package frames persists simulation frames. The text format starts with a
// header line announcing the frame count, followed by one block per frame:
//
//	frames 2
//	begin 0
//	0 0;0.25 -0.5;0 0
//	0 0;0.125 1;0 0
//	end
//	begin 1
//	...
//	end
//
// Every row lists the cell centered velocity of one grid row, bottom row
// first. Columns are separated by semicolons, the two components of a vector
// by a space.
package frames

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	fluid "github.com/esimov/mac-fluid/fluid-solver"
)

// ErrFormat is returned when frame or field data cannot be parsed.
var ErrFormat = errors.New("frames: malformed data")

const (
	headerKey = "frames"
	beginKey  = "begin"
	endKey    = "end"
)

// TextWriter writes frames in the text format. It implements fluid.Sink.
type TextWriter struct {
	w       *bufio.Writer
	total   int
	started bool
}

// NewTextWriter returns a writer announcing total frames in its header.
func NewTextWriter(w io.Writer, total int) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w), total: total}
}

func (tw *TextWriter) header() {
	if !tw.started {
		fmt.Fprintf(tw.w, "%s %d\n", headerKey, tw.total)
		tw.started = true
	}
}

// Accept appends one frame block and flushes it to the underlying writer.
func (tw *TextWriter) Accept(f *fluid.Frame) error {
	tw.header()

	fmt.Fprintf(tw.w, "%s %d\n", beginKey, f.Index)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if x > 0 {
				tw.w.WriteByte(';')
			}
			v := f.VelocityAt(x, y)
			tw.w.WriteString(formatFloat(v.X))
			tw.w.WriteByte(' ')
			tw.w.WriteString(formatFloat(v.Y))
		}
		tw.w.WriteByte('\n')
	}
	fmt.Fprintln(tw.w, endKey)

	return tw.w.Flush()
}

// Flush writes the header even if no frame was accepted.
func (tw *TextWriter) Flush() error {
	tw.header()
	return tw.w.Flush()
}

// Close flushes the writer. The underlying writer is left open.
func (tw *TextWriter) Close() error {
	return tw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadText parses a text stream back into frames. Only the index, the layout
// and the velocity of each frame are restored. A run that stopped early holds
// fewer frames than its header announces; those are returned as long as the
// last block is terminated.
func ReadText(r io.Reader) ([]*fluid.Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	line := 0

	next := func() (string, bool) {
		for sc.Scan() {
			line++
			if s := strings.TrimSpace(sc.Text()); s != "" {
				return s, true
			}
		}
		return "", false
	}
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: line %d: %s", ErrFormat, line, fmt.Sprintf(format, args...))
	}

	s, ok := next()
	if !ok {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fail("missing header")
	}
	total, err := parseKeyed(s, headerKey)
	if err != nil || total < 0 {
		return nil, fail("bad header %q", s)
	}

	var frames []*fluid.Frame
	for {
		s, ok := next()
		if !ok {
			break
		}
		idx, err := parseKeyed(s, beginKey)
		if err != nil {
			return nil, fail("expected %q, got %q", beginKey, s)
		}

		f := &fluid.Frame{Index: idx}
		for {
			s, ok = next()
			if !ok {
				return nil, fail("frame %d is not terminated", idx)
			}
			if s == endKey {
				break
			}
			row, err := parseRow(s)
			if err != nil {
				return nil, fail("frame %d: %v", idx, err)
			}
			if f.Height == 0 {
				f.Width = len(row)
			} else if len(row) != f.Width {
				return nil, fail("frame %d: row has %d columns, want %d", idx, len(row), f.Width)
			}
			f.Velocity = append(f.Velocity, row...)
			f.Height++
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(frames) > total {
		return nil, fail("header announces %d frames, found %d", total, len(frames))
	}

	return frames, nil
}

func parseKeyed(s, key string) (int, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 || fields[0] != key {
		return 0, ErrFormat
	}
	return strconv.Atoi(fields[1])
}

func parseRow(s string) ([]fluid.Vec, error) {
	cols := strings.Split(s, ";")
	row := make([]fluid.Vec, len(cols))
	for i, col := range cols {
		comps := strings.Fields(col)
		if len(comps) != 2 {
			return nil, fmt.Errorf("column %d has %d values, want 2", i, len(comps))
		}
		x, err := strconv.ParseFloat(comps[0], 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(comps[1], 64)
		if err != nil {
			return nil, err
		}
		row[i] = fluid.Vec{X: x, Y: y}
	}
	return row, nil
}
