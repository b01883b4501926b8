package frames

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	fluid "github.com/esimov/mac-fluid/fluid-solver"
)

// ReadField reads exactly w*h whitespace separated values, in row-major
// order, to seed a w x h field.
func ReadField(r io.Reader, w, h int) ([]float64, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	values := make([]float64, 0, w*h)
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", ErrFormat, len(values), err)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(values) != w*h {
		return nil, fmt.Errorf("%w: want %d values for a %dx%d field, got %d",
			fluid.ErrValueCount, w*h, w, h, len(values))
	}
	return values, nil
}

// SeedDensity loads the density of s from the file fname.
func SeedDensity(s *fluid.Solver, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	values, err := ReadField(f, s.Width(), s.Height())
	if err != nil {
		return fmt.Errorf("%s: %w", fname, err)
	}
	return s.SeedDensity(values)
}
