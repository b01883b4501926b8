package fluid

import (
	"fmt"
	"math"
)

// ScalarField is a fluid quantity living on the MAC grid, such as density or
// one velocity component. It knows its own layout, its offset from the lower
// left corner of a grid cell and the cell size.
//
// Two buffers are kept. Reads and in-place writes always go to the current
// buffer, while operations that cannot run in place (advection) write into
// the next buffer. Flip makes the result visible to the following operations.
type ScalarField struct {
	w, h     int
	ox, oy   float64
	cellSize float64

	buf [2][]float64
	cur int
}

// NewScalarField allocates a zeroed field of w*h samples at offset (ox, oy).
func NewScalarField(w, h int, ox, oy, cellSize float64) *ScalarField {
	s := &ScalarField{
		w:        w,
		h:        h,
		ox:       ox,
		oy:       oy,
		cellSize: cellSize,
	}
	s.buf[0] = make([]float64, w*h)
	s.buf[1] = make([]float64, w*h)

	return s
}

func (s *ScalarField) Width() int  { return s.w }
func (s *ScalarField) Height() int { return s.h }

// Offset returns the fractional position of the samples inside a cell.
func (s *ScalarField) Offset() (float64, float64) { return s.ox, s.oy }

func (s *ScalarField) CellSize() float64 { return s.cellSize }

// At returns the current value at grid index (x, y).
// The caller must keep the index inside the field layout.
func (s *ScalarField) At(x, y int) float64 {
	return s.buf[s.cur][x+y*s.w]
}

// Set writes val at grid index (x, y) of the current buffer.
func (s *ScalarField) Set(x, y int, val float64) {
	s.buf[s.cur][x+y*s.w] = val
}

func (s *ScalarField) setNext(x, y int, val float64) {
	s.buf[1-s.cur][x+y*s.w] = val
}

// Flip swaps the current and the next buffer.
func (s *ScalarField) Flip() {
	s.cur = 1 - s.cur
}

// Values exposes the current buffer in row-major order. It must be treated as
// read only and is invalidated by the next Flip.
func (s *ScalarField) Values() []float64 {
	return s.buf[s.cur]
}

// Fill sets every sample of the current buffer to val.
func (s *ScalarField) Fill(val float64) {
	cur := s.buf[s.cur]
	for i := range cur {
		cur[i] = val
	}
}

// Load copies values into the current buffer. The number of values must match
// the field layout exactly, otherwise nothing is written.
func (s *ScalarField) Load(values []float64) error {
	if len(values) != s.w*s.h {
		return fmt.Errorf("%w: field is %dx%d (%d values), got %d",
			ErrValueCount, s.w, s.h, s.w*s.h, len(values))
	}
	copy(s.buf[s.cur], values)

	return nil
}

// AddInflow stamps val into every sample whose index falls inside the world
// space rectangle (x0, y0)-(x1, y1). A sample is only replaced when val has a
// larger magnitude than what it already holds, so overlapping inflows never
// cancel out and reapplying the same inflow changes nothing.
func (s *ScalarField) AddInflow(x0, y0, x1, y1, val float64) {
	if math.IsNaN(x0) || math.IsNaN(y0) || math.IsNaN(x1) || math.IsNaN(y1) {
		return
	}
	ix0 := sampleIndex(x0/s.cellSize-s.ox, s.w)
	iy0 := sampleIndex(y0/s.cellSize-s.oy, s.h)
	ix1 := sampleIndex(x1/s.cellSize-s.ox, s.w)
	iy1 := sampleIndex(y1/s.cellSize-s.oy, s.h)

	cur := s.buf[s.cur]
	for y := max(iy0, 0); y < min(iy1, s.h); y++ {
		for x := max(ix0, 0); x < min(ix1, s.w); x++ {
			if math.Abs(cur[x+y*s.w]) < math.Abs(val) {
				cur[x+y*s.w] = val
			}
		}
	}
}

// sampleIndex floors the fractional index f, limited to [-1, n] so that
// infinite bounds still convert to a valid int.
func sampleIndex(f float64, n int) int {
	return int(math.Floor(clamp(f, -1, float64(n))))
}
