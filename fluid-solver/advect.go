package fluid

import "math"

// Lerp bilinearly interpolates the current buffer at world position (x, y).
// Neighbour indices are clamped into the field layout independently on each
// axis, so positions slightly outside the sample lattice read the border.
func (s *ScalarField) Lerp(x, y float64) float64 {
	x0, x1, tx := neighbours(x/s.cellSize-s.ox, s.w)
	y0, y1, ty := neighbours(y/s.cellSize-s.oy, s.h)

	cur := s.buf[s.cur]
	sx, sy := 1-tx, 1-ty

	return sy*(sx*cur[x0+y0*s.w]+tx*cur[x1+y0*s.w]) +
		ty*(sx*cur[x0+y1*s.w]+tx*cur[x1+y1*s.w])
}

// neighbours picks the pair of samples enclosing the fractional index f along
// an axis of n samples and the interpolation weight of the second one.
// The pair starts at the nearest sample; when f lies before it the pair is
// shifted one sample to the left and the weight measured from there.
func neighbours(f float64, n int) (int, int, float64) {
	c := int(math.Round(f))
	t := f - float64(c)

	lo, hi := c, c+1
	if t < 0 {
		lo, hi = c-1, c
		t = f - float64(lo)
	}

	return clampIndex(lo, n), clampIndex(hi, n), t
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}

// Advect transports every field through vel over dt using semi-Lagrangian
// back tracing. All fields are resampled from their current buffers into
// their next buffers first and flipped afterwards, so a field may safely be
// advected through itself (as the velocity components are).
func Advect(dt float64, vel *VelocityField, fields ...*ScalarField) {
	advect(dt, vel, false, fields)
}

func advect(dt float64, vel *VelocityField, parallel bool, fields []*ScalarField) {
	for _, f := range fields {
		advectInto(f, dt, vel, parallel)
	}
	for _, f := range fields {
		f.Flip()
	}
}

// advectInto fills the next buffer of f with the values traced back by dt.
func advectInto(f *ScalarField, dt float64, vel *VelocityField, parallel bool) {
	h := f.cellSize
	maxX := float64(vel.width) * h
	maxY := float64(vel.height) * h

	row := func(j int) {
		for i := 0; i < f.w; i++ {
			x := (float64(i) + f.ox) * h
			y := (float64(j) + f.oy) * h

			u := vel.U.Lerp(x, y)
			v := vel.V.Lerp(x, y)

			x = clamp(x-u*dt, 0, maxX)
			y = clamp(y-v*dt, 0, maxY)

			f.setNext(i, j, f.Lerp(x, y))
		}
	}

	if parallel {
		parallelRange(0, f.h, row)
		return
	}
	for j := 0; j < f.h; j++ {
		row(j)
	}
}
