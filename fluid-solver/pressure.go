package fluid

import "math"

// Tolerance is the largest per-sweep pressure change at which the
// Gauss-Seidel solve is considered converged.
const Tolerance = 1e-5

// Report describes the outcome of a pressure solve.
type Report struct {
	Iterations int     `json:"iterations"`
	Residual   float64 `json:"residual"`
	Converged  bool    `json:"converged"`
}

// PressureSolver makes a velocity field divergence free. The domain border is
// a solid wall: there is no fluid outside the grid.
type PressureSolver struct {
	width, height int
	cellSize      float64
	density       float64

	r []float64 // right hand side, the negative divergence
	p []float64 // pressure, kept as the initial guess of the next solve
}

func NewPressureSolver(width, height int, cellSize, density float64) *PressureSolver {
	return &PressureSolver{
		width:    width,
		height:   height,
		cellSize: cellSize,
		density:  density,
		r:        make([]float64, width*height),
		p:        make([]float64, width*height),
	}
}

// Pressure exposes the current pressure solution. Read only.
func (ps *PressureSolver) Pressure() []float64 { return ps.p }

// Reset discards the pressure guess carried between solves.
func (ps *PressureSolver) Reset() {
	for i := range ps.p {
		ps.p[i] = 0
	}
}

// BuildRHS stores the negative divergence of vel at every cell center.
func (ps *PressureSolver) BuildRHS(vel *VelocityField) {
	scale := 1.0 / ps.cellSize

	for y, idx := 0, 0; y < ps.height; y++ {
		for x := 0; x < ps.width; x, idx = x+1, idx+1 {
			ps.r[idx] = -scale * (vel.U.At(x+1, y) - vel.U.At(x, y) +
				vel.V.At(x, y+1) - vel.V.At(x, y))
		}
	}
}

// Project solves for the pressure with Gauss-Seidel sweeps. It stops as soon
// as a sweep changes no cell by more than Tolerance, or after limit sweeps.
// Running out of sweeps is not an error: the best pressure found is kept.
func (ps *PressureSolver) Project(limit int, dt float64) Report {
	scale := dt / (ps.density * ps.cellSize * ps.cellSize)
	w, h := ps.width, ps.height

	var maxDelta float64
	for iter := 0; iter < limit; iter++ {
		maxDelta = 0
		for y, idx := 0, 0; y < h; y++ {
			for x := 0; x < w; x, idx = x+1, idx+1 {
				// Implicit 5-point stencil, only neighbours inside the grid
				// take part.
				var diag, offDiag float64
				if x > 0 {
					diag += scale
					offDiag -= scale * ps.p[idx-1]
				}
				if y > 0 {
					diag += scale
					offDiag -= scale * ps.p[idx-w]
				}
				if x < w-1 {
					diag += scale
					offDiag -= scale * ps.p[idx+1]
				}
				if y < h-1 {
					diag += scale
					offDiag -= scale * ps.p[idx+w]
				}
				if diag == 0 {
					// A 1x1 grid has no neighbours to exchange fluid with.
					continue
				}

				newP := (ps.r[idx] - offDiag) / diag
				maxDelta = math.Max(maxDelta, math.Abs(ps.p[idx]-newP))
				ps.p[idx] = newP
			}
		}

		if maxDelta < Tolerance {
			return Report{Iterations: iter + 1, Residual: maxDelta, Converged: true}
		}
	}

	return Report{Iterations: limit, Residual: maxDelta, Converged: false}
}

// ApplyPressure subtracts the pressure gradient from vel and zeroes every
// velocity sample on the domain border.
func (ps *PressureSolver) ApplyPressure(vel *VelocityField, dt float64) {
	scale := dt / (ps.density * ps.cellSize)
	u, v := vel.U, vel.V

	for y, idx := 0, 0; y < ps.height; y++ {
		for x := 0; x < ps.width; x, idx = x+1, idx+1 {
			dp := scale * ps.p[idx]
			u.Set(x, y, u.At(x, y)-dp)
			u.Set(x+1, y, u.At(x+1, y)+dp)
			v.Set(x, y, v.At(x, y)-dp)
			v.Set(x, y+1, v.At(x, y+1)+dp)
		}
	}

	for y := 0; y < ps.height; y++ {
		u.Set(0, y, 0)
		u.Set(ps.width, y, 0)
	}
	for x := 0; x < ps.width; x++ {
		v.Set(x, 0, 0)
		v.Set(x, ps.height, 0)
	}
}

// Divergence returns the discrete divergence of vel at every cell center.
func (ps *PressureSolver) Divergence(vel *VelocityField) []float64 {
	div := make([]float64, ps.width*ps.height)
	scale := 1.0 / ps.cellSize

	for y, idx := 0, 0; y < ps.height; y++ {
		for x := 0; x < ps.width; x, idx = x+1, idx+1 {
			div[idx] = scale * (vel.U.At(x+1, y) - vel.U.At(x, y) +
				vel.V.At(x, y+1) - vel.V.At(x, y))
		}
	}

	return div
}
