package fluid

// Inflow continuously feeds density and velocity into a rectangle of the
// domain. X, Y is the lower left corner and W, H the extent, in world units.
type Inflow struct {
	X, Y, W, H float64

	Density float64
	U, V    float64
}

// Apply stamps the inflow values into the density and both velocity
// components of s.
func (in Inflow) Apply(s *Solver) {
	x0, y0 := in.X, in.Y
	x1, y1 := in.X+in.W, in.Y+in.H

	s.density.AddInflow(x0, y0, x1, y1, in.Density)
	s.vel.U.AddInflow(x0, y0, x1, y1, in.U)
	s.vel.V.AddInflow(x0, y0, x1, y1, in.V)
}
