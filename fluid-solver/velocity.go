package fluid

// Vec is a 2D vector, used for cell centered velocity samples.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// VelocityField is the staggered (MAC) velocity: U samples sit on the
// vertical cell faces and V samples on the horizontal ones.
type VelocityField struct {
	width, height int

	U *ScalarField
	V *ScalarField
}

// NewVelocityField allocates the two staggered components for a grid of
// width x height cells.
func NewVelocityField(width, height int, cellSize float64) *VelocityField {
	return &VelocityField{
		width:  width,
		height: height,
		U:      NewScalarField(width+1, height, 0.0, 0.5, cellSize),
		V:      NewScalarField(width, height+1, 0.5, 0.0, cellSize),
	}
}

// Sample interpolates both components at world position (x, y).
func (vf *VelocityField) Sample(x, y float64) Vec {
	return Vec{vf.U.Lerp(x, y), vf.V.Lerp(x, y)}
}

// Center returns the velocity at the center of cell (x, y), the mean of the
// two faces straddling the cell on each axis.
func (vf *VelocityField) Center(x, y int) Vec {
	return Vec{
		X: 0.5 * (vf.U.At(x, y) + vf.U.At(x+1, y)),
		Y: 0.5 * (vf.V.At(x, y) + vf.V.At(x, y+1)),
	}
}
