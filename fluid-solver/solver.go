package fluid

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidParams is returned when a solver is configured with a
	// non-positive grid size or fluid density.
	ErrInvalidParams = errors.New("fluid: invalid solver parameters")

	// ErrValueCount is returned when seed data does not match a field layout.
	ErrValueCount = errors.New("fluid: wrong number of field values")
)

const (
	DefaultTimestepCap    = 1.0 / 60.0
	DefaultIterationLimit = 600
	DefaultEpsilon        = 1e-6
	DefaultFrameDuration  = 1.0 / 15.0
)

// Params are the physical parameters of a simulation.
type Params struct {
	Width, Height int
	Density       float64
}

func (p Params) validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: grid must be at least 1x1, got %dx%d", ErrInvalidParams, p.Width, p.Height)
	}
	if !(p.Density > 0) {
		return fmt.Errorf("%w: fluid density must be positive, got %g", ErrInvalidParams, p.Density)
	}
	return nil
}

// validateOptions rejects option values that would keep Frame from ever
// completing.
func (s *Solver) validateOptions() error {
	switch {
	case !(s.timestepCap > 0):
		return fmt.Errorf("%w: timestep cap must be positive, got %g", ErrInvalidParams, s.timestepCap)
	case !(s.frameDuration > 0) || math.IsInf(s.frameDuration, 1):
		return fmt.Errorf("%w: frame duration must be positive and finite, got %g", ErrInvalidParams, s.frameDuration)
	case s.iterLimit <= 0:
		return fmt.Errorf("%w: iteration limit must be positive, got %d", ErrInvalidParams, s.iterLimit)
	case !(s.epsilon > 0):
		return fmt.Errorf("%w: epsilon must be positive, got %g", ErrInvalidParams, s.epsilon)
	}
	return nil
}

// Option customizes a Solver.
type Option func(*Solver)

// WithTimestepCap sets the largest substep the solver will take.
func WithTimestepCap(dt float64) Option {
	return func(s *Solver) { s.timestepCap = dt }
}

// WithIterationLimit bounds the number of Gauss-Seidel sweeps per step.
func WithIterationLimit(n int) Option {
	return func(s *Solver) { s.iterLimit = n }
}

// WithEpsilon sets the velocity floor used when deriving the timestep.
func WithEpsilon(eps float64) Option {
	return func(s *Solver) { s.epsilon = eps }
}

// WithFrameDuration sets the simulated time covered by one Frame call.
func WithFrameDuration(d float64) Option {
	return func(s *Solver) { s.frameDuration = d }
}

// WithLogger sends pressure solve reports to l.
func WithLogger(l *log.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

// WithParallelAdvection spreads the advection rows over all CPUs. The result
// is identical to the sequential pass.
func WithParallelAdvection(on bool) Option {
	return func(s *Solver) { s.parallel = on }
}

// Solver sets up the fluid quantities, adds inflows, advects and enforces
// incompressibility.
type Solver struct {
	width, height int
	cellSize      float64
	fluidDensity  float64

	density  *ScalarField
	vel      *VelocityField
	pressure *PressureSolver

	inflows []Inflow
	tracers []*Particle

	timestepCap   float64
	iterLimit     int
	epsilon       float64
	frameDuration float64
	parallel      bool
	logger        *log.Logger

	time  float64
	frame int
}

// NewSolver validates p and allocates every field of the simulation.
func NewSolver(p Params, opts ...Option) (*Solver, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	cellSize := 1.0 / float64(min(p.Width, p.Height))
	s := &Solver{
		width:         p.Width,
		height:        p.Height,
		cellSize:      cellSize,
		fluidDensity:  p.Density,
		timestepCap:   DefaultTimestepCap,
		iterLimit:     DefaultIterationLimit,
		epsilon:       DefaultEpsilon,
		frameDuration: DefaultFrameDuration,
		logger:        log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.validateOptions(); err != nil {
		return nil, err
	}

	s.density = NewScalarField(p.Width, p.Height, 0.5, 0.5, cellSize)
	s.vel = NewVelocityField(p.Width, p.Height, cellSize)
	s.pressure = NewPressureSolver(p.Width, p.Height, cellSize, p.Density)

	return s, nil
}

func (s *Solver) Width() int                { return s.width }
func (s *Solver) Height() int               { return s.height }
func (s *Solver) CellSize() float64         { return s.cellSize }
func (s *Solver) Density() *ScalarField     { return s.density }
func (s *Solver) Velocity() *VelocityField  { return s.vel }
func (s *Solver) Pressure() *PressureSolver { return s.pressure }

// Time returns the simulated time elapsed so far.
func (s *Solver) Time() float64 { return s.time }

// AddInflow registers an inflow applied at the start of every step.
func (s *Solver) AddInflow(in Inflow) {
	s.inflows = append(s.inflows, in)
}

// ClearInflows removes every registered inflow.
func (s *Solver) ClearInflows() {
	s.inflows = s.inflows[:0]
}

// SeedDensity replaces the density field with values given in row-major
// order. The field is left untouched when the count does not match.
func (s *Solver) SeedDensity(values []float64) error {
	return s.density.Load(values)
}

// MaxVelocity returns the largest magnitude among all velocity samples.
func (s *Solver) MaxVelocity() float64 {
	return math.Max(
		floats.Norm(s.vel.U.Values(), math.Inf(1)),
		floats.Norm(s.vel.V.Values(), math.Inf(1)),
	)
}

// Timestep derives a stable substep from the current maximum velocity.
func (s *Solver) Timestep() float64 {
	return math.Min(s.timestepCap, 1.0/math.Max(s.epsilon, s.MaxVelocity()))
}

// Step advances the simulation by dt: inflows are stamped, density and
// velocity are advected, then the pressure solve removes the divergence.
func (s *Solver) Step(dt float64) Report {
	for _, in := range s.inflows {
		in.Apply(s)
	}

	advect(dt, s.vel, s.parallel, []*ScalarField{s.density, s.vel.U, s.vel.V})

	s.pressure.BuildRHS(s.vel)
	rep := s.pressure.Project(s.iterLimit, dt)
	if rep.Converged {
		s.logger.Printf("pressure solve converged after %d iterations, max change %g", rep.Iterations, rep.Residual)
	} else {
		s.logger.Printf("pressure solve exceeded budget of %d iterations, max change %g", rep.Iterations, rep.Residual)
	}
	s.pressure.ApplyPressure(s.vel, dt)

	s.moveTracers(dt)
	s.time += dt

	return rep
}

// Frame steps the simulation until one frame duration has elapsed and returns
// the resulting state. The last substep is shortened so that every frame
// covers exactly the same simulated time.
func (s *Solver) Frame() *Frame {
	var (
		rep   Report
		steps int
	)
	for remaining := s.frameDuration; remaining > 0; steps++ {
		dt := math.Min(s.Timestep(), remaining)
		rep = s.Step(dt)
		remaining -= dt
	}

	f := s.snapshot()
	f.Steps = steps
	f.Report = rep
	s.frame++

	return f
}

func (s *Solver) snapshot() *Frame {
	f := &Frame{
		Index:    s.frame,
		Time:     s.time,
		Width:    s.width,
		Height:   s.height,
		Velocity: make([]Vec, s.width*s.height),
		Density:  make([]float64, s.width*s.height),
	}
	copy(f.Density, s.density.Values())
	for y, idx := 0, 0; y < s.height; y++ {
		for x := 0; x < s.width; x, idx = x+1, idx+1 {
			f.Velocity[idx] = s.vel.Center(x, y)
		}
	}
	for _, p := range s.tracers {
		f.Tracers = append(f.Tracers, p.Position())
	}

	return f
}
