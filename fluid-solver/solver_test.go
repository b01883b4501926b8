package fluid

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSolverRejectsInvalidParams(t *testing.T) {
	valid := Params{Width: 4, Height: 4, Density: 1}
	tests := []struct {
		name   string
		params Params
		opts   []Option
	}{
		{"zero width", Params{Width: 0, Height: 4, Density: 1}, nil},
		{"negative height", Params{Width: 4, Height: -1, Density: 1}, nil},
		{"zero density", Params{Width: 4, Height: 4, Density: 0}, nil},
		{"negative density", Params{Width: 4, Height: 4, Density: -0.1}, nil},
		{"NaN density", Params{Width: 4, Height: 4, Density: math.NaN()}, nil},
		{"zero timestep cap", valid, []Option{WithTimestepCap(0)}},
		{"negative timestep cap", valid, []Option{WithTimestepCap(-0.01)}},
		{"NaN timestep cap", valid, []Option{WithTimestepCap(math.NaN())}},
		{"zero frame duration", valid, []Option{WithFrameDuration(0)}},
		{"NaN frame duration", valid, []Option{WithFrameDuration(math.NaN())}},
		{"infinite frame duration", valid, []Option{WithFrameDuration(math.Inf(1))}},
		{"zero iteration limit", valid, []Option{WithIterationLimit(0)}},
		{"zero epsilon", valid, []Option{WithEpsilon(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSolver(tt.params, tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidParams)
			assert.Nil(t, s)
		})
	}
}

func TestNewSolverLayout(t *testing.T) {
	s, err := NewSolver(Params{Width: 4, Height: 3, Density: 0.1})
	require.NoError(t, err)

	assert.InDelta(t, 1.0/3, s.CellSize(), 1e-15)

	d := s.Density()
	assert.Equal(t, 4, d.Width())
	assert.Equal(t, 3, d.Height())

	u, v := s.Velocity().U, s.Velocity().V
	assert.Equal(t, []int{5, 3}, []int{u.Width(), u.Height()})
	assert.Equal(t, []int{4, 4}, []int{v.Width(), v.Height()})

	ox, oy := u.Offset()
	assert.Equal(t, []float64{0, 0.5}, []float64{ox, oy})
	ox, oy = v.Offset()
	assert.Equal(t, []float64{0.5, 0}, []float64{ox, oy})
	assert.Equal(t, s.CellSize(), u.CellSize())
	assert.Equal(t, s.CellSize(), v.CellSize())
}

func TestTimestep(t *testing.T) {
	s, err := NewSolver(Params{Width: 4, Height: 4, Density: 1}, WithTimestepCap(0.02))
	require.NoError(t, err)

	assert.Equal(t, 0.02, s.Timestep(), "fluid at rest uses the cap")

	s.Velocity().V.Set(2, 2, -200)
	assert.Equal(t, 200.0, s.MaxVelocity())
	assert.InDelta(t, 1.0/200, s.Timestep(), 1e-15)
}

func TestStepWithoutVelocityKeepsInflowInPlace(t *testing.T) {
	s, err := NewSolver(Params{Width: 4, Height: 4, Density: 1})
	require.NoError(t, err)
	s.AddInflow(Inflow{X: 0.375, Y: 0.375, W: 0.25, H: 0.25, Density: 1})

	rep := s.Step(0.01)

	assert.True(t, rep.Converged)
	assert.Equal(t, 1, rep.Iterations)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := 0.0
			if x == 1 && y == 1 {
				want = 1.0
			}
			assert.InDelta(t, want, s.Density().At(x, y), 1e-12, "cell (%d,%d)", x, y)
		}
	}
}

func TestStepKeepsFlowDivergenceFree(t *testing.T) {
	const n = 16
	s, err := NewSolver(Params{Width: n, Height: n, Density: 0.1}, WithIterationLimit(5000))
	require.NoError(t, err)
	s.AddInflow(Inflow{X: 0.45, Y: 0.2, W: 0.1, H: 0.05, Density: 1, U: 0, V: 3})

	for i := 0; i < 5; i++ {
		rep := s.Step(s.Timestep())
		require.True(t, rep.Converged, "step %d", i)

		assertBorderIsZero(t, s.Velocity(), n, n)
		for c, div := range s.Pressure().Divergence(s.Velocity()) {
			assert.InDelta(t, 0.0, div, 5e-3, "step %d cell %d", i, c)
		}
	}
	assert.Greater(t, s.MaxVelocity(), 0.0)
}

func TestStepLogsReport(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewSolver(Params{Width: 2, Height: 2, Density: 1}, WithLogger(log.New(&buf, "", 0)))
	require.NoError(t, err)

	s.Step(0.01)

	assert.Contains(t, buf.String(), "converged after 1 iterations")
}

func TestFrameCoversFrameDuration(t *testing.T) {
	s, err := NewSolver(Params{Width: 8, Height: 8, Density: 1},
		WithTimestepCap(0.03), WithFrameDuration(0.1))
	require.NoError(t, err)

	f := s.Frame()

	assert.Equal(t, 0, f.Index)
	assert.Equal(t, 4, f.Steps)
	assert.InDelta(t, 0.1, f.Time, 1e-12)
	assert.InDelta(t, 0.1, s.Time(), 1e-12)
	assert.Len(t, f.Velocity, 64)
	assert.Len(t, f.Density, 64)

	assert.Equal(t, 1, s.Frame().Index)
}

func TestFrameIsASnapshot(t *testing.T) {
	s, err := NewSolver(Params{Width: 3, Height: 3, Density: 1})
	require.NoError(t, err)
	s.AddInflow(Inflow{X: 0, Y: 0, W: 1, H: 1, Density: 0.5})

	f := s.Frame()
	require.Equal(t, 0.5, f.DensityAt(1, 1))

	s.Density().Fill(0)
	assert.Equal(t, 0.5, f.DensityAt(1, 1))
}

func TestSeedDensity(t *testing.T) {
	s, err := NewSolver(Params{Width: 2, Height: 2, Density: 1})
	require.NoError(t, err)

	require.NoError(t, s.SeedDensity([]float64{1, 0, 0, 1}))
	assert.Equal(t, 1.0, s.Density().At(1, 1))

	err = s.SeedDensity([]float64{1, 2})
	assert.ErrorIs(t, err, ErrValueCount)
	assert.Equal(t, []float64{1, 0, 0, 1}, s.Density().Values())
}

func TestRun(t *testing.T) {
	s, err := NewSolver(Params{Width: 4, Height: 4, Density: 1})
	require.NoError(t, err)

	var got []int
	sink := SinkFunc(func(f *Frame) error {
		got = append(got, f.Index)
		return nil
	})
	require.NoError(t, Run(context.Background(), s, 3, sink))
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestRunStopsOnSinkError(t *testing.T) {
	s, err := NewSolver(Params{Width: 4, Height: 4, Density: 1})
	require.NoError(t, err)

	boom := errors.New("disk full")
	calls := 0
	sink := SinkFunc(func(f *Frame) error {
		calls++
		if f.Index == 1 {
			return boom
		}
		return nil
	})

	err = Run(context.Background(), s, 5, sink)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestRunHonoursCancellation(t *testing.T) {
	s, err := NewSolver(Params{Width: 4, Height: 4, Density: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = Run(ctx, s, 5, SinkFunc(func(*Frame) error {
		called = true
		return nil
	}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestTracers(t *testing.T) {
	s, err := NewSolver(Params{Width: 4, Height: 4, Density: 1})
	require.NoError(t, err)

	vel := NewVelocityField(4, 4, s.CellSize())
	vel.U.Fill(2.0)

	p := NewParticle(0.5, 0.5)
	p.advance(vel, 0.1, 1, 1)
	assert.InDelta(t, 0.7, p.Position().X, 1e-12)
	assert.InDelta(t, 0.5, p.Position().Y, 1e-12)
	assert.InDelta(t, 2.0, p.Velocity().X, 1e-12)
	assert.InDelta(t, 0.1, p.Age(), 1e-12)
	assert.False(t, p.Dead())

	p.advance(vel, 0.2, 1, 1)
	assert.True(t, p.Dead())

	s.AddTracer(0.5, 0.5)
	s.AddTracer(2.0, 0.5)
	s.Step(0.01)
	require.Len(t, s.Tracers(), 1)
	assert.Len(t, s.Frame().Tracers, 1)
}
