package fluid

import "testing"

func newBenchSolver(b *testing.B, parallel bool) *Solver {
	s, err := NewSolver(Params{Width: 128, Height: 128, Density: 0.1},
		WithParallelAdvection(parallel))
	if err != nil {
		b.Fatal(err)
	}
	s.AddInflow(Inflow{X: 0.45, Y: 0.2, W: 0.1, H: 0.01, Density: 1, V: 3})
	return s
}

func BenchmarkStep(b *testing.B) {
	s := newBenchSolver(b, false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Step(s.Timestep())
	}
}

func BenchmarkStepParallelAdvection(b *testing.B) {
	s := newBenchSolver(b, true)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Step(s.Timestep())
	}
}

func BenchmarkAdvect(b *testing.B) {
	s := newBenchSolver(b, false)
	s.Velocity().U.Fill(0.5)
	s.Velocity().V.Fill(-0.25)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Advect(0.01, s.Velocity(), s.Density())
	}
}
