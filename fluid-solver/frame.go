package fluid

import (
	"context"
	"fmt"
)

// Frame is the state of the simulation at the end of one frame. Velocity and
// Density hold one cell centered sample per grid cell in row-major order.
type Frame struct {
	Index  int     `json:"index"`
	Time   float64 `json:"time"`
	Steps  int     `json:"steps"`
	Report Report  `json:"report"`

	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Velocity []Vec     `json:"velocity"`
	Density  []float64 `json:"density"`
	Tracers  []Vec     `json:"tracers,omitempty"`
}

// VelocityAt returns the cell centered velocity of cell (x, y).
func (f *Frame) VelocityAt(x, y int) Vec {
	return f.Velocity[x+y*f.Width]
}

// DensityAt returns the density of cell (x, y).
func (f *Frame) DensityAt(x, y int) float64 {
	return f.Density[x+y*f.Width]
}

// Sink accepts the frames produced by a simulation run.
type Sink interface {
	Accept(f *Frame) error
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(f *Frame) error

func (fn SinkFunc) Accept(f *Frame) error { return fn(f) }

// Run simulates n frames with s and hands every frame to all sinks in order.
// It stops at the first sink error, or when ctx is done between two frames.
func Run(ctx context.Context, s *Solver, n int, sinks ...Sink) error {
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		f := s.Frame()
		for _, sink := range sinks {
			if err := sink.Accept(f); err != nil {
				return fmt.Errorf("frame %d: %w", f.Index, err)
			}
		}
	}
	return nil
}
