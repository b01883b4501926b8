package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/esimov/mac-fluid/config"
	fluid "github.com/esimov/mac-fluid/fluid-solver"
	"github.com/esimov/mac-fluid/frames"
	"github.com/esimov/mac-fluid/terminal"
	"github.com/esimov/mac-fluid/websocket"
	"gonum.org/v1/gonum/floats"
)

func main() {
	var (
		cfgFile = flag.String("c", "", "scenario file (gcfg), overrides the grid flags")
		width   = flag.Int("width", 128, "grid width in cells")
		height  = flag.Int("height", 128, "grid height in cells")
		density = flag.Float64("density", 0.1, "fluid density")
		nframes = flag.Int("frames", 60, "number of frames to simulate")
		text    = flag.String("o", "", "write frames in text format to this file")
		gifOut  = flag.String("gif", "", "write a density animation to this file")
		term    = flag.Bool("term", false, "show the simulation in the terminal")
		serve   = flag.Bool("serve", false, "stream frames to websocket clients")
		fps     = flag.Int("fps", 0, "limit the frame rate of live views")
		verbose = flag.Bool("v", false, "log every pressure solve and frame")
	)
	flag.Parse()

	cfg, err := loadConfig(*cfgFile, *width, *height, *density, *nframes)
	if err != nil {
		log.Fatalln(err)
	}
	if *text != "" {
		cfg.Output.Text = *text
	}
	if *gifOut != "" {
		cfg.Output.GIF = *gifOut
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if *term {
		// The terminal belongs to termbox, log to a file instead.
		logfile, err := os.OpenFile("debug.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalln(err)
		}
		defer logfile.Close()
		logger.SetOutput(logfile)
	}

	opts := cfg.Options()
	if *verbose {
		opts = append(opts, fluid.WithLogger(logger))
	}
	solver, err := fluid.NewSolver(cfg.Params(), opts...)
	if err != nil {
		log.Fatalln(err)
	}
	for _, in := range cfg.Inflows() {
		solver.AddInflow(in)
	}
	if cfg.Simulation.Seed != "" {
		if err := frames.SeedDensity(solver, cfg.Simulation.Seed); err != nil {
			log.Fatalln(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		sinks   []fluid.Sink
		closers []io.Closer
	)
	if cfg.Output.Text != "" {
		f, err := os.Create(cfg.Output.Text)
		if err != nil {
			log.Fatalln(err)
		}
		tw := frames.NewTextWriter(f, cfg.Simulation.Frames)
		sinks = append(sinks, tw)
		closers = append(closers, f, tw)
	}
	if cfg.Output.GIF != "" {
		f, err := os.Create(cfg.Output.GIF)
		if err != nil {
			log.Fatalln(err)
		}
		gw := frames.NewGIFWriter(f, cfg.Output.Scale, int(100*cfg.Simulation.FrameDuration))
		sinks = append(sinks, gw)
		closers = append(closers, f, gw)
	}
	if *serve {
		hub := websocket.NewHub(logger)
		params := websocket.HttpParams{
			Address: cfg.Server.Address,
			Prefix:  cfg.Server.Prefix,
			Root:    cfg.Server.Root,
		}
		go func() {
			if err := websocket.Serve(ctx, params, hub); err != nil && !errors.Is(err, context.Canceled) {
				logger.Println(err)
			}
		}()
		sinks = append(sinks, hub, fluid.SinkFunc(func(*fluid.Frame) error {
			for _, m := range hub.Markers() {
				solver.AddTracer(m.X, m.Y)
			}
			return nil
		}))
	}
	if *term {
		t := terminal.New(logger.Writer())
		if err := t.Open(); err != nil {
			log.Fatalln(err)
		}
		defer t.Close()
		sinks = append(sinks, t, fluid.SinkFunc(func(*fluid.Frame) error {
			for _, c := range t.Clicks() {
				solver.AddTracer(c.X, c.Y)
			}
			return nil
		}))
	}
	if *verbose {
		sinks = append(sinks, fluid.SinkFunc(func(f *fluid.Frame) error {
			div := solver.Pressure().Divergence(solver.Velocity())
			logger.Printf("frame %d: %d steps, t=%.3f, max divergence %g",
				f.Index, f.Steps, f.Time, floats.Norm(div, math.Inf(1)))
			return nil
		}))
	}
	if *fps > 0 {
		tick := time.NewTicker(time.Second / time.Duration(*fps))
		defer tick.Stop()
		sinks = append(sinks, fluid.SinkFunc(func(*fluid.Frame) error {
			select {
			case <-tick.C:
			case <-ctx.Done():
			}
			return nil
		}))
	}

	start := time.Now()
	err = fluid.Run(ctx, solver, cfg.Simulation.Frames, sinks...)
	switch {
	case err == nil:
		logger.Printf("simulated %d frames in %s", cfg.Simulation.Frames, time.Since(start))
	case errors.Is(err, terminal.ErrClosed), errors.Is(err, context.Canceled):
		logger.Printf("stopped after %.3fs of simulated time", solver.Time())
	default:
		logger.Println(err)
	}

	// Writers come after their files, close in reverse.
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Println(err)
		}
	}
}

// loadConfig reads the scenario file, or builds a single jet scenario from the
// command line flags when no file is given.
func loadConfig(fname string, width, height int, density float64, nframes int) (*config.Config, error) {
	if fname != "" {
		return config.Read(fname)
	}

	cfg := config.Default()
	cfg.Simulation.Width = width
	cfg.Simulation.Height = height
	cfg.Simulation.Density = density
	cfg.Simulation.Frames = nframes
	cfg.Inflow = map[string]*config.InflowConfig{
		"jet": {X: 0.45, Y: 0.2, W: 0.1, H: 0.01, Density: 1.0, U: 0.0, V: 3.0},
	}

	if err := cfg.CheckInit(); err != nil {
		return nil, err
	}
	return cfg, nil
}
