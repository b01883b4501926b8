// Package config reads simulation scenarios from gcfg (INI style) files.
//
// A scenario looks like:
//
//	[simulation]
//	width = 128
//	height = 128
//	density = 0.1
//	frames = 60
//
//	[inflow "jet"]
//	x = 0.45
//	y = 0.2
//	w = 0.1
//	h = 0.01
//	density = 1.0
//	v = 3.0
//
//	[output]
//	text = frames.txt
//	gif = frames.gif
package config

import (
	"fmt"
	"sort"

	fluid "github.com/esimov/mac-fluid/fluid-solver"
	"gopkg.in/gcfg.v1"
)

type SimulationConfig struct {
	// Required
	Width, Height int
	Density       float64

	// Optional
	Frames         int
	TimestepCap    float64 `gcfg:"timestep-cap"`
	FrameDuration  float64 `gcfg:"frame-duration"`
	IterationLimit int     `gcfg:"iteration-limit"`
	Parallel       bool
	Seed           string
}

func (sim *SimulationConfig) CheckInit() error {
	if sim.Width <= 0 || sim.Height <= 0 {
		return fmt.Errorf(
			"Need to specify a positive width and height for [simulation], got %dx%d.",
			sim.Width, sim.Height,
		)
	} else if sim.Density <= 0 {
		return fmt.Errorf(
			"Need to specify a positive density for [simulation], got %g.", sim.Density,
		)
	}

	if sim.Frames < 0 {
		return fmt.Errorf("[simulation] given a negative frame count, %d.", sim.Frames)
	} else if sim.TimestepCap <= 0 {
		return fmt.Errorf("[simulation] timestep-cap must be positive, but is %g.", sim.TimestepCap)
	} else if sim.FrameDuration <= 0 {
		return fmt.Errorf("[simulation] frame-duration must be positive, but is %g.", sim.FrameDuration)
	} else if sim.IterationLimit <= 0 {
		return fmt.Errorf("[simulation] iteration-limit must be positive, but is %d.", sim.IterationLimit)
	}

	return nil
}

// Extent returns the size of the simulation domain in world units. The
// shorter side of the grid always spans one unit.
func (sim *SimulationConfig) Extent() (float64, float64) {
	short := float64(min(sim.Width, sim.Height))
	return float64(sim.Width) / short, float64(sim.Height) / short
}

type InflowConfig struct {
	// Required
	X, Y, W, H float64

	// Optional
	Density float64
	U, V    float64
	Name    string
}

func (in *InflowConfig) CheckInit(name string, xWidth, yWidth float64) error {
	if in.W <= 0 || in.H <= 0 {
		return fmt.Errorf(
			"Need to specify a positive w and h for Inflow '%s'.", name,
		)
	}

	if in.X >= xWidth || in.X+in.W <= 0 {
		return fmt.Errorf(
			"Inflow '%s' spans x in [%g, %g], which misses the domain [0, %g].",
			name, in.X, in.X+in.W, xWidth,
		)
	} else if in.Y >= yWidth || in.Y+in.H <= 0 {
		return fmt.Errorf(
			"Inflow '%s' spans y in [%g, %g], which misses the domain [0, %g].",
			name, in.Y, in.Y+in.H, yWidth,
		)
	}

	in.Name = name

	return nil
}

type OutputConfig struct {
	Text  string
	GIF   string
	Scale int
}

func (out *OutputConfig) CheckInit() error {
	if out.Scale <= 0 {
		return fmt.Errorf("[output] scale must be at least 1, but is %d.", out.Scale)
	}
	return nil
}

type ServerConfig struct {
	Address string
	Prefix  string
	Root    string
}

type Config struct {
	Simulation SimulationConfig
	Output     OutputConfig
	Server     ServerConfig
	Inflow     map[string]*InflowConfig
}

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Frames:         60,
			TimestepCap:    fluid.DefaultTimestepCap,
			FrameDuration:  fluid.DefaultFrameDuration,
			IterationLimit: fluid.DefaultIterationLimit,
		},
		Output: OutputConfig{
			Scale: 4,
		},
		Server: ServerConfig{
			Address: "localhost:5000",
			Prefix:  "/",
			Root:    ".",
		},
	}
}

// Read parses the scenario file fname on top of the defaults.
func Read(fname string) (*Config, error) {
	c := Default()
	if err := gcfg.ReadFileInto(c, fname); err != nil {
		return nil, err
	}
	if err := c.CheckInit(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse is Read for a scenario held in memory.
func Parse(text string) (*Config, error) {
	c := Default()
	if err := gcfg.ReadStringInto(c, text); err != nil {
		return nil, err
	}
	if err := c.CheckInit(); err != nil {
		return nil, err
	}
	return c, nil
}

// CheckInit validates every section.
func (c *Config) CheckInit() error {
	if err := c.Simulation.CheckInit(); err != nil {
		return err
	}
	if err := c.Output.CheckInit(); err != nil {
		return err
	}

	xWidth, yWidth := c.Simulation.Extent()
	for name, in := range c.Inflow {
		if err := in.CheckInit(name, xWidth, yWidth); err != nil {
			return err
		}
	}

	return nil
}

// Params returns the physical parameters of the solver.
func (c *Config) Params() fluid.Params {
	return fluid.Params{
		Width:   c.Simulation.Width,
		Height:  c.Simulation.Height,
		Density: c.Simulation.Density,
	}
}

// Options returns the solver options configured in [simulation].
func (c *Config) Options() []fluid.Option {
	return []fluid.Option{
		fluid.WithTimestepCap(c.Simulation.TimestepCap),
		fluid.WithFrameDuration(c.Simulation.FrameDuration),
		fluid.WithIterationLimit(c.Simulation.IterationLimit),
		fluid.WithParallelAdvection(c.Simulation.Parallel),
	}
}

// Inflows returns the configured inflows ordered by name.
func (c *Config) Inflows() []fluid.Inflow {
	names := make([]string, 0, len(c.Inflow))
	for name := range c.Inflow {
		names = append(names, name)
	}
	sort.Strings(names)

	inflows := make([]fluid.Inflow, 0, len(names))
	for _, name := range names {
		in := c.Inflow[name]
		inflows = append(inflows, fluid.Inflow{
			X: in.X, Y: in.Y, W: in.W, H: in.H,
			Density: in.Density, U: in.U, V: in.V,
		})
	}
	return inflows
}
