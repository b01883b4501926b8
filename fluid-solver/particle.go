package fluid

// Particle is a passive tracer carried along by the flow. It has no effect on
// the simulation and only serves visualization.
type Particle struct {
	x, y   float64
	vx, vy float64
	age    float64
	dead   bool
}

// NewParticle spawns a new particle at world coordinates {x, y}.
func NewParticle(x, y float64) *Particle {
	return &Particle{x: x, y: y}
}

// Position returns the particle position in world units.
func (p *Particle) Position() Vec {
	return Vec{p.x, p.y}
}

// Velocity returns the flow velocity the particle moved with on its last step.
func (p *Particle) Velocity() Vec {
	return Vec{p.vx, p.vy}
}

// Age returns the simulated time the particle has been alive.
func (p *Particle) Age() float64 {
	return p.age
}

// Dead reports whether the particle left the domain.
func (p *Particle) Dead() bool {
	return p.dead
}

// advance moves the particle by one forward Euler step through vel.
func (p *Particle) advance(vel *VelocityField, dt, maxX, maxY float64) {
	if p.dead {
		return
	}
	v := vel.Sample(p.x, p.y)
	p.vx, p.vy = v.X, v.Y
	p.x += v.X * dt
	p.y += v.Y * dt
	p.age += dt

	if p.x < 0 || p.y < 0 || p.x > maxX || p.y > maxY {
		p.dead = true
	}
}

// AddTracer releases a tracer particle at world position (x, y).
func (s *Solver) AddTracer(x, y float64) *Particle {
	p := NewParticle(x, y)
	s.tracers = append(s.tracers, p)
	return p
}

// Tracers returns the live tracer particles.
func (s *Solver) Tracers() []*Particle {
	return s.tracers
}

func (s *Solver) moveTracers(dt float64) {
	if len(s.tracers) == 0 {
		return
	}
	maxX := float64(s.width) * s.cellSize
	maxY := float64(s.height) * s.cellSize

	alive := s.tracers[:0]
	for _, p := range s.tracers {
		p.advance(s.vel, dt, maxX, maxY)
		if !p.dead {
			alive = append(alive, p)
		}
	}
	for i := len(alive); i < len(s.tracers); i++ {
		s.tracers[i] = nil
	}
	s.tracers = alive
}
