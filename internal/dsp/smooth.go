package dsp

import "github.com/charmbracelet/harmonica"

const (
	springFrequency = 8.0
	springDamping   = 0.9
)

// Smoother eases a level in [0,1] toward its latest reading with a damped spring.
// It is not safe for concurrent use.
type Smoother struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
}

// NewSmoother creates a smoother stepped fps times per second.
func NewSmoother(fps int) *Smoother {
	if fps <= 0 {
		fps = 60
	}
	return &Smoother{spring: harmonica.NewSpring(harmonica.FPS(fps), springFrequency, springDamping)}
}

// Update moves one step toward target and returns the new level, clamped to [0,1].
func (s *Smoother) Update(target float64) float64 {
	s.pos, s.vel = s.spring.Update(s.pos, s.vel, target)
	return s.Value()
}

// Value returns the current level without stepping.
func (s *Smoother) Value() float64 {
	return min(max(s.pos, 0), 1)
}

// Reset drops the spring back to rest at zero.
func (s *Smoother) Reset() {
	s.pos, s.vel = 0, 0
}
