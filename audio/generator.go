package audio

import (
	"fmt"
	"math"
)

// ConstantGenerator emits a fixed value for a fixed number of samples
type ConstantGenerator struct {
	value     float64
	remaining int
}

// NewConstantGenerator creates a generator of size samples at value
func NewConstantGenerator(value float64, size int) (*ConstantGenerator, error) {
	if size < 0 || !finite(value) {
		return nil, fmt.Errorf("%w: constant(value=%g, size=%d)", ErrInvalidVoice, value, size)
	}
	return &ConstantGenerator{value: value, remaining: size}, nil
}

func (g *ConstantGenerator) Sample() float64 {
	if g.remaining <= 0 {
		return 0
	}
	g.remaining--
	return g.value
}

func (g *ConstantGenerator) Finished() bool {
	return g.remaining <= 0
}

// RampGenerator interpolates start to end over size samples, both endpoints included
type RampGenerator struct {
	start, end float64
	size       int
	pos        int
}

// NewRampGenerator creates a linear ramp
func NewRampGenerator(start, end float64, size int) (*RampGenerator, error) {
	if size < 0 || !finite(start) || !finite(end) {
		return nil, fmt.Errorf("%w: ramp(start=%g, end=%g, size=%d)", ErrInvalidVoice, start, end, size)
	}
	return &RampGenerator{start: start, end: end, size: size}, nil
}

func (g *RampGenerator) Sample() float64 {
	if g.pos >= g.size {
		return 0
	}

	var v float64
	if g.size == 1 {
		v = g.start
	} else {
		beta := float64(g.pos) / float64(g.size-1)
		v = (1-beta)*g.start + beta*g.end
	}
	g.pos++
	return v
}

func (g *RampGenerator) Finished() bool {
	return g.pos >= g.size
}

// ExponentialGenerator decays from start, halving every halfLife samples
type ExponentialGenerator struct {
	current   float64
	decay     float64
	remaining int
}

// NewExponentialGenerator creates a decaying generator
func NewExponentialGenerator(start, halfLife float64, size int) (*ExponentialGenerator, error) {
	if size < 0 || !finite(start) || !(halfLife > 0) || math.IsInf(halfLife, 0) {
		return nil, fmt.Errorf("%w: exponential(start=%g, halfLife=%g, size=%d)", ErrInvalidVoice, start, halfLife, size)
	}
	return &ExponentialGenerator{
		current:   start,
		decay:     HalfLifeToDecay(halfLife),
		remaining: size,
	}, nil
}

func (g *ExponentialGenerator) Sample() float64 {
	if g.remaining <= 0 {
		return 0
	}
	v := g.current
	g.current *= g.decay
	g.remaining--
	return v
}

func (g *ExponentialGenerator) Finished() bool {
	return g.remaining <= 0
}

// HalfLifeToDecay returns the per-sample factor that halves a value in halfLife samples
func HalfLifeToDecay(halfLife float64) float64 {
	return math.Pow(0.5, 1.0/halfLife)
}
