package audio

import (
	"fmt"
	"math"
)

// Curve selects the interpolation used across the sustain segment
type Curve int

const (
	CurveLinear      Curve = iota // Straight line slevel1 -> slevel2
	CurveExponential              // Geometric slevel1 -> slevel2, levels must be > 0
)

// String returns the config name of the curve
func (c Curve) String() string {
	switch c {
	case CurveLinear:
		return "linear"
	case CurveExponential:
		return "exponential"
	default:
		return "unknown"
	}
}

// ParseCurve maps a config name to a curve, empty selects CurveLinear
func ParseCurve(s string) (Curve, error) {
	switch s {
	case "", "linear":
		return CurveLinear, nil
	case "exponential", "exp", "log":
		return CurveExponential, nil
	default:
		return 0, fmt.Errorf("%w: unknown curve %q", ErrInvalidEnvelope, s)
	}
}

// EnvelopeParams describes a four segment envelope in samples
// Breakpoints: 0 -> 1.0 (attack) -> SLevel1 (decay) -> SLevel2 (sustain) -> 0 (release)
type EnvelopeParams struct {
	Attack  int
	Decay   int
	Sustain int
	Release int
	SLevel1 float64 // Level at end of decay
	SLevel2 float64 // Level at end of sustain
	Curve   Curve
}

// DefaultEnvelopeParams returns a ~1s envelope at 16kHz
func DefaultEnvelopeParams() EnvelopeParams {
	return EnvelopeParams{
		Attack:  100,
		Decay:   100,
		Sustain: 16000,
		Release: 100,
		SLevel1: 0.5,
		SLevel2: 0.1,
	}
}

// Len returns the total length in samples
func (p EnvelopeParams) Len() int {
	return p.Attack + p.Decay + p.Sustain + p.Release
}

// Validate rejects parameters the envelope cannot represent
func (p EnvelopeParams) Validate() error {
	if p.Attack < 0 || p.Decay < 0 || p.Sustain < 0 || p.Release < 0 {
		return fmt.Errorf("%w: negative segment length in %s", ErrInvalidEnvelope, p)
	}
	if !unitLevel(p.SLevel1) || !unitLevel(p.SLevel2) {
		return fmt.Errorf("%w: levels must lie in [0,1] in %s", ErrInvalidEnvelope, p)
	}
	switch p.Curve {
	case CurveLinear:
	case CurveExponential:
		if p.Sustain > 0 && (p.SLevel1 == 0 || p.SLevel2 == 0) {
			return fmt.Errorf("%w: exponential sustain needs non-zero levels", ErrInvalidEnvelope)
		}
	default:
		return fmt.Errorf("%w: unknown curve %d", ErrInvalidEnvelope, p.Curve)
	}
	return nil
}

func (p EnvelopeParams) String() string {
	return fmt.Sprintf("EnvelopeParams(attack=%d, decay=%d, sustain=%d, release=%d, slevel1=%g, slevel2=%g, curve=%s)",
		p.Attack, p.Decay, p.Sustain, p.Release, p.SLevel1, p.SLevel2, p.Curve)
}

func unitLevel(v float64) bool {
	return v >= 0 && v <= 1
}

// Envelope evaluates EnvelopeParams at an absolute sample cursor
// Segment boundaries are precomputed, ValueAt is pure
type Envelope struct {
	params       EnvelopeParams
	decayStart   int
	sustainStart int
	releaseStart int
	length       int
	logLevel1    float64
	logLevel2    float64
}

// NewEnvelope builds an evaluator, params must already be valid
func NewEnvelope(p EnvelopeParams) Envelope {
	e := Envelope{
		params:       p,
		decayStart:   p.Attack,
		sustainStart: p.Attack + p.Decay,
		releaseStart: p.Attack + p.Decay + p.Sustain,
		length:       p.Len(),
	}
	if p.Curve == CurveExponential && p.SLevel1 > 0 && p.SLevel2 > 0 {
		e.logLevel1 = math.Log(p.SLevel1)
		e.logLevel2 = math.Log(p.SLevel2)
	}
	return e
}

// Params returns the parameters the envelope was built from
func (e Envelope) Params() EnvelopeParams {
	return e.params
}

// Len returns the total length in samples; ValueAt(Len()) is the finished sentinel
func (e Envelope) Len() int {
	return e.length
}

// ValueAt returns the gain in [0,1] at cursor
func (e Envelope) ValueAt(cursor int) float64 {
	if cursor < 0 || cursor >= e.length {
		return 0
	}

	p := &e.params
	switch {
	case cursor < e.decayStart:
		return float64(cursor) / float64(p.Attack)

	case cursor < e.sustainStart:
		t := float64(cursor-e.decayStart) / float64(p.Decay)
		return 1.0 - t*(1.0-p.SLevel1)

	case cursor < e.releaseStart:
		t := float64(cursor-e.sustainStart) / float64(p.Sustain)
		if p.Curve == CurveExponential {
			return math.Exp(e.logLevel1 + t*(e.logLevel2-e.logLevel1))
		}
		return p.SLevel1 + t*(p.SLevel2-p.SLevel1)

	default:
		t := float64(cursor-e.releaseStart) / float64(p.Release)
		return p.SLevel2 * (1.0 - t)
	}
}
