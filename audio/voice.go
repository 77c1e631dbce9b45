package audio

import (
	"fmt"
	"math"
)

const twoPi = 2 * math.Pi

// Generator is a finite sample source owned by a Sequencer
type Generator interface {
	// Sample returns the next sample and advances by one
	Sample() float64
	// Finished reports whether all samples have been produced
	Finished() bool
}

// VoiceOption configures a voice at construction
type VoiceOption func(*voiceOptions)

type voiceOptions struct {
	gain float64
	mode ModulationMode
}

// WithGain sets the per-voice gain (default 1.0)
func WithGain(gain float64) VoiceOption {
	return func(o *voiceOptions) {
		o.gain = gain
	}
}

// WithMode selects phase or frequency modulation (default PhaseModulation)
func WithMode(mode ModulationMode) VoiceOption {
	return func(o *voiceOptions) {
		o.mode = mode
	}
}

// Voice is one FM tone: carrier, harmonic modulator, two envelopes
type Voice struct {
	spec   ModulationSpec
	modEnv Envelope
	ampEnv Envelope

	phaseStep    float64   // Carrier radians per sample
	carrierPhase float64   // Wrapped to [0, 2pi)
	modSteps     []float64 // Per-harmonic radians per sample
	modPhases    []float64 // Per-harmonic phase, wrapped to [0, 2pi)

	cursor int // Shared by both envelopes, equal lengths enforced
	length int
	gain   float64
	mode   ModulationMode
}

// NewVoice validates all parameters; a returned voice cannot fail while rendering
func NewVoice(spec ModulationSpec, modEnv, ampEnv EnvelopeParams, phasePerSample float64, opts ...VoiceOption) (*Voice, error) {
	o := voiceOptions{gain: 1.0, mode: PhaseModulation}
	for _, opt := range opts {
		opt(&o)
	}

	if err := modEnv.Validate(); err != nil {
		return nil, fmt.Errorf("modulator envelope: %w", err)
	}
	if err := ampEnv.Validate(); err != nil {
		return nil, fmt.Errorf("amplitude envelope: %w", err)
	}
	if modEnv.Len() != ampEnv.Len() {
		return nil, fmt.Errorf("%w: modulator %d, amplitude %d samples",
			ErrEnvelopeMismatch, modEnv.Len(), ampEnv.Len())
	}
	if len(spec.harmonics) != len(spec.amplitudes) {
		return nil, ErrModulationMismatch
	}
	if !finite(phasePerSample) {
		return nil, fmt.Errorf("%w: phase per sample %g", ErrInvalidVoice, phasePerSample)
	}
	if !finite(o.gain) {
		return nil, fmt.Errorf("%w: gain %g", ErrInvalidVoice, o.gain)
	}
	if o.mode != PhaseModulation && o.mode != FrequencyModulation {
		return nil, fmt.Errorf("%w: modulation mode %d", ErrInvalidVoice, o.mode)
	}

	v := &Voice{
		spec:      spec,
		modEnv:    NewEnvelope(modEnv),
		ampEnv:    NewEnvelope(ampEnv),
		phaseStep: phasePerSample,
		modSteps:  make([]float64, spec.Len()),
		modPhases: make([]float64, spec.Len()),
		length:    ampEnv.Len(),
		gain:      o.gain,
		mode:      o.mode,
	}
	for i, h := range spec.harmonics {
		v.modSteps[i] = h * phasePerSample
	}
	return v, nil
}

// Sample renders one sample and advances phases and envelope cursor
func (v *Voice) Sample() float64 {
	if v.cursor >= v.length {
		return 0
	}

	// Modulation signal scaled by modulator envelope
	mod := 0.0
	for i, a := range v.spec.amplitudes {
		mod += a * math.Sin(v.modPhases[i])
	}
	mod *= v.modEnv.ValueAt(v.cursor)

	var carrier float64
	switch v.mode {
	case FrequencyModulation:
		carrier = math.Sin(v.carrierPhase)
		v.carrierPhase = wrapPhase(v.carrierPhase + v.phaseStep*(1+mod))
	default:
		carrier = math.Sin(v.carrierPhase + mod)
		v.carrierPhase = wrapPhase(v.carrierPhase + v.phaseStep)
	}

	out := carrier * v.ampEnv.ValueAt(v.cursor) * v.gain

	for i, step := range v.modSteps {
		v.modPhases[i] = wrapPhase(v.modPhases[i] + step)
	}
	v.cursor++

	return out
}

// Finished becomes true once the amplitude envelope is exhausted and stays true
func (v *Voice) Finished() bool {
	return v.cursor >= v.length
}

// Len returns the voice length in samples
func (v *Voice) Len() int {
	return v.length
}

// Remaining returns samples left before the voice finishes
func (v *Voice) Remaining() int {
	return v.length - v.cursor
}

// Gain returns the per-voice gain
func (v *Voice) Gain() float64 {
	return v.gain
}

func wrapPhase(p float64) float64 {
	if p >= 0 && p < twoPi {
		return p
	}
	p = math.Mod(p, twoPi)
	if p < 0 {
		p += twoPi
	}
	return p
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
