package audio

import (
	"fmt"
	"math"
)

// ModulationSpec is an immutable harmonic set for the modulator signal
// Harmonics are multiples of the carrier frequency, Amplitudes weight each one
type ModulationSpec struct {
	harmonics  []float64
	amplitudes []float64
}

// NewModulationSpec validates and copies the harmonic/amplitude pairs
func NewModulationSpec(harmonics, amplitudes []float64) (ModulationSpec, error) {
	if len(harmonics) != len(amplitudes) {
		return ModulationSpec{}, fmt.Errorf("%w: %d harmonics, %d amplitudes",
			ErrModulationMismatch, len(harmonics), len(amplitudes))
	}
	for i := range harmonics {
		h, a := harmonics[i], amplitudes[i]
		if !(h > 0) || math.IsInf(h, 0) {
			return ModulationSpec{}, fmt.Errorf("%w: harmonic[%d]=%g must be positive", ErrInvalidModulation, i, h)
		}
		if !(a >= 0) || math.IsInf(a, 0) {
			return ModulationSpec{}, fmt.Errorf("%w: amplitude[%d]=%g must be non-negative", ErrInvalidModulation, i, a)
		}
	}

	return ModulationSpec{
		harmonics:  append([]float64(nil), harmonics...),
		amplitudes: append([]float64(nil), amplitudes...),
	}, nil
}

// MustModulationSpec panics on invalid input, for literals in code
func MustModulationSpec(harmonics, amplitudes []float64) ModulationSpec {
	spec, err := NewModulationSpec(harmonics, amplitudes)
	if err != nil {
		panic(err)
	}
	return spec
}

// DefaultModulationSpec returns a single second-harmonic modulator
func DefaultModulationSpec() ModulationSpec {
	return MustModulationSpec([]float64{2}, []float64{1})
}

// Len returns the number of harmonic components
func (m ModulationSpec) Len() int {
	return len(m.harmonics)
}

// Harmonics returns a copy of the harmonic multipliers
func (m ModulationSpec) Harmonics() []float64 {
	return append([]float64(nil), m.harmonics...)
}

// Amplitudes returns a copy of the component weights
func (m ModulationSpec) Amplitudes() []float64 {
	return append([]float64(nil), m.amplitudes...)
}

// Value returns sum(amplitudes[i] * sin(harmonics[i] * phase)) in insertion order
func (m ModulationSpec) Value(phase float64) float64 {
	sum := 0.0
	for i, h := range m.harmonics {
		sum += m.amplitudes[i] * math.Sin(h*phase)
	}
	return sum
}

func (m ModulationSpec) String() string {
	return fmt.Sprintf("ModulationSpec(harmonics=%v, amplitudes=%v)", m.harmonics, m.amplitudes)
}
