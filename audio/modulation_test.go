package audio

import (
	"errors"
	"math"
	"testing"
)

// TestNewModulationSpec verifies validation of harmonic/amplitude pairs
func TestNewModulationSpec(t *testing.T) {
	tests := []struct {
		name       string
		harmonics  []float64
		amplitudes []float64
		wantErr    error
	}{
		{"empty", nil, nil, nil},
		{"piano", []float64{2, 5, 9, 13}, []float64{1, 2, 1, 1}, nil},
		{"inharmonic", []float64{1.5}, []float64{0.3}, nil},
		{"mismatch", []float64{2, 3}, []float64{1}, ErrModulationMismatch},
		{"zero_harmonic", []float64{0}, []float64{1}, ErrInvalidModulation},
		{"negative_amplitude", []float64{2}, []float64{-1}, ErrInvalidModulation},
		{"nan_harmonic", []float64{math.NaN()}, []float64{1}, ErrInvalidModulation},
		{"inf_amplitude", []float64{2}, []float64{math.Inf(1)}, ErrInvalidModulation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := NewModulationSpec(tt.harmonics, tt.amplitudes)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				if spec.Len() != len(tt.harmonics) {
					t.Errorf("Expected %d components, got %d", len(tt.harmonics), spec.Len())
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestModulationSpecImmutable verifies inputs and accessors are copies
func TestModulationSpecImmutable(t *testing.T) {
	h := []float64{2, 3}
	a := []float64{1, 0.5}
	spec := MustModulationSpec(h, a)

	h[0] = 100
	a[0] = 100
	spec.Harmonics()[1] = 100
	spec.Amplitudes()[1] = 100

	if got := spec.Harmonics(); got[0] != 2 || got[1] != 3 {
		t.Errorf("Expected harmonics [2 3], got %v", got)
	}
	if got := spec.Amplitudes(); got[0] != 1 || got[1] != 0.5 {
		t.Errorf("Expected amplitudes [1 0.5], got %v", got)
	}
}

// TestModulationSpecValue verifies the harmonic sum
func TestModulationSpecValue(t *testing.T) {
	spec := MustModulationSpec([]float64{1, 2}, []float64{1, 0.5})

	phase := math.Pi / 4
	want := math.Sin(phase) + 0.5*math.Sin(2*phase)
	if got := spec.Value(phase); !almostEqual(got, want, epsilon) {
		t.Errorf("Expected %f, got %f", want, got)
	}

	empty := MustModulationSpec(nil, nil)
	if got := empty.Value(1.234); got != 0 {
		t.Errorf("Expected 0 for empty spec, got %f", got)
	}
}

// TestMustModulationSpecPanics verifies panic on invalid literal
func TestMustModulationSpecPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for mismatched spec")
		}
	}()
	MustModulationSpec([]float64{1}, nil)
}
