package audio

import (
	"errors"
	"math"
	"testing"
)

func releaseOnly(n int) EnvelopeParams {
	return EnvelopeParams{Release: n, SLevel1: 1, SLevel2: 1}
}

// TestVoiceCarrierRamp verifies the unmodulated carrier under a release ramp
func TestVoiceCarrierRamp(t *testing.T) {
	env := releaseOnly(4)
	v, err := NewVoice(MustModulationSpec(nil, nil), env, env, math.Pi/2)
	if err != nil {
		t.Fatalf("NewVoice failed: %v", err)
	}

	want := []float64{
		math.Sin(0) * 1.0,
		math.Sin(math.Pi/2) * 0.75,
		math.Sin(math.Pi) * 0.5,
		math.Sin(3*math.Pi/2) * 0.25,
	}
	for i, w := range want {
		if v.Finished() {
			t.Fatalf("Voice finished early at sample %d", i)
		}
		if got := v.Sample(); !almostEqual(got, w, 1e-12) {
			t.Errorf("Sample %d: expected %f, got %f", i, w, got)
		}
	}

	if !v.Finished() {
		t.Error("Expected voice finished after 4 samples")
	}
}

// TestVoiceFinishedIdempotent verifies finished becomes true once and stays true
func TestVoiceFinishedIdempotent(t *testing.T) {
	env := EnvelopeParams{Attack: 3, Decay: 2, Sustain: 4, Release: 3, SLevel1: 0.5, SLevel2: 0.2}
	v, err := NewVoice(DefaultModulationSpec(), env, env, 0.1)
	if err != nil {
		t.Fatalf("NewVoice failed: %v", err)
	}

	transitions := 0
	prev := v.Finished()
	for i := 0; i < env.Len()+10; i++ {
		v.Sample()
		if f := v.Finished(); f != prev {
			transitions++
			if i != env.Len()-1 {
				t.Errorf("Expected finish at sample %d, got %d", env.Len()-1, i)
			}
			prev = f
		}
	}

	if transitions != 1 {
		t.Errorf("Expected exactly one finished transition, got %d", transitions)
	}
	if got := v.Sample(); got != 0 {
		t.Errorf("Expected silence after finish, got %f", got)
	}
	if v.Remaining() != 0 {
		t.Errorf("Expected 0 remaining, got %d", v.Remaining())
	}
}

// TestVoicePhaseModulation verifies sin(carrier + env*mod) with per-harmonic phases
func TestVoicePhaseModulation(t *testing.T) {
	spec := MustModulationSpec([]float64{2, 3}, []float64{1, 0.5})
	env := EnvelopeParams{Attack: 0, Decay: 0, Sustain: 16, Release: 0, SLevel1: 1, SLevel2: 1}
	step := 0.05

	v, err := NewVoice(spec, env, env, step, WithGain(0.5))
	if err != nil {
		t.Fatalf("NewVoice failed: %v", err)
	}

	for n := 0; n < 16; n++ {
		phase := float64(n) * step
		want := math.Sin(phase+spec.Value(phase)) * 0.5
		if got := v.Sample(); !almostEqual(got, want, 1e-9) {
			t.Fatalf("Sample %d: expected %f, got %f", n, want, got)
		}
	}
}

// TestVoiceFrequencyModulation verifies the increment-scaling mode
func TestVoiceFrequencyModulation(t *testing.T) {
	spec := MustModulationSpec([]float64{2}, []float64{0.5})
	env := EnvelopeParams{Sustain: 8, SLevel1: 1, SLevel2: 1}
	step := 0.1

	v, err := NewVoice(spec, env, env, step, WithMode(FrequencyModulation))
	if err != nil {
		t.Fatalf("NewVoice failed: %v", err)
	}

	carrier := 0.0
	for n := 0; n < 8; n++ {
		want := math.Sin(carrier)
		if got := v.Sample(); !almostEqual(got, want, 1e-9) {
			t.Fatalf("Sample %d: expected %f, got %f", n, want, got)
		}
		mod := 0.5 * math.Sin(2*step*float64(n))
		carrier += step * (1 + mod)
	}
}

// TestVoiceModEnvelopeScales verifies the modulator envelope gates modulation
func TestVoiceModEnvelopeScales(t *testing.T) {
	spec := MustModulationSpec([]float64{2}, []float64{5})
	amp := EnvelopeParams{Sustain: 8, SLevel1: 1, SLevel2: 1}
	silentMod := EnvelopeParams{Sustain: 8, SLevel1: 0, SLevel2: 0}

	v, err := NewVoice(spec, silentMod, amp, 0.2)
	if err != nil {
		t.Fatalf("NewVoice failed: %v", err)
	}
	for n := 0; n < 8; n++ {
		want := math.Sin(0.2 * float64(n))
		if got := v.Sample(); !almostEqual(got, want, 1e-9) {
			t.Fatalf("Sample %d: expected pure carrier %f, got %f", n, want, got)
		}
	}
}

// TestNewVoiceErrors verifies construction-time rejection
func TestNewVoiceErrors(t *testing.T) {
	good := DefaultEnvelopeParams()
	short := releaseOnly(10)

	tests := []struct {
		name    string
		spec    ModulationSpec
		modEnv  EnvelopeParams
		ampEnv  EnvelopeParams
		step    float64
		opts    []VoiceOption
		wantErr error
	}{
		{"length_mismatch", DefaultModulationSpec(), good, short, 0.1, nil, ErrEnvelopeMismatch},
		{"bad_mod_env", DefaultModulationSpec(), EnvelopeParams{Attack: -1}, good, 0.1, nil, ErrInvalidEnvelope},
		{"bad_amp_env", DefaultModulationSpec(), good, EnvelopeParams{Release: good.Len(), SLevel1: 2}, 0.1, nil, ErrInvalidEnvelope},
		{"nan_step", DefaultModulationSpec(), good, good, math.NaN(), nil, ErrInvalidVoice},
		{"inf_gain", DefaultModulationSpec(), good, good, 0.1, []VoiceOption{WithGain(math.Inf(1))}, ErrInvalidVoice},
		{"bad_mode", DefaultModulationSpec(), good, good, 0.1, []VoiceOption{WithMode(ModulationMode(7))}, ErrInvalidVoice},
		{"malformed_spec", ModulationSpec{harmonics: []float64{1, 2}, amplitudes: []float64{1}}, good, good, 0.1, nil, ErrModulationMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVoice(tt.spec, tt.modEnv, tt.ampEnv, tt.step, tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if v != nil {
				t.Error("Expected nil voice on error")
			}
		})
	}
}

// TestWrapPhase verifies phase stays in [0, 2pi)
func TestWrapPhase(t *testing.T) {
	for _, p := range []float64{0, 1, twoPi, twoPi + 1, -1, -twoPi - 0.5, 100} {
		w := wrapPhase(p)
		if w < 0 || w >= twoPi {
			t.Errorf("wrapPhase(%f) = %f outside [0, 2pi)", p, w)
		}
		if !almostEqual(math.Sin(w), math.Sin(p), 1e-9) {
			t.Errorf("wrapPhase(%f) changed sine: %f vs %f", p, math.Sin(w), math.Sin(p))
		}
	}
}

// TestParseModulationMode verifies mode names
func TestParseModulationMode(t *testing.T) {
	tests := map[string]ModulationMode{"": PhaseModulation, "phase": PhaseModulation, "pm": PhaseModulation, "frequency": FrequencyModulation, "fm": FrequencyModulation}
	for name, want := range tests {
		got, err := ParseModulationMode(name)
		if err != nil || got != want {
			t.Errorf("ParseModulationMode(%q): expected %v, got %v (%v)", name, want, got, err)
		}
	}
	if _, err := ParseModulationMode("ring"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
