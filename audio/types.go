package audio

import (
	"errors"
)

// ModulationMode selects how the modulation signal drives the carrier
type ModulationMode int

const (
	// PhaseModulation offsets the carrier phase: sin(phase + m)
	PhaseModulation ModulationMode = iota
	// FrequencyModulation scales the carrier increment: phase += step * (1 + m)
	FrequencyModulation
)

// String returns the config name of the mode
func (m ModulationMode) String() string {
	switch m {
	case PhaseModulation:
		return "phase"
	case FrequencyModulation:
		return "frequency"
	default:
		return "unknown"
	}
}

// ParseModulationMode maps a config name to a mode, empty selects PhaseModulation
func ParseModulationMode(s string) (ModulationMode, error) {
	switch s {
	case "", "phase", "pm":
		return PhaseModulation, nil
	case "frequency", "fm":
		return FrequencyModulation, nil
	default:
		return 0, errors.New("unknown modulation mode: " + s)
	}
}

// BackendType identifies the audio backend
type BackendType int

const (
	BackendNone BackendType = iota
	BackendSpeaker
	BackendOto
	BackendPulse
	BackendPipeWire
	BackendALSA
	BackendSoX
	BackendFFplay
)

// BackendConfig describes a CLI audio backend
type BackendConfig struct {
	Type BackendType
	Name string
	Path string
	Args []string
}

// Sentinel errors
var (
	// Construction errors, returned synchronously by AddFMSynth and friends
	ErrInvalidEnvelope    = errors.New("invalid envelope parameters")
	ErrEnvelopeMismatch   = errors.New("envelope lengths do not match")
	ErrModulationMismatch = errors.New("mismatch in sizes of harmonics and amplitudes")
	ErrInvalidModulation  = errors.New("invalid modulation parameters")
	ErrInvalidVoice       = errors.New("invalid voice parameters")
	ErrInvalidFrameSize   = errors.New("frame size must be positive")
	ErrNilGenerator       = errors.New("nil generator")

	// Render contract violation
	ErrFrameSize = errors.New("buffer length must equal frame size")

	// Playback
	ErrNoAudioBackend = errors.New("no compatible audio backend found")
	ErrPipeClosed     = errors.New("audio pipe closed")
	ErrEngineRunning  = errors.New("audio engine already running")
	ErrOtoRate        = errors.New("oto context already open at another sample rate")
)
