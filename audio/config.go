package audio

import (
	"os"
	"strconv"
	"strings"
)

// AudioConfig holds playback session settings
type AudioConfig struct {
	Enabled      bool
	SampleRate   int
	FrameSize    int
	MasterVolume float64 // Sequencer global gain, 0.0-1.0
	Backend      string  // auto, speaker, oto, pipe, none
	MaxVoices    int     // 0 = unlimited
}

// DefaultAudioConfig returns a low-latency 16kHz mono session
func DefaultAudioConfig() *AudioConfig {
	return &AudioConfig{
		Enabled:      true,
		SampleRate:   16000,
		FrameSize:    160,
		MasterVolume: 0.2,
		Backend:      "auto",
		MaxVoices:    0,
	}
}

// LoadAudioConfig loads audio configuration from environment variables
func LoadAudioConfig() *AudioConfig {
	cfg := DefaultAudioConfig()

	// Check if audio is enabled
	if enabled := os.Getenv("FMSYNTH_AUDIO_ENABLED"); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			cfg.Enabled = val
		}
	}

	// Load master volume (0-100 converted to 0.0-1.0)
	if volume := os.Getenv("FMSYNTH_MASTER_VOLUME"); volume != "" {
		if val, err := strconv.Atoi(volume); err == nil {
			cfg.MasterVolume = clampUnit(float64(val) / 100.0)
		}
	}

	// Load sample rate
	if sampleRate := os.Getenv("FMSYNTH_SAMPLE_RATE"); sampleRate != "" {
		if val, err := strconv.Atoi(sampleRate); err == nil && val > 0 {
			cfg.SampleRate = val
		}
	}

	// Load frame size
	if frameSize := os.Getenv("FMSYNTH_FRAME_SIZE"); frameSize != "" {
		if val, err := strconv.Atoi(frameSize); err == nil && val > 0 {
			cfg.FrameSize = val
		}
	}

	if backend := os.Getenv("FMSYNTH_BACKEND"); backend != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(backend))
	}

	if maxVoices := os.Getenv("FMSYNTH_MAX_VOICES"); maxVoices != "" {
		if val, err := strconv.Atoi(maxVoices); err == nil && val >= 0 {
			cfg.MaxVoices = val
		}
	}

	return cfg
}

// NewSequencer builds a sequencer from the session settings
func (c *AudioConfig) NewSequencer() (*Sequencer, error) {
	return NewSequencer(c.FrameSize, c.MasterVolume, WithMaxVoices(c.MaxVoices))
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
