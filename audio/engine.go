package audio

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// backend drives a Mixer into an output device
type backend interface {
	name() string
	start(m *Mixer, cfg *AudioConfig) error
	stop()
}

// AudioEngine owns the sequencer, its mixer and one output backend
type AudioEngine struct {
	config *AudioConfig
	mixer  *Mixer
	out    backend

	running    atomic.Bool
	silentMode atomic.Bool

	mu sync.Mutex // Serializes Start/Stop
}

// NewAudioEngine creates an engine, cfg defaults to DefaultAudioConfig
func NewAudioEngine(cfg ...*AudioConfig) (*AudioEngine, error) {
	config := DefaultAudioConfig()
	if len(cfg) > 0 && cfg[0] != nil {
		config = cfg[0]
	}

	seq, err := config.NewSequencer()
	if err != nil {
		return nil, fmt.Errorf("audio engine: %w", err)
	}

	return &AudioEngine{
		config: config,
		mixer:  NewMixer(seq),
	}, nil
}

// Start launches the configured backend
// A backend failure degrades to silent mode: voices still render and
// retire on schedule, output is discarded
func (ae *AudioEngine) Start() error {
	ae.mu.Lock()
	defer ae.mu.Unlock()

	if ae.running.Load() {
		return ErrEngineRunning
	}

	for _, b := range ae.candidates() {
		if err := b.start(ae.mixer, ae.config); err != nil {
			log.Printf("audio: backend %s unavailable: %v", b.name(), err)
			continue
		}
		ae.out = b
		break
	}

	if ae.out == nil {
		ae.out = &silentBackend{}
		// Silent backend cannot fail
		_ = ae.out.start(ae.mixer, ae.config)
	}
	ae.silentMode.Store(ae.out.name() == "none")

	log.Printf("audio: started backend=%s rate=%d frame=%d",
		ae.out.name(), ae.config.SampleRate, ae.config.FrameSize)
	ae.running.Store(true)
	return nil
}

// candidates returns backends to try in order
func (ae *AudioEngine) candidates() []backend {
	if !ae.config.Enabled {
		return nil
	}
	switch ae.config.Backend {
	case "speaker":
		return []backend{&speakerBackend{}}
	case "oto":
		return []backend{&otoBackend{}}
	case "pipe":
		return []backend{&pipeBackend{}}
	case "none":
		return nil
	default:
		return []backend{&speakerBackend{}, &pipeBackend{}}
	}
}

// Stop terminates the backend, safe to call repeatedly
func (ae *AudioEngine) Stop() {
	ae.mu.Lock()
	defer ae.mu.Unlock()

	if !ae.running.CompareAndSwap(true, false) {
		return
	}
	if ae.out != nil {
		ae.out.stop()
		ae.out = nil
	}
	ae.mixer.Reset()
}

// Mixer returns the trigger/render front of the engine
func (ae *AudioEngine) Mixer() *Mixer {
	return ae.mixer
}

// Config returns the session settings
func (ae *AudioEngine) Config() *AudioConfig {
	return ae.config
}

// Backend returns the active backend name, empty when stopped
func (ae *AudioEngine) Backend() string {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	if ae.out == nil {
		return ""
	}
	return ae.out.name()
}

// IsRunning returns true if engine is running (even in silent mode)
func (ae *AudioEngine) IsRunning() bool {
	return ae.running.Load()
}

// IsSilent returns true if output is being discarded
func (ae *AudioEngine) IsSilent() bool {
	return ae.silentMode.Load()
}

// SetVolume updates master volume (0.0-1.0)
func (ae *AudioEngine) SetVolume(vol float64) {
	ae.mixer.SetGain(clampUnit(vol))
}

// Volume returns the master volume
func (ae *AudioEngine) Volume() float64 {
	return ae.mixer.Gain()
}
