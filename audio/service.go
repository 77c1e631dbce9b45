package audio

import (
	"log"
	"sync/atomic"

	"github.com/lixenwraith/fmsynth/service"
)

// Service wraps AudioEngine for the service hub
// Engine construction errors fail Init; backend failures degrade to silent mode
type Service struct {
	engine   *AudioEngine
	disabled atomic.Bool
}

// NewService creates a new audio service
func NewService() *Service {
	return &Service{}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "audio"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return nil
}

// Init implements service.Service
// args[0]: *AudioConfig, defaults to LoadAudioConfig
func (s *Service) Init(args ...any) error {
	cfg := LoadAudioConfig()
	if len(args) > 0 {
		if c, ok := args[0].(*AudioConfig); ok && c != nil {
			cfg = c
		}
	}

	engine, err := NewAudioEngine(cfg)
	if err != nil {
		return err
	}
	s.engine = engine
	s.disabled.Store(!cfg.Enabled)
	return nil
}

// Start implements service.Service
func (s *Service) Start() error {
	if s.engine == nil {
		return nil
	}
	if err := s.engine.Start(); err != nil {
		return err
	}
	if s.engine.IsSilent() && !s.disabled.Load() {
		log.Printf("audio: no playback device, rendering silently")
	}
	return nil
}

// Stop implements service.Service
func (s *Service) Stop() error {
	if s.engine != nil {
		s.engine.Stop()
	}
	return nil
}

// Contribute implements service.ResourceContributor
// Publishes the mixer as a Trigger and the session config for dependent services
func (s *Service) Contribute(publish service.ResourcePublisher) {
	if s.engine != nil {
		publish(Trigger(s.engine.Mixer()))
		publish(s.engine.Config())
	}
}

// IsDisabled returns true if audio output was disabled by configuration
func (s *Service) IsDisabled() bool {
	return s.disabled.Load()
}

// Engine returns the underlying AudioEngine, nil before Init
func (s *Service) Engine() *AudioEngine {
	return s.engine
}
