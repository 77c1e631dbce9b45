package network

import (
	"log"
	"sync/atomic"

	"github.com/lixenwraith/fmsynth/instrument"
	"github.com/lixenwraith/fmsynth/service"
	"github.com/lixenwraith/fmsynth/status"
)

// Service wraps Server as a hub-managed service
// Disabled unless a *Config is passed to Init
type Service struct {
	server   *Server
	disabled atomic.Bool
}

var _ Target = (*instrument.Instrument)(nil)

// NewService creates a network service
func NewService() *Service {
	return &Service{}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "network"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return []string{"instrument"}
}

// Init implements service.Service
// Consumes *Config and optional *status.Registry (own args) and *instrument.Instrument
func (s *Service) Init(args ...any) error {
	cfg, ok := service.Find[*Config](args)
	if !ok || cfg == nil {
		s.disabled.Store(true)
		return nil
	}

	inst, ok := service.Find[*instrument.Instrument](args)
	if !ok {
		return ErrNilTarget
	}

	reg, _ := service.Find[*status.Registry](args)
	srv, err := NewServer(cfg, inst, WithRegistry(reg))
	if err != nil {
		return err
	}
	s.server = srv
	return nil
}

// Start implements service.Service
func (s *Service) Start() error {
	if s.disabled.Load() || s.server == nil {
		return nil
	}
	if err := s.server.Start(); err != nil {
		return err
	}
	log.Printf("network: listening on %s%s", s.server.Addr(), s.server.Config().Path)
	return nil
}

// Stop implements service.Service
func (s *Service) Stop() error {
	if s.server != nil {
		return s.server.Stop()
	}
	return nil
}

// Contribute implements service.ResourceContributor
func (s *Service) Contribute(publish service.ResourcePublisher) {
	if s.disabled.Load() || s.server == nil {
		return
	}
	publish(s.server)
}

// Server returns the trigger server, nil when disabled
func (s *Service) Server() *Server {
	return s.server
}

// PeerCount returns connected peer count
func (s *Service) PeerCount() int {
	if s.server == nil {
		return 0
	}
	return s.server.PeerCount()
}

// IsRunning returns true if the server is accepting peers
func (s *Service) IsRunning() bool {
	return s.server != nil && s.server.IsRunning()
}

// IsDisabled reports whether Init found no configuration
func (s *Service) IsDisabled() bool {
	return s.disabled.Load()
}
