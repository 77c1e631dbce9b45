package preset

import (
	"github.com/lixenwraith/fmsynth/service"
)

// Service publishes a preset Source to the hub, hot-reloading when backed by a file
type Service struct {
	source  Source
	watcher *Watcher
}

// NewService creates a new preset service
func NewService() *Service {
	return &Service{}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "presets"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return nil
}

// Init implements service.Service
// args[0]: string - bank file path, empty uses the builtin bank
func (s *Service) Init(args ...any) error {
	path, _ := service.Find[string](args)
	if path == "" {
		s.source = NewStatic(Builtin())
		return nil
	}

	w, err := NewWatcher(path)
	if err != nil {
		return err
	}
	s.watcher = w
	s.source = w
	return nil
}

// Start implements service.Service
func (s *Service) Start() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Start()
}

// Stop implements service.Service
func (s *Service) Stop() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	return nil
}

// Contribute implements service.ResourceContributor
func (s *Service) Contribute(publish service.ResourcePublisher) {
	if s.source != nil {
		publish(s.source)
	}
}

// Source returns the published bank source
func (s *Service) Source() Source {
	return s.source
}
