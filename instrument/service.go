package instrument

import (
	"github.com/lixenwraith/fmsynth/audio"
	"github.com/lixenwraith/fmsynth/preset"
	"github.com/lixenwraith/fmsynth/service"
)

// Service builds an Instrument from the audio trigger and the preset source
// Bank reloads published by the source are applied to the instrument
type Service struct {
	inst *Instrument
}

// NewService creates a new instrument service
func NewService() *Service {
	return &Service{}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "instrument"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return []string{"audio", "presets"}
}

// Init implements service.Service
// Consumes audio.Trigger, *audio.AudioConfig and preset.Source resources
func (s *Service) Init(args ...any) error {
	target, ok := service.Find[audio.Trigger](args)
	if !ok {
		return ErrNilTarget
	}
	src, ok := service.Find[preset.Source](args)
	if !ok {
		return ErrNilBank
	}
	rate := audio.DefaultAudioConfig().SampleRate
	if cfg, ok := service.Find[*audio.AudioConfig](args); ok {
		rate = cfg.SampleRate
	}

	inst, err := New(target, src.Bank(), rate)
	if err != nil {
		return err
	}
	src.Subscribe(inst.SetBank)
	s.inst = inst
	return nil
}

// Start implements service.Service
func (s *Service) Start() error {
	return nil
}

// Stop implements service.Service
func (s *Service) Stop() error {
	return nil
}

// Contribute implements service.ResourceContributor
func (s *Service) Contribute(publish service.ResourcePublisher) {
	if s.inst != nil {
		publish(s.inst)
	}
}

// Instrument returns the built instrument, nil before Init
func (s *Service) Instrument() *Instrument {
	return s.inst
}
