package audio

import (
	"fmt"
)

// Trigger accepts note-on requests, implemented by Sequencer and Mixer
type Trigger interface {
	AddFMSynth(spec ModulationSpec, modEnv, ampEnv EnvelopeParams, phasePerSample float64, opts ...VoiceOption) error
}

var (
	_ Trigger = (*Sequencer)(nil)
	_ Trigger = (*Mixer)(nil)
)

// Sequencer owns the active generators and renders fixed-size blocks
//
// Not safe for concurrent use: callers serialize AddFMSynth/Add and Next,
// either with one lock (see Mixer) or by owning the sequencer from a
// single goroutine.
type Sequencer struct {
	frameSize int
	gain      float64
	maxVoices int // 0 = unlimited

	// Insertion order, oldest first
	voices []Generator
}

// SequencerOption configures a sequencer at construction
type SequencerOption func(*Sequencer)

// WithMaxVoices caps polyphony; adding past the cap evicts the oldest voice
func WithMaxVoices(n int) SequencerOption {
	return func(s *Sequencer) {
		if n > 0 {
			s.maxVoices = n
		}
	}
}

// NewSequencer creates a sequencer rendering frameSize samples per Next
func NewSequencer(frameSize int, gain float64, opts ...SequencerOption) (*Sequencer, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameSize, frameSize)
	}
	if !finite(gain) {
		return nil, fmt.Errorf("%w: global gain %g", ErrInvalidVoice, gain)
	}

	s := &Sequencer{
		frameSize: frameSize,
		gain:      gain,
		voices:    make([]Generator, 0, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddFMSynth constructs and inserts a voice; on error nothing is inserted
func (s *Sequencer) AddFMSynth(spec ModulationSpec, modEnv, ampEnv EnvelopeParams, phasePerSample float64, opts ...VoiceOption) error {
	v, err := NewVoice(spec, modEnv, ampEnv, phasePerSample, opts...)
	if err != nil {
		return err
	}
	s.insert(v)
	return nil
}

// Add inserts an arbitrary generator
func (s *Sequencer) Add(g Generator) error {
	if g == nil {
		return ErrNilGenerator
	}
	s.insert(g)
	return nil
}

func (s *Sequencer) insert(g Generator) {
	if s.maxVoices > 0 && len(s.voices) >= s.maxVoices {
		// Evict oldest
		n := copy(s.voices, s.voices[1:])
		s.voices[n] = nil
		s.voices = s.voices[:n]
	}
	s.voices = append(s.voices, g)
}

// Next renders one block into buf, which must be exactly FrameSize long
// Voices finishing inside the block contribute their partial samples and
// are evicted after every voice has rendered
func (s *Sequencer) Next(buf []float32) error {
	if len(buf) != s.frameSize {
		return fmt.Errorf("%w: got %d, want %d", ErrFrameSize, len(buf), s.frameSize)
	}

	for i := range buf {
		buf[i] = 0
	}

	for _, v := range s.voices {
		for i := range buf {
			if v.Finished() {
				break
			}
			buf[i] += float32(v.Sample() * s.gain)
		}
	}

	s.evictFinished()
	return nil
}

// evictFinished compacts the active slice in place
func (s *Sequencer) evictFinished() {
	remaining := s.voices[:0]
	for _, v := range s.voices {
		if !v.Finished() {
			remaining = append(remaining, v)
		}
	}
	// Release references held past the new length
	for i := len(remaining); i < len(s.voices); i++ {
		s.voices[i] = nil
	}
	s.voices = remaining
}

// GeneratorCount returns the number of active generators
func (s *Sequencer) GeneratorCount() int {
	return len(s.voices)
}

// FrameSize returns the immutable block size
func (s *Sequencer) FrameSize() int {
	return s.frameSize
}

// Gain returns the global gain
func (s *Sequencer) Gain() float64 {
	return s.gain
}

// SetGain updates the global gain, non-finite values are ignored
func (s *Sequencer) SetGain(gain float64) {
	if finite(gain) {
		s.gain = gain
	}
}

// MaxVoices returns the polyphony cap, 0 if unlimited
func (s *Sequencer) MaxVoices() int {
	return s.maxVoices
}

// Reset drops all active generators
func (s *Sequencer) Reset() {
	for i := range s.voices {
		s.voices[i] = nil
	}
	s.voices = s.voices[:0]
}
