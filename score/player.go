package score

import (
	"fmt"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/fmsynth/audio"
	"github.com/lixenwraith/fmsynth/instrument"
	"github.com/lixenwraith/fmsynth/preset"
)

// Player renders a score offline, owning its sequencer on a single goroutine
type Player struct {
	seq    *audio.Sequencer
	inst   *instrument.Instrument
	events []Event
	next   int
	frame  int

	buf []float32
	pos int

	estimated int
	err       error
	onFrame   func(frame int)
}

var _ beep.Streamer = (*Player)(nil)

// NewPlayer validates the score against bank and prepares rendering
// Unknown patches are rejected here, never mid-render
func NewPlayer(s *Score, bank *preset.Bank, sampleRate, frameSize int, gain float64) (*Player, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	seq, err := audio.NewSequencer(frameSize, gain)
	if err != nil {
		return nil, err
	}
	inst, err := instrument.New(seq, bank, sampleRate)
	if err != nil {
		return nil, err
	}

	events := append([]Event(nil), s.Events...)
	sorted := &Score{Events: events}
	sorted.Normalize()

	estimated := 0
	for i, e := range events {
		p, err := bank.Get(e.Patch)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		end := e.Frame + (p.Len()+frameSize-1)/frameSize
		if end > estimated {
			estimated = end
		}
	}

	return &Player{
		seq:       seq,
		inst:      inst,
		events:    events,
		buf:       make([]float32, frameSize),
		pos:       frameSize,
		estimated: estimated,
	}, nil
}

// Done reports that every event fired and every voice decayed
func (p *Player) Done() bool {
	return p.next >= len(p.events) && p.seq.GeneratorCount() == 0
}

// NextFrame triggers events due at the current frame and renders one block
// Returns false once the score is done, buf is left untouched then
func (p *Player) NextFrame(buf []float32) (bool, error) {
	if p.Done() {
		return false, nil
	}

	for p.next < len(p.events) && p.events[p.next].Frame <= p.frame {
		if err := p.trigger(p.events[p.next]); err != nil {
			p.err = err
			return false, err
		}
		p.next++
	}

	if err := p.seq.Next(buf); err != nil {
		p.err = err
		return false, err
	}
	p.frame++
	if p.onFrame != nil {
		p.onFrame(p.frame)
	}
	return true, nil
}

// OnFrame sets a callback run after each rendered block, on the rendering goroutine
func (p *Player) OnFrame(fn func(frame int)) {
	p.onFrame = fn
}

func (p *Player) trigger(e Event) error {
	for _, key := range e.Keys {
		if err := p.inst.PlayKey(e.Patch, key, e.gain()); err != nil {
			return fmt.Errorf("frame %d key %g: %w", e.Frame, key, err)
		}
	}
	for _, hz := range e.Hz {
		if err := p.inst.PlayFrequency(e.Patch, hz, e.gain()); err != nil {
			return fmt.Errorf("frame %d %gHz: %w", e.Frame, hz, err)
		}
	}
	return nil
}

// Stream implements beep.Streamer, mono duplicated to both channels
func (p *Player) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		if p.pos >= len(p.buf) {
			more, err := p.NextFrame(p.buf)
			if err != nil || !more {
				break
			}
			p.pos = 0
		}
		v := float64(p.buf[p.pos])
		samples[n][0] = v
		samples[n][1] = v
		p.pos++
		n++
	}
	return n, n > 0
}

// Err implements beep.Streamer
func (p *Player) Err() error {
	return p.err
}

// Frame returns the number of blocks rendered so far
func (p *Player) Frame() int {
	return p.frame
}

// EstimatedFrames returns the block count at which the last voice ends
func (p *Player) EstimatedFrames() int {
	return p.estimated
}

// FrameSize returns the block size
func (p *Player) FrameSize() int {
	return len(p.buf)
}

// ActiveVoices returns the sequencer's voice count
func (p *Player) ActiveVoices() int {
	return p.seq.GeneratorCount()
}
