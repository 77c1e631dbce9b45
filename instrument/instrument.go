package instrument

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/fmsynth/audio"
	"github.com/lixenwraith/fmsynth/preset"
)

var (
	ErrInvalidFrequency  = errors.New("frequency must be positive and finite")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrNilTarget         = errors.New("nil trigger target")
	ErrNilBank           = errors.New("nil preset bank")
)

// voiceCounter is implemented by audio.Mixer
type voiceCounter interface {
	ActiveVoices() int
}

// generatorCounter is implemented by audio.Sequencer
type generatorCounter interface {
	GeneratorCount() int
}

// Instrument turns named patches and pitches into trigger calls
// Safe for concurrent use when the target is (audio.Mixer is)
type Instrument struct {
	target     audio.Trigger
	sampleRate float64

	bank atomic.Pointer[preset.Bank]

	mu      sync.RWMutex
	current string

	played atomic.Uint64
	failed atomic.Uint64
}

// New binds target, bank and sample rate
func New(target audio.Trigger, bank *preset.Bank, sampleRate int) (*Instrument, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if bank == nil {
		return nil, ErrNilBank
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	inst := &Instrument{
		target:     target,
		sampleRate: float64(sampleRate),
		current:    bank.DefaultName(),
	}
	inst.bank.Store(bank)
	return inst, nil
}

// SampleRate returns the rate used for pitch conversion
func (i *Instrument) SampleRate() int {
	return int(i.sampleRate)
}

// Bank returns the active bank
func (i *Instrument) Bank() *preset.Bank {
	return i.bank.Load()
}

// SetBank swaps the bank; the current patch survives if the new bank has it
func (i *Instrument) SetBank(b *preset.Bank) {
	if b == nil {
		return
	}
	i.bank.Store(b)

	i.mu.Lock()
	if _, err := b.Get(i.current); err != nil {
		i.current = b.DefaultName()
	}
	i.mu.Unlock()
}

// Current returns the selected patch name
func (i *Instrument) Current() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.current
}

// Select makes name the patch used when callers pass an empty name
func (i *Instrument) Select(name string) error {
	if _, err := i.bank.Load().Get(name); err != nil {
		return err
	}
	i.mu.Lock()
	i.current = name
	i.mu.Unlock()
	return nil
}

// Cycle moves the selection by delta through the sorted patch names
func (i *Instrument) Cycle(delta int) string {
	names := i.bank.Load().Names()

	i.mu.Lock()
	defer i.mu.Unlock()

	idx := 0
	for n, name := range names {
		if name == i.current {
			idx = n
			break
		}
	}
	idx = ((idx+delta)%len(names) + len(names)) % len(names)
	i.current = names[idx]
	return i.current
}

// PlayKey plays a key counted in semitones above 110Hz
func (i *Instrument) PlayKey(patch string, key, gain float64) error {
	return i.PlayFrequency(patch, audio.KeyFreq(key), gain)
}

// PlayNote plays a piano key name such as "2c#"
func (i *Instrument) PlayNote(patch, note string, gain float64) error {
	key, err := audio.ParseKey(note)
	if err != nil {
		i.failed.Add(1)
		return err
	}
	return i.PlayKey(patch, float64(key), gain)
}

// PlayFrequency plays a pitch in Hz
func (i *Instrument) PlayFrequency(patch string, hz, gain float64) error {
	if !(hz > 0) || math.IsInf(hz, 0) {
		i.failed.Add(1)
		return fmt.Errorf("%w: %g", ErrInvalidFrequency, hz)
	}
	return i.PlayPhase(patch, audio.PhasePerSample(hz, i.sampleRate), gain)
}

// PlayPhase triggers a voice at the given carrier radians per sample
func (i *Instrument) PlayPhase(patch string, phasePerSample, gain float64) error {
	if patch == "" {
		patch = i.Current()
	}
	p, err := i.bank.Load().Get(patch)
	if err != nil {
		i.failed.Add(1)
		return err
	}
	if err := p.Play(i.target, phasePerSample, gain); err != nil {
		i.failed.Add(1)
		return err
	}
	i.played.Add(1)
	return nil
}

// ActiveVoices reports the target's voice count, -1 if unknown
func (i *Instrument) ActiveVoices() int {
	switch t := i.target.(type) {
	case voiceCounter:
		return t.ActiveVoices()
	case generatorCounter:
		return t.GeneratorCount()
	}
	return -1
}

// Stats returns accepted and rejected play requests
func (i *Instrument) Stats() (played, failed uint64) {
	return i.played.Load(), i.failed.Load()
}
