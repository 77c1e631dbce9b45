package score

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrNegativeFrame = errors.New("event frame must be non-negative")
	ErrEmptyEvent    = errors.New("event has no keys or frequencies")
	ErrInvalidGain   = errors.New("event gain must be finite")
)

// Event triggers one or more notes at the start of a frame
type Event struct {
	Frame int       // Block index, the event sounds from this block's first sample
	Keys  []float64 // Semitones above 110Hz
	Hz    []float64 // Raw frequencies
	Patch string    // Empty selects the bank default
	Gain  float64   // Zero selects 1.0
}

func (e Event) gain() float64 {
	if e.Gain == 0 {
		return 1.0
	}
	return e.Gain
}

// Score is an ordered list of events
type Score struct {
	Events []Event
}

// Add appends an event
func (s *Score) Add(e Event) {
	s.Events = append(s.Events, e)
}

// Normalize sorts events by frame, keeping insertion order within a frame
func (s *Score) Normalize() {
	sort.SliceStable(s.Events, func(i, j int) bool {
		return s.Events[i].Frame < s.Events[j].Frame
	})
}

// Validate checks every event independently of any bank
func (s *Score) Validate() error {
	for i, e := range s.Events {
		if e.Frame < 0 {
			return fmt.Errorf("event %d: %w: %d", i, ErrNegativeFrame, e.Frame)
		}
		if len(e.Keys) == 0 && len(e.Hz) == 0 {
			return fmt.Errorf("event %d: %w", i, ErrEmptyEvent)
		}
		if math.IsNaN(e.Gain) || math.IsInf(e.Gain, 0) {
			return fmt.Errorf("event %d: %w", i, ErrInvalidGain)
		}
	}
	return nil
}

// LastFrame returns the frame of the latest event, -1 if empty
func (s *Score) LastFrame() int {
	last := -1
	for _, e := range s.Events {
		if e.Frame > last {
			last = e.Frame
		}
	}
	return last
}

// Notes returns the total number of voices the score triggers
func (s *Score) Notes() int {
	n := 0
	for _, e := range s.Events {
		n += len(e.Keys) + len(e.Hz)
	}
	return n
}

// SecondsToFrame converts a time offset into a block index, rounding down
func SecondsToFrame(seconds float64, sampleRate, frameSize int) int {
	return int(math.Floor(seconds * float64(sampleRate) / float64(frameSize)))
}

// KeySweep builds one single-note score per frequency step from f0
// Step n plays f0 * 2^(n/12), the layout of a per-key sample dump
func KeySweep(f0 float64, count int) []*Score {
	scores := make([]*Score, count)
	for n := range scores {
		scores[n] = &Score{Events: []Event{{
			Frame: 0,
			Hz:    []float64{f0 * math.Exp2(float64(n)/12.0)},
		}}}
	}
	return scores
}

// Demo returns the reference chord sequence over keys 1-15
func Demo() *Score {
	s := &Score{}
	for _, e := range []struct {
		frame int
		keys  []float64
	}{
		{0, []float64{1, 3, 5}},
		{100, []float64{2}},
		{150, []float64{3, 8, 14}},
		{200, []float64{10, 15}},
		{300, []float64{11, 13}},
		{450, []float64{3}},
		{600, []float64{8, 5}},
	} {
		s.Add(Event{Frame: e.frame, Keys: e.keys})
	}
	return s
}
