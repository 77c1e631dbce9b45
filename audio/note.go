package audio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BaseKeyFreq is the frequency of piano key 0 (A2)
const BaseKeyFreq = 110.0

// NoteFrequencies contains precomputed frequencies for MIDI notes 0-127
// A4 (note 69) = 440Hz, equal temperament
var NoteFrequencies [128]float64

func init() {
	for i := range NoteFrequencies {
		NoteFrequencies[i] = 440.0 * math.Exp2((float64(i)-69.0)/12.0)
	}
}

// NoteFreq returns frequency in Hz for MIDI note number
func NoteFreq(midi int) float64 {
	if midi < 0 || midi >= 128 {
		return 0
	}
	return NoteFrequencies[midi]
}

// KeyFreq returns the frequency of a key counted in semitones above 110Hz
// Fractional keys are allowed (detuning)
func KeyFreq(key float64) float64 {
	return BaseKeyFreq * math.Exp2(key/12.0)
}

// PhasePerSample converts a frequency to carrier radians per sample
func PhasePerSample(freq, sampleRate float64) float64 {
	return twoPi * (freq / sampleRate)
}

// KeyToPhasePerSample combines KeyFreq and PhasePerSample
func KeyToPhasePerSample(key, sampleRate float64) float64 {
	return PhasePerSample(KeyFreq(key), sampleRate)
}

var semitones = map[string]int{
	"c": 0, "c#": 1, "d": 2, "d#": 3, "e": 4, "f": 5,
	"f#": 6, "g": 7, "g#": 8, "a": 9, "a#": 10, "b": 11,
}

// ParseKey parses "<octave><name>" such as "2c#" into 12*octave + semitone
func ParseKey(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid key %q", s)
	}

	split := 0
	for split < len(s) && s[split] >= '0' && s[split] <= '9' {
		split++
	}
	if split == 0 {
		return 0, fmt.Errorf("invalid key %q: missing octave", s)
	}

	octave, err := strconv.Atoi(s[:split])
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: %v", s, err)
	}
	semi, ok := semitones[s[split:]]
	if !ok {
		return 0, fmt.Errorf("invalid key %q: unknown note name %q", s, s[split:])
	}
	return 12*octave + semi, nil
}

var semitoneNames = [12]string{"c", "c#", "d", "d#", "e", "f", "f#", "g", "g#", "a", "a#", "b"}

// KeyName is the inverse of ParseKey for non-negative keys
func KeyName(key int) string {
	if key < 0 {
		return strconv.Itoa(key)
	}
	return strconv.Itoa(key/12) + semitoneNames[key%12]
}
