package instrument

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"github.com/lixenwraith/fmsynth/audio"
)

// Rune aliases for keys that can't be bare single-char TOML keys
var runeAliases = map[string]rune{
	"space":     ' ',
	"backslash": '\\',
	"comma":     ',',
	"period":    '.',
	"semicolon": ';',
}

// KeyMap maps typed runes to piano keys (semitones above 110Hz)
type KeyMap map[rune]int

// DefaultKeyMap returns the ten-key pentatonic row q..p
func DefaultKeyMap() KeyMap {
	km, err := NewKeyMap(map[rune]string{
		'q': "1c", 'w': "1d", 'e': "1e", 'r': "1g", 't': "1a",
		'y': "2c", 'u': "2d", 'i': "2e", 'o': "2g", 'p': "2a",
	})
	if err != nil {
		panic(err)
	}
	return km
}

// NewKeyMap parses note names for each rune
func NewKeyMap(notes map[rune]string) (KeyMap, error) {
	km := make(KeyMap, len(notes))
	for r, note := range notes {
		key, err := audio.ParseKey(note)
		if err != nil {
			return nil, fmt.Errorf("keymap %q: %w", r, err)
		}
		km[r] = key
	}
	return km, nil
}

type keyMapFile struct {
	Keys map[string]string `toml:"keys"`
}

// LoadKeyMap parses a TOML [keys] table of rune = "note" entries
func LoadKeyMap(data []byte) (KeyMap, error) {
	var f keyMapFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("keymap parse: %w", err)
	}
	if len(f.Keys) == 0 {
		return nil, fmt.Errorf("keymap: no [keys] entries")
	}

	notes := make(map[rune]string, len(f.Keys))
	for name, note := range f.Keys {
		r, err := parseRune(name)
		if err != nil {
			return nil, err
		}
		notes[r] = note
	}
	return NewKeyMap(notes)
}

func parseRune(name string) (rune, error) {
	if r, ok := runeAliases[name]; ok {
		return r, nil
	}
	if utf8.RuneCountInString(name) != 1 {
		return 0, fmt.Errorf("keymap: invalid key name %q", name)
	}
	r, _ := utf8.DecodeRuneInString(name)
	return r, nil
}

// Lookup returns the piano key for r
func (km KeyMap) Lookup(r rune) (int, bool) {
	key, ok := km[r]
	return key, ok
}

// Runes returns mapped runes ordered by pitch
func (km KeyMap) Runes() []rune {
	runes := make([]rune, 0, len(km))
	for r := range km {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(a, b int) bool {
		if km[runes[a]] != km[runes[b]] {
			return km[runes[a]] < km[runes[b]]
		}
		return runes[a] < runes[b]
	})
	return runes
}
