package score

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/fmsynth/preset"
)

const testBankTOML = `
default = "blip"

[presets.blip]
harmonics = [2]
amplitudes = [1]
[presets.blip.mod_envelope]
attack = 5
release = 20
slevel1 = 1
slevel2 = 1
[presets.blip.amp_envelope]
attack = 5
release = 20
slevel1 = 1
slevel2 = 1

[presets.long]
harmonics = [3]
amplitudes = [0.5]
[presets.long.mod_envelope]
sustain = 95
release = 5
slevel1 = 0.5
slevel2 = 0.5
[presets.long.amp_envelope]
sustain = 95
release = 5
slevel1 = 0.5
slevel2 = 0.5
`

func testBank(t *testing.T) *preset.Bank {
	t.Helper()
	b, err := preset.Parse([]byte(testBankTOML))
	require.NoError(t, err)
	return b
}

func TestNormalizeStable(t *testing.T) {
	s := &Score{}
	s.Add(Event{Frame: 5, Keys: []float64{1}})
	s.Add(Event{Frame: 0, Keys: []float64{2}})
	s.Add(Event{Frame: 5, Keys: []float64{3}})
	s.Normalize()

	assert.Equal(t, []float64{2}, s.Events[0].Keys)
	assert.Equal(t, []float64{1}, s.Events[1].Keys)
	assert.Equal(t, []float64{3}, s.Events[2].Keys)
	assert.Equal(t, 5, s.LastFrame())
	assert.Equal(t, 3, s.Notes())
	assert.Equal(t, -1, (&Score{}).LastFrame())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr error
	}{
		{"negative_frame", Event{Frame: -1, Keys: []float64{0}}, ErrNegativeFrame},
		{"empty", Event{Frame: 0}, ErrEmptyEvent},
		{"nan_gain", Event{Keys: []float64{0}, Gain: math.NaN()}, ErrInvalidGain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Score{Events: []Event{tt.event}}
			assert.ErrorIs(t, s.Validate(), tt.wantErr)
		})
	}
}

func TestSecondsToFrame(t *testing.T) {
	assert.Equal(t, 100, SecondsToFrame(1, 16000, 160))
	assert.Equal(t, 150, SecondsToFrame(1.5, 16000, 160))
	assert.Equal(t, 0, SecondsToFrame(0.005, 16000, 160))
}

func TestKeySweep(t *testing.T) {
	scores := KeySweep(440, 13)
	require.Len(t, scores, 13)
	assert.Equal(t, []float64{440}, scores[0].Events[0].Hz)
	assert.InDelta(t, 880, scores[12].Events[0].Hz[0], 1e-9)
}

func TestPlayerRendersUntilSilent(t *testing.T) {
	s := &Score{Events: []Event{
		{Frame: 0, Keys: []float64{0, 4, 7}},
		{Frame: 3, Keys: []float64{12}, Patch: "long"},
	}}

	p, err := NewPlayer(s, testBank(t), 16000, 10, 0.2)
	require.NoError(t, err)
	// long: 100 samples from frame 3
	assert.Equal(t, 13, p.EstimatedFrames())

	buf := make([]float32, 10)
	frames := 0
	voices := []int{}
	for {
		more, err := p.NextFrame(buf)
		require.NoError(t, err)
		if !more {
			break
		}
		frames++
		voices = append(voices, p.ActiveVoices())
	}

	assert.Equal(t, 13, frames)
	assert.Equal(t, 13, p.Frame())
	assert.True(t, p.Done())
	// blip (25 samples) ends in frame 2, long ends in frame 12
	assert.Equal(t, 3, voices[1])
	assert.Equal(t, 0, voices[2])
	assert.Equal(t, 1, voices[3])
	assert.Equal(t, 0, voices[12])

	more, err := p.NextFrame(buf)
	assert.False(t, more)
	assert.NoError(t, err)
}

func TestPlayerSilentGap(t *testing.T) {
	s := &Score{Events: []Event{
		{Frame: 0, Keys: []float64{0}},
		{Frame: 10, Keys: []float64{0}},
	}}
	p, err := NewPlayer(s, testBank(t), 16000, 10, 1)
	require.NoError(t, err)

	var out []float32
	buf := make([]float32, 10)
	for {
		more, err := p.NextFrame(buf)
		require.NoError(t, err)
		if !more {
			break
		}
		out = append(out, buf...)
	}

	// Pending events keep the player alive across silence
	require.Len(t, out, 13*10)
	for i := 30; i < 100; i++ {
		assert.Zero(t, out[i])
	}
}

func TestPlayerRejectsUnknownPatch(t *testing.T) {
	s := &Score{Events: []Event{{Frame: 0, Keys: []float64{0}, Patch: "tuba"}}}
	_, err := NewPlayer(s, testBank(t), 16000, 10, 1)
	assert.ErrorIs(t, err, preset.ErrUnknownPatch)

	_, err = NewPlayer(&Score{}, testBank(t), 16000, 0, 1)
	assert.Error(t, err)
}

func TestPlayerStreamMatchesFrames(t *testing.T) {
	s := &Score{Events: []Event{{Frame: 1, Hz: []float64{440, 660}}}}

	framed, err := NewPlayer(s, testBank(t), 16000, 10, 0.5)
	require.NoError(t, err)
	var want []float32
	buf := make([]float32, 10)
	for {
		more, _ := framed.NextFrame(buf)
		if !more {
			break
		}
		want = append(want, buf...)
	}

	streamed, err := NewPlayer(s, testBank(t), 16000, 10, 0.5)
	require.NoError(t, err)
	var got []float64
	chunk := make([][2]float64, 7)
	for {
		n, ok := streamed.Stream(chunk)
		for i := 0; i < n; i++ {
			assert.Equal(t, chunk[i][0], chunk[i][1])
			got = append(got, chunk[i][0])
		}
		if !ok {
			break
		}
	}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, float64(want[i]), got[i])
	}
	assert.NoError(t, streamed.Err())
}

func TestWriteRaw(t *testing.T) {
	s := &Score{Events: []Event{{Frame: 0, Keys: []float64{0}}}}
	p, err := NewPlayer(s, testBank(t), 16000, 10, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	frames, err := WriteRaw(&buf, p)
	require.NoError(t, err)
	assert.Equal(t, 3, frames)
	require.Equal(t, 3*10*4, buf.Len())

	// First sample of a fresh voice is sin(0) * 0
	first := math.Float32frombits(binary.LittleEndian.Uint32(buf.Bytes()))
	assert.Zero(t, first)
}

func TestWriteWAV(t *testing.T) {
	s := &Score{Events: []Event{{Frame: 0, Keys: []float64{0}, Patch: "long"}}}
	p, err := NewPlayer(s, testBank(t), 8000, 10, 0.5)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteWAV(f, p, 8000))
	require.NoError(t, f.Close())

	r, err := os.Open(path)
	require.NoError(t, err)
	defer r.Close()

	stream, format, err := wav.Decode(r)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, 8000, int(format.SampleRate))
	assert.Equal(t, 1, format.NumChannels)
	assert.Equal(t, 2, format.Precision)
	assert.Equal(t, 100, stream.Len())
}

func TestLoadLua(t *testing.T) {
	src := `
note(0, 1)
note(0, "2c#", "long", 0.5)
chord(seconds(0.1), {3, 8, "1c"})
for i = 0, 2 do
  tone(20 + i, 440 * 2 ^ (i / 12))
end
assert(sample_rate == 16000 and frame_size == 160)
`
	s, err := LoadLua(src, 16000, 160)
	require.NoError(t, err)
	require.Len(t, s.Events, 6)

	assert.Equal(t, Event{Frame: 0, Keys: []float64{1}, Gain: 1}, s.Events[0])
	assert.Equal(t, Event{Frame: 0, Keys: []float64{25}, Patch: "long", Gain: 0.5}, s.Events[1])
	assert.Equal(t, 10, s.Events[2].Frame)
	assert.Equal(t, []float64{3, 8, 12}, s.Events[2].Keys)
	assert.Equal(t, 22, s.Events[5].Frame)
	assert.InDelta(t, 440*math.Exp2(2.0/12), s.Events[5].Hz[0], 1e-9)
	assert.Equal(t, 8, s.Notes())
}

func TestLoadLuaErrors(t *testing.T) {
	tests := map[string]string{
		"syntax":         `note(0,`,
		"negative_frame": `note(-1, 0)`,
		"bad_key":        `note(0, "h9")`,
		"empty_chord":    `chord(0, {})`,
		"bad_tone":       `tone(0, -5)`,
		"no_io":          `io.write("x")`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadLua(src, 16000, 160)
			assert.Error(t, err)
		})
	}

	_, err := LoadLua(`note(0, 0)`, 0, 160)
	assert.Error(t, err)
}

func TestLoadLuaNoFileAccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inc.lua")
	require.NoError(t, os.WriteFile(path, []byte(`note(0, 0)`), 0o644))

	for _, src := range []string{
		`dofile("` + path + `")`,
		`loadfile("` + path + `")()`,
		`package.path = "` + dir + `/?.lua"; require("inc")`,
		`require("inc")`,
		`module("x")`,
	} {
		_, err := LoadLua(src, 16000, 160)
		assert.Error(t, err, src)
	}

	// Loading from strings stays available
	s, err := LoadLua(`loadstring("note(0, 2)")()`, 16000, 160)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Notes())
}

func TestLoadLuaContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := LoadLuaContext(ctx, `while true do end`, 16000, 160)
	assert.Error(t, err)
}

func TestDemo(t *testing.T) {
	d := Demo()
	require.NoError(t, d.Validate())
	assert.Equal(t, 14, d.Notes()) // 3+1+3+2+2+1+2
	assert.Equal(t, 600, d.LastFrame())
	assert.Equal(t, []float64{8, 5}, d.Events[6].Keys)
}

func TestPlayerOnFrame(t *testing.T) {
	s := &Score{Events: []Event{{Frame: 0, Keys: []float64{0}}}}
	p, err := NewPlayer(s, testBank(t), 16000, 10, 0.2)
	require.NoError(t, err)

	var seen []int
	p.OnFrame(func(frame int) { seen = append(seen, frame) })

	buf := make([]float32, 10)
	for {
		more, err := p.NextFrame(buf)
		require.NoError(t, err)
		if !more {
			break
		}
	}
	require.NotEmpty(t, seen)
	assert.Equal(t, 1, seen[0])
	assert.Equal(t, p.Frame(), seen[len(seen)-1])
	assert.Len(t, seen, p.EstimatedFrames())
}
