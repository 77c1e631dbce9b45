package score

import (
	"bufio"
	"io"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/pkg/errors"

	"github.com/lixenwraith/fmsynth/audio"
)

// WriteWAV renders the player to a 16-bit mono WAV file
func WriteWAV(w io.WriteSeeker, p *Player, sampleRate int) error {
	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 1,
		Precision:   2,
	}
	if err := wav.Encode(w, p, format); err != nil {
		return errors.Wrap(err, "encode wav")
	}
	return p.Err()
}

// WriteRaw renders the player as headerless float32 little-endian mono
// Returns the number of frames written
func WriteRaw(w io.Writer, p *Player) (int, error) {
	bw := bufio.NewWriter(w)
	frame := make([]float32, p.FrameSize())
	out := make([]byte, len(frame)*4)

	frames := 0
	for {
		more, err := p.NextFrame(frame)
		if err != nil {
			return frames, err
		}
		if !more {
			break
		}
		audio.Float32ToF32LE(frame, out)
		if _, err := bw.Write(out); err != nil {
			return frames, errors.Wrap(err, "write raw frame")
		}
		frames++
	}
	return frames, errors.Wrap(bw.Flush(), "flush raw output")
}
