package audio

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// speakerBackend plays the mixer through beep's speaker
type speakerBackend struct{}

func (b *speakerBackend) name() string {
	return "speaker"
}

func (b *speakerBackend) start(m *Mixer, cfg *AudioConfig) error {
	sr := beep.SampleRate(cfg.SampleRate)
	// Four blocks of device buffering
	bufferSize := sr.N(4 * frameDuration(cfg))
	if err := speaker.Init(sr, bufferSize); err != nil {
		return err
	}
	speaker.Play(m)
	return nil
}

func (b *speakerBackend) stop() {
	speaker.Clear()
	speaker.Close()
}

// frameDuration returns the wall time of one block
func frameDuration(cfg *AudioConfig) time.Duration {
	return time.Duration(float64(time.Second) * float64(cfg.FrameSize) / float64(cfg.SampleRate))
}
