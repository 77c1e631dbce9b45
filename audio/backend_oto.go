package audio

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// otoContexts holds the single oto context a process may create
var otoContexts = &otoContextCache{open: oto.NewContext}

// otoContextCache opens the oto context once and hands it out on every start
// A failed open is sticky, oto refuses a second NewContext either way
type otoContextCache struct {
	mu     sync.Mutex
	open   func(*oto.NewContextOptions) (*oto.Context, chan struct{}, error)
	opened bool
	ctx    *oto.Context
	rate   int
	err    error
}

// get returns the shared context, reused reports whether it existed already
func (c *otoContextCache) get(op *oto.NewContextOptions) (ctx *oto.Context, reused bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opened {
		if c.err != nil {
			return nil, false, c.err
		}
		if c.rate != op.SampleRate {
			return nil, false, fmt.Errorf("%w: have %d, want %d", ErrOtoRate, c.rate, op.SampleRate)
		}
		return c.ctx, true, nil
	}

	c.opened = true
	c.rate = op.SampleRate
	ctx, ready, err := c.open(op)
	if err != nil {
		c.err = err
		return nil, false, err
	}
	<-ready
	c.ctx = ctx
	return ctx, false, nil
}

// otoBackend pulls float32 mono from the mixer through an oto player
type otoBackend struct {
	ctx    *oto.Context
	player *oto.Player
}

func (b *otoBackend) name() string {
	return "oto"
}

func (b *otoBackend) start(m *Mixer, cfg *AudioConfig) error {
	ctx, reused, err := otoContexts.get(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4 * frameDuration(cfg),
	})
	if err != nil {
		return err
	}
	if reused {
		if err := ctx.Resume(); err != nil {
			return err
		}
	}

	b.ctx = ctx
	b.player = ctx.NewPlayer(m)
	b.player.Play()
	return nil
}

func (b *otoBackend) stop() {
	if b.player != nil {
		b.player.Close()
		b.player = nil
	}
	// Suspended, resumed by the next start
	if b.ctx != nil {
		_ = b.ctx.Suspend()
		b.ctx = nil
	}
}
