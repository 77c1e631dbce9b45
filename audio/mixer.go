package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Mixer serializes access to a Sequencer for one render goroutine and any
// number of trigger goroutines
//
// Every block is rendered entirely under the lock, so a voice added while
// audio is being pulled starts at the next block boundary and is never
// observed half-way through a block.
type Mixer struct {
	mu    sync.Mutex
	seq   *Sequencer
	frame []float32 // Last rendered block
	pos   int       // Read position inside frame, len(frame) when drained

	// Pump state, see Start
	stopChan chan struct{}
	stopped  atomic.Bool
	errChan  chan error
	wg       sync.WaitGroup

	// Stats
	frames    atomic.Uint64
	triggered atomic.Uint64
	rejected  atomic.Uint64
}

// NewMixer wraps seq; the mixer must be the only user of seq from now on
func NewMixer(seq *Sequencer) *Mixer {
	return &Mixer{
		seq:      seq,
		frame:    make([]float32, seq.FrameSize()),
		pos:      seq.FrameSize(),
		stopChan: make(chan struct{}),
		errChan:  make(chan error, 1),
	}
}

// AddFMSynth adds a voice under the lock
func (m *Mixer) AddFMSynth(spec ModulationSpec, modEnv, ampEnv EnvelopeParams, phasePerSample float64, opts ...VoiceOption) error {
	m.mu.Lock()
	err := m.seq.AddFMSynth(spec, modEnv, ampEnv, phasePerSample, opts...)
	m.mu.Unlock()

	m.count(err)
	return err
}

// Add inserts a generator under the lock
func (m *Mixer) Add(g Generator) error {
	m.mu.Lock()
	err := m.seq.Add(g)
	m.mu.Unlock()

	m.count(err)
	return err
}

func (m *Mixer) count(err error) {
	if err != nil {
		m.rejected.Add(1)
	} else {
		m.triggered.Add(1)
	}
}

// RenderFrame renders one block into buf under the lock
// Bypasses the pull buffer, do not mix with Stream/Read on the same mixer
func (m *Mixer) RenderFrame(buf []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.seq.Next(buf); err != nil {
		return err
	}
	m.frames.Add(1)
	return nil
}

// pull delivers n samples to put, rendering blocks on demand
// The lock is released between blocks so triggers can interleave
func (m *Mixer) pull(n int, put func(i int, v float32)) {
	for i := 0; i < n; {
		m.mu.Lock()
		if m.pos >= len(m.frame) {
			// Length matches by construction, Next cannot fail
			_ = m.seq.Next(m.frame)
			m.frames.Add(1)
			m.pos = 0
		}
		for i < n && m.pos < len(m.frame) {
			put(i, m.frame[m.pos])
			m.pos++
			i++
		}
		m.mu.Unlock()
	}
}

// Stream implements beep.Streamer, mono duplicated to both channels
// The stream never ends; silence is produced while no voice is active
func (m *Mixer) Stream(samples [][2]float64) (n int, ok bool) {
	m.pull(len(samples), func(i int, v float32) {
		samples[i][0] = float64(v)
		samples[i][1] = float64(v)
	})
	return len(samples), true
}

// Err implements beep.Streamer
func (m *Mixer) Err() error {
	return nil
}

// Read implements io.Reader producing float32 little-endian mono
func (m *Mixer) Read(p []byte) (int, error) {
	n := len(p) / 4
	m.pull(n, func(i int, v float32) {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	})
	return n * 4, nil
}

// Start launches the pump writing s16le blocks to out at real-time pace
// Start and Stop must not be called concurrently with each other
func (m *Mixer) Start(out io.Writer, sampleRate int) {
	interval := time.Duration(float64(time.Second) * float64(m.seq.FrameSize()) / float64(sampleRate))

	// Fresh stop channel and error slot per run
	m.stopChan = make(chan struct{})
	m.stopped.Store(false)
	select {
	case <-m.errChan:
	default:
	}

	m.wg.Add(1)
	go m.loop(out, interval, m.stopChan)
}

// Stop signals the pump to halt and waits for it
func (m *Mixer) Stop() {
	if m.stopped.CompareAndSwap(false, true) {
		close(m.stopChan)
	}
	m.wg.Wait()
}

// Errors returns channel for pipe errors
func (m *Mixer) Errors() <-chan error {
	return m.errChan
}

// loop is the pump goroutine
func (m *Mixer) loop(out io.Writer, interval time.Duration, stop <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	block := make([]float32, m.seq.FrameSize())
	outBytes := make([]byte, len(block)*2)

	for {
		select {
		case <-stop:
			return

		case <-ticker.C:
			m.pull(len(block), func(i int, v float32) {
				block[i] = v
			})
			Float32ToS16LE(block, outBytes)

			if _, err := out.Write(outBytes); err != nil {
				select {
				case m.errChan <- fmt.Errorf("%w: %v", ErrPipeClosed, err):
				default:
				}
				return
			}
		}
	}
}

// ActiveVoices returns the sequencer's generator count
func (m *Mixer) ActiveVoices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq.GeneratorCount()
}

// FrameSize returns the block size
func (m *Mixer) FrameSize() int {
	return len(m.frame)
}

// SetGain updates the global gain, applied from the next block
func (m *Mixer) SetGain(gain float64) {
	m.mu.Lock()
	m.seq.SetGain(gain)
	m.mu.Unlock()
}

// Gain returns the global gain
func (m *Mixer) Gain() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq.Gain()
}

// Reset silences all voices and drops the pending block
func (m *Mixer) Reset() {
	m.mu.Lock()
	m.seq.Reset()
	m.pos = len(m.frame)
	m.mu.Unlock()
}

// GetStats returns rendered blocks, accepted triggers and rejected triggers
func (m *Mixer) GetStats() (frames, triggered, rejected uint64) {
	return m.frames.Load(), m.triggered.Load(), m.rejected.Load()
}
