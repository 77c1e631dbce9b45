package audio

import (
	"io"
	"log"
	"os/exec"
	"sync"
)

// pipeBackend streams s16le into a detected CLI player's stdin
type pipeBackend struct {
	cfg   *BackendConfig
	cmd   *exec.Cmd
	stdin io.WriteCloser
	mixer *Mixer
	done  chan struct{}
	wg    sync.WaitGroup
}

func (b *pipeBackend) name() string {
	if b.cfg != nil {
		return "pipe:" + b.cfg.Name
	}
	return "pipe"
}

func (b *pipeBackend) start(m *Mixer, cfg *AudioConfig) error {
	detected, err := DetectBackend(cfg.SampleRate)
	if err != nil {
		return err
	}

	cmd := exec.Command(detected.Path, detected.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return err
	}

	b.cfg = detected
	b.cmd = cmd
	b.stdin = stdin
	b.mixer = m
	b.done = make(chan struct{})

	m.Start(stdin, cfg.SampleRate)

	b.wg.Add(2)
	go b.monitorProcess()
	go b.monitorMixer()
	return nil
}

// monitorProcess watches for subprocess exit
func (b *pipeBackend) monitorProcess() {
	defer b.wg.Done()
	if err := b.cmd.Wait(); err != nil {
		select {
		case <-b.done:
		default:
			log.Printf("audio: %s exited: %v", b.cfg.Name, err)
		}
	}
}

// monitorMixer watches for pipe errors
func (b *pipeBackend) monitorMixer() {
	defer b.wg.Done()
	select {
	case err := <-b.mixer.Errors():
		log.Printf("audio: %v", err)
	case <-b.done:
	}
}

func (b *pipeBackend) stop() {
	close(b.done)
	b.mixer.Stop()
	b.stdin.Close()
	if b.cmd.Process != nil {
		b.cmd.Process.Kill()
	}
	b.wg.Wait()
}

// silentBackend keeps the clock running with output discarded
type silentBackend struct {
	mixer *Mixer
}

func (b *silentBackend) name() string {
	return "none"
}

func (b *silentBackend) start(m *Mixer, cfg *AudioConfig) error {
	b.mixer = m
	m.Start(io.Discard, cfg.SampleRate)
	return nil
}

func (b *silentBackend) stop() {
	b.mixer.Stop()
}
