package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/lixenwraith/fmsynth/logging"
	"github.com/lixenwraith/fmsynth/preset"
	"github.com/lixenwraith/fmsynth/score"
)

var (
	keysFlag    = flag.Int("keys", 0, "Dump this many single-key files starting at -f0")
	f0Flag      = flag.Float64("f0", 440, "Base frequency for -keys")
	scoreFlag   = flag.String("score", "", "Lua score script")
	outFlag     = flag.String("o", "", "Output file for scored renders (default audio.wav or audio.raw)")
	dirFlag     = flag.String("dir", ".", "Output directory for -keys")
	formatFlag  = flag.String("format", "wav", "Output format: wav, raw")
	patchFlag   = flag.String("patch", "", "Patch for -keys (default: bank default)")
	presetsFlag = flag.String("presets", "", "Preset bank TOML file (default: builtin bank)")
	rateFlag    = flag.Int("rate", 16000, "Sample rate")
	frameFlag   = flag.Int("frame", 160, "Frame size in samples")
	gainFlag    = flag.Float64("gain", 0.2, "Sequencer global gain")
	timeoutFlag = flag.Duration("timeout", 10*time.Second, "Score script time limit")
	debugFlag   = flag.Bool("debug", false, "Write logs to logs/fmrender.log")
)

type renderer struct {
	bank       *preset.Bank
	sampleRate int
	frameSize  int
	gain       float64
	format     string
	progress   io.Writer // nil when stderr is not a terminal
}

func main() {
	flag.Parse()

	if logFile := logging.Setup(*debugFlag, "fmrender"); logFile != nil {
		defer logFile.Close()
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fmrender: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if *formatFlag != "wav" && *formatFlag != "raw" {
		return errors.Errorf("unknown format %q", *formatFlag)
	}

	bank := preset.Builtin()
	if *presetsFlag != "" {
		b, err := preset.Load(*presetsFlag)
		if err != nil {
			return err
		}
		bank = b
	}

	r := &renderer{
		bank:       bank,
		sampleRate: *rateFlag,
		frameSize:  *frameFlag,
		gain:       *gainFlag,
		format:     *formatFlag,
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		r.progress = os.Stderr
	}

	switch {
	case *keysFlag > 0:
		return r.renderKeys(*f0Flag, *keysFlag, *patchFlag, *dirFlag)

	case *scoreFlag != "":
		src, err := os.ReadFile(*scoreFlag)
		if err != nil {
			return errors.Wrap(err, "read score")
		}
		ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
		defer cancel()
		s, err := score.LoadLuaContext(ctx, string(src), r.sampleRate, r.frameSize)
		if err != nil {
			return err
		}
		return r.renderFile(s, r.outputPath(*outFlag))

	default:
		return r.renderFile(score.Demo(), r.outputPath(*outFlag))
	}
}

func (r *renderer) outputPath(path string) string {
	if path != "" {
		return path
	}
	return "audio." + r.format
}

// renderKeys writes one file per equal-tempered step above f0
func (r *renderer) renderKeys(f0 float64, count int, patch, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	for i, s := range score.KeySweep(f0, count) {
		s.Events[0].Patch = patch
		hz := s.Events[0].Hz[0]
		path := filepath.Join(dir, fmt.Sprintf("audio_%.2fhz.%s", hz, r.format))
		if err := r.renderFile(s, path); err != nil {
			return errors.WithMessagef(err, "key %d", i)
		}
		fmt.Printf("%s is written\n", path)
	}
	return nil
}

func (r *renderer) renderFile(s *score.Score, path string) (err error) {
	p, err := score.NewPlayer(s, r.bank, r.sampleRate, r.frameSize, r.gain)
	if err != nil {
		return err
	}
	if r.progress != nil {
		total := p.EstimatedFrames()
		p.OnFrame(func(frame int) {
			if frame%50 == 0 || frame == total {
				fmt.Fprintf(r.progress, "\r%s: %d/%d frames", filepath.Base(path), frame, total)
			}
		})
		defer fmt.Fprintln(r.progress)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close output")
		}
	}()

	switch r.format {
	case "raw":
		_, err = score.WriteRaw(f, p)
	default:
		err = score.WriteWAV(f, p, r.sampleRate)
	}
	if err != nil {
		return errors.WithMessage(err, path)
	}
	return nil
}
