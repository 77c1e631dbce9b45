package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"

	"github.com/lixenwraith/fmsynth/audio"
	"github.com/lixenwraith/fmsynth/instrument"
	"github.com/lixenwraith/fmsynth/logging"
	"github.com/lixenwraith/fmsynth/preset"
	"github.com/lixenwraith/fmsynth/service"
)

var (
	presetsFlag      = flag.String("presets", "", "Preset bank TOML file, reloaded on change (default: builtin bank)")
	keymapFlag       = flag.String("keymap", "", "Keymap TOML file with a [keys] table")
	patchFlag        = flag.String("patch", "", "Initial patch")
	backendFlag      = flag.String("backend", "", "Audio backend: auto, speaker, oto, pipe, none")
	volumeFlag       = flag.Float64("volume", -1, "Master volume 0.0-1.0")
	debugFlag        = flag.Bool("debug", false, "Write logs to logs/fmpiano.log")
	writePresetsFlag = flag.String("write-presets", "", "Write the builtin bank to this file and exit")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fmpiano: %v\n", err)
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanup happens on all exits
func run() (err error) {
	// Deferred Fini has restored the terminal by the time this runs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crashed: %v\nStack Trace:\n%s", r, debug.Stack())
		}
	}()

	if logFile := logging.Setup(*debugFlag, "fmpiano"); logFile != nil {
		defer logFile.Close()
	}

	if *writePresetsFlag != "" {
		return preset.Builtin().WriteFile(*writePresetsFlag)
	}

	keys := instrument.DefaultKeyMap()
	if *keymapFlag != "" {
		data, err := os.ReadFile(*keymapFlag)
		if err != nil {
			return errors.Wrap(err, "read keymap")
		}
		if keys, err = instrument.LoadKeyMap(data); err != nil {
			return err
		}
	}

	cfg := audio.LoadAudioConfig()
	if *backendFlag != "" {
		cfg.Backend = *backendFlag
	}
	if *volumeFlag >= 0 {
		cfg.MasterVolume = *volumeFlag
	}

	audioSvc := audio.NewService()
	presetSvc := preset.NewService()
	hub := service.NewHub()
	for _, svc := range []service.Service{audioSvc, presetSvc, instrument.NewService()} {
		if err := hub.Register(svc); err != nil {
			return err
		}
	}
	if err := hub.InitAll(map[string][]any{
		"audio":   {cfg},
		"presets": {*presetsFlag},
	}); err != nil {
		return err
	}

	inst, _ := service.Resource[*instrument.Instrument](hub)
	if *patchFlag != "" {
		if err := inst.Select(*patchFlag); err != nil {
			return err
		}
	}

	if err := hub.StartAll(); err != nil {
		return err
	}
	defer hub.StopAll()

	screen, err := tcell.NewScreen()
	if err != nil {
		return errors.Wrap(err, "initialize terminal")
	}
	if err := screen.Init(); err != nil {
		return errors.Wrap(err, "initialize terminal")
	}
	defer screen.Fini()

	piano := NewPiano(screen, inst, audioSvc.Engine(), keys)
	if audioSvc.Engine().IsSilent() {
		piano.Notify("no playback device, running silent", true)
	}
	if w, ok := presetSvc.Source().(*preset.Watcher); ok {
		w.Subscribe(func(b *preset.Bank) {
			piano.Notify(fmt.Sprintf("presets reloaded: %d patches", b.Len()), false)
		})
		w.OnError(func(err error) {
			piano.Notify(err.Error(), true)
		})
	}

	piano.run()
	return nil
}
