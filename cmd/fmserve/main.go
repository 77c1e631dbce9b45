package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lixenwraith/fmsynth/audio"
	"github.com/lixenwraith/fmsynth/instrument"
	"github.com/lixenwraith/fmsynth/logging"
	"github.com/lixenwraith/fmsynth/network"
	"github.com/lixenwraith/fmsynth/preset"
	"github.com/lixenwraith/fmsynth/service"
	"github.com/lixenwraith/fmsynth/status"
)

var (
	addrFlag     = flag.String("addr", ":7777", "Listen address")
	pathFlag     = flag.String("path", "/ws", "Websocket endpoint path")
	maxPeersFlag = flag.Int("max-peers", 16, "Maximum concurrent peers")
	idleFlag     = flag.Duration("idle", 60*time.Second, "Disconnect peers idle this long, 0 disables")
	presetsFlag  = flag.String("presets", "", "Preset bank TOML file, reloaded on change (default: builtin bank)")
	backendFlag  = flag.String("backend", "", "Audio backend: auto, speaker, oto, pipe, none")
	volumeFlag   = flag.Float64("volume", -1, "Master volume 0.0-1.0")
	debugFlag    = flag.Bool("debug", false, "Write logs to logs/fmserve.log instead of stderr")
)

func main() {
	flag.Parse()

	// Headless: log to stderr unless debug redirects to a file
	if *debugFlag {
		if logFile := logging.Setup(true, "fmserve"); logFile != nil {
			defer logFile.Close()
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fmserve: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	audioCfg := audio.LoadAudioConfig()
	if *backendFlag != "" {
		audioCfg.Backend = *backendFlag
	}
	if *volumeFlag >= 0 {
		audioCfg.MasterVolume = *volumeFlag
	}

	netCfg := network.DefaultConfig()
	netCfg.Address = *addrFlag
	netCfg.Path = *pathFlag
	netCfg.MaxPeers = *maxPeersFlag
	netCfg.ReadTimeout = *idleFlag

	metrics := status.NewRegistry()

	hub := service.NewHub()
	for _, svc := range []service.Service{
		audio.NewService(),
		preset.NewService(),
		instrument.NewService(),
		network.NewService(),
	} {
		if err := hub.Register(svc); err != nil {
			return err
		}
	}

	if err := hub.InitAll(map[string][]any{
		"audio":   {audioCfg},
		"presets": {*presetsFlag},
		"network": {netCfg, metrics},
	}); err != nil {
		return err
	}
	if err := hub.StartAll(); err != nil {
		return err
	}
	defer hub.StopAll()

	srv, _ := service.Resource[*network.Server](hub)
	log.Printf("fmserve: services %v, listening on %s%s", hub.Order(), srv.Addr(), netCfg.Path)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	if inst, ok := service.Resource[*instrument.Instrument](hub); ok {
		played, failed := inst.Stats()
		metrics.Counter("instrument.played").Store(int64(played))
		metrics.Counter("instrument.failed").Store(int64(failed))
	}
	log.Printf("fmserve: shutting down, %s", metrics)
	return nil
}
