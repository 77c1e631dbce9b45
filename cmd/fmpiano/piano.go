package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/fmsynth/audio"
	"github.com/lixenwraith/fmsynth/instrument"
)

const (
	pressFlashMs  = 150
	statusHoldMs  = 3000
	volumeStep    = 0.05
	keyCellWidth  = 5
	keyCellHeight = 3
)

// Volume is the master gain control, *audio.AudioEngine in production
type Volume interface {
	SetVolume(vol float64)
	Volume() float64
}

type notice struct {
	text  string
	isErr bool
}

// Piano is the terminal keyboard front end
type Piano struct {
	screen        tcell.Screen
	width, height int

	inst   *instrument.Instrument
	volume Volume
	keys   instrument.KeyMap
	runes  []rune

	// Key flash
	pressed map[rune]time.Time

	// Status line
	status     string
	statusErr  bool
	statusTime time.Time
	notices    chan notice
}

// NewPiano binds a screen to an instrument, volume may be nil
func NewPiano(screen tcell.Screen, inst *instrument.Instrument, volume Volume, keys instrument.KeyMap) *Piano {
	p := &Piano{
		screen:  screen,
		inst:    inst,
		volume:  volume,
		keys:    keys,
		runes:   keys.Runes(),
		pressed: make(map[rune]time.Time),
		notices: make(chan notice, 16),
	}
	p.width, p.height = screen.Size()
	return p
}

// Notify posts a status message, safe from any goroutine
func (p *Piano) Notify(text string, isErr bool) {
	select {
	case p.notices <- notice{text, isErr}:
	default:
	}
}

func (p *Piano) setStatus(text string, isErr bool) {
	p.status = text
	p.statusErr = isErr
	p.statusTime = time.Now()
	if isErr {
		log.Printf("fmpiano: %s", text)
	}
}

// handleInput returns false when the user quits
func (p *Piano) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			p.handleRune(ev.Rune())
		}

	case *tcell.EventResize:
		p.width, p.height = p.screen.Size()
		p.screen.Sync()
	}
	return true
}

func (p *Piano) handleRune(r rune) {
	switch r {
	case '[':
		p.setStatus("patch: "+p.inst.Cycle(-1), false)
		return
	case ']':
		p.setStatus("patch: "+p.inst.Cycle(1), false)
		return
	case '-':
		p.adjustVolume(-volumeStep)
		return
	case '=', '+':
		p.adjustVolume(volumeStep)
		return
	}

	key, ok := p.keys.Lookup(r)
	if !ok {
		return
	}
	if err := p.inst.PlayKey("", float64(key), 1.0); err != nil {
		p.setStatus(err.Error(), true)
		return
	}
	p.pressed[r] = time.Now()
}

func (p *Piano) adjustVolume(delta float64) {
	if p.volume == nil {
		return
	}
	p.volume.SetVolume(p.volume.Volume() + delta)
	p.setStatus(fmt.Sprintf("volume: %.2f", p.volume.Volume()), false)
}

func (p *Piano) drawText(x, y int, text string, style tcell.Style) {
	for _, r := range text {
		if x >= p.width {
			return
		}
		p.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (p *Piano) draw() {
	p.screen.Clear()
	now := time.Now()

	header := fmt.Sprintf("fmpiano  patch: %s  voices: %d", p.inst.Current(), p.inst.ActiveVoices())
	if p.volume != nil {
		header += fmt.Sprintf("  volume: %.2f", p.volume.Volume())
	}
	p.drawText(1, 0, header, tcell.StyleDefault.Bold(true))

	// Keyboard row
	top := 2
	for i, r := range p.runes {
		x := 1 + i*keyCellWidth
		if x+keyCellWidth > p.width {
			break
		}

		style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
		if t, ok := p.pressed[r]; ok {
			if now.Sub(t).Milliseconds() < pressFlashMs {
				style = style.Foreground(tcell.ColorYellow).Reverse(true)
			} else {
				delete(p.pressed, r)
			}
		}

		for dy := 0; dy < keyCellHeight; dy++ {
			for dx := 0; dx < keyCellWidth-1; dx++ {
				p.screen.SetContent(x+dx, top+dy, ' ', nil, style)
			}
		}
		key, _ := p.keys.Lookup(r)
		p.drawText(x+1, top, string(r), style)
		p.drawText(x, top+keyCellHeight-1, audio.KeyName(key), style)
	}

	// Status
	if p.status != "" && now.Sub(p.statusTime).Milliseconds() < statusHoldMs {
		style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
		if p.statusErr {
			style = tcell.StyleDefault.Foreground(tcell.ColorRed)
		}
		p.drawText(1, top+keyCellHeight+1, p.status, style)
	}

	p.drawText(1, p.height-1, "[ ] patch   - = volume   Esc quit", tcell.StyleDefault.Dim(true))
	p.screen.Show()
}

func (p *Piano) run() {
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				return // Screen finalized
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !p.handleInput(ev) {
				return
			}

		case n := <-p.notices:
			p.setStatus(n.text, n.isErr)

		case <-ticker.C:
			p.draw()
		}
	}
}
