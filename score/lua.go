package score

import (
	"context"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"

	"github.com/lixenwraith/fmsynth/audio"
)

// Script API:
//
//	note(frame, key [, patch [, gain]])      key is a number or a name like "2c#"
//	chord(frame, {keys} [, patch [, gain]])
//	tone(frame, hz [, patch [, gain]])
//	seconds(s) -> frame index
//
// Globals sample_rate and frame_size describe the render session.

// LoadLua runs a score script and returns the events it produced
func LoadLua(src string, sampleRate, frameSize int) (*Score, error) {
	return LoadLuaContext(context.Background(), src, sampleRate, frameSize)
}

// LoadLuaContext is LoadLua with cancellation for runaway scripts
func LoadLuaContext(ctx context.Context, src string, sampleRate, frameSize int) (*Score, error) {
	if sampleRate <= 0 || frameSize <= 0 {
		return nil, errors.Errorf("score script: invalid session %dHz/%d", sampleRate, frameSize)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)

	// No io/os/package: scripts only compute events
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return nil, errors.Wrapf(err, "open lua %s", lib.name)
		}
	}
	// Base library file loaders
	for _, name := range sandboxRemoved {
		L.SetGlobal(name, lua.LNil)
	}

	b := &luaBuilder{
		score:      &Score{},
		sampleRate: sampleRate,
		frameSize:  frameSize,
	}

	L.SetGlobal("sample_rate", lua.LNumber(sampleRate))
	L.SetGlobal("frame_size", lua.LNumber(frameSize))
	L.SetGlobal("note", L.NewFunction(b.note))
	L.SetGlobal("chord", L.NewFunction(b.chord))
	L.SetGlobal("tone", L.NewFunction(b.tone))
	L.SetGlobal("seconds", L.NewFunction(b.seconds))

	if err := L.DoString(src); err != nil {
		return nil, errors.Wrap(err, "score script")
	}

	b.score.Normalize()
	if err := b.score.Validate(); err != nil {
		return nil, errors.Wrap(err, "score script")
	}
	return b.score, nil
}

var sandboxRemoved = []string{"dofile", "loadfile", "require", "module"}

type luaBuilder struct {
	score      *Score
	sampleRate int
	frameSize  int
}

func (b *luaBuilder) frameArg(L *lua.LState) int {
	frame := L.CheckInt(1)
	if frame < 0 {
		L.ArgError(1, "frame must be non-negative")
	}
	return frame
}

// keyArg accepts a semitone number or a piano key name
func (b *luaBuilder) keyArg(L *lua.LState, n int, v lua.LValue) float64 {
	switch val := v.(type) {
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		key, err := audio.ParseKey(string(val))
		if err != nil {
			L.ArgError(n, err.Error())
		}
		return float64(key)
	default:
		L.ArgError(n, "key must be a number or note name")
	}
	return 0
}

func (b *luaBuilder) add(L *lua.LState, e Event) {
	e.Patch = L.OptString(3, "")
	e.Gain = float64(L.OptNumber(4, 1))
	b.score.Add(e)
}

func (b *luaBuilder) note(L *lua.LState) int {
	frame := b.frameArg(L)
	key := b.keyArg(L, 2, L.CheckAny(2))
	b.add(L, Event{Frame: frame, Keys: []float64{key}})
	return 0
}

func (b *luaBuilder) chord(L *lua.LState) int {
	frame := b.frameArg(L)
	tbl := L.CheckTable(2)

	var keys []float64
	tbl.ForEach(func(_, v lua.LValue) {
		keys = append(keys, b.keyArg(L, 2, v))
	})
	if len(keys) == 0 {
		L.ArgError(2, "chord needs at least one key")
	}
	b.add(L, Event{Frame: frame, Keys: keys})
	return 0
}

func (b *luaBuilder) tone(L *lua.LState) int {
	frame := b.frameArg(L)
	hz := float64(L.CheckNumber(2))
	if !(hz > 0) {
		L.ArgError(2, "frequency must be positive")
	}
	b.add(L, Event{Frame: frame, Hz: []float64{hz}})
	return 0
}

func (b *luaBuilder) seconds(L *lua.LState) int {
	s := float64(L.CheckNumber(1))
	L.Push(lua.LNumber(SecondsToFrame(s, b.sampleRate, b.frameSize)))
	return 1
}
