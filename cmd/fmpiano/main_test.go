package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/fmsynth/preset"
)

// setFlag overrides a flag value for one test
func setFlag[T any](t *testing.T, p *T, v T) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}

func TestRunWritePresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.toml")
	setFlag(t, writePresetsFlag, path)

	require.NoError(t, run())

	b, err := preset.Load(path)
	require.NoError(t, err)
	assert.Equal(t, preset.Builtin().Len(), b.Len())
}

func TestRunReturnsSetupErrors(t *testing.T) {
	setFlag(t, backendFlag, "none")

	t.Run("missing_keymap", func(t *testing.T) {
		setFlag(t, keymapFlag, filepath.Join(t.TempDir(), "missing.toml"))
		assert.ErrorContains(t, run(), "read keymap")
	})

	t.Run("unknown_patch", func(t *testing.T) {
		setFlag(t, patchFlag, "theremin")
		assert.ErrorIs(t, run(), preset.ErrUnknownPatch)
	})

	t.Run("missing_presets", func(t *testing.T) {
		setFlag(t, presetsFlag, filepath.Join(t.TempDir(), "missing.toml"))
		assert.Error(t, run())
	})
}
