package preset

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/lixenwraith/fmsynth/audio"
)

// FormatConstraint is the range of bank file versions this build reads
const FormatConstraint = "^1"

// DefaultVersion is assumed when a bank omits its version
const DefaultVersion = "1.0.0"

var (
	ErrUnsupportedVersion = errors.New("unsupported preset format version")
	ErrUnknownPatch       = errors.New("unknown patch")
	ErrEmptyBank          = errors.New("preset bank has no patches")
	ErrInvalidPatch       = errors.New("invalid patch")
)

var formatConstraint = mustConstraint(FormatConstraint)

func mustConstraint(c string) *semver.Constraints {
	con, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return con
}

// Patch is a validated, ready-to-trigger timbre
type Patch struct {
	Name   string
	Spec   audio.ModulationSpec
	ModEnv audio.EnvelopeParams
	AmpEnv audio.EnvelopeParams
	Gain   float64
	Mode   audio.ModulationMode
}

// Options returns voice options for this patch scaled by an extra gain
func (p *Patch) Options(gain float64) []audio.VoiceOption {
	return []audio.VoiceOption{
		audio.WithGain(p.Gain * gain),
		audio.WithMode(p.Mode),
	}
}

// Play triggers one voice of the patch
func (p *Patch) Play(t audio.Trigger, phasePerSample, gain float64) error {
	return t.AddFMSynth(p.Spec, p.ModEnv, p.AmpEnv, phasePerSample, p.Options(gain)...)
}

// Len returns the voice length in samples
func (p *Patch) Len() int {
	return p.AmpEnv.Len()
}

// Bank is an immutable set of named patches
type Bank struct {
	version *semver.Version
	def     string
	patches map[string]*Patch
}

// Get returns the named patch, empty name selects the default
func (b *Bank) Get(name string) (*Patch, error) {
	if name == "" {
		name = b.def
	}
	p, ok := b.patches[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPatch, name)
	}
	return p, nil
}

// Default returns the default patch
func (b *Bank) Default() *Patch {
	return b.patches[b.def]
}

// DefaultName returns the default patch name
func (b *Bank) DefaultName() string {
	return b.def
}

// Names returns patch names in sorted order
func (b *Bank) Names() []string {
	names := make([]string, 0, len(b.patches))
	for n := range b.patches {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of patches
func (b *Bank) Len() int {
	return len(b.patches)
}

// Version returns the bank's format version
func (b *Bank) Version() *semver.Version {
	return b.version
}

// File layout

type envelopeFile struct {
	Attack  int     `toml:"attack"`
	Decay   int     `toml:"decay"`
	Sustain int     `toml:"sustain"`
	Release int     `toml:"release"`
	SLevel1 float64 `toml:"slevel1"`
	SLevel2 float64 `toml:"slevel2"`
	Curve   string  `toml:"curve,omitempty"`
}

type patchFile struct {
	Harmonics   []float64    `toml:"harmonics"`
	Amplitudes  []float64    `toml:"amplitudes"`
	Gain        *float64     `toml:"gain,omitempty"`
	Mode        string       `toml:"mode,omitempty"`
	ModEnvelope envelopeFile `toml:"mod_envelope"`
	AmpEnvelope envelopeFile `toml:"amp_envelope"`
}

type bankFile struct {
	Version string               `toml:"version"`
	Default string               `toml:"default"`
	Presets map[string]patchFile `toml:"presets"`
}

// Parse decodes and validates a TOML bank
// Any malformed patch fails the whole bank
func Parse(data []byte) (*Bank, error) {
	var f bankFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, errors.Wrap(err, "decode preset bank")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Errorf("preset bank: unknown keys %s", strings.Join(keys, ", "))
	}

	if f.Version == "" {
		f.Version = DefaultVersion
	}
	version, err := semver.NewVersion(f.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "preset bank version %q", f.Version)
	}
	if !formatConstraint.Check(version) {
		return nil, fmt.Errorf("%w: %s (want %s)", ErrUnsupportedVersion, version, FormatConstraint)
	}

	if len(f.Presets) == 0 {
		return nil, ErrEmptyBank
	}

	b := &Bank{
		version: version,
		def:     f.Default,
		patches: make(map[string]*Patch, len(f.Presets)),
	}
	for name, pf := range f.Presets {
		p, err := pf.patch(name)
		if err != nil {
			return nil, err
		}
		b.patches[name] = p
	}

	if b.def == "" {
		b.def = b.Names()[0]
	}
	if _, ok := b.patches[b.def]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownPatch, b.def)
	}
	return b, nil
}

// Load reads and parses a bank file
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read preset bank %s", path)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return b, nil
}

func (pf patchFile) patch(name string) (*Patch, error) {
	invalid := func(err error) error {
		return fmt.Errorf("%w %q: %w", ErrInvalidPatch, name, err)
	}

	spec, err := audio.NewModulationSpec(pf.Harmonics, pf.Amplitudes)
	if err != nil {
		return nil, invalid(err)
	}
	mode, err := audio.ParseModulationMode(pf.Mode)
	if err != nil {
		return nil, invalid(err)
	}
	modEnv, err := pf.ModEnvelope.params()
	if err != nil {
		return nil, invalid(err)
	}
	ampEnv, err := pf.AmpEnvelope.params()
	if err != nil {
		return nil, invalid(err)
	}

	p := &Patch{
		Name:   name,
		Spec:   spec,
		ModEnv: modEnv,
		AmpEnv: ampEnv,
		Gain:   1.0,
		Mode:   mode,
	}
	if pf.Gain != nil {
		p.Gain = *pf.Gain
	}

	// A trial voice runs every construction check the sequencer would
	if _, err := audio.NewVoice(p.Spec, p.ModEnv, p.AmpEnv, 0, p.Options(1)...); err != nil {
		return nil, invalid(err)
	}
	return p, nil
}

func (ef envelopeFile) params() (audio.EnvelopeParams, error) {
	curve, err := audio.ParseCurve(ef.Curve)
	if err != nil {
		return audio.EnvelopeParams{}, err
	}
	return audio.EnvelopeParams{
		Attack:  ef.Attack,
		Decay:   ef.Decay,
		Sustain: ef.Sustain,
		Release: ef.Release,
		SLevel1: ef.SLevel1,
		SLevel2: ef.SLevel2,
		Curve:   curve,
	}, nil
}

func toEnvelopeFile(p audio.EnvelopeParams) envelopeFile {
	ef := envelopeFile{
		Attack:  p.Attack,
		Decay:   p.Decay,
		Sustain: p.Sustain,
		Release: p.Release,
		SLevel1: p.SLevel1,
		SLevel2: p.SLevel2,
	}
	if p.Curve != audio.CurveLinear {
		ef.Curve = p.Curve.String()
	}
	return ef
}

// Encode writes the bank as TOML, readable by Parse
func (b *Bank) Encode(w io.Writer) error {
	f := bankFile{
		Version: b.version.String(),
		Default: b.def,
		Presets: make(map[string]patchFile, len(b.patches)),
	}
	for name, p := range b.patches {
		gain := p.Gain
		pf := patchFile{
			Harmonics:   p.Spec.Harmonics(),
			Amplitudes:  p.Spec.Amplitudes(),
			Gain:        &gain,
			ModEnvelope: toEnvelopeFile(p.ModEnv),
			AmpEnvelope: toEnvelopeFile(p.AmpEnv),
		}
		if p.Mode != audio.PhaseModulation {
			pf.Mode = p.Mode.String()
		}
		f.Presets[name] = pf
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return errors.Wrap(err, "encode preset bank")
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteFile encodes the bank to path
func (b *Bank) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := b.Encode(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
