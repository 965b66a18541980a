// Package kit defines drum voices and the kits that group them.
//
// A voice's synthesis kind is a closed set: Membrane, Metallic, Noise and
// Tonal each carry their own parameter struct and are the only types that
// satisfy Synth.
package kit

import "fmt"

// SynthType names a synthesis kind.
type SynthType string

const (
	TypeMembrane SynthType = "membrane"
	TypeMetallic SynthType = "metallic"
	TypeNoise    SynthType = "noise"
	TypeTonal    SynthType = "tonal"
)

// Synth is implemented only by the parameter structs in this package.
type Synth interface {
	Type() SynthType
	isSynth()
}

// Membrane is a pitched body with an exponential downward sweep (kicks, toms).
type Membrane struct {
	Pitch      float64 `yaml:"pitch"`      // resting frequency, Hz
	Octaves    float64 `yaml:"octaves"`    // sweep start above Pitch
	PitchDecay float64 `yaml:"pitchDecay"` // sweep time constant, s
	Decay      float64 `yaml:"decay"`      // amplitude decay, s
	Release    float64 `yaml:"release"`    // s
}

// Metallic is a cluster of inharmonic square partials through a highpass (hats, cymbals).
type Metallic struct {
	Frequency   float64 `yaml:"frequency"`
	Harmonicity float64 `yaml:"harmonicity"`
	Resonance   float64 `yaml:"resonance"` // highpass cutoff, Hz
	Decay       float64 `yaml:"decay"`
	Release     float64 `yaml:"release"`
}

// NoiseColor selects the noise spectrum.
type NoiseColor string

const (
	White NoiseColor = "white"
	Pink  NoiseColor = "pink"
	Brown NoiseColor = "brown"
)

// Noise is an enveloped noise burst (snares, claps).
type Noise struct {
	Color   NoiseColor `yaml:"color"`
	Attack  float64    `yaml:"attack"`
	Decay   float64    `yaml:"decay"`
	Release float64    `yaml:"release"`
	Bursts  int        `yaml:"bursts"` // >1 retriggers the envelope for a clap
}

// Tonal is a single oscillator with an ADSR and optional vibrato.
type Tonal struct {
	Frequency    float64 `yaml:"frequency"`
	Waveform     string  `yaml:"waveform"` // sine, triangle, square, sawtooth
	Attack       float64 `yaml:"attack"`
	Decay        float64 `yaml:"decay"`
	Sustain      float64 `yaml:"sustain"`
	Release      float64 `yaml:"release"`
	VibratoDepth float64 `yaml:"vibratoDepth"` // semitones
	VibratoRate  float64 `yaml:"vibratoRate"`  // Hz
}

func (Membrane) Type() SynthType { return TypeMembrane }
func (Metallic) Type() SynthType { return TypeMetallic }
func (Noise) Type() SynthType    { return TypeNoise }
func (Tonal) Type() SynthType    { return TypeTonal }

func (Membrane) isSynth() {}
func (Metallic) isSynth() {}
func (Noise) isSynth()    {}
func (Tonal) isSynth()    {}

func DefaultMembrane() Membrane {
	return Membrane{Pitch: 50, Octaves: 4, PitchDecay: 0.05, Decay: 0.4, Release: 0.1}
}

func DefaultMetallic() Metallic {
	return Metallic{Frequency: 200, Harmonicity: 5.1, Resonance: 4000, Decay: 0.15, Release: 0.05}
}

func DefaultNoise() Noise {
	return Noise{Color: White, Attack: 0.001, Decay: 0.15, Release: 0.05, Bursts: 1}
}

func DefaultTonal() Tonal {
	return Tonal{Frequency: 220, Waveform: "sine", Attack: 0.005, Decay: 0.1, Sustain: 0.5, Release: 0.1}
}

// Default returns the default parameters for a kind.
func Default(t SynthType) (Synth, error) {
	switch t {
	case TypeMembrane:
		return DefaultMembrane(), nil
	case TypeMetallic:
		return DefaultMetallic(), nil
	case TypeNoise:
		return DefaultNoise(), nil
	case TypeTonal:
		return DefaultTonal(), nil
	}
	return nil, fmt.Errorf("kit: unknown synthesis type %q", t)
}

// General MIDI percussion notes used when a voice does not declare one.
var defaultMIDINotes = map[SynthType]uint8{
	TypeMembrane: 36, // bass drum
	TypeNoise:    38, // snare
	TypeMetallic: 42, // closed hi-hat
	TypeTonal:    56, // cowbell
}

// Voice is one drum sound. It is immutable once its kit is loaded.
type Voice struct {
	ID       string
	Name     string
	Short    string
	Color    string
	MIDINote uint8
	Synth    Synth
}

// Note returns the voice's MIDI note, falling back to a GM default for its kind.
func (v Voice) Note() uint8 {
	if v.MIDINote != 0 {
		return v.MIDINote
	}
	if v.Synth == nil {
		return 0
	}
	return defaultMIDINotes[v.Synth.Type()]
}

// Kit is an ordered bank of voices.
type Kit struct {
	ID          string
	Name        string
	Description string
	Voices      []Voice
}

// VoiceIDs returns voice ids in kit order.
func (k Kit) VoiceIDs() []string {
	ids := make([]string, len(k.Voices))
	for i, v := range k.Voices {
		ids[i] = v.ID
	}
	return ids
}

// Voice looks a voice up by id.
func (k Kit) Voice(id string) (Voice, bool) {
	for _, v := range k.Voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// Validate checks ids are present and unique and every voice has a synth.
func (k Kit) Validate() error {
	if k.ID == "" {
		return fmt.Errorf("kit: missing id")
	}
	if len(k.Voices) == 0 {
		return fmt.Errorf("kit %s: no voices", k.ID)
	}
	seen := make(map[string]struct{}, len(k.Voices))
	for i, v := range k.Voices {
		if v.ID == "" {
			return fmt.Errorf("kit %s: voice %d has no id", k.ID, i)
		}
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("kit %s: duplicate voice %q", k.ID, v.ID)
		}
		seen[v.ID] = struct{}{}
		if v.Synth == nil {
			return fmt.Errorf("kit %s: voice %q has no synth", k.ID, v.ID)
		}
	}
	return nil
}
