package effects

import (
	"fmt"
	"strings"
)

// Spec describes one master-bus insert as it appears in configuration.
type Spec struct {
	Type   string    `yaml:"type"`
	Params []float64 `yaml:"params"`
}

// New builds an insert from a Spec. Missing params take defaults.
// Supported types: delay, reverb, comp/compressor, lowpass, bandpass.
func New(spec Spec, sampleRate int) (Effector, error) {
	param := func(idx int, def float64) float64 {
		if idx < len(spec.Params) {
			return spec.Params[idx]
		}
		return def
	}
	switch strings.ToLower(strings.TrimSpace(spec.Type)) {
	case "delay":
		return NewDelay(sampleRate,
			param(0, 250),          // delay ms
			float32(param(1, 0.4)), // feedback
			float32(param(2, 0.2)), // cross
			float32(param(3, 0.3)), // wet
		), nil
	case "reverb":
		return NewReverb(sampleRate,
			float32(param(0, 0.5)),  // room size
			float32(param(1, 0.7)),  // feedback
			float32(param(2, 0.25)), // wet
		), nil
	case "comp", "compressor":
		return NewCompressor(sampleRate,
			float32(param(0, -12)), // threshold dB
			float32(param(1, 3)),   // ratio
			float32(param(2, 5)),   // attack ms
			float32(param(3, 120)), // release ms
			float32(param(4, 2)),   // makeup dB
		), nil
	case "lowpass", "bandpass":
		return NewFilter(sampleRate, ParseFilterMode(spec.Type), param(0, 8000), param(1, 0.707)), nil
	}
	return nil, fmt.Errorf("effects: unknown insert type %q", spec.Type)
}

// NewChainFromSpecs builds a chain, stopping at the first invalid spec.
func NewChainFromSpecs(specs []Spec, sampleRate int) (*Chain, error) {
	c := NewChain()
	for i, s := range specs {
		e, err := New(s, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("insert %d: %w", i, err)
		}
		c.Add(e)
	}
	return c, nil
}
