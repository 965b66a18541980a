package engine

import (
	"fmt"

	"github.com/cbegin/beatgrid-go/internal/effects"
	"github.com/cbegin/beatgrid-go/internal/kit"
	"github.com/cbegin/beatgrid-go/internal/synth"
)

const (
	compAttackMs  = 5
	compReleaseMs = 80
)

// VoiceChain is one voice's signal path:
// generator -> filter -> compressor -> panner -> gain.
// Disabled stages are skipped but keep their settings.
type VoiceChain struct {
	voice kit.Voice
	gen   synth.Generator
	fx    TrackEffects

	filter *effects.Filter
	comp   *effects.Compressor
	pan    *effects.Panner
	gain   *effects.Gain

	disposed bool
}

func newVoiceChain(sampleRate int, v kit.Voice, fx TrackEffects) (*VoiceChain, error) {
	gen, err := synth.New(sampleRate, v.Synth)
	if err != nil {
		return nil, fmt.Errorf("voice %q: %w", v.ID, err)
	}
	return &VoiceChain{
		voice: v,
		gen:   gen,
		fx:    fx,
		filter: effects.NewFilter(sampleRate, fx.Filter.Mode,
			fx.Filter.FrequencyHz, fx.Filter.Q),
		comp: effects.NewCompressor(sampleRate, float32(fx.Compressor.ThresholdDB),
			float32(fx.Compressor.Ratio), compAttackMs, compReleaseMs, 0),
		pan:  effects.NewPanner(fx.Pan),
		gain: effects.NewGain(fx.VolumeDB),
	}, nil
}

func (c *VoiceChain) Voice() kit.Voice      { return c.voice }
func (c *VoiceChain) Effects() TrackEffects { return c.fx }
func (c *VoiceChain) Disposed() bool        { return c.disposed }
func (c *VoiceChain) Active() bool          { return !c.disposed && c.gen.Active() }

// Trigger starts the generator for length seconds.
func (c *VoiceChain) Trigger(length, velocity float64) {
	if c.disposed {
		return
	}
	c.gen.Trigger(length, velocity)
}

// Render produces one stereo frame.
func (c *VoiceChain) Render() (float32, float32) {
	if c.disposed {
		return 0, 0
	}
	s := c.gen.Next()
	l, r := s, s
	if c.fx.Filter.Enabled {
		l, r = c.filter.Process(l, r)
	}
	if c.fx.Compressor.Enabled {
		l, r = c.comp.Process(l, r)
	}
	l, r = c.pan.Process(l, r)
	return c.gain.Process(l, r)
}

// apply pushes only what changed between the current and next settings to
// the live stages. Re-enabling a stage clears its state.
func (c *VoiceChain) apply(next TrackEffects) {
	prev := c.fx
	if next.Filter.Enabled && !prev.Filter.Enabled {
		c.filter.Reset()
	}
	if next.Filter.Mode != prev.Filter.Mode {
		c.filter.SetMode(next.Filter.Mode)
	}
	if next.Filter.FrequencyHz != prev.Filter.FrequencyHz {
		c.filter.SetFrequency(next.Filter.FrequencyHz)
	}
	if next.Filter.Q != prev.Filter.Q {
		c.filter.SetQ(next.Filter.Q)
	}
	if next.Compressor.Enabled && !prev.Compressor.Enabled {
		c.comp.Reset()
	}
	if next.Compressor.ThresholdDB != prev.Compressor.ThresholdDB {
		c.comp.SetThreshold(float32(next.Compressor.ThresholdDB))
	}
	if next.Compressor.Ratio != prev.Compressor.Ratio {
		c.comp.SetRatio(float32(next.Compressor.Ratio))
	}
	if next.Pan != prev.Pan {
		c.pan.SetPan(next.Pan)
	}
	if next.VolumeDB != prev.VolumeDB {
		c.gain.SetDB(next.VolumeDB)
	}
	c.fx = next
}

// Dispose silences the chain for good.
func (c *VoiceChain) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.gen.Reset()
	c.filter.Reset()
	c.comp.Reset()
}
