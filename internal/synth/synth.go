// Package synth renders the four drum synthesis kinds.
package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/beatgrid-go/internal/kit"
)

const twoPi = 2 * math.Pi

// Generator is one monophonic voice. Trigger restarts it; Next renders one
// mono sample. Generators are not safe for concurrent use.
type Generator interface {
	// Trigger starts a hit whose gate stays open for length seconds.
	Trigger(length float64, velocity float64)
	Next() float32
	Active() bool
	Reset()
}

var ErrNoSynth = errors.New("synth: voice has no synthesis parameters")

// New builds the generator for a voice's synthesis parameters.
func New(sampleRate int, s kit.Synth) (Generator, error) {
	if sampleRate <= 0 {
		return nil, errors.New("synth: sampleRate must be positive")
	}
	sr := float64(sampleRate)
	switch p := s.(type) {
	case kit.Membrane:
		return newMembrane(sr, p), nil
	case kit.Metallic:
		return newMetallic(sr, p), nil
	case kit.Noise:
		return newNoise(sr, p), nil
	case kit.Tonal:
		return newTonal(sr, p), nil
	case nil:
		return nil, ErrNoSynth
	default:
		return nil, fmt.Errorf("synth: unsupported parameters %T", s)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// xorshift32 keeps noise deterministic per voice so renders are repeatable.
type xorshift32 uint32

func (x *xorshift32) next() float64 {
	v := uint32(*x)
	v ^= v << 13
	v ^= v >> 17
	v ^= v << 5
	*x = xorshift32(v)
	return float64(v)/float64(1<<31) - 1
}
