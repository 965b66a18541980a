// Package lfo provides the low-frequency oscillator used for tonal vibrato.
package lfo

import "math"

// Waveform selects the LFO shape.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Square
	Saw
)

// ParseWaveform maps catalog names to shapes; unknown names are sine.
func ParseWaveform(name string) Waveform {
	switch name {
	case "triangle":
		return Triangle
	case "square":
		return Square
	case "saw", "sawtooth":
		return Saw
	default:
		return Sine
	}
}

// LFO produces one modulation value per sample in [-depth, +depth].
type LFO struct {
	depth    float64
	rateHz   float64
	waveform Waveform
	phase    float64 // [0, 1)
}

// Set configures the LFO parameters. Out-of-range waveforms become sine.
func (l *LFO) Set(depth, rateHz float64, waveform Waveform) {
	l.depth = depth
	l.rateHz = rateHz
	if waveform < Sine || waveform > Saw {
		waveform = Sine
	}
	l.waveform = waveform
}

// Sample returns the current value and advances by one sample.
// Returns 0 if depth or rate is zero.
func (l *LFO) Sample(sampleRate float64) float64 {
	if !l.Active() || sampleRate == 0 {
		return 0
	}
	var v float64
	switch l.waveform {
	case Saw:
		v = 1.0 - 2.0*l.phase
	case Square:
		v = -1.0
		if l.phase < 0.5 {
			v = 1.0
		}
	case Triangle:
		if l.phase < 0.5 {
			v = 4.0*l.phase - 1.0
		} else {
			v = 3.0 - 4.0*l.phase
		}
	default:
		v = math.Sin(2 * math.Pi * l.phase)
	}
	l.phase += l.rateHz / sampleRate
	l.phase -= math.Floor(l.phase)
	return v * l.depth
}

// Active returns true if the LFO has non-zero depth and rate.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

// Reset zeros the LFO phase.
func (l *LFO) Reset() {
	l.phase = 0
}
