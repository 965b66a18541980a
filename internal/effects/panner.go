package effects

import "math"

// Panner places a signal in the stereo field with an equal-power law.
// The input is summed to mono first, so a centred voice keeps its level.
type Panner struct {
	pan   float64
	gainL float32
	gainR float32
}

func NewPanner(pan float64) *Panner {
	p := &Panner{}
	p.SetPan(pan)
	return p
}

// SetPan takes a position in [-1, 1]; out-of-range values are clamped.
func (p *Panner) SetPan(pan float64) {
	p.pan = clamp64(pan, -1, 1)
	angle := (p.pan + 1) / 2 * (math.Pi / 2)
	// sqrt2 keeps unity gain at centre
	p.gainL = float32(math.Cos(angle) * math.Sqrt2)
	p.gainR = float32(math.Sin(angle) * math.Sqrt2)
}

func (p *Panner) Pan() float64 { return p.pan }

func (p *Panner) Process(l, r float32) (float32, float32) {
	mono := (l + r) * 0.5
	return mono * p.gainL, mono * p.gainR
}

func (p *Panner) Reset() {}
