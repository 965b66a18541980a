package synth

import (
	"github.com/cbegin/beatgrid-go/internal/kit"
)

// burstSpacing is the gap between clap retriggers, in seconds.
const burstSpacing = 0.011

type noise struct {
	sampleRate float64
	color      kit.NoiseColor
	env        envelope
	rng        xorshift32
	b0, b1, b2 float64 // pink filter state
	brown      float64
	velocity   float64

	bursts     int
	burstLeft  int
	burstTimer int
	gate       float64
}

func newNoise(sr float64, p kit.Noise) *noise {
	return &noise{
		sampleRate: sr,
		color:      p.Color,
		env:        newEnvelope(sr, p.Attack, p.Decay, 0, p.Release),
		rng:        0x2545F491,
		bursts:     max(p.Bursts, 1),
	}
}

func (n *noise) Trigger(length, velocity float64) {
	n.velocity = clamp(velocity, 0, 1)
	n.gate = length
	n.burstLeft = n.bursts - 1
	n.burstTimer = int(burstSpacing * n.sampleRate)
	n.env.trigger(length)
}

func (n *noise) sample() float64 {
	w := n.rng.next()
	switch n.color {
	case kit.Pink:
		// Paul Kellet's economy filter
		n.b0 = 0.99765*n.b0 + w*0.0990460
		n.b1 = 0.96300*n.b1 + w*0.2965164
		n.b2 = 0.57000*n.b2 + w*1.0526913
		return (n.b0 + n.b1 + n.b2 + w*0.1848) * 0.25
	case kit.Brown:
		n.brown = (n.brown + 0.02*w) / 1.02
		return n.brown * 3.5
	default:
		return w
	}
}

func (n *noise) Next() float32 {
	if !n.env.active() && n.burstLeft == 0 {
		return 0
	}
	if n.burstLeft > 0 {
		n.burstTimer--
		if n.burstTimer <= 0 {
			n.burstLeft--
			n.burstTimer = int(burstSpacing * n.sampleRate)
			n.env.trigger(n.gate)
		}
	}
	return float32(n.sample() * n.env.next() * n.velocity)
}

func (n *noise) Active() bool { return n.env.active() || n.burstLeft > 0 }

func (n *noise) Reset() {
	n.env.reset()
	n.burstLeft = 0
	n.b0, n.b1, n.b2, n.brown = 0, 0, 0, 0
}
