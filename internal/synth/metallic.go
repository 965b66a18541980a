package synth

import (
	"math"

	"github.com/cbegin/beatgrid-go/internal/kit"
)

// Partial ratios of the classic six-oscillator cymbal.
var metallicRatios = [6]float64{1, 1.342, 1.2312, 1.6532, 1.9523, 2.1523}

type metallic struct {
	sampleRate float64
	env        envelope
	freqs      [6]float64
	phases     [6]float64
	hpAlpha    float64
	hpPrevIn   float64
	hpPrevOut  float64
	velocity   float64
}

func newMetallic(sr float64, p kit.Metallic) *metallic {
	m := &metallic{
		sampleRate: sr,
		env:        newEnvelope(sr, 0.001, p.Decay, 0, p.Release),
	}
	stretch := p.Harmonicity / 5.1
	if stretch <= 0 {
		stretch = 1
	}
	for i, r := range metallicRatios {
		m.freqs[i] = clamp(p.Frequency*math.Pow(r, stretch)*2, 20, sr*0.45)
	}
	cutoff := clamp(p.Resonance, 20, sr*0.45)
	rc := 1.0 / (twoPi * cutoff)
	dt := 1.0 / sr
	m.hpAlpha = rc / (rc + dt)
	return m
}

func (m *metallic) Trigger(length, velocity float64) {
	m.velocity = clamp(velocity, 0, 1)
	m.env.trigger(length)
}

func (m *metallic) Next() float32 {
	if !m.env.active() {
		return 0
	}
	var sum float64
	for i := range m.freqs {
		dt := m.freqs[i] / m.sampleRate
		m.phases[i] += dt
		if m.phases[i] >= 1 {
			m.phases[i] -= 1
		}
		sq := -1.0
		if m.phases[i] < 0.5 {
			sq = 1
		}
		sq += polyBLEP(m.phases[i], dt)
		sq -= polyBLEP(math.Mod(m.phases[i]+0.5, 1), dt)
		sum += sq
	}
	sum /= float64(len(m.freqs))
	// one-pole highpass
	out := m.hpAlpha * (m.hpPrevOut + sum - m.hpPrevIn)
	m.hpPrevIn = sum
	m.hpPrevOut = out
	return float32(out * m.env.next() * m.velocity)
}

func (m *metallic) Active() bool { return m.env.active() }

func (m *metallic) Reset() {
	m.env.reset()
	m.phases = [6]float64{}
	m.hpPrevIn, m.hpPrevOut = 0, 0
}
