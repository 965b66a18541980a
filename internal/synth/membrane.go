package synth

import (
	"math"

	"github.com/cbegin/beatgrid-go/internal/kit"
)

type membrane struct {
	sampleRate float64
	p          kit.Membrane
	env        envelope
	phase      float64
	age        int
	sweepStart float64
	velocity   float64
}

func newMembrane(sr float64, p kit.Membrane) *membrane {
	p.Pitch = clamp(p.Pitch, 10, sr/4)
	p.PitchDecay = math.Max(p.PitchDecay, 0.001)
	return &membrane{
		sampleRate: sr,
		p:          p,
		env:        newEnvelope(sr, 0.001, p.Decay, 0, p.Release),
		sweepStart: p.Pitch * math.Pow(2, p.Octaves),
	}
}

func (m *membrane) Trigger(length, velocity float64) {
	m.phase = 0
	m.age = 0
	m.velocity = clamp(velocity, 0, 1)
	m.env.trigger(length)
}

func (m *membrane) Next() float32 {
	if !m.env.active() {
		return 0
	}
	t := float64(m.age) / m.sampleRate
	m.age++
	freq := m.p.Pitch + (m.sweepStart-m.p.Pitch)*math.Exp(-t/m.p.PitchDecay)
	m.phase += freq / m.sampleRate
	m.phase -= math.Floor(m.phase)
	return float32(math.Sin(twoPi*m.phase) * m.env.next() * m.velocity)
}

func (m *membrane) Active() bool { return m.env.active() }

func (m *membrane) Reset() {
	m.env.reset()
	m.phase = 0
	m.age = 0
}
