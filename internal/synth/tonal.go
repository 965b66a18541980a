package synth

import (
	"math"

	"github.com/cbegin/beatgrid-go/internal/kit"
	"github.com/cbegin/beatgrid-go/internal/lfo"
)

type tonal struct {
	sampleRate float64
	freq       float64
	wave       lfo.Waveform
	env        envelope
	vibrato    lfo.LFO
	phase      float64
	velocity   float64
}

func newTonal(sr float64, p kit.Tonal) *tonal {
	t := &tonal{
		sampleRate: sr,
		freq:       clamp(p.Frequency, 20, sr*0.45),
		wave:       lfo.ParseWaveform(p.Waveform),
		env:        newEnvelope(sr, p.Attack, p.Decay, p.Sustain, p.Release),
	}
	t.vibrato.Set(p.VibratoDepth, p.VibratoRate, lfo.Sine)
	return t
}

func (t *tonal) Trigger(length, velocity float64) {
	t.phase = 0
	t.velocity = clamp(velocity, 0, 1)
	t.vibrato.Reset()
	t.env.trigger(length)
}

func (t *tonal) Next() float32 {
	if !t.env.active() {
		return 0
	}
	freq := t.freq
	if semis := t.vibrato.Sample(t.sampleRate); semis != 0 {
		freq *= math.Pow(2, semis/12)
	}
	dt := freq / t.sampleRate
	t.phase += dt
	if t.phase >= 1 {
		t.phase -= 1
	}
	var v float64
	switch t.wave {
	case lfo.Square:
		v = -1
		if t.phase < 0.5 {
			v = 1
		}
		v += polyBLEP(t.phase, dt)
		v -= polyBLEP(math.Mod(t.phase+0.5, 1), dt)
	case lfo.Saw:
		v = 2*t.phase - 1 - polyBLEP(t.phase, dt)
	case lfo.Triangle:
		v = 2*math.Abs(2*t.phase-1) - 1
	default:
		v = math.Sin(twoPi * t.phase)
	}
	return float32(v * t.env.next() * t.velocity)
}

func (t *tonal) Active() bool { return t.env.active() }

func (t *tonal) Reset() {
	t.env.reset()
	t.phase = 0
}
