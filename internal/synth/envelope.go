package synth

type envStage int

const (
	envOff envStage = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// envelope is a linear ADSR with an explicit gate length. The release starts
// from whatever level the envelope had when the gate closed.
type envelope struct {
	sampleRate float64
	attack     float64
	decay      float64
	sustain    float64
	release    float64

	stage    envStage
	level    float64
	gateLeft int
	relStep  float64
}

func newEnvelope(sampleRate, attack, decay, sustain, release float64) envelope {
	return envelope{
		sampleRate: sampleRate,
		attack:     attack,
		decay:      decay,
		sustain:    clamp(sustain, 0, 1),
		release:    release,
	}
}

func (e *envelope) trigger(gate float64) {
	e.stage = envAttack
	e.gateLeft = max(int(gate*e.sampleRate), 1)
}

func (e *envelope) active() bool { return e.stage != envOff }

func (e *envelope) reset() {
	e.stage = envOff
	e.level = 0
	e.gateLeft = 0
}

func (e *envelope) rate(sec float64) float64 {
	frames := sec * e.sampleRate
	if frames < 1 {
		return 1
	}
	return 1 / frames
}

func (e *envelope) next() float64 {
	if e.stage != envOff && e.stage != envRelease {
		e.gateLeft--
		if e.gateLeft <= 0 {
			e.stage = envRelease
			e.relStep = e.level * e.rate(e.release)
		}
	}
	switch e.stage {
	case envAttack:
		e.level += e.rate(e.attack)
		if e.level >= 1 {
			e.level = 1
			e.stage = envDecay
		}
	case envDecay:
		e.level -= (1 - e.sustain) * e.rate(e.decay)
		if e.level <= e.sustain {
			e.level = e.sustain
			e.stage = envSustain
			if e.sustain <= 0 {
				e.stage = envOff
			}
		}
	case envSustain:
	case envRelease:
		e.level -= e.relStep
		if e.level <= 0.0001 || e.relStep <= 0 {
			e.level = 0
			e.stage = envOff
		}
	case envOff:
		e.level = 0
	}
	return e.level
}
