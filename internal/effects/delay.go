package effects

// Delay is a stereo feedback delay used as a master-bus insert.
type Delay struct {
	bufL, bufR []float32
	pos        int
	feedback   float32
	cross      float32
	wet        float32
}

// NewDelay creates a delay effect.
// delayMs: delay time in milliseconds
// feedback: feedback amount 0..0.95
// cross: cross-channel feedback 0..1 (ping-pong at 1)
// wet: wet/dry mix 0..1
func NewDelay(sampleRate int, delayMs float64, feedback, cross, wet float32) *Delay {
	samples := int(delayMs * float64(sampleRate) / 1000.0)
	if samples < 1 {
		samples = 1
	}
	d := &Delay{
		bufL:  make([]float32, samples),
		bufR:  make([]float32, samples),
		cross: clamp(cross, 0, 1),
	}
	d.SetFeedback(feedback)
	d.SetWet(wet)
	return d
}

func (d *Delay) SetFeedback(fb float32) { d.feedback = clamp(fb, 0, 0.95) }
func (d *Delay) SetWet(wet float32)     { d.wet = clamp(wet, 0, 1) }

// Frames reports the delay length in frames.
func (d *Delay) Frames() int { return len(d.bufL) }

func (d *Delay) Process(l, r float32) (float32, float32) {
	delL := d.bufL[d.pos]
	delR := d.bufR[d.pos]
	straight := d.feedback * (1 - d.cross)
	crossed := d.feedback * d.cross
	d.bufL[d.pos] = l + delL*straight + delR*crossed
	d.bufR[d.pos] = r + delR*straight + delL*crossed
	d.pos++
	if d.pos >= len(d.bufL) {
		d.pos = 0
	}
	return l*(1-d.wet) + delL*d.wet, r*(1-d.wet) + delR*d.wet
}

func (d *Delay) Reset() {
	clear(d.bufL)
	clear(d.bufR)
	d.pos = 0
}
