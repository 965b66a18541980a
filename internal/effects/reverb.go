package effects

// Reverb is a small Schroeder reverb: four parallel combs into two allpasses.
type Reverb struct {
	combs   [4]delayLine
	allpass [2]delayLine
	wet     float32
}

type delayLine struct {
	buf []float32
	pos int
	fb  float32
}

// NewReverb creates a reverb effect.
// roomSize: 0..1 scales the delay lengths
// feedback: 0..0.95 sets the decay
// wet: wet/dry mix 0..1
func NewReverb(sampleRate int, roomSize, feedback, wet float32) *Reverb {
	base := max(int(float32(sampleRate)*roomSize*0.05), 10)
	fb := clamp(feedback, 0, 0.95)
	r := &Reverb{}
	r.SetWet(wet)
	// mutually prime-ish ratios keep the combs from ringing together
	combRatios := [4]int{1000, 1117, 1271, 1437}
	for i, ratio := range combRatios {
		r.combs[i] = delayLine{buf: make([]float32, base*ratio/1000), fb: fb}
	}
	apRatios := [2]int{347, 213}
	for i, ratio := range apRatios {
		r.allpass[i] = delayLine{buf: make([]float32, max(base*ratio/1000, 1)), fb: 0.5}
	}
	return r
}

func (r *Reverb) SetWet(wet float32) { r.wet = clamp(wet, 0, 1) }

func (r *Reverb) Process(l, rr float32) (float32, float32) {
	mono := (l + rr) * 0.5
	var out float32
	for i := range r.combs {
		out += r.combs[i].comb(mono)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].allpass(out)
	}
	return l*(1-r.wet) + out*r.wet, rr*(1-r.wet) + out*r.wet
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		r.combs[i].reset()
	}
	for i := range r.allpass {
		r.allpass[i].reset()
	}
}

func (d *delayLine) comb(in float32) float32 {
	out := d.buf[d.pos]
	d.buf[d.pos] = in + out*d.fb
	d.advance()
	return out
}

func (d *delayLine) allpass(in float32) float32 {
	bufOut := d.buf[d.pos]
	d.buf[d.pos] = in + bufOut*d.fb
	d.advance()
	return bufOut - in
}

func (d *delayLine) advance() {
	d.pos++
	if d.pos >= len(d.buf) {
		d.pos = 0
	}
}

func (d *delayLine) reset() {
	clear(d.buf)
	d.pos = 0
}
