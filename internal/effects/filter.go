package effects

import "math"

// FilterMode selects the biquad response.
type FilterMode int

const (
	Lowpass FilterMode = iota
	Bandpass
)

func (m FilterMode) String() string {
	switch m {
	case Bandpass:
		return "bandpass"
	default:
		return "lowpass"
	}
}

// ParseFilterMode maps a config string to a mode. Unknown names fall back to
// lowpass.
func ParseFilterMode(s string) FilterMode {
	if s == "bandpass" || s == "bp" {
		return Bandpass
	}
	return Lowpass
}

const minQ = 0.0001

// Filter is a stereo RBJ biquad. Frequency, Q and mode can be changed while
// audio is running; coefficients are recomputed immediately and the delay
// line is kept so there is no click.
type Filter struct {
	sampleRate float64
	mode       FilterMode
	freq       float64
	q          float64

	b0, b1, b2, a1, a2 float64
	x1L, x2L, y1L, y2L float64
	x1R, x2R, y1R, y2R float64
}

// NewFilter creates a biquad. freq is clamped to (0, nyquist) and q to a
// small positive minimum so a Q of zero stays stable.
func NewFilter(sampleRate int, mode FilterMode, freq, q float64) *Filter {
	f := &Filter{sampleRate: float64(sampleRate), mode: mode}
	f.freq = f.clampFreq(freq)
	f.q = math.Max(q, minQ)
	f.update()
	return f
}

func (f *Filter) clampFreq(freq float64) float64 {
	return clamp64(freq, 10, f.sampleRate*0.49)
}

func (f *Filter) SetFrequency(freq float64) {
	f.freq = f.clampFreq(freq)
	f.update()
}

func (f *Filter) SetQ(q float64) {
	f.q = math.Max(q, minQ)
	f.update()
}

func (f *Filter) SetMode(mode FilterMode) {
	f.mode = mode
	f.update()
}

func (f *Filter) Frequency() float64 { return f.freq }
func (f *Filter) Q() float64         { return f.q }
func (f *Filter) Mode() FilterMode   { return f.mode }

func (f *Filter) update() {
	w0 := 2 * math.Pi * f.freq / f.sampleRate
	cosW, sinW := math.Cos(w0), math.Sin(w0)
	alpha := sinW / (2 * f.q)
	a0 := 1 + alpha
	var b0, b1, b2 float64
	switch f.mode {
	case Bandpass:
		// constant 0 dB peak gain
		b0 = alpha
		b1 = 0
		b2 = -alpha
	default:
		b0 = (1 - cosW) / 2
		b1 = 1 - cosW
		b2 = (1 - cosW) / 2
	}
	f.b0 = b0 / a0
	f.b1 = b1 / a0
	f.b2 = b2 / a0
	f.a1 = -2 * cosW / a0
	f.a2 = (1 - alpha) / a0
}

func (f *Filter) Process(l, r float32) (float32, float32) {
	xl := float64(l)
	yl := f.b0*xl + f.b1*f.x1L + f.b2*f.x2L - f.a1*f.y1L - f.a2*f.y2L
	f.x2L, f.x1L = f.x1L, xl
	f.y2L, f.y1L = f.y1L, yl

	xr := float64(r)
	yr := f.b0*xr + f.b1*f.x1R + f.b2*f.x2R - f.a1*f.y1R - f.a2*f.y2R
	f.x2R, f.x1R = f.x1R, xr
	f.y2R, f.y1R = f.y1R, yr
	return float32(yl), float32(yr)
}

func (f *Filter) Reset() {
	f.x1L, f.x2L, f.y1L, f.y2L = 0, 0, 0, 0
	f.x1R, f.x2R, f.y1R, f.y2R = 0, 0, 0, 0
}
