package effects

import "math"

// Compressor implements basic dynamic range compression.
// Threshold and ratio may be changed live; the envelope followers keep running.
type Compressor struct {
	thresholdDB float32
	threshold   float32
	ratio       float32
	attack      float32 // coefficient
	release     float32 // coefficient
	makeupDB    float32
	makeup      float32
	envL        float32
	envR        float32
}

// NewCompressor creates a compressor effect.
// thresholdDB: threshold in dB (e.g., -20)
// ratio: compression ratio (e.g., 4 for 4:1)
// attackMs: attack time in ms
// releaseMs: release time in ms
// makeupDB: makeup gain in dB
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float32) *Compressor {
	sr := float64(sampleRate)
	c := &Compressor{
		attack:  float32(1.0 - math.Exp(-1.0/(float64(attackMs)*sr/1000.0))),
		release: float32(1.0 - math.Exp(-1.0/(float64(releaseMs)*sr/1000.0))),
	}
	c.SetThreshold(thresholdDB)
	c.SetRatio(ratio)
	c.SetMakeup(makeupDB)
	return c
}

func (c *Compressor) SetThreshold(db float32) {
	c.thresholdDB = db
	c.threshold = float32(DBToGain(float64(db)))
}

// SetRatio sets the compression ratio. Values below 1 are treated as 1.
func (c *Compressor) SetRatio(ratio float32) {
	if ratio < 1 {
		ratio = 1
	}
	c.ratio = ratio
}

func (c *Compressor) SetMakeup(db float32) {
	c.makeupDB = db
	c.makeup = float32(DBToGain(float64(db)))
}

func (c *Compressor) Threshold() float32 { return c.thresholdDB }
func (c *Compressor) Ratio() float32     { return c.ratio }

func (c *Compressor) Process(l, r float32) (float32, float32) {
	absL := float32(math.Abs(float64(l)))
	absR := float32(math.Abs(float64(r)))
	c.envL = c.follow(c.envL, absL)
	c.envR = c.follow(c.envR, absR)
	gainL := c.computeGain(c.envL)
	gainR := c.computeGain(c.envR)
	return l * gainL * c.makeup, r * gainR * c.makeup
}

func (c *Compressor) follow(env, in float32) float32 {
	if in > env {
		return env + c.attack*(in-env)
	}
	return env + c.release*(in-env)
}

func (c *Compressor) computeGain(env float32) float32 {
	if env <= c.threshold || c.threshold <= 0 || c.ratio == 1 {
		return 1.0
	}
	over := env / c.threshold
	return float32(math.Pow(float64(over), float64(1.0/c.ratio-1)))
}

func (c *Compressor) Reset() {
	c.envL = 0
	c.envR = 0
}
