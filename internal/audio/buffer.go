package audio

import (
	"sync/atomic"

	"github.com/viterin/vek/vek32"
)

// BufferSource plays a decoded buffer once, then silence. Mono input is
// duplicated to both channels and a sample rate mismatch is corrected with
// linear interpolation.
type BufferSource struct {
	data     []float32
	channels int
	step     float64
	pos      float64
	gain     float32
	done     atomic.Bool
}

func NewBufferSource(data []float32, channels, srcRate, dstRate int, gain float32) *BufferSource {
	if channels <= 0 {
		channels = 1
	}
	step := 1.0
	if srcRate > 0 && dstRate > 0 {
		step = float64(srcRate) / float64(dstRate)
	}
	return &BufferSource{data: data, channels: channels, step: step, gain: gain}
}

// Done reports whether every frame has been played.
func (b *BufferSource) Done() bool { return b.done.Load() }

func (b *BufferSource) Process(dst []float32) {
	frames := len(b.data) / b.channels
	for i := 0; i+1 < len(dst); i += 2 {
		idx := int(b.pos)
		if idx >= frames {
			clear(dst[i:])
			b.done.Store(true)
			break
		}
		frac := float32(b.pos - float64(idx))
		next := min(idx+1, frames-1)
		l0, r0 := b.frame(idx)
		l1, r1 := b.frame(next)
		dst[i] = l0 + (l1-l0)*frac
		dst[i+1] = r0 + (r1-r0)*frac
		b.pos += b.step
	}
	if b.gain != 1 {
		vek32.MulNumber_Inplace(dst, b.gain)
	}
}

func (b *BufferSource) frame(i int) (float32, float32) {
	if b.channels == 1 {
		s := b.data[i]
		return s, s
	}
	base := i * b.channels
	return b.data[base], b.data[base+1]
}
