// Package audio turns sample sources into device output. Backends wrap
// ebiten's audio context, an oto context, or nothing at all.
package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// SampleSource fills interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// SourceFunc adapts a function to SampleSource.
type SourceFunc func(dst []float32)

func (f SourceFunc) Process(dst []float32) { f(dst) }

// StreamReader is an io.Reader of float32 little-endian stereo frames pulled
// from a swappable source. A nil source reads as silence.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

// SetSource swaps the source. The next Read pulls from it.
func (r *StreamReader) SetSource(source SampleSource) {
	r.mu.Lock()
	r.source = source
	r.mu.Unlock()
}

func (r *StreamReader) Source() SampleSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	if r.source != nil {
		r.source.Process(r.buf)
	} else {
		clear(r.buf)
	}
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }
