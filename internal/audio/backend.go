package audio

import (
	"fmt"
	"time"
)

// Output is one device player with a swappable source.
type Output interface {
	SetSource(src SampleSource)
	Play()
	Pause()
	IsPlaying() bool
	SetVolume(v float64)
	Close() error
}

// Backend owns the device context and creates outputs on it.
type Backend interface {
	SampleRate() int
	NewOutput(src SampleSource) (Output, error)
	// Ready reports whether the device has started.
	Ready() bool
	Suspend() error
	Resume() error
	Close() error
}

type Kind string

const (
	KindEbiten Kind = "ebiten"
	KindOto    Kind = "oto"
	KindNull   Kind = "null"
)

// DefaultBufferSize is the device buffer used when none is configured.
const DefaultBufferSize = 50 * time.Millisecond

// NewBackend opens the backend of the given kind. An empty kind selects
// ebiten.
func NewBackend(kind Kind, sampleRate int, bufferSize time.Duration) (Backend, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: sample rate must be positive")
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	switch kind {
	case "", KindEbiten:
		return newEbitenBackend(sampleRate, bufferSize)
	case KindOto:
		return newOtoBackend(sampleRate, bufferSize)
	case KindNull:
		return NewNullBackend(sampleRate), nil
	default:
		return nil, fmt.Errorf("audio: unknown backend %q", kind)
	}
}
