package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoReady       chan struct{}
	otoContextErr  error
	otoSampleRate  int
)

// oto allows one context per process.
func sharedOtoContext(sampleRate int, bufferSize time.Duration) (*oto.Context, chan struct{}, error) {
	otoContextOnce.Do(func() {
		otoSampleRate = sampleRate
		otoContext, otoReady, otoContextErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
			BufferSize:   bufferSize,
		})
	})
	if otoContextErr != nil {
		return nil, nil, otoContextErr
	}
	if otoSampleRate != sampleRate {
		return nil, nil, fmt.Errorf("oto context already initialized at %d Hz (requested %d Hz)", otoSampleRate, sampleRate)
	}
	return otoContext, otoReady, nil
}

type otoBackend struct {
	ctx        *oto.Context
	ready      chan struct{}
	sampleRate int

	mu      sync.Mutex
	outputs map[*otoOutput]struct{}
}

func newOtoBackend(sampleRate int, bufferSize time.Duration) (*otoBackend, error) {
	ctx, ready, err := sharedOtoContext(sampleRate, bufferSize)
	if err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}
	return &otoBackend{
		ctx:        ctx,
		ready:      ready,
		sampleRate: sampleRate,
		outputs:    map[*otoOutput]struct{}{},
	}, nil
}

func (b *otoBackend) SampleRate() int { return b.sampleRate }

func (b *otoBackend) Ready() bool {
	select {
	case <-b.ready:
		return true
	default:
		return false
	}
}

func (b *otoBackend) NewOutput(src SampleSource) (Output, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	reader := NewStreamReader(src)
	o := &otoOutput{backend: b, player: b.ctx.NewPlayer(reader), reader: reader}
	b.mu.Lock()
	b.outputs[o] = struct{}{}
	b.mu.Unlock()
	return o, nil
}

func (b *otoBackend) Suspend() error { return b.ctx.Suspend() }
func (b *otoBackend) Resume() error  { return b.ctx.Resume() }

// Close closes the outputs. The oto context itself lives for the process.
func (b *otoBackend) Close() error {
	b.mu.Lock()
	outs := make([]*otoOutput, 0, len(b.outputs))
	for o := range b.outputs {
		outs = append(outs, o)
	}
	b.mu.Unlock()
	for _, o := range outs {
		_ = o.Close()
	}
	return nil
}

type otoOutput struct {
	backend *otoBackend
	player  *oto.Player
	reader  *StreamReader
}

func (o *otoOutput) SetSource(src SampleSource) { o.reader.SetSource(src) }
func (o *otoOutput) Play()                      { o.player.Play() }
func (o *otoOutput) Pause()                     { o.player.Pause() }
func (o *otoOutput) IsPlaying() bool            { return o.player.IsPlaying() }
func (o *otoOutput) SetVolume(v float64)        { o.player.SetVolume(v) }

func (o *otoOutput) Close() error {
	o.backend.mu.Lock()
	delete(o.backend.outputs, o)
	o.backend.mu.Unlock()
	o.player.Pause()
	return o.player.Close()
}
