package audio

import (
	"fmt"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// ebiten allows one audio context per process.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// ebitenBackend has no device suspend, so Suspend pauses every playing
// output and Resume restarts them.
type ebitenBackend struct {
	ctx        *ebitaudio.Context
	sampleRate int
	bufferSize time.Duration

	mu        sync.Mutex
	outputs   map[*ebitenOutput]struct{}
	suspended []*ebitenOutput
}

func newEbitenBackend(sampleRate int, bufferSize time.Duration) (*ebitenBackend, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	return &ebitenBackend{
		ctx:        ctx,
		sampleRate: sampleRate,
		bufferSize: bufferSize,
		outputs:    map[*ebitenOutput]struct{}{},
	}, nil
}

func (b *ebitenBackend) SampleRate() int { return b.sampleRate }
func (b *ebitenBackend) Ready() bool     { return b.ctx.IsReady() }

func (b *ebitenBackend) NewOutput(src SampleSource) (Output, error) {
	reader := NewStreamReader(src)
	pl, err := b.ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	pl.SetBufferSize(b.bufferSize)
	o := &ebitenOutput{backend: b, player: pl, reader: reader}
	b.mu.Lock()
	b.outputs[o] = struct{}{}
	b.mu.Unlock()
	return o, nil
}

func (b *ebitenBackend) Suspend() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for o := range b.outputs {
		if o.player.IsPlaying() {
			o.player.Pause()
			b.suspended = append(b.suspended, o)
		}
	}
	return nil
}

func (b *ebitenBackend) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.suspended {
		if _, open := b.outputs[o]; open {
			o.player.Play()
		}
	}
	b.suspended = nil
	return nil
}

func (b *ebitenBackend) Close() error {
	b.mu.Lock()
	outs := make([]*ebitenOutput, 0, len(b.outputs))
	for o := range b.outputs {
		outs = append(outs, o)
	}
	b.mu.Unlock()
	for _, o := range outs {
		_ = o.Close()
	}
	return nil
}

func (b *ebitenBackend) forget(o *ebitenOutput) {
	b.mu.Lock()
	delete(b.outputs, o)
	b.mu.Unlock()
}

type ebitenOutput struct {
	backend *ebitenBackend
	player  *ebitaudio.Player
	reader  *StreamReader
}

func (o *ebitenOutput) SetSource(src SampleSource) { o.reader.SetSource(src) }
func (o *ebitenOutput) Play()                      { o.player.Play() }
func (o *ebitenOutput) Pause()                     { o.player.Pause() }
func (o *ebitenOutput) IsPlaying() bool            { return o.player.IsPlaying() }
func (o *ebitenOutput) SetVolume(v float64)        { o.player.SetVolume(v) }

func (o *ebitenOutput) Close() error {
	o.backend.forget(o)
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return err
	}
	return o.reader.Close()
}
