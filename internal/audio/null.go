package audio

import "sync"

// NullBackend renders nothing to a device. Outputs can be pulled by hand,
// which is how headless runs and tests drive a source.
type NullBackend struct {
	sampleRate int

	mu        sync.Mutex
	suspended bool
	outputs   []*NullOutput
}

func NewNullBackend(sampleRate int) *NullBackend {
	return &NullBackend{sampleRate: sampleRate}
}

func (b *NullBackend) SampleRate() int { return b.sampleRate }
func (b *NullBackend) Ready() bool     { return true }

func (b *NullBackend) NewOutput(src SampleSource) (Output, error) {
	o := &NullOutput{backend: b, reader: NewStreamReader(src), volume: 1}
	b.mu.Lock()
	b.outputs = append(b.outputs, o)
	b.mu.Unlock()
	return o, nil
}

func (b *NullBackend) Suspend() error {
	b.mu.Lock()
	b.suspended = true
	b.mu.Unlock()
	return nil
}

func (b *NullBackend) Resume() error {
	b.mu.Lock()
	b.suspended = false
	b.mu.Unlock()
	return nil
}

func (b *NullBackend) Suspended() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.suspended
}

// Outputs returns every output created and not yet closed.
func (b *NullBackend) Outputs() []*NullOutput {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*NullOutput, 0, len(b.outputs))
	for _, o := range b.outputs {
		if !o.Closed() {
			out = append(out, o)
		}
	}
	return out
}

func (b *NullBackend) Close() error {
	b.mu.Lock()
	outs := b.outputs
	b.outputs = nil
	b.mu.Unlock()
	for _, o := range outs {
		_ = o.Close()
	}
	return nil
}

type NullOutput struct {
	backend *NullBackend
	reader  *StreamReader

	mu      sync.Mutex
	playing bool
	closed  bool
	volume  float64
}

func (o *NullOutput) SetSource(src SampleSource) { o.reader.SetSource(src) }

func (o *NullOutput) Play() {
	o.mu.Lock()
	o.playing = !o.closed
	o.mu.Unlock()
}

func (o *NullOutput) Pause() {
	o.mu.Lock()
	o.playing = false
	o.mu.Unlock()
}

func (o *NullOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.playing
}

func (o *NullOutput) SetVolume(v float64) {
	o.mu.Lock()
	o.volume = v
	o.mu.Unlock()
}

func (o *NullOutput) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

func (o *NullOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.playing = false
	o.mu.Unlock()
	return nil
}

func (o *NullOutput) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Pull renders frames from the source as a device would, returning silence
// while paused or suspended.
func (o *NullOutput) Pull(frames int) []float32 {
	dst := make([]float32, frames*2)
	if !o.IsPlaying() || o.backend.Suspended() {
		return dst
	}
	if src := o.reader.Source(); src != nil {
		src.Process(dst)
	}
	return dst
}
