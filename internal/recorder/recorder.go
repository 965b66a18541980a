// Package recorder taps the master output and turns it into an encoded clip.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cbegin/beatgrid-go/internal/wav"
)

type State int

const (
	Idle State = iota
	Recording
	Finalizing
	Recorded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Finalizing:
		return "finalizing"
	case Recorded:
		return "recorded"
	default:
		return "unknown"
	}
}

type Format string

const (
	FormatWAVFloat32 Format = "wav-float32"
	FormatWAVPCM16   Format = "wav-pcm16"
)

// Encoder turns interleaved samples into file bytes.
type Encoder func(samples []float32, sampleRate, channels int) ([]byte, error)

// EncoderFor returns the encoder and MIME type for a format. An empty format
// selects FormatWAVFloat32.
func EncoderFor(f Format) (Encoder, string, error) {
	switch f {
	case "", FormatWAVFloat32:
		return func(s []float32, sr, ch int) ([]byte, error) {
			return wav.EncodeFloat32(s, sr, ch), nil
		}, "audio/wav", nil
	case FormatWAVPCM16:
		return func(s []float32, sr, ch int) ([]byte, error) {
			return wav.EncodePCM16(s, sr, ch), nil
		}, "audio/wav", nil
	default:
		return nil, "", fmt.Errorf("recorder: unknown format %q", f)
	}
}

const channels = 2

type Options struct {
	SampleRate  int
	Format      Format
	MaxDuration time.Duration
	Logger      *slog.Logger
	// Encoder overrides the one selected by Format.
	Encoder Encoder
}

type Recorder struct {
	mu         sync.Mutex
	state      State
	samples    []float32
	maxSamples int
	capped     bool
	clip       *Clip

	sampleRate int
	encode     Encoder
	mime       string
	log        *slog.Logger
}

func New(opts Options) (*Recorder, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("recorder: sample rate must be positive")
	}
	enc, mime, err := EncoderFor(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.Encoder != nil {
		enc = opts.Encoder
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Recorder{sampleRate: opts.SampleRate, encode: enc, mime: mime, log: log}
	if opts.MaxDuration > 0 {
		r.maxSamples = int(opts.MaxDuration.Seconds()*float64(opts.SampleRate)) * channels
	}
	return r, nil
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Clip returns the finished clip, or nil unless recorded.
func (r *Recorder) Clip() *Clip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clip
}

// Duration is the length captured so far.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duration(len(r.samples))
}

func (r *Recorder) duration(n int) time.Duration {
	return time.Duration(float64(n/channels) / float64(r.sampleRate) * float64(time.Second))
}

// Start begins capturing. It does nothing and returns false unless idle; a
// finished clip must be cleared before recording again.
func (r *Recorder) Start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Idle {
		r.log.Warn("record start ignored", "op", "record-start", "state", r.state.String())
		return false
	}
	r.state = Recording
	r.samples = r.samples[:0]
	r.capped = false
	return true
}

// Capture appends interleaved stereo frames while recording.
func (r *Recorder) Capture(buf []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Recording || r.capped {
		return
	}
	if r.maxSamples > 0 && len(r.samples)+len(buf) > r.maxSamples {
		buf = buf[:r.maxSamples-len(r.samples)]
		r.capped = true
		r.log.Warn("recording reached max duration", "op", "record-capture", "duration", r.duration(r.maxSamples))
	}
	r.samples = append(r.samples, buf...)
}

type result struct {
	data []byte
	err  error
}

// Stop finalizes the recording. It returns (nil, nil) unless recording. The
// encode runs outside the lock; on failure or ctx cancellation the captured
// samples are kept and the recorder goes back to recording.
func (r *Recorder) Stop(ctx context.Context) (*Clip, error) {
	r.mu.Lock()
	if r.state != Recording {
		r.mu.Unlock()
		return nil, nil
	}
	samples := r.samples
	r.samples = nil
	r.state = Finalizing
	r.mu.Unlock()

	done := make(chan result, 1)
	go func() {
		data, err := r.encode(samples, r.sampleRate, channels)
		done <- result{data: data, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if res.err != nil {
		r.state = Recording
		r.samples = samples
		r.log.Error("record finalize failed", "op", "record-stop", "err", res.err)
		return nil, fmt.Errorf("recorder: finalize: %w", res.err)
	}
	r.clip = newClip(res.data, r.mime, r.duration(len(samples)))
	r.state = Recorded
	return r.clip, nil
}

// Clear releases the clip and returns to idle. Clearing while recording
// discards the captured samples.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Finalizing {
		return
	}
	if r.clip != nil {
		r.clip.Release()
		r.clip = nil
	}
	r.samples = nil
	r.state = Idle
}
