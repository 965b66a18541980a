package recorder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cbegin/beatgrid-go/internal/wav"
)

func newTestRecorder(t *testing.T, opts Options) *Recorder {
	t.Helper()
	if opts.SampleRate == 0 {
		opts.SampleRate = 1000
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := New(opts)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return r
}

func TestRecordRoundTrip(t *testing.T) {
	r := newTestRecorder(t, Options{})
	if !r.Start() || r.State() != Recording {
		t.Fatalf("start failed")
	}
	r.Capture(make([]float32, 1000*2))
	clip, err := r.Stop(context.Background())
	if err != nil || clip == nil {
		t.Fatalf("stop: clip=%v err=%v", clip, err)
	}
	if r.State() != Recorded {
		t.Fatalf("state: got=%v want=recorded", r.State())
	}
	if clip.Duration != time.Second {
		t.Fatalf("duration: got=%v", clip.Duration)
	}
	if !strings.HasPrefix(clip.URL(), "clip:") {
		t.Fatalf("url: %q", clip.URL())
	}
	a, err := wav.Decode(clip.Bytes())
	if err != nil || a.Frames() != 1000 {
		t.Fatalf("decode clip: frames=%d err=%v", a.Frames(), err)
	}

	r.Clear()
	if r.State() != Idle || r.Clip() != nil {
		t.Fatalf("clear did not reset")
	}
	if !clip.Released() {
		t.Fatalf("clip bytes not released")
	}
	if _, err := clip.WriteTo(io.Discard); !errors.Is(err, ErrReleased) {
		t.Fatalf("WriteTo after release: %v", err)
	}
}

func TestStartIsGuarded(t *testing.T) {
	r := newTestRecorder(t, Options{})
	r.Start()
	if r.Start() {
		t.Fatalf("start while recording should be a no-op")
	}
	r.Capture([]float32{0.1, 0.1})
	if _, err := r.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.Start() {
		t.Fatalf("start while recorded should be a no-op")
	}
	if r.Clip() == nil {
		t.Fatalf("guarded start discarded the clip")
	}
}

func TestCaptureOnlyWhileRecording(t *testing.T) {
	r := newTestRecorder(t, Options{})
	r.Capture(make([]float32, 200))
	if r.Duration() != 0 {
		t.Fatalf("idle recorder captured audio")
	}
	if clip, err := r.Stop(context.Background()); clip != nil || err != nil {
		t.Fatalf("stop while idle: clip=%v err=%v", clip, err)
	}
}

func TestCaptureCapsAtMaxDuration(t *testing.T) {
	r := newTestRecorder(t, Options{MaxDuration: 500 * time.Millisecond})
	r.Start()
	r.Capture(make([]float32, 800))
	r.Capture(make([]float32, 800))
	if got := r.Duration(); got != 500*time.Millisecond {
		t.Fatalf("duration: got=%v want=500ms", got)
	}
}

func TestEncodeFailureRevertsToRecording(t *testing.T) {
	fail := errors.New("disk full")
	calls := 0
	r := newTestRecorder(t, Options{Encoder: func(s []float32, sr, ch int) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, fail
		}
		return wav.EncodeFloat32(s, sr, ch), nil
	}})
	r.Start()
	r.Capture(make([]float32, 400))
	if _, err := r.Stop(context.Background()); !errors.Is(err, fail) {
		t.Fatalf("expected encode error, got %v", err)
	}
	if r.State() != Recording || r.Duration() != 200*time.Millisecond {
		t.Fatalf("samples lost on failure: state=%v dur=%v", r.State(), r.Duration())
	}
	clip, err := r.Stop(context.Background())
	if err != nil || clip.Duration != 200*time.Millisecond {
		t.Fatalf("retry: clip=%v err=%v", clip, err)
	}
}

func TestStopHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	r := newTestRecorder(t, Options{Encoder: func(s []float32, sr, ch int) ([]byte, error) {
		<-release
		return nil, nil
	}})
	r.Start()
	r.Capture(make([]float32, 20))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Stop(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if r.State() != Recording {
		t.Fatalf("state after cancel: %v", r.State())
	}
}

func TestPCM16Format(t *testing.T) {
	r := newTestRecorder(t, Options{Format: FormatWAVPCM16})
	r.Start()
	r.Capture([]float32{0.5, -0.5})
	clip, err := r.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	var buf bytes.Buffer
	if _, err := clip.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != 44+4 {
		t.Fatalf("pcm16 size: got=%d want=48", buf.Len())
	}
	if _, _, err := EncoderFor("mp3"); err == nil {
		t.Fatalf("unknown format should error")
	}
}
