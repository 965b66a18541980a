package beatgrid

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/cbegin/beatgrid-go/internal/audio"
	"github.com/cbegin/beatgrid-go/internal/config"
	"github.com/cbegin/beatgrid-go/internal/engine"
	"github.com/cbegin/beatgrid-go/internal/export"
	"github.com/cbegin/beatgrid-go/internal/logging"
	"github.com/cbegin/beatgrid-go/internal/recorder"
)

func newTestMachine(t *testing.T, opts ...Option) (*Machine, *audio.NullBackend) {
	t.Helper()
	backend := audio.NewNullBackend(48000)
	opts = append([]Option{WithBackend(backend), WithLogger(logging.Discard())}, opts...)
	m, err := New(opts...)
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, backend
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func peak(buf []float32) float32 {
	var p float32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		p = max(p, s)
	}
	return p
}

func TestNewLoadsConfiguredKit(t *testing.T) {
	m, _ := newTestMachine(t)
	if got := m.Kit().ID; got != "tr808" {
		t.Fatalf("default kit: got=%q want=tr808", got)
	}
	m2, _ := newTestMachine(t, WithKit("minimal"))
	if got := m2.Kit().ID; got != "minimal" {
		t.Fatalf("kit option: got=%q want=minimal", got)
	}
	m3, _ := newTestMachine(t, WithKit("nope"))
	if got := m3.Kit().ID; got != "tr808" {
		t.Fatalf("unknown kit should fall back to the first: got=%q", got)
	}
}

func TestTriggersDroppedUntilInitialized(t *testing.T) {
	m, _ := newTestMachine(t)
	m.Toggle("kick", 0)
	m.Play()
	buf := make([]float32, 4800*2)
	m.Render(buf)
	if m.Dropped() != 1 {
		t.Fatalf("dropped: got=%d want=1", m.Dropped())
	}
	if peak(buf) != 0 {
		t.Fatalf("expected silence before initialize, peak=%f", peak(buf))
	}
	if m.Audition("kick") {
		t.Fatalf("audition should fail before initialize")
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !m.Ready() {
		t.Fatalf("machine should be ready")
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
}

func TestOutputPullDrivesTransport(t *testing.T) {
	m, backend := newTestMachine(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	events := m.Watch()
	m.Toggle("kick", 0)
	m.Play()

	outs := backend.Outputs()
	if len(outs) != 1 {
		t.Fatalf("outputs: got=%d want=1", len(outs))
	}
	buf := outs[0].Pull(4800)
	if peak(buf) == 0 {
		t.Fatalf("expected kick in master output")
	}
	if m.Peak() == 0 {
		t.Fatalf("peak meter not updated")
	}
	var sawKick, sawStep bool
	for _, ev := range drain(events) {
		if ev.Kind == EventTrigger && ev.Voice == "kick" && ev.Step == 0 {
			sawKick = true
		}
		if ev.Kind == EventStep && ev.Step == 0 {
			sawStep = true
		}
	}
	if !sawKick || !sawStep {
		t.Fatalf("events: kick=%v step=%v", sawKick, sawStep)
	}
}

func TestLoadKitKeepsTempoAndResumes(t *testing.T) {
	m, _ := newTestMachine(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	m.SetLength(32)
	m.SetBPM(97)
	m.Toggle("kick", 4)
	m.SetMute("snare", true)
	m.Play()
	events := m.Watch()

	if err := m.LoadKit("minimal"); err != nil {
		t.Fatalf("load kit: %v", err)
	}
	if !m.Playing() {
		t.Fatalf("playback should resume after kit switch")
	}
	p := m.Pattern()
	if p.Length() != 32 || p.BPM() != 97 {
		t.Fatalf("tempo not kept: len=%d bpm=%f", p.Length(), p.BPM())
	}
	if p.ActiveCount() != 0 {
		t.Fatalf("pattern should be zeroed, active=%d", p.ActiveCount())
	}
	if m.Muted("snare") {
		t.Fatalf("mute should be cleared")
	}
	found := false
	for _, ev := range drain(events) {
		if ev.Kind == EventKitChanged && ev.KitID == "minimal" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing kit-changed event")
	}

	if err := m.LoadKit("nope"); err == nil {
		t.Fatalf("expected unknown kit error")
	}
	if m.Kit().ID != "minimal" {
		t.Fatalf("failed switch replaced kit: %q", m.Kit().ID)
	}
}

func TestStoppedMachineStaysStoppedAfterKitSwitch(t *testing.T) {
	m, _ := newTestMachine(t)
	if err := m.LoadKit("lofi"); err != nil {
		t.Fatalf("load kit: %v", err)
	}
	if m.Playing() {
		t.Fatalf("kit switch started playback")
	}
}

func TestPlaybackEndsWithoutLoop(t *testing.T) {
	m, _ := newTestMachine(t, WithLoop(false))
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	events := m.Watch()
	m.Play()
	// 16 steps at 120 bpm is two seconds.
	m.Render(make([]float32, 2*48000*2+2048))
	if m.Playing() {
		t.Fatalf("playback should halt after one pass")
	}
	waited := make(chan struct{})
	go func() {
		m.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatalf("Wait did not return after playback ended")
	}
	ended := false
	for _, ev := range drain(events) {
		if ev.Kind == EventPlaybackEnded {
			ended = true
		}
	}
	if !ended {
		t.Fatalf("missing playback-ended event")
	}
}

func TestPatternOperations(t *testing.T) {
	m, _ := newTestMachine(t)
	if err := m.LoadPreset("four-on-floor"); err != nil {
		t.Fatalf("load preset: %v", err)
	}
	if !m.Step("kick", 0) || !m.Step("kick", 12) || m.Step("kick", 1) {
		t.Fatalf("preset kick row not applied")
	}
	if got := m.Pattern().BPM(); got != 124 {
		t.Fatalf("preset bpm: got=%f want=124", got)
	}
	snap := m.CopyPattern()
	m.ClearPattern()
	if m.Pattern().ActiveCount() != 0 {
		t.Fatalf("clear left active cells")
	}
	m.PastePattern(snap)
	if !m.Step("kick", 4) {
		t.Fatalf("paste did not restore kick")
	}
	if got := m.SetBPM(500); got != 220 {
		t.Fatalf("bpm clamp: got=%f", got)
	}
	if got := m.SetSwing(-5); got != 0 {
		t.Fatalf("swing clamp: got=%f", got)
	}
	if m.SetLength(48) {
		t.Fatalf("length 48 should be rejected")
	}
	if m.Toggle("kick", 99) || m.Toggle("ghost", 0) {
		t.Fatalf("out of range toggle should be a no-op")
	}
	if err := m.LoadPreset("nope"); err == nil {
		t.Fatalf("expected unknown preset error")
	}
}

func TestTrackEffects(t *testing.T) {
	m, _ := newTestMachine(t)
	freq := 50.0
	on := true
	if !m.SetTrackEffect("kick", engine.TrackEffectsPatch{FilterFrequency: &freq, FilterEnabled: &on}) {
		t.Fatalf("set track effect on kick failed")
	}
	fx, _ := m.TrackEffects("kick")
	if fx.Filter.FrequencyHz != 100 {
		t.Fatalf("filter frequency not clamped: %f", fx.Filter.FrequencyHz)
	}
	if m.SetTrackEffect("ghost", engine.TrackEffectsPatch{FilterFrequency: &freq}) {
		t.Fatalf("unknown voice should be ignored")
	}
	m.ResetTrackEffects()
	fx, _ = m.TrackEffects("kick")
	if fx != engine.DefaultTrackEffects() {
		t.Fatalf("reset did not restore defaults: %+v", fx)
	}
}

func TestPatternChainAdvances(t *testing.T) {
	m, _ := newTestMachine(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	m.Toggle("kick", 0)
	m.SavePattern("a")
	m.ClearPattern()
	m.Toggle("snare", 0)
	m.SavePattern("b")
	if err := m.AppendChain("a"); err != nil {
		t.Fatalf("append a: %v", err)
	}
	if err := m.AppendChain("b"); err != nil {
		t.Fatalf("append b: %v", err)
	}
	if err := m.AppendChain("missing"); err == nil {
		t.Fatalf("expected error for unsaved pattern")
	}
	m.SetChainEnabled(true)
	m.Play()
	m.Render(make([]float32, 2*48000*2+2048))
	if got := m.ChainPosition(); got != 1 {
		t.Fatalf("chain position: got=%d want=1", got)
	}
	if !m.Step("snare", 0) || m.Step("kick", 0) {
		t.Fatalf("second chain entry not loaded")
	}
	if got := m.Chain(); len(got) != 2 || got[0] != "a" {
		t.Fatalf("chain ids: %v", got)
	}
}

func TestRecordAndPreview(t *testing.T) {
	m, _ := newTestMachine(t)
	clip := &recorder.Clip{}
	if err := m.PreviewClip(clip); !errors.Is(err, ErrNotReady) {
		t.Fatalf("preview before initialize: got=%v want=%v", err, ErrNotReady)
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	m.Toggle("kick", 0)
	m.Play()
	if !m.StartRecording() {
		t.Fatalf("start recording failed")
	}
	m.Render(make([]float32, 4800*2))
	clip, err := m.StopRecording(context.Background())
	if err != nil {
		t.Fatalf("stop recording: %v", err)
	}
	if clip == nil || clip.MIMEType != "audio/wav" {
		t.Fatalf("unexpected clip: %+v", clip)
	}
	if clip.Duration != 100*time.Millisecond {
		t.Fatalf("clip duration: got=%v want=100ms", clip.Duration)
	}
	if m.RecordingState() != recorder.Recorded {
		t.Fatalf("state: got=%v want=recorded", m.RecordingState())
	}
	if m.StartRecording() {
		t.Fatalf("start should be refused until cleared")
	}

	if err := m.PreviewClip(clip); err != nil {
		t.Fatalf("preview: %v", err)
	}
	res := m.Resources()
	h, ok := res.Pool().Get(PreviewHandle)
	if !ok || !h.Active() {
		t.Fatalf("preview handle not active")
	}
	if _, ok := res.Cache().Get(clip.URL()); !ok {
		t.Fatalf("decoded clip not cached")
	}
	m.StopPreview()
	if h.Active() {
		t.Fatalf("preview handle still active after stop")
	}

	m.ClearRecording()
	if m.RecordingState() != recorder.Idle || !clip.Released() {
		t.Fatalf("clear should release the clip and go idle")
	}
}

func TestClearRecordingDropsCachedClip(t *testing.T) {
	m, _ := newTestMachine(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	m.Toggle("kick", 0)
	m.Play()
	m.StartRecording()
	m.Render(make([]float32, 4800*2))
	clip, err := m.StopRecording(context.Background())
	if err != nil {
		t.Fatalf("stop recording: %v", err)
	}
	if err := m.PreviewClip(clip); err != nil {
		t.Fatalf("preview: %v", err)
	}
	m.StopPreview()
	cache := m.Resources().Cache()
	if _, ok := cache.Get(clip.URL()); !ok {
		t.Fatalf("decoded clip not cached after preview")
	}

	m.ClearRecording()
	if !clip.Released() {
		t.Fatalf("clip not released")
	}
	if _, ok := cache.Get(clip.URL()); ok {
		t.Fatalf("decoded clip still cached after clear")
	}
	if err := m.PreviewClip(clip); !errors.Is(err, recorder.ErrReleased) {
		t.Fatalf("preview after clear: got=%v want=%v", err, recorder.ErrReleased)
	}
}

func TestPreviewFile(t *testing.T) {
	m, _ := newTestMachine(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := m.PreviewFile("testdata/does-not-exist.wav"); err == nil {
		t.Fatalf("expected error for missing file")
	}
	samples, err := RenderPattern(m.Kit(), m.Pattern(), 48000, 1, RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	path := t.TempDir() + "/bounce.wav"
	if err := os.WriteFile(path, EncodeWAV(samples, 48000), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := m.PreviewFile(path); err != nil {
		t.Fatalf("preview file: %v", err)
	}
}

func TestSaveExport(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = audio.KindNull
	cfg.Export.Dir = t.TempDir()
	cfg.Export.NameTemplate = "{{ .KitID }}-{{ .BPM }}"
	m, _ := newTestMachine(t, WithConfig(cfg))
	if err := m.LoadPreset("four-on-floor"); err != nil {
		t.Fatalf("load preset: %v", err)
	}

	path, err := m.SaveExport(export.FormatJSON)
	if err != nil {
		t.Fatalf("save json: %v", err)
	}
	if want := cfg.Export.Dir + "/tr808-124.json"; path != want {
		t.Fatalf("path: got=%q want=%q", path, want)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var a export.Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if a.BPM != 124 || a.KitID != "tr808" || a.StepLength != 16 || !a.Pattern["kick"][0] {
		t.Fatalf("unexpected artifact: %+v", a)
	}

	midiPath, err := m.SaveExport(export.FormatMIDI)
	if err != nil {
		t.Fatalf("save midi: %v", err)
	}
	if _, err := os.Stat(midiPath); err != nil {
		t.Fatalf("midi not written: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	m, backend := newTestMachine(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	m.Play()
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(backend.Outputs()) != 0 {
		t.Fatalf("master output left open")
	}
	if err := m.Initialize(); !errors.Is(err, ErrClosed) {
		t.Fatalf("initialize after close: got=%v want=%v", err, ErrClosed)
	}
	if m.Playing() {
		t.Fatalf("close should stop playback")
	}
}
