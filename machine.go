// Package beatgrid is a drum-machine step sequencer: a catalog of
// synthesized kits, an editable step pattern, a sample-accurate transport,
// per-track effects, a master recorder and a pooled preview player.
package beatgrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cbegin/beatgrid-go/internal/audio"
	"github.com/cbegin/beatgrid-go/internal/catalog"
	"github.com/cbegin/beatgrid-go/internal/effects"
	"github.com/cbegin/beatgrid-go/internal/engine"
	"github.com/cbegin/beatgrid-go/internal/kit"
	"github.com/cbegin/beatgrid-go/internal/pattern"
	"github.com/cbegin/beatgrid-go/internal/recorder"
	"github.com/cbegin/beatgrid-go/internal/resource"
	"github.com/cbegin/beatgrid-go/internal/transport"
)

var (
	ErrNotReady = errors.New("beatgrid: audio not initialized")
	ErrClosed   = errors.New("beatgrid: machine closed")
)

// Event carries playback events from Watch().
type Event struct {
	Kind  EventKind
	Step  int    // EventStep, EventTrigger
	Voice string // EventTrigger
	KitID string // EventKitChanged
}

type EventKind int

const (
	EventStep EventKind = iota
	EventLoopCompleted
	EventPlaybackEnded
	EventTrigger
	EventKitChanged
)

func (k EventKind) String() string {
	switch k {
	case EventStep:
		return "step"
	case EventLoopCompleted:
		return "loop-completed"
	case EventPlaybackEnded:
		return "playback-ended"
	case EventTrigger:
		return "trigger"
	case EventKitChanged:
		return "kit-changed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

type Machine struct {
	mu         sync.Mutex
	cfg        machineConfig
	log        *slog.Logger
	sampleRate int
	catalog    *catalog.Catalog

	engine    *engine.Engine
	transport *transport.Transport
	recorder  *recorder.Recorder

	backend       audio.Backend
	ownsBackend   bool
	output        audio.Output
	resources     *resource.Manager
	ownsResources bool
	closed        bool

	doneMu    sync.Mutex
	done      chan struct{}
	eventCh   chan Event
	eventChMu sync.Mutex
}

func New(opts ...Option) (*Machine, error) {
	cfg := defaultMachineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	log := cfg.log
	if log == nil {
		log = slog.Default()
	}
	cat := cfg.catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Default(); err != nil {
			return nil, err
		}
	}
	master, err := effects.NewChainFromSpecs(cfg.masterEffects, cfg.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("master effects: %w", err)
	}
	rec, err := recorder.New(recorder.Options{
		SampleRate:  cfg.sampleRate,
		Format:      cfg.recorderFormat,
		MaxDuration: cfg.maxRecord,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	m := &Machine{
		cfg:        cfg,
		log:        log,
		sampleRate: cfg.sampleRate,
		catalog:    cat,
		recorder:   rec,
		backend:    cfg.backend,
		resources:  cfg.resources,
	}
	m.engine = engine.New(cfg.sampleRate, engine.Options{
		Logger:       log,
		Loop:         cfg.loop,
		MasterGainDB: cfg.masterDB,
		Master:       master,
		OnTrigger: func(voice string, step int) {
			m.sendEvent(Event{Kind: EventTrigger, Voice: voice, Step: step})
		},
	})
	m.transport = transport.NewWithOptions(m.engine, cfg.sampleRate, transport.Options{
		OnEvent: m.onTransportEvent,
	})

	k, err := m.initialKit()
	if err != nil {
		return nil, err
	}
	if err := m.engine.LoadKit(k); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Machine) initialKit() (kit.Kit, error) {
	if m.cfg.kitID != "" {
		k, err := m.catalog.Kit(m.cfg.kitID)
		if err == nil {
			return k, nil
		}
		m.log.Warn("default kit not found", "op", "new", "id", m.cfg.kitID, "err", err)
	}
	kits := m.catalog.Kits()
	if len(kits) == 0 {
		return kit.Kit{}, errors.New("catalog has no kits")
	}
	return kits[0], nil
}

// Initialize opens the audio device and the master output, then arms the
// engine. A failure leaves the machine silent but usable, and Initialize may
// be called again.
func (m *Machine) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.engine.Ready() {
		return nil
	}
	if m.backend == nil {
		b, err := audio.NewBackend(m.cfg.backendKind, m.sampleRate, m.cfg.bufferSize)
		if err != nil {
			m.log.Warn("audio init failed", "op", "initialize", "backend", m.cfg.backendKind, "err", err)
			return err
		}
		m.backend = b
		m.ownsBackend = true
	}
	if m.output == nil {
		out, err := m.backend.NewOutput(audio.SourceFunc(m.pull))
		if err != nil {
			m.log.Warn("master output failed", "op", "initialize", "err", err)
			return err
		}
		m.output = out
		m.output.Play()
	}
	if m.resources == nil {
		m.resources = resource.New(m.backend,
			resource.WithConfig(m.cfg.resourceCfg),
			resource.WithLogger(m.log))
		m.ownsResources = true
	}
	if m.ownsResources {
		m.resources.Start(context.Background())
	}
	m.engine.SetReady(true)
	m.log.Info("audio ready", "op", "initialize", "sampleRate", m.sampleRate, "dropped", m.engine.Dropped())
	return nil
}

func (m *Machine) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Ready()
}

// Dropped counts triggers that arrived before Initialize succeeded.
func (m *Machine) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Dropped()
}

// pull is the master output source.
func (m *Machine) pull(dst []float32) {
	m.mu.Lock()
	m.renderLocked(dst)
	m.mu.Unlock()
	m.recorder.Capture(dst)
}

func (m *Machine) renderLocked(dst []float32) {
	m.transport.Process(dst)
	m.engine.ApplyMaster(dst)
}

// Render fills dst with interleaved stereo frames without an audio device.
// It drives the same clock the output does, so it must not be mixed with a
// running output.
func (m *Machine) Render(dst []float32) {
	m.pull(dst)
}

func (m *Machine) onTransportEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventStep:
		m.sendEvent(Event{Kind: EventStep, Step: ev.Step})
	case transport.EventLoopCompleted:
		m.sendEvent(Event{Kind: EventLoopCompleted})
	case transport.EventPlaybackEnded:
		m.sendEvent(Event{Kind: EventPlaybackEnded})
		m.signalDone()
	}
}

func (m *Machine) sendEvent(ev Event) {
	m.eventChMu.Lock()
	ch := m.eventCh
	m.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (m *Machine) signalDone() {
	m.doneMu.Lock()
	done := m.done
	m.done = nil
	m.doneMu.Unlock()
	if done != nil {
		close(done)
	}
}

// Watch returns a channel that receives playback events. The channel is
// buffered; events are dropped while it is full. Only the most recent Watch()
// channel receives events.
func (m *Machine) Watch() <-chan Event {
	ch := make(chan Event, 64)
	m.eventChMu.Lock()
	m.eventCh = ch
	m.eventChMu.Unlock()
	return ch
}

// Wait blocks until playback ends or is stopped. With looping enabled and no
// chain it blocks until Stop.
func (m *Machine) Wait() {
	m.doneMu.Lock()
	done := m.done
	m.doneMu.Unlock()
	if done != nil {
		<-done
	}
}

// Transport

func (m *Machine) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playLocked()
}

func (m *Machine) playLocked() {
	if m.transport.Playing() {
		return
	}
	if m.engine.ChainEnabled() {
		m.engine.RewindChain()
	}
	m.doneMu.Lock()
	if m.done == nil {
		m.done = make(chan struct{})
	}
	m.doneMu.Unlock()
	m.transport.Play()
}

func (m *Machine) Stop() {
	m.mu.Lock()
	wasPlaying := m.transport.Playing()
	m.transport.Stop()
	m.mu.Unlock()
	if wasPlaying {
		m.sendEvent(Event{Kind: EventPlaybackEnded})
	}
	m.signalDone()
}

func (m *Machine) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transport.Playing()
}

func (m *Machine) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transport.Cursor()
}

func (m *Machine) SetLoop(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.SetLoop(enabled)
}

func (m *Machine) Loop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Loop()
}

// Kits

func (m *Machine) Catalog() *catalog.Catalog { return m.catalog }

func (m *Machine) Kit() kit.Kit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Kit()
}

// LoadKit switches to the catalog kit id. Playback stops for the rebuild and
// resumes when it was running. On failure the current kit keeps playing.
func (m *Machine) LoadKit(id string) error {
	k, err := m.catalog.Kit(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	wasPlaying := m.transport.Playing()
	m.transport.Stop()
	if err := m.engine.LoadKit(k); err != nil {
		if wasPlaying {
			m.transport.Play()
		}
		m.mu.Unlock()
		m.log.Warn("kit switch failed", "op", "load-kit", "id", id, "err", err)
		return err
	}
	m.transport.Bind(m.engine)
	if wasPlaying {
		m.playLocked()
	}
	m.mu.Unlock()
	m.sendEvent(Event{Kind: EventKitChanged, KitID: k.ID})
	m.log.Info("kit loaded", "op", "load-kit", "id", k.ID, "resumed", wasPlaying)
	return nil
}

// Audition sounds one voice immediately, ignoring the pattern and mute/solo.
func (m *Machine) Audition(voice string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Audition(voice)
}

// Pattern

// Pattern returns a copy of the live pattern.
func (m *Machine) Pattern() *pattern.Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Pattern().Clone()
}

func (m *Machine) Step(voice string, step int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Pattern().Step(voice, step)
}

func (m *Machine) Toggle(voice string, step int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Pattern().Toggle(voice, step)
}

func (m *Machine) SetStep(voice string, step int, on bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Pattern().Set(voice, step, on)
}

func (m *Machine) SetLength(n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Pattern().SetLength(n)
}

func (m *Machine) SetBPM(bpm float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Pattern().SetBPM(bpm)
}

func (m *Machine) SetSwing(swing float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Pattern().SetSwing(swing)
}

func (m *Machine) ClearPattern() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.Pattern().Clear()
}

func (m *Machine) LoadPreset(id string) error {
	p, err := m.catalog.Preset(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.Pattern().Load(p)
	return nil
}

func (m *Machine) CopyPattern() pattern.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Pattern().Copy()
}

func (m *Machine) PastePattern(s pattern.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.Pattern().Paste(s)
}

// Track effects and mixing

func (m *Machine) SetTrackEffect(voice string, patch engine.TrackEffectsPatch) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.SetTrackEffect(voice, patch)
}

func (m *Machine) TrackEffects(voice string) (engine.TrackEffects, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.TrackEffects(voice)
}

func (m *Machine) ResetTrackEffects() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.ResetTrackEffects()
}

func (m *Machine) SetMute(voice string, on bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.SetMute(voice, on)
}

func (m *Machine) SetSolo(voice string, on bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.SetSolo(voice, on)
}

func (m *Machine) Muted(voice string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Muted(voice)
}

func (m *Machine) Soloed(voice string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Soloed(voice)
}

// SetMasterEffects rebuilds the master insert chain from specs.
func (m *Machine) SetMasterEffects(specs []effects.Spec) error {
	chain, err := effects.NewChainFromSpecs(specs, m.sampleRate)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.SetMasterEffects(chain)
	m.cfg.masterEffects = specs
	return nil
}

func (m *Machine) SetMasterVolumeDB(db float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.SetMasterVolumeDB(db)
}

func (m *Machine) MasterVolumeDB() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.MasterVolumeDB()
}

// Peak is the absolute peak of the last master block.
func (m *Machine) Peak() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Peak()
}

// Pattern bank and chain

func (m *Machine) SavePattern(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.SavePattern(id)
}

func (m *Machine) LoadPattern(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.LoadPattern(id)
}

func (m *Machine) DeletePattern(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.DeletePattern(id)
}

func (m *Machine) Patterns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.BankIDs()
}

func (m *Machine) AppendChain(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.AppendChain(id)
}

func (m *Machine) RemoveChainAt(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.RemoveChainAt(i)
}

func (m *Machine) ClearChain() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.ClearChain()
}

func (m *Machine) Chain() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.ChainIDs()
}

func (m *Machine) SetChainEnabled(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.SetChainEnabled(on)
}

func (m *Machine) ChainEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.ChainEnabled()
}

func (m *Machine) ChainPosition() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.ChainPosition()
}

// Recording

func (m *Machine) RecordingState() recorder.State { return m.recorder.State() }

func (m *Machine) StartRecording() bool { return m.recorder.Start() }

// StopRecording finalizes the take. The encoder runs without holding the
// machine lock, so playback continues while it works.
func (m *Machine) StopRecording(ctx context.Context) (*recorder.Clip, error) {
	return m.recorder.Stop(ctx)
}

func (m *Machine) Recording() *recorder.Clip { return m.recorder.Clip() }

// ClearRecording releases the take along with its decoded preview copy.
func (m *Machine) ClearRecording() {
	clip := m.recorder.Clip()
	m.recorder.Clear()
	if clip == nil {
		return
	}
	if res := m.Resources(); res != nil {
		res.Cache().Delete(clip.URL())
	}
}

// Resources returns the preview resource manager, or nil before Initialize.
func (m *Machine) Resources() *resource.Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resources
}

// Close stops playback, releases the output and resource manager, and
// disposes every chain.
func (m *Machine) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.transport.Stop()
	out := m.output
	m.output = nil
	res, ownsRes := m.resources, m.ownsResources
	backend, ownsBackend := m.backend, m.ownsBackend
	m.engine.SetReady(false)
	m.mu.Unlock()
	m.signalDone()

	var errs []error
	if out != nil {
		errs = append(errs, out.Close())
	}
	if res != nil && ownsRes {
		res.Shutdown()
	}
	if backend != nil && ownsBackend {
		errs = append(errs, backend.Close())
	}

	m.mu.Lock()
	m.engine.Dispose()
	m.mu.Unlock()
	m.recorder.Clear()
	return errors.Join(errs...)
}
