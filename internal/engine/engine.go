// Package engine owns the voice chains for the loaded kit, the live pattern,
// mute/solo state, the pattern bank and chain, and the master bus. It is the
// target the transport drives.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/beatgrid-go/internal/effects"
	"github.com/cbegin/beatgrid-go/internal/kit"
	"github.com/cbegin/beatgrid-go/internal/pattern"
)

var ErrUnknownPattern = errors.New("engine: unknown pattern")

type Options struct {
	Logger       *slog.Logger
	Loop         bool
	MasterGainDB float64
	Master       *effects.Chain
	// OnTrigger, when set, is called for every voice that sounds.
	OnTrigger func(voiceID string, step int)
}

// Engine is not safe for concurrent use. The caller serializes access with
// the audio pull.
type Engine struct {
	sampleRate int
	log        *slog.Logger
	onTrigger  func(string, int)

	kit    kit.Kit
	chains map[string]*VoiceChain
	order  []string

	pattern *pattern.Pattern
	muted   map[string]bool
	soloed  map[string]bool

	ready   bool
	dropped int

	bank     map[string]*pattern.Pattern
	chain    pattern.Chain
	chainOn  bool
	chainPos int
	loop     bool

	master     *effects.Chain
	masterDB   float64
	masterGain float32
	scratch    []float32
	peak       float32
}

func New(sampleRate int, opts Options) *Engine {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		sampleRate: sampleRate,
		log:        log,
		onTrigger:  opts.OnTrigger,
		chains:     map[string]*VoiceChain{},
		pattern:    pattern.New(nil, pattern.DefaultLength),
		muted:      map[string]bool{},
		soloed:     map[string]bool{},
		bank:       map[string]*pattern.Pattern{},
		loop:       opts.Loop,
		master:     opts.Master,
	}
	e.SetMasterVolumeDB(opts.MasterGainDB)
	return e
}

func (e *Engine) SampleRate() int { return e.sampleRate }

// LoadKit builds a chain per voice. If any chain fails to build the current
// kit is left untouched. On success the old chains are disposed, the pattern
// is zeroed for the new voices keeping length and tempo, and track effects,
// mute and solo are reset.
func (e *Engine) LoadKit(k kit.Kit) error {
	if err := k.Validate(); err != nil {
		return err
	}
	chains := make(map[string]*VoiceChain, len(k.Voices))
	for _, v := range k.Voices {
		c, err := newVoiceChain(e.sampleRate, v, DefaultTrackEffects())
		if err != nil {
			for _, built := range chains {
				built.Dispose()
			}
			return fmt.Errorf("load kit %q: %w", k.ID, err)
		}
		chains[v.ID] = c
	}
	e.disposeChains()
	e.kit = k
	e.chains = chains
	e.order = k.VoiceIDs()

	next := pattern.New(e.order, e.pattern.Length())
	next.SetBPM(e.pattern.BPM())
	next.SetSwing(e.pattern.Swing())
	e.pattern = next
	clear(e.muted)
	clear(e.soloed)
	e.log.Debug("kit loaded", "op", "load-kit", "id", k.ID, "voices", len(k.Voices))
	return nil
}

func (e *Engine) disposeChains() {
	for _, c := range e.chains {
		c.Dispose()
	}
}

// Dispose tears down every chain.
func (e *Engine) Dispose() {
	e.disposeChains()
	e.chains = map[string]*VoiceChain{}
	e.order = nil
}

func (e *Engine) Kit() kit.Kit { return e.kit }

// VoiceChain returns the live chain for a voice.
func (e *Engine) VoiceChain(id string) (*VoiceChain, bool) {
	c, ok := e.chains[id]
	return c, ok
}

func (e *Engine) VoiceIDs() []string { return slices.Clone(e.order) }

// Pattern returns the live pattern. Edits through it are heard on the next
// step.
func (e *Engine) Pattern() *pattern.Pattern { return e.pattern }

// SetPattern swaps the live pattern, adding rows for any kit voice it lacks.
func (e *Engine) SetPattern(p *pattern.Pattern) {
	if p == nil {
		return
	}
	p.Conform(e.order)
	e.pattern = p
}

// Readiness

func (e *Engine) SetReady(ready bool) { e.ready = ready }
func (e *Engine) Ready() bool         { return e.ready }

// Dropped counts triggers ignored while not ready.
func (e *Engine) Dropped() int { return e.dropped }

// Mute and solo

func (e *Engine) SetMute(id string, on bool) bool {
	if _, ok := e.chains[id]; !ok {
		return false
	}
	e.muted[id] = on
	return true
}

func (e *Engine) SetSolo(id string, on bool) bool {
	if _, ok := e.chains[id]; !ok {
		return false
	}
	e.soloed[id] = on
	return true
}

func (e *Engine) Muted(id string) bool  { return e.muted[id] }
func (e *Engine) Soloed(id string) bool { return e.soloed[id] }

func (e *Engine) ClearMuteSolo() {
	clear(e.muted)
	clear(e.soloed)
}

// Audible reports whether a voice would sound. A muted voice never sounds;
// when any voice is soloed only soloed voices sound.
func (e *Engine) Audible(id string) bool {
	if e.muted[id] {
		return false
	}
	for _, on := range e.soloed {
		if on {
			return e.soloed[id]
		}
	}
	return true
}

// Track effects

// SetTrackEffect merges patch into the voice's settings and pushes the
// changes to its live chain. Unknown voices are ignored.
func (e *Engine) SetTrackEffect(id string, patch TrackEffectsPatch) bool {
	c, ok := e.chains[id]
	if !ok {
		return false
	}
	c.apply(c.fx.Merge(patch))
	return true
}

func (e *Engine) TrackEffects(id string) (TrackEffects, bool) {
	c, ok := e.chains[id]
	if !ok {
		return TrackEffects{}, false
	}
	return c.fx, true
}

// ReplaceTrackEffects sets every value at once, clamping as Merge does.
func (e *Engine) ReplaceTrackEffects(id string, fx TrackEffects) bool {
	c, ok := e.chains[id]
	if !ok {
		return false
	}
	f := fx.Filter
	cp := fx.Compressor
	c.apply(c.fx.Merge(TrackEffectsPatch{
		FilterEnabled:       &f.Enabled,
		FilterMode:          &f.Mode,
		FilterFrequency:     &f.FrequencyHz,
		FilterQ:             &f.Q,
		CompressorEnabled:   &cp.Enabled,
		CompressorThreshold: &cp.ThresholdDB,
		CompressorRatio:     &cp.Ratio,
		VolumeDB:            &fx.VolumeDB,
		Pan:                 &fx.Pan,
	}))
	return true
}

func (e *Engine) ResetTrackEffects() {
	for _, c := range e.chains {
		c.apply(DefaultTrackEffects())
	}
}

// transport.Target

func (e *Engine) Length() int    { return e.pattern.Length() }
func (e *Engine) BPM() float64   { return e.pattern.BPM() }
func (e *Engine) Swing() float64 { return e.pattern.Swing() }

// Trigger sounds every audible voice whose cell at step is on.
func (e *Engine) Trigger(step int) {
	if !e.ready {
		e.dropped++
		e.log.Debug("trigger dropped, engine not ready", "op", "trigger", "step", step, "dropped", e.dropped)
		return
	}
	bpm := e.pattern.BPM()
	for _, id := range e.order {
		if !e.pattern.Step(id, step) || !e.Audible(id) {
			continue
		}
		c := e.chains[id]
		c.Trigger(TriggerLength(c.voice.Synth.Type(), bpm), 1)
		if e.onTrigger != nil {
			e.onTrigger(id, step)
		}
	}
}

// Audition triggers one voice immediately, ignoring the grid and mute/solo.
func (e *Engine) Audition(id string) bool {
	c, ok := e.chains[id]
	if !ok || !e.ready {
		return false
	}
	c.Trigger(TriggerLength(c.voice.Synth.Type(), e.pattern.BPM()), 1)
	return true
}

// EndOfPattern advances the pattern chain when it is on. It returns false
// when playback should halt.
func (e *Engine) EndOfPattern() bool {
	if !e.chainOn || e.chain.Len() == 0 {
		return e.loop
	}
	e.chainPos++
	if e.chainPos >= e.chain.Len() {
		if !e.loop {
			e.chainPos = 0
			return false
		}
		e.chainPos = 0
	}
	e.loadChainEntry()
	return true
}

func (e *Engine) RenderFrame() (float32, float32) {
	var l, r float32
	for _, id := range e.order {
		cl, cr := e.chains[id].Render()
		l += cl
		r += cr
	}
	return l, r
}

// TriggerLength returns how long a voice of the given kind is held at bpm.
func TriggerLength(t kit.SynthType, bpm float64) float64 {
	if bpm <= 0 {
		bpm = pattern.DefaultBPM
	}
	beat := 60 / bpm
	switch t {
	case kit.TypeMembrane, kit.TypeTonal:
		return beat / 2
	case kit.TypeMetallic:
		return beat / 8
	case kit.TypeNoise:
		return beat / 4
	default:
		return beat / 4
	}
}

// Loop

func (e *Engine) SetLoop(on bool) { e.loop = on }
func (e *Engine) Loop() bool      { return e.loop }

// Pattern bank and chain

// SavePattern stores a copy of the live pattern under id.
func (e *Engine) SavePattern(id string) {
	e.bank[id] = e.pattern.Clone()
}

// LoadPattern makes a copy of a banked pattern live.
func (e *Engine) LoadPattern(id string) error {
	p, ok := e.bank[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPattern, id)
	}
	e.SetPattern(p.Clone())
	return nil
}

func (e *Engine) DeletePattern(id string) bool {
	if _, ok := e.bank[id]; !ok {
		return false
	}
	delete(e.bank, id)
	e.chain.RemoveID(id)
	if e.chainPos >= e.chain.Len() {
		e.chainPos = 0
	}
	return true
}

func (e *Engine) BankIDs() []string {
	ids := make([]string, 0, len(e.bank))
	for id := range e.bank {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// AppendChain adds a banked pattern to the end of the chain.
func (e *Engine) AppendChain(id string) error {
	if _, ok := e.bank[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPattern, id)
	}
	e.chain.Append(id)
	return nil
}

func (e *Engine) RemoveChainAt(i int) bool {
	if !e.chain.RemoveAt(i) {
		return false
	}
	if e.chainPos >= e.chain.Len() {
		e.chainPos = 0
	}
	return true
}

func (e *Engine) ClearChain() {
	e.chain.Clear()
	e.chainPos = 0
}

func (e *Engine) ChainIDs() []string { return e.chain.IDs() }

// SetChainEnabled turns chain playback on or off. Turning it on rewinds to
// the first entry.
func (e *Engine) SetChainEnabled(on bool) {
	e.chainOn = on
	if on {
		e.RewindChain()
	}
}

func (e *Engine) ChainEnabled() bool { return e.chainOn }

// ChainPosition is the index of the chain entry currently live.
func (e *Engine) ChainPosition() int { return e.chainPos }

// RewindChain makes the first chain entry live.
func (e *Engine) RewindChain() {
	e.chainPos = 0
	if e.chainOn && e.chain.Len() > 0 {
		e.loadChainEntry()
	}
}

func (e *Engine) loadChainEntry() {
	id, ok := e.chain.At(e.chainPos)
	if !ok {
		return
	}
	if err := e.LoadPattern(id); err != nil {
		e.log.Warn("chain entry missing", "op", "chain", "id", id, "err", err)
	}
}

// Master bus

func (e *Engine) SetMasterEffects(c *effects.Chain) { e.master = c }

func (e *Engine) SetMasterVolumeDB(db float64) {
	e.masterDB = db
	e.masterGain = float32(effects.DBToGain(db))
}

func (e *Engine) MasterVolumeDB() float64 { return e.masterDB }

// ApplyMaster runs the master inserts and gain over interleaved stereo dst
// and updates the peak meter.
func (e *Engine) ApplyMaster(dst []float32) {
	if len(dst) == 0 {
		return
	}
	if e.master != nil && e.master.Len() > 0 {
		for i := 0; i+1 < len(dst); i += 2 {
			dst[i], dst[i+1] = e.master.Process(dst[i], dst[i+1])
		}
	}
	if e.masterGain != 1 {
		vek32.MulNumber_Inplace(dst, e.masterGain)
	}
	if cap(e.scratch) < len(dst) {
		e.scratch = make([]float32, len(dst))
	}
	abs := vek32.Abs_Into(e.scratch[:len(dst)], dst)
	e.peak = vek32.Max(abs)
}

// Peak is the absolute peak of the last master block.
func (e *Engine) Peak() float32 { return e.peak }
