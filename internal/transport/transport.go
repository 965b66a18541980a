// Package transport is the sample-clocked step clock. It has no goroutine of
// its own: time only advances while Process renders frames.
package transport

// Target is what the transport drives. It is read on every step, so edits to
// length, tempo or cells show up at the next tick.
type Target interface {
	Length() int
	BPM() float64
	Swing() float64
	Trigger(step int)
	// EndOfPattern is called when the cursor wraps. Returning false halts
	// playback.
	EndOfPattern() bool
	RenderFrame() (float32, float32)
}

// EventKind identifies transport lifecycle events.
type EventKind int

const (
	EventStep EventKind = iota
	EventLoopCompleted
	EventPlaybackEnded
)

func (k EventKind) String() string {
	switch k {
	case EventStep:
		return "step"
	case EventLoopCompleted:
		return "loop-completed"
	case EventPlaybackEnded:
		return "playback-ended"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind EventKind
	Step int
}

type Options struct {
	OnEvent func(Event)
}

type Transport struct {
	target     Target
	sampleRate int
	onEvent    func(Event)

	playing    bool
	cursor     int
	stepFrames float64
	elapsed    float64 // frames since the current step slot started
	fired      bool
}

func New(target Target, sampleRate int) *Transport {
	return NewWithOptions(target, sampleRate, Options{})
}

func NewWithOptions(target Target, sampleRate int, opts Options) *Transport {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &Transport{
		target:     target,
		sampleRate: sampleRate,
		onEvent:    opts.OnEvent,
	}
}

// Bind swaps the target without touching the clock.
func (t *Transport) Bind(target Target) {
	t.target = target
}

func (t *Transport) Target() Target { return t.target }

func (t *Transport) Playing() bool { return t.playing }

// Cursor is the step currently sounding, or 0 when stopped.
func (t *Transport) Cursor() int { return t.cursor }

// StepFrames is the length of the current step slot in frames.
func (t *Transport) StepFrames() float64 { return t.stepFrames }

// Play starts from step 0. It does nothing when already playing.
func (t *Transport) Play() {
	if t.playing || t.target == nil {
		return
	}
	t.reset()
	t.playing = true
	t.stepFrames = StepFrames(t.sampleRate, t.target.BPM())
}

// Stop halts playback and rewinds to step 0. A step whose swing offset has
// not elapsed yet is dropped.
func (t *Transport) Stop() {
	t.playing = false
	t.reset()
}

func (t *Transport) reset() {
	t.cursor = 0
	t.elapsed = 0
	t.fired = false
}

// Process fills interleaved stereo dst, firing steps on the way. Frames are
// rendered from the target even while stopped so release tails ring out.
func (t *Transport) Process(dst []float32) {
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		if t.playing && !t.fired && t.elapsed >= t.swingOffset() {
			t.fire()
		}
		var l, r float32
		if t.target != nil {
			l, r = t.target.RenderFrame()
		}
		dst[f*2] = l
		dst[f*2+1] = r
		if !t.playing {
			continue
		}
		t.elapsed++
		if t.elapsed >= t.stepFrames {
			t.elapsed -= t.stepFrames
			t.advance()
		}
	}
}

func (t *Transport) fire() {
	t.fired = true
	if t.cursor >= t.target.Length() {
		return
	}
	t.target.Trigger(t.cursor)
	t.emit(Event{Kind: EventStep, Step: t.cursor})
}

func (t *Transport) advance() {
	t.fired = false
	t.cursor++
	if t.cursor >= t.target.Length() {
		t.cursor = 0
		if !t.target.EndOfPattern() {
			t.playing = false
			t.reset()
			t.emit(Event{Kind: EventPlaybackEnded})
			return
		}
		t.emit(Event{Kind: EventLoopCompleted})
	}
	// tempo changes land on step boundaries
	t.stepFrames = StepFrames(t.sampleRate, t.target.BPM())
	if t.elapsed >= t.stepFrames {
		t.elapsed = 0
	}
}

// swingOffset delays odd steps by a share of the slot, kept inside the slot.
func (t *Transport) swingOffset() float64 {
	if t.cursor%2 == 0 {
		return 0
	}
	return SwingOffset(t.stepFrames, t.target.Swing())
}

func (t *Transport) emit(ev Event) {
	if t.onEvent != nil {
		t.onEvent(ev)
	}
}

// StepFrames returns the length of one sixteenth note in frames.
func StepFrames(sampleRate int, bpm float64) float64 {
	if bpm <= 0 {
		bpm = 120
	}
	return float64(sampleRate) * 60 / bpm / 4
}

// SwingOffset returns the delay for an odd step given a swing amount in
// [0,100]. The result is at most stepFrames-1.
func SwingOffset(stepFrames, swing float64) float64 {
	if swing <= 0 {
		return 0
	}
	if swing > 100 {
		swing = 100
	}
	off := swing / 100 * stepFrames
	if limit := stepFrames - 1; off > limit {
		off = max(limit, 0)
	}
	return off
}
