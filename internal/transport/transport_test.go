package transport

import (
	"testing"
)

type countingTarget struct {
	length   int
	bpm      float64
	swing    float64
	loop     bool
	cells    map[int]bool
	triggers []int
	at       []int // frame index of each trigger
	frame    int
	wraps    int
}

func newCountingTarget(length int, bpm float64) *countingTarget {
	return &countingTarget{length: length, bpm: bpm, loop: true, cells: map[int]bool{}}
}

func (c *countingTarget) Length() int    { return c.length }
func (c *countingTarget) BPM() float64   { return c.bpm }
func (c *countingTarget) Swing() float64 { return c.swing }
func (c *countingTarget) Trigger(step int) {
	if c.cells[step] {
		c.triggers = append(c.triggers, step)
		c.at = append(c.at, c.frame)
	}
}
func (c *countingTarget) EndOfPattern() bool {
	c.wraps++
	return c.loop
}
func (c *countingTarget) RenderFrame() (float32, float32) {
	c.frame++
	return 0, 0
}

func TestOneLoopTriggersKickTwice(t *testing.T) {
	target := newCountingTarget(16, 120)
	target.cells[0] = true
	target.cells[8] = true
	tr := New(target, 48000)
	tr.Play()

	buf := make([]float32, 96000*2)
	tr.Process(buf)

	if len(target.triggers) != 2 {
		t.Fatalf("expected 2 kick triggers, got %d (%v)", len(target.triggers), target.triggers)
	}
	if target.at[0] != 0 || target.at[1] != 48000 {
		t.Fatalf("unexpected trigger frames: %v", target.at)
	}
	if target.wraps != 1 {
		t.Fatalf("expected one wrap, got %d", target.wraps)
	}
}

func TestStepFrames(t *testing.T) {
	if got := StepFrames(48000, 120); got != 6000 {
		t.Fatalf("step frames at 120bpm: got=%v want=6000", got)
	}
	if got := StepFrames(44100, 60); got != 11025 {
		t.Fatalf("step frames at 60bpm: got=%v want=11025", got)
	}
}

func TestSwingDelaysOddSteps(t *testing.T) {
	target := newCountingTarget(16, 120)
	target.swing = 50
	target.cells[0] = true
	target.cells[1] = true
	target.cells[2] = true
	tr := New(target, 48000)
	tr.Play()
	tr.Process(make([]float32, 18000*2))

	want := []int{0, 6000 + 3000, 12000}
	if len(target.at) != len(want) {
		t.Fatalf("trigger count: got=%d want=%d", len(target.at), len(want))
	}
	for i := range want {
		if target.at[i] != want[i] {
			t.Fatalf("trigger %d at frame %d, want %d", i, target.at[i], want[i])
		}
	}
}

func TestSwingOffsetClampedInsideSlot(t *testing.T) {
	if got := SwingOffset(6000, 100); got != 5999 {
		t.Fatalf("full swing: got=%v want=5999", got)
	}
	if got := SwingOffset(6000, 0); got != 0 {
		t.Fatalf("no swing: got=%v", got)
	}
	if got := SwingOffset(6000, 250); got != 5999 {
		t.Fatalf("over-range swing: got=%v", got)
	}
}

func TestPlayWhilePlayingIsNoop(t *testing.T) {
	target := newCountingTarget(16, 120)
	tr := New(target, 48000)
	tr.Play()
	tr.Process(make([]float32, 6000*2*3))
	if tr.Cursor() != 3 {
		t.Fatalf("cursor: got=%d want=3", tr.Cursor())
	}
	tr.Play()
	if tr.Cursor() != 3 {
		t.Fatalf("second Play reset the cursor")
	}
}

func TestStopResetsCursorAndDropsPendingStep(t *testing.T) {
	target := newCountingTarget(16, 120)
	target.swing = 100
	target.cells[1] = true
	tr := New(target, 48000)
	tr.Play()
	// Land inside step 1 before its swung trigger.
	tr.Process(make([]float32, 6000*2+100*2))
	if tr.Cursor() != 1 {
		t.Fatalf("cursor: got=%d want=1", tr.Cursor())
	}
	tr.Stop()
	tr.Process(make([]float32, 12000*2))
	if len(target.triggers) != 0 {
		t.Fatalf("stopped transport fired %v", target.triggers)
	}
	if tr.Cursor() != 0 || tr.Playing() {
		t.Fatalf("stop should rewind: cursor=%d playing=%v", tr.Cursor(), tr.Playing())
	}
}

func TestTempoChangeAppliesAtNextStep(t *testing.T) {
	target := newCountingTarget(16, 120)
	tr := New(target, 48000)
	tr.Play()
	tr.Process(make([]float32, 100*2))
	target.bpm = 60
	if tr.StepFrames() != 6000 {
		t.Fatalf("mid-step tempo change must not alter the current slot")
	}
	tr.Process(make([]float32, 5900*2))
	if tr.StepFrames() != 12000 {
		t.Fatalf("new tempo not applied at boundary: %v", tr.StepFrames())
	}
}

func TestHaltEmitsPlaybackEnded(t *testing.T) {
	target := newCountingTarget(16, 120)
	target.loop = false
	var events []Event
	tr := NewWithOptions(target, 48000, Options{OnEvent: func(ev Event) { events = append(events, ev) }})
	tr.Play()
	tr.Process(make([]float32, 96000*2*2))

	if tr.Playing() {
		t.Fatalf("transport should have halted")
	}
	last := events[len(events)-1]
	if last.Kind != EventPlaybackEnded {
		t.Fatalf("last event: got=%v want=%v", last.Kind, EventPlaybackEnded)
	}
	steps := 0
	for _, ev := range events {
		if ev.Kind == EventStep {
			steps++
		}
	}
	if steps != 16 {
		t.Fatalf("step events: got=%d want=16", steps)
	}
}

func TestLoopEmitsLoopCompleted(t *testing.T) {
	target := newCountingTarget(16, 120)
	loops := 0
	tr := NewWithOptions(target, 48000, Options{OnEvent: func(ev Event) {
		if ev.Kind == EventLoopCompleted {
			loops++
		}
	}})
	tr.Play()
	tr.Process(make([]float32, 96000*2*3))
	if loops != 3 {
		t.Fatalf("loops: got=%d want=3", loops)
	}
}

func TestBindSwapsTargetLive(t *testing.T) {
	a := newCountingTarget(16, 120)
	b := newCountingTarget(16, 120)
	b.cells[2] = true
	tr := New(a, 48000)
	tr.Play()
	tr.Process(make([]float32, 6000*2))
	tr.Bind(b)
	tr.Process(make([]float32, 12000*2))
	if len(b.triggers) != 1 || b.triggers[0] != 2 {
		t.Fatalf("bound target not driven: %v", b.triggers)
	}
	if tr.Cursor() != 3 {
		t.Fatalf("Bind touched the clock: cursor=%d", tr.Cursor())
	}
}

func TestShrinkingLengthWrapsEarly(t *testing.T) {
	target := newCountingTarget(32, 120)
	tr := New(target, 48000)
	tr.Play()
	tr.Process(make([]float32, 6000*20*2))
	target.length = 16
	tr.Process(make([]float32, 6000*2))
	if tr.Cursor() != 0 {
		t.Fatalf("cursor past new length should wrap, got %d", tr.Cursor())
	}
}
