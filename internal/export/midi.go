package export

import (
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/beatgrid-go/internal/kit"
	"github.com/cbegin/beatgrid-go/internal/pattern"
)

const (
	TicksPerQuarter = 96
	ticksPerStep    = TicksPerQuarter / 4
	drumChannel     = 9
	noteTicks       = ticksPerStep / 2
	velocity        = 100
)

type noteEvent struct {
	tick uint32
	on   bool
	key  uint8
}

// WriteMIDI writes the pattern as a format 0 SMF with one drum note per
// active cell on channel 10. Odd steps are delayed by the pattern's swing.
func WriteMIDI(w io.Writer, k kit.Kit, p *pattern.Pattern) error {
	var events []noteEvent
	swingTicks := uint32(p.Swing() / 100 * ticksPerStep)
	if swingTicks >= ticksPerStep {
		swingTicks = ticksPerStep - 1
	}
	for _, v := range k.Voices {
		key := v.Note()
		for step := 0; step < p.Length(); step++ {
			if !p.Step(v.ID, step) {
				continue
			}
			at := uint32(step * ticksPerStep)
			if step%2 == 1 {
				at += swingTicks
			}
			events = append(events,
				noteEvent{tick: at, on: true, key: key},
				noteEvent{tick: at + noteTicks, on: false, key: key})
		}
	}
	// offs sort before ons on the same tick
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)
	var tr smf.Track
	tr.Add(0, smf.MetaMeter(4, 4))
	tr.Add(0, smf.MetaTempo(p.BPM()))
	var last uint32
	for _, ev := range events {
		delta := ev.tick - last
		last = ev.tick
		if ev.on {
			tr.Add(delta, midi.NoteOn(drumChannel, ev.key, velocity))
		} else {
			tr.Add(delta, midi.NoteOff(drumChannel, ev.key))
		}
	}
	end := uint32(p.Length() * ticksPerStep)
	var tail uint32
	if end > last {
		tail = end - last
	}
	tr.Close(tail)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("midi: %w", err)
	}
	_, err := s.WriteTo(w)
	return err
}
