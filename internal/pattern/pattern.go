// Package pattern holds the step grid edited by the user and read by the
// transport on every step.
package pattern

import "slices"

const (
	MinBPM     = 40
	MaxBPM     = 220
	DefaultBPM = 120

	MinSwing = 0
	MaxSwing = 100

	DefaultLength = 16
)

// Lengths lists the step counts a pattern may have.
var Lengths = []int{16, 32, 64}

// ValidLength reports whether n is one of Lengths.
func ValidLength(n int) bool {
	return slices.Contains(Lengths, n)
}

// Pattern is a boolean grid keyed by voice id plus tempo and swing.
// Every voice in the row order has a row of exactly Length cells.
type Pattern struct {
	voices []string
	steps  map[string][]bool
	length int
	bpm    float64
	swing  float64
}

// New returns an all-false pattern for the given voices. An invalid length
// falls back to DefaultLength.
func New(voiceIDs []string, length int) *Pattern {
	if !ValidLength(length) {
		length = DefaultLength
	}
	p := &Pattern{
		steps:  make(map[string][]bool, len(voiceIDs)),
		length: length,
		bpm:    DefaultBPM,
	}
	for _, id := range voiceIDs {
		p.addRow(id)
	}
	return p
}

func (p *Pattern) addRow(id string) {
	if _, ok := p.steps[id]; ok {
		return
	}
	p.voices = append(p.voices, id)
	p.steps[id] = make([]bool, p.length)
}

func (p *Pattern) Length() int    { return p.length }
func (p *Pattern) BPM() float64   { return p.bpm }
func (p *Pattern) Swing() float64 { return p.swing }

// Voices returns the row order.
func (p *Pattern) Voices() []string {
	return slices.Clone(p.voices)
}

// Has reports whether the pattern has a row for id.
func (p *Pattern) Has(id string) bool {
	_, ok := p.steps[id]
	return ok
}

// Step reports one cell. Unknown voices and out-of-range steps are false.
func (p *Pattern) Step(voice string, step int) bool {
	row, ok := p.steps[voice]
	if !ok || step < 0 || step >= len(row) {
		return false
	}
	return row[step]
}

// Row returns a copy of one voice's cells.
func (p *Pattern) Row(voice string) ([]bool, bool) {
	row, ok := p.steps[voice]
	if !ok {
		return nil, false
	}
	return slices.Clone(row), true
}

// Toggle flips one cell and returns its new value. Out-of-range steps and
// unknown voices are ignored.
func (p *Pattern) Toggle(voice string, step int) bool {
	row, ok := p.steps[voice]
	if !ok || step < 0 || step >= len(row) {
		return false
	}
	row[step] = !row[step]
	return row[step]
}

// Set writes one cell. It reports false when the cell does not exist.
func (p *Pattern) Set(voice string, step int, on bool) bool {
	row, ok := p.steps[voice]
	if !ok || step < 0 || step >= len(row) {
		return false
	}
	row[step] = on
	return true
}

// SetLength resizes every row to n, keeping leading cells. Lengths outside
// Lengths are ignored and reported as false.
func (p *Pattern) SetLength(n int) bool {
	if !ValidLength(n) {
		return false
	}
	for id, row := range p.steps {
		p.steps[id] = resize(row, n)
	}
	p.length = n
	return true
}

// SetBPM clamps v into [MinBPM, MaxBPM] and returns the applied value.
func (p *Pattern) SetBPM(v float64) float64 {
	p.bpm = clampFloat(v, MinBPM, MaxBPM)
	return p.bpm
}

// SetSwing clamps v into [MinSwing, MaxSwing] and returns the applied value.
func (p *Pattern) SetSwing(v float64) float64 {
	p.swing = clampFloat(v, MinSwing, MaxSwing)
	return p.swing
}

// Clear turns every cell off, keeping tempo, swing and length.
func (p *Pattern) Clear() {
	for _, row := range p.steps {
		clear(row)
	}
}

// ActiveCount returns the number of cells that are on.
func (p *Pattern) ActiveCount() int {
	n := 0
	for _, row := range p.steps {
		for _, on := range row {
			if on {
				n++
			}
		}
	}
	return n
}

// Conform makes sure every id has a row, adding all-false rows where missing,
// and puts those ids first in the given order. Rows for other voices are kept
// after them.
func (p *Pattern) Conform(voiceIDs []string) {
	order := make([]string, 0, len(voiceIDs)+len(p.voices))
	seen := make(map[string]struct{}, len(voiceIDs))
	for _, id := range voiceIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := p.steps[id]; !ok {
			p.steps[id] = make([]bool, p.length)
		}
		order = append(order, id)
	}
	for _, id := range p.voices {
		if _, ok := seen[id]; !ok {
			order = append(order, id)
		}
	}
	p.voices = order
}

// Clone returns a deep copy.
func (p *Pattern) Clone() *Pattern {
	c := &Pattern{
		voices: slices.Clone(p.voices),
		steps:  make(map[string][]bool, len(p.steps)),
		length: p.length,
		bpm:    p.bpm,
		swing:  p.swing,
	}
	for id, row := range p.steps {
		c.steps[id] = slices.Clone(row)
	}
	return c
}

// Load merges a preset onto the current rows. Voices in both take the preset
// row resized to the current length; voices missing from the preset become
// all false. The preset tempo goes through SetBPM.
func (p *Pattern) Load(preset Preset) {
	for _, id := range p.voices {
		src, ok := preset.Steps[id]
		if !ok {
			clear(p.steps[id])
			continue
		}
		p.steps[id] = resize(src, p.length)
	}
	if preset.BPM > 0 {
		p.SetBPM(preset.BPM)
	}
	if preset.Swing != nil {
		p.SetSwing(*preset.Swing)
	}
}

// Snapshot is a detached copy of a pattern's cells, used for copy/paste.
type Snapshot map[string][]bool

// Copy returns a deep snapshot of every row.
func (p *Pattern) Copy() Snapshot {
	s := make(Snapshot, len(p.steps))
	for id, row := range p.steps {
		s[id] = slices.Clone(row)
	}
	return s
}

// Paste writes the rows of s whose voice exists in the pattern, resized to
// the current length. Other rows are left untouched.
func (p *Pattern) Paste(s Snapshot) {
	for id, row := range s {
		if _, ok := p.steps[id]; !ok {
			continue
		}
		p.steps[id] = resize(row, p.length)
	}
}

func resize(row []bool, n int) []bool {
	out := make([]bool, n)
	copy(out, row)
	return out
}

func clampFloat(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
