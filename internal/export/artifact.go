// Package export writes a pattern out as a JSON artifact or a Standard MIDI
// File and names the files from a template.
package export

import (
	"encoding/json"
	"io"

	"github.com/cbegin/beatgrid-go/internal/kit"
	"github.com/cbegin/beatgrid-go/internal/pattern"
)

// Artifact is the exported JSON form of a pattern.
type Artifact struct {
	BPM        float64           `json:"bpm"`
	Pattern    map[string][]bool `json:"pattern"`
	StepLength int               `json:"stepLength"`
	KitID      string            `json:"kitId"`
}

func NewArtifact(k kit.Kit, p *pattern.Pattern) Artifact {
	return Artifact{
		BPM:        p.BPM(),
		Pattern:    map[string][]bool(p.Copy()),
		StepLength: p.Length(),
		KitID:      k.ID,
	}
}

// WriteJSON writes the artifact as indented JSON.
func (a Artifact) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}
