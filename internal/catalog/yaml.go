package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/beatgrid-go/internal/kit"
	"github.com/cbegin/beatgrid-go/internal/pattern"
)

type document struct {
	Kits    []kitDoc    `yaml:"kits"`
	Presets []presetDoc `yaml:"presets"`
}

type kitDoc struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Voices      []voiceDoc `yaml:"voices"`
}

type voiceDoc struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Short    string    `yaml:"short"`
	Color    string    `yaml:"color"`
	MIDINote uint8     `yaml:"midiNote"`
	Synth    yaml.Node `yaml:"synth"`
}

func (d kitDoc) kit() (kit.Kit, error) {
	k := kit.Kit{ID: d.ID, Name: d.Name, Description: d.Description}
	for _, vd := range d.Voices {
		s, err := decodeSynth(&vd.Synth)
		if err != nil {
			return kit.Kit{}, fmt.Errorf("kit %s voice %s: %w", d.ID, vd.ID, err)
		}
		k.Voices = append(k.Voices, kit.Voice{
			ID:       vd.ID,
			Name:     vd.Name,
			Short:    vd.Short,
			Color:    vd.Color,
			MIDINote: vd.MIDINote,
			Synth:    s,
		})
	}
	if err := k.Validate(); err != nil {
		return kit.Kit{}, err
	}
	return k, nil
}

// decodeSynth reads the type tag, then decodes the typed parameters over
// that kind's defaults so omitted fields keep sensible values.
func decodeSynth(n *yaml.Node) (kit.Synth, error) {
	if n.Kind == 0 {
		return nil, fmt.Errorf("missing synth")
	}
	var head struct {
		Type kit.SynthType `yaml:"type"`
	}
	if err := n.Decode(&head); err != nil {
		return nil, err
	}
	s, err := kit.Default(head.Type)
	if err != nil {
		return nil, err
	}
	switch v := s.(type) {
	case kit.Membrane:
		err = n.Decode(&v)
		s = v
	case kit.Metallic:
		err = n.Decode(&v)
		s = v
	case kit.Noise:
		err = n.Decode(&v)
		s = v
	case kit.Tonal:
		err = n.Decode(&v)
		s = v
	}
	return s, err
}

type presetDoc struct {
	ID    string             `yaml:"id"`
	Name  string             `yaml:"name"`
	Genre string             `yaml:"genre"`
	BPM   float64            `yaml:"bpm"`
	Swing *float64           `yaml:"swing"`
	Steps map[string]stepRow `yaml:"steps"`
}

func (d presetDoc) preset() pattern.Preset {
	p := pattern.Preset{ID: d.ID, Name: d.Name, Genre: d.Genre, BPM: d.BPM, Swing: d.Swing,
		Steps: make(map[string][]bool, len(d.Steps))}
	for id, row := range d.Steps {
		p.Steps[id] = []bool(row)
	}
	return p
}

// stepRow accepts either a list of booleans or a compact string where
// x, X or 1 is on and '.', '-' or 0 is off. Spaces and '|' are ignored.
type stepRow []bool

func (r *stepRow) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		row, err := ParseSteps(n.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		*r = row
		return nil
	}
	var cells []bool
	if err := n.Decode(&cells); err != nil {
		return err
	}
	*r = cells
	return nil
}

// ParseSteps parses the compact step string form.
func ParseSteps(s string) ([]bool, error) {
	row := make([]bool, 0, len(s))
	for _, c := range s {
		switch c {
		case 'x', 'X', '1':
			row = append(row, true)
		case '.', '-', '0':
			row = append(row, false)
		case ' ', '\t', '|':
		default:
			return nil, fmt.Errorf("invalid step character %q", c)
		}
	}
	return row, nil
}

// FormatSteps renders a row in the compact string form, grouped by four.
func FormatSteps(row []bool) string {
	var b strings.Builder
	for i, on := range row {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		if on {
			b.WriteByte('x')
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
