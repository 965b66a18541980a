package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatMIDI Format = "midi"
)

func (f Format) Ext() string {
	switch f {
	case FormatMIDI:
		return ".mid"
	default:
		return ".json"
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "midi", "mid", "smf":
		return FormatMIDI, nil
	}
	return "", fmt.Errorf("export: unknown format %q", s)
}

// NameData is what a file name template can reference.
type NameData struct {
	KitID   string
	KitName string
	BPM     int
	Swing   int
	Length  int
	Format  string
}

// FileName renders tmpl with sprig functions and appends the format's
// extension. Path separators in the result are replaced.
func FileName(tmpl string, data NameData, f Format) (string, error) {
	t, err := template.New("name").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("export: name template: %w", err)
	}
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("export: name template: %w", err)
	}
	name := strings.TrimSpace(b.String())
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "pattern"
	}
	return name + f.Ext(), nil
}

// WriteFile creates dir if needed and writes the output of write to
// dir/name, returning the full path.
func WriteFile(dir, name string, write func(*os.File) error) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
