// Package catalog loads the read-only kit and preset pattern catalog from
// YAML. The default catalog is embedded; a directory of YAML files can be
// layered on top of it.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/beatgrid-go/internal/kit"
	"github.com/cbegin/beatgrid-go/internal/pattern"
)

//go:embed default.yaml
var defaultYAML []byte

var (
	ErrUnknownKit    = errors.New("catalog: unknown kit")
	ErrUnknownPreset = errors.New("catalog: unknown preset")
)

type Catalog struct {
	kits    []kit.Kit
	presets []pattern.Preset
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// LoadDir returns the default catalog overlaid with every *.yaml or *.yml
// file in dir, in name order. Entries with an existing id replace it.
func LoadDir(dir string) (*Catalog, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return c, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		overlay, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", name, err)
		}
		c.Merge(overlay)
	}
	return c, nil
}

// Parse reads one catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	c := &Catalog{}
	for _, kd := range doc.Kits {
		k, err := kd.kit()
		if err != nil {
			return nil, err
		}
		c.kits = append(c.kits, k)
	}
	for _, pd := range doc.Presets {
		if pd.ID == "" {
			return nil, fmt.Errorf("preset without id")
		}
		c.presets = append(c.presets, pd.preset())
	}
	return c, nil
}

// Merge overlays other onto c.
func (c *Catalog) Merge(other *Catalog) {
	for _, k := range other.kits {
		if i := slices.IndexFunc(c.kits, func(x kit.Kit) bool { return x.ID == k.ID }); i >= 0 {
			c.kits[i] = k
		} else {
			c.kits = append(c.kits, k)
		}
	}
	for _, p := range other.presets {
		if i := slices.IndexFunc(c.presets, func(x pattern.Preset) bool { return x.ID == p.ID }); i >= 0 {
			c.presets[i] = p
		} else {
			c.presets = append(c.presets, p)
		}
	}
}

func (c *Catalog) Kits() []kit.Kit { return slices.Clone(c.kits) }

func (c *Catalog) Kit(id string) (kit.Kit, error) {
	for _, k := range c.kits {
		if k.ID == id {
			return k, nil
		}
	}
	return kit.Kit{}, fmt.Errorf("%w: %q", ErrUnknownKit, id)
}

func (c *Catalog) Presets() []pattern.Preset { return slices.Clone(c.presets) }

func (c *Catalog) Preset(id string) (pattern.Preset, error) {
	for _, p := range c.presets {
		if p.ID == id {
			return p, nil
		}
	}
	return pattern.Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
}

// PresetsByGenre returns presets whose genre matches, ignoring case.
func (c *Catalog) PresetsByGenre(genre string) []pattern.Preset {
	var out []pattern.Preset
	for _, p := range c.presets {
		if strings.EqualFold(p.Genre, genre) {
			out = append(out, p)
		}
	}
	return out
}
