// Package config reads the YAML configuration file, writing the defaults
// when it does not exist yet.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/beatgrid-go/internal/audio"
	"github.com/cbegin/beatgrid-go/internal/effects"
	"github.com/cbegin/beatgrid-go/internal/logging"
	"github.com/cbegin/beatgrid-go/internal/recorder"
	"github.com/cbegin/beatgrid-go/internal/resource"
)

type RecorderConfig struct {
	Format      recorder.Format `yaml:"format"`
	MaxDuration time.Duration   `yaml:"maxDuration"`
}

type ExportConfig struct {
	Dir          string `yaml:"dir"`
	NameTemplate string `yaml:"nameTemplate"`
}

type Config struct {
	SampleRate     int                  `yaml:"sampleRate"`
	Backend        audio.Kind           `yaml:"backend"`
	BufferSize     time.Duration        `yaml:"bufferSize"`
	LogLevel       string               `yaml:"logLevel"`
	CatalogDir     string               `yaml:"catalogDir"`
	DefaultKit     string               `yaml:"defaultKit"`
	Loop           bool                 `yaml:"loop"`
	MasterVolumeDB float64              `yaml:"masterVolumeDb"`
	MasterEffects  []effects.Spec       `yaml:"masterEffects"`
	Pool           resource.PoolConfig  `yaml:"pool"`
	Cache          resource.CacheConfig `yaml:"cache"`
	Recorder       RecorderConfig       `yaml:"recorder"`
	Export         ExportConfig         `yaml:"export"`
	Watch          bool                 `yaml:"watch"`
}

const DefaultNameTemplate = `{{ .KitID }}-{{ .BPM }}bpm-{{ now | date "20060102-150405" }}`

func Default() Config {
	return Config{
		SampleRate:    48000,
		Backend:       audio.KindEbiten,
		BufferSize:    audio.DefaultBufferSize,
		LogLevel:      "info",
		DefaultKit:    "tr808",
		Loop:          true,
		MasterEffects: []effects.Spec{},
		Pool:          resource.DefaultPoolConfig(),
		Cache:         resource.DefaultCacheConfig(),
		Recorder:      RecorderConfig{Format: recorder.FormatWAVFloat32, MaxDuration: 10 * time.Minute},
		Export:        ExportConfig{Dir: ".", NameTemplate: DefaultNameTemplate},
		Watch:         true,
	}
}

// Read loads the config at p. A missing file is created with the defaults.
// Fields absent from the file keep their default values.
func Read(p string) (*Config, error) {
	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		if err := Write(p, Default()); err != nil {
			return nil, fmt.Errorf("can't write default config: %w", err)
		}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("can't read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshalling: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Write stores c as YAML at p, creating parent directories.
func Write(p string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(p, data, 0o644)
}

func (c Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("sampleRate %d out of range", c.SampleRate)
	}
	switch c.Backend {
	case "", audio.KindEbiten, audio.KindOto, audio.KindNull:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, _, err := recorder.EncoderFor(c.Recorder.Format); err != nil {
		return err
	}
	for _, spec := range c.MasterEffects {
		if _, err := effects.New(spec, c.SampleRate); err != nil {
			return fmt.Errorf("masterEffects: %w", err)
		}
	}
	return nil
}
