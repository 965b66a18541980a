package beatgrid

import (
	"log/slog"
	"time"

	"github.com/cbegin/beatgrid-go/internal/audio"
	"github.com/cbegin/beatgrid-go/internal/catalog"
	"github.com/cbegin/beatgrid-go/internal/config"
	"github.com/cbegin/beatgrid-go/internal/effects"
	"github.com/cbegin/beatgrid-go/internal/recorder"
	"github.com/cbegin/beatgrid-go/internal/resource"
)

type Option func(*machineConfig)

type machineConfig struct {
	sampleRate     int
	catalog        *catalog.Catalog
	log            *slog.Logger
	backend        audio.Backend
	backendKind    audio.Kind
	bufferSize     time.Duration
	resources      *resource.Manager
	resourceCfg    resource.Config
	recorderFormat recorder.Format
	maxRecord      time.Duration
	loop           bool
	masterEffects  []effects.Spec
	masterDB       float64
	kitID          string
	exportDir      string
	nameTemplate   string
}

func defaultMachineConfig() machineConfig {
	return machineConfig{
		sampleRate:     48000,
		backendKind:    audio.KindEbiten,
		bufferSize:     audio.DefaultBufferSize,
		resourceCfg:    resource.DefaultConfig(),
		recorderFormat: recorder.FormatWAVFloat32,
		loop:           true,
		exportDir:      ".",
		nameTemplate:   config.DefaultNameTemplate,
	}
}

func WithSampleRate(sampleRate int) Option {
	return func(cfg *machineConfig) {
		cfg.sampleRate = sampleRate
	}
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(cfg *machineConfig) {
		cfg.catalog = c
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(cfg *machineConfig) {
		cfg.log = log
	}
}

// WithBackend injects an audio backend. The machine does not close an
// injected backend.
func WithBackend(b audio.Backend) Option {
	return func(cfg *machineConfig) {
		cfg.backend = b
	}
}

// WithBackendKind selects the backend Initialize creates when none was
// injected.
func WithBackendKind(kind audio.Kind, bufferSize time.Duration) Option {
	return func(cfg *machineConfig) {
		cfg.backendKind = kind
		if bufferSize > 0 {
			cfg.bufferSize = bufferSize
		}
	}
}

// WithResources injects a resource manager. The machine does not shut an
// injected manager down.
func WithResources(m *resource.Manager) Option {
	return func(cfg *machineConfig) {
		cfg.resources = m
	}
}

func WithRecorderFormat(f recorder.Format, maxDuration time.Duration) Option {
	return func(cfg *machineConfig) {
		cfg.recorderFormat = f
		cfg.maxRecord = maxDuration
	}
}

func WithLoop(enabled bool) Option {
	return func(cfg *machineConfig) {
		cfg.loop = enabled
	}
}

func WithMasterEffects(specs []effects.Spec, volumeDB float64) Option {
	return func(cfg *machineConfig) {
		cfg.masterEffects = specs
		cfg.masterDB = volumeDB
	}
}

func WithKit(id string) Option {
	return func(cfg *machineConfig) {
		cfg.kitID = id
	}
}

// WithConfig applies every machine setting carried by a config file.
func WithConfig(c config.Config) Option {
	return func(cfg *machineConfig) {
		cfg.sampleRate = c.SampleRate
		if c.Backend != "" {
			cfg.backendKind = c.Backend
		}
		if c.BufferSize > 0 {
			cfg.bufferSize = c.BufferSize
		}
		cfg.resourceCfg = resource.Config{Pool: c.Pool, Cache: c.Cache}
		if c.Recorder.Format != "" {
			cfg.recorderFormat = c.Recorder.Format
		}
		cfg.maxRecord = c.Recorder.MaxDuration
		cfg.loop = c.Loop
		cfg.masterEffects = c.MasterEffects
		cfg.masterDB = c.MasterVolumeDB
		cfg.kitID = c.DefaultKit
		if c.Export.Dir != "" {
			cfg.exportDir = c.Export.Dir
		}
		if c.Export.NameTemplate != "" {
			cfg.nameTemplate = c.Export.NameTemplate
		}
	}
}
