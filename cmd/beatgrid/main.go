package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/cbegin/beatgrid-go"
	"github.com/cbegin/beatgrid-go/internal/audio"
	"github.com/cbegin/beatgrid-go/internal/catalog"
	"github.com/cbegin/beatgrid-go/internal/config"
	"github.com/cbegin/beatgrid-go/internal/export"
	"github.com/cbegin/beatgrid-go/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", defaultConfigPath(), "path to the YAML config (created when missing)")
		kitID      = flag.String("kit", "", "kit id (default from config)")
		presetID   = flag.String("preset", "", "preset id to load")
		bpm        = flag.Float64("bpm", 0, "tempo override (40..220)")
		swing      = flag.Float64("swing", -1, "swing override (0..100)")
		length     = flag.Int("length", 0, "pattern length: 16|32|64")
		loops      = flag.Int("loops", 4, "stop after N loops (0 = loop forever)")
		backend    = flag.String("backend", "", "audio backend: ebiten|oto|null")
		renderPath = flag.String("render", "", "bounce to this WAV file instead of playing")
		tail       = flag.Float64("tail", 1, "seconds of decay after the last bounced loop")
		exportFmt  = flag.String("export", "", "write the pattern as json|midi and exit")
		list       = flag.Bool("list", false, "list kits and presets and exit")
		verbose    = flag.Bool("v", false, "print step and trigger events")
	)
	flag.Parse()

	level := new(slog.LevelVar)
	log := logging.New(os.Stderr, level)

	cfg, err := config.Read(*configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if l, err := logging.ParseLevel(cfg.LogLevel); err == nil {
		level.Set(l)
	}
	if *backend != "" {
		cfg.Backend = audio.Kind(*backend)
	}
	if *kitID != "" {
		cfg.DefaultKit = *kitID
	}

	cat, err := loadCatalog(cfg.CatalogDir)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if *list {
		printCatalog(cat)
		return nil
	}

	m, err := beatgrid.New(beatgrid.WithConfig(*cfg), beatgrid.WithCatalog(cat), beatgrid.WithLogger(log))
	if err != nil {
		return fmt.Errorf("machine: %w", err)
	}
	defer m.Close()

	if *presetID != "" {
		if err := m.LoadPreset(*presetID); err != nil {
			return fmt.Errorf("preset: %w", err)
		}
	}
	if *length != 0 && !m.SetLength(*length) {
		return fmt.Errorf("invalid -length %d (expected 16|32|64)", *length)
	}
	if *bpm > 0 {
		m.SetBPM(*bpm)
	}
	if *swing >= 0 {
		m.SetSwing(*swing)
	}

	switch {
	case *exportFmt != "":
		f, err := export.ParseFormat(*exportFmt)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		path, err := m.SaveExport(f)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Println(path)
		return nil
	case *renderPath != "":
		n := *loops
		if n <= 0 {
			n = 1
		}
		samples, err := m.Bounce(n, *tail)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		if err := os.WriteFile(*renderPath, beatgrid.EncodeWAV(samples, cfg.SampleRate), 0o644); err != nil {
			return fmt.Errorf("render: %w", err)
		}
		fmt.Printf("rendered %d loops to %s\n", n, *renderPath)
		return nil
	}

	if err := m.Initialize(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if cfg.Watch {
		done := make(chan struct{})
		defer close(done)
		watchConfig(*configPath, m, level, log, done)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	go func() {
		<-interrupt
		m.Stop()
	}()

	ch := m.Watch()
	m.Play()
	finished := make(chan struct{})
	go func() {
		m.Wait()
		close(finished)
	}()
	k := m.Kit()
	p := m.Pattern()
	fmt.Printf("playing %s at %.0f bpm, swing %.0f, %d steps\n", k.Name, p.BPM(), p.Swing(), p.Length())
	loopCount := 0
	for {
		select {
		case <-finished:
			fmt.Println("playback completed")
			return nil
		case event := <-ch:
			switch event.Kind {
			case beatgrid.EventLoopCompleted:
				loopCount++
				fmt.Printf("loop %d completed\n", loopCount)
				if *loops > 0 && loopCount >= *loops {
					m.Stop()
				}
			case beatgrid.EventStep:
				if *verbose {
					fmt.Printf("step %d\n", event.Step)
				}
			case beatgrid.EventTrigger:
				if *verbose {
					fmt.Printf("  %s\n", event.Voice)
				}
			}
		}
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "beatgrid.yaml"
	}
	return filepath.Join(dir, "beatgrid", "config.yaml")
}

func loadCatalog(dir string) (*catalog.Catalog, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) == "" {
		return cat, nil
	}
	extra, err := catalog.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	cat.Merge(extra)
	return cat, nil
}

func printCatalog(cat *catalog.Catalog) {
	fmt.Println("kits:")
	for _, k := range cat.Kits() {
		fmt.Printf("  %-10s %s (%d voices)\n", k.ID, k.Name, len(k.Voices))
	}
	fmt.Println("presets:")
	for _, p := range cat.Presets() {
		fmt.Printf("  %-14s %-10s %3.0f bpm  %s\n", p.ID, p.Genre, p.BPM, p.Name)
	}
}

// watchConfig applies live-safe settings from config edits until done is
// closed. Sample rate, backend and pool sizes need a restart.
func watchConfig(path string, m *beatgrid.Machine, level *slog.LevelVar, log *slog.Logger, done <-chan struct{}) {
	configs := make(chan *config.Config)
	errs := make(chan error)
	if err := config.Watch(path, configs, errs, done); err != nil {
		log.Warn("config watch disabled", "op", "watch", "err", err)
		return
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case c := <-configs:
				if l, err := logging.ParseLevel(c.LogLevel); err == nil {
					level.Set(l)
				}
				m.SetLoop(c.Loop)
				m.SetMasterVolumeDB(c.MasterVolumeDB)
				if err := m.SetMasterEffects(c.MasterEffects); err != nil {
					log.Warn("master effects rejected", "op", "watch", "err", err)
				}
				log.Info("config reloaded", "op", "watch", "path", path)
			case err := <-errs:
				log.Warn("config reload failed", "op", "watch", "err", err)
			}
		}
	}()
}
