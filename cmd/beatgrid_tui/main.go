package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/beatgrid-go"
	"github.com/cbegin/beatgrid-go/internal/audio"
	"github.com/cbegin/beatgrid-go/internal/catalog"
	"github.com/cbegin/beatgrid-go/internal/config"
	"github.com/cbegin/beatgrid-go/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", defaultConfigPath(), "path to the YAML config (created when missing)")
		kitID      = flag.String("kit", "", "kit id (default from config)")
		presetID   = flag.String("preset", "", "preset id to load")
		backend    = flag.String("backend", "", "audio backend: ebiten|oto|null")
		logPath    = flag.String("log", "", "write logs to this file (the terminal is taken by the grid)")
	)
	flag.Parse()

	cfg, err := config.Read(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level := new(slog.LevelVar)
	if l, err := logging.ParseLevel(cfg.LogLevel); err == nil {
		level.Set(l)
	}
	log := logging.Discard()
	if *logPath != "" {
		f, err := tea.LogToFile(*logPath, "beatgrid")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		log = logging.New(f, level)
	}
	if *backend != "" {
		cfg.Backend = audio.Kind(*backend)
	}
	if *kitID != "" {
		cfg.DefaultKit = *kitID
	}

	cat, err := catalog.Default()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.CatalogDir != "" {
		extra, err := catalog.LoadDir(cfg.CatalogDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cat.Merge(extra)
	}

	m, err := beatgrid.New(beatgrid.WithConfig(*cfg), beatgrid.WithCatalog(cat), beatgrid.WithLogger(log))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer m.Close()
	if *presetID != "" {
		if err := m.LoadPreset(*presetID); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if err := m.Initialize(); err != nil {
		log.Warn("running without audio", "op", "initialize", "err", err)
	}

	p := tea.NewProgram(newModel(m), tea.WithAltScreen(), tea.WithReportFocus())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "beatgrid.yaml"
	}
	return filepath.Join(dir, "beatgrid", "config.yaml")
}
