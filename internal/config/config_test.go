package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/cbegin/beatgrid-go/internal/audio"
	"github.com/cbegin/beatgrid-go/internal/recorder"
)

func TestReadWritesDefaultsWhenMissing(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "beatgrid.yaml")
	c, err := Read(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	if !reflect.DeepEqual(*c, Default()) {
		t.Fatalf("defaults did not round-trip:\n got=%+v\nwant=%+v", *c, Default())
	}
	raw, _ := os.ReadFile(p)
	if !strings.Contains(string(raw), "bufferSize: 50ms") {
		t.Fatalf("durations should be written as strings:\n%s", raw)
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	c, err := Parse([]byte(`
sampleRate: 44100
backend: "null"
pool: {maxSize: 4}
recorder: {format: wav-pcm16}
masterEffects:
  - {type: delay, params: [300, 0.3]}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.SampleRate != 44100 || c.Backend != audio.KindNull {
		t.Fatalf("values not applied: %+v", c)
	}
	if c.Pool.MaxSize != 4 || c.Pool.IdleTTL != 5*time.Minute {
		t.Fatalf("pool: %+v", c.Pool)
	}
	if c.Recorder.Format != recorder.FormatWAVPCM16 || c.Recorder.MaxDuration != 10*time.Minute {
		t.Fatalf("recorder: %+v", c.Recorder)
	}
	if len(c.MasterEffects) != 1 || c.MasterEffects[0].Type != "delay" {
		t.Fatalf("master effects: %+v", c.MasterEffects)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []string{
		"sampleRate: 10",
		"backend: alsa",
		"logLevel: loud",
		"recorder: {format: mp3}",
		"masterEffects: [{type: flanger}]",
		"bufferSize: soon",
	}
	for _, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "beatgrid.yaml")
	if _, err := Read(p); err != nil {
		t.Fatalf("read: %v", err)
	}
	configs := make(chan *Config, 4)
	errs := make(chan error, 4)
	done := make(chan struct{})
	defer close(done)
	if err := Watch(p, configs, errs, done); err != nil {
		t.Fatalf("watch: %v", err)
	}
	c := Default()
	c.MasterVolumeDB = -3
	if err := Write(p, c); err != nil {
		t.Fatalf("write: %v", err)
	}
	timeout := time.After(5 * time.Second)
	for {
		select {
		case got := <-configs:
			if got.MasterVolumeDB == -3 {
				return
			}
		case err := <-errs:
			// a reload can observe a half-written file
			t.Logf("reload error: %v", err)
		case <-timeout:
			t.Fatalf("no reload observed")
		}
	}
}
