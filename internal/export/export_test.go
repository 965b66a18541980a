package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/beatgrid-go/internal/kit"
	"github.com/cbegin/beatgrid-go/internal/pattern"
)

func testKit() kit.Kit {
	return kit.Kit{ID: "tr808", Name: "TR-808", Voices: []kit.Voice{
		{ID: "kick", Synth: kit.DefaultMembrane()},
		{ID: "hat", MIDINote: 42, Synth: kit.DefaultMetallic()},
	}}
}

func TestArtifactJSONShape(t *testing.T) {
	k := testKit()
	p := pattern.New(k.VoiceIDs(), 16)
	p.Toggle("kick", 0)
	var buf bytes.Buffer
	if err := NewArtifact(k, p).WriteJSON(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"bpm", "pattern", "stepLength", "kitId"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing key %q in %s", key, buf.String())
		}
	}
	if raw["kitId"] != "tr808" || raw["stepLength"].(float64) != 16 {
		t.Fatalf("unexpected artifact: %s", buf.String())
	}
}

func TestMIDIHasOneNoteOnPerActiveCell(t *testing.T) {
	k := testKit()
	p := pattern.New(k.VoiceIDs(), 16)
	p.SetBPM(100)
	p.SetSwing(50)
	for _, s := range []int{0, 4, 8, 12} {
		p.Toggle("kick", s)
	}
	for s := 0; s < 16; s += 2 {
		p.Toggle("hat", s+1)
	}
	var buf bytes.Buffer
	if err := WriteMIDI(&buf, k, p); err != nil {
		t.Fatalf("write midi: %v", err)
	}
	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(s.Tracks) != 1 {
		t.Fatalf("tracks: got=%d want=1", len(s.Tracks))
	}
	ons := map[uint8]int{}
	var firstHat uint32
	var abs uint32
	for _, ev := range s.Tracks[0] {
		abs += ev.Delta
		var ch, key, vel uint8
		if midi.Message(ev.Message).GetNoteOn(&ch, &key, &vel) && vel > 0 {
			if ch != drumChannel {
				t.Fatalf("note on channel %d", ch)
			}
			ons[key]++
			if key == 42 && firstHat == 0 {
				firstHat = abs
			}
		}
	}
	if ons[36] != 4 || ons[42] != 8 {
		t.Fatalf("note counts: %v", ons)
	}
	if firstHat != ticksPerStep+ticksPerStep/2 {
		t.Fatalf("swung hat at tick %d, want %d", firstHat, ticksPerStep+ticksPerStep/2)
	}
	if tc := s.TempoChanges(); len(tc) == 0 || tc[0].BPM != 100 {
		t.Fatalf("tempo: %+v", tc)
	}
}

func TestFileNameTemplate(t *testing.T) {
	name, err := FileName(`{{ .KitID | upper }}-{{ .BPM }}bpm/{{ .Length }}`, NameData{KitID: "tr808", BPM: 120, Length: 16}, FormatMIDI)
	if err != nil {
		t.Fatalf("name: %v", err)
	}
	if name != "TR808-120bpm_16.mid" {
		t.Fatalf("name: got=%q", name)
	}
	if _, err := FileName("{{ .Nope", NameData{}, FormatJSON); err == nil {
		t.Fatalf("expected template error")
	}
	if _, err := ParseFormat("wav"); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteFile(dir, "a.json", func(f *os.File) error {
		_, err := f.WriteString("{}")
		return err
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(path, dir) || string(data) != "{}" {
		t.Fatalf("path=%s data=%q", path, data)
	}
}
