package beatgrid

import (
	"errors"
	"math"

	"github.com/cbegin/beatgrid-go/internal/effects"
	"github.com/cbegin/beatgrid-go/internal/engine"
	"github.com/cbegin/beatgrid-go/internal/kit"
	"github.com/cbegin/beatgrid-go/internal/logging"
	"github.com/cbegin/beatgrid-go/internal/pattern"
	"github.com/cbegin/beatgrid-go/internal/transport"
	"github.com/cbegin/beatgrid-go/internal/wav"
)

// RenderOptions shape an offline bounce. The zero value renders dry at unity
// master gain with no tail.
type RenderOptions struct {
	TrackEffects   map[string]engine.TrackEffects
	Muted          []string
	Soloed         []string
	MasterEffects  []effects.Spec
	MasterVolumeDB float64
	// TailSeconds of decay rendered after the last loop.
	TailSeconds float64
}

// loopCounter ends playback after a fixed number of passes.
type loopCounter struct {
	*engine.Engine
	remaining int
}

func (c *loopCounter) EndOfPattern() bool {
	c.remaining--
	return c.remaining > 0
}

// RenderPattern bounces loops passes of p played with k to interleaved
// stereo float32 at sampleRate.
func RenderPattern(k kit.Kit, p *pattern.Pattern, sampleRate, loops int, opts RenderOptions) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if loops <= 0 {
		return nil, errors.New("loops must be positive")
	}
	if p == nil {
		return nil, errors.New("nil pattern")
	}
	master, err := effects.NewChainFromSpecs(opts.MasterEffects, sampleRate)
	if err != nil {
		return nil, err
	}
	eng := engine.New(sampleRate, engine.Options{
		Logger:       logging.Discard(),
		MasterGainDB: opts.MasterVolumeDB,
		Master:       master,
	})
	defer eng.Dispose()
	if err := eng.LoadKit(k); err != nil {
		return nil, err
	}
	eng.SetPattern(p.Clone())
	for id, fx := range opts.TrackEffects {
		eng.ReplaceTrackEffects(id, fx)
	}
	for _, id := range opts.Muted {
		eng.SetMute(id, true)
	}
	for _, id := range opts.Soloed {
		eng.SetSolo(id, true)
	}
	eng.SetReady(true)

	tr := transport.New(&loopCounter{Engine: eng, remaining: loops}, sampleRate)
	stepFrames := transport.StepFrames(sampleRate, p.BPM())
	frames := int(math.Ceil(float64(loops*p.Length())*stepFrames)) + int(opts.TailSeconds*float64(sampleRate))
	out := make([]float32, frames*2)
	tr.Play()
	const block = 1024
	for i := 0; i < len(out); i += block * 2 {
		end := min(i+block*2, len(out))
		tr.Process(out[i:end])
		eng.ApplyMaster(out[i:end])
	}
	return out, nil
}

// Bounce renders the live kit, pattern, track effects and master settings
// offline. The running transport is not touched.
func (m *Machine) Bounce(loops int, tailSeconds float64) ([]float32, error) {
	m.mu.Lock()
	k := m.engine.Kit()
	p := m.engine.Pattern().Clone()
	opts := RenderOptions{
		TrackEffects:   map[string]engine.TrackEffects{},
		MasterEffects:  m.cfg.masterEffects,
		MasterVolumeDB: m.engine.MasterVolumeDB(),
		TailSeconds:    tailSeconds,
	}
	for _, id := range m.engine.VoiceIDs() {
		if fx, ok := m.engine.TrackEffects(id); ok {
			opts.TrackEffects[id] = fx
		}
		if m.engine.Muted(id) {
			opts.Muted = append(opts.Muted, id)
		}
		if m.engine.Soloed(id) {
			opts.Soloed = append(opts.Soloed, id)
		}
	}
	m.mu.Unlock()
	return RenderPattern(k, p, m.sampleRate, loops, opts)
}

// EncodeWAV wraps interleaved stereo samples in a float32 WAV file.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	return wav.EncodeFloat32(samples, sampleRate, 2)
}
