package engine

import "github.com/cbegin/beatgrid-go/internal/effects"

const (
	MinFilterHz  = 100
	MaxFilterHz  = 20000
	MinFilterQ   = 0
	MaxFilterQ   = 20
	MinThreshold = -60
	MaxThreshold = 0
	MinRatio     = 1
	MaxRatio     = 20
	MinVolumeDB  = -40
	MaxVolumeDB  = 6
)

type FilterSettings struct {
	Enabled     bool
	Mode        effects.FilterMode
	FrequencyHz float64
	Q           float64
}

type CompressorSettings struct {
	Enabled     bool
	ThresholdDB float64
	Ratio       float64
}

// TrackEffects is the per-voice insert state.
type TrackEffects struct {
	Filter     FilterSettings
	Compressor CompressorSettings
	VolumeDB   float64
	Pan        float64
}

func DefaultTrackEffects() TrackEffects {
	return TrackEffects{
		Filter:     FilterSettings{Mode: effects.Lowpass, FrequencyHz: 8000, Q: 1},
		Compressor: CompressorSettings{ThresholdDB: -24, Ratio: 4},
	}
}

// TrackEffectsPatch is a partial update. Nil fields are left alone.
type TrackEffectsPatch struct {
	FilterEnabled   *bool
	FilterMode      *effects.FilterMode
	FilterFrequency *float64
	FilterQ         *float64

	CompressorEnabled   *bool
	CompressorThreshold *float64
	CompressorRatio     *float64

	VolumeDB *float64
	Pan      *float64
}

// Empty reports whether the patch changes nothing.
func (p TrackEffectsPatch) Empty() bool {
	return p == TrackEffectsPatch{}
}

// Merge returns fx with the patch applied and every value clamped.
func (fx TrackEffects) Merge(p TrackEffectsPatch) TrackEffects {
	if p.FilterEnabled != nil {
		fx.Filter.Enabled = *p.FilterEnabled
	}
	if p.FilterMode != nil {
		fx.Filter.Mode = *p.FilterMode
	}
	if p.FilterFrequency != nil {
		fx.Filter.FrequencyHz = clamp(*p.FilterFrequency, MinFilterHz, MaxFilterHz)
	}
	if p.FilterQ != nil {
		fx.Filter.Q = clamp(*p.FilterQ, MinFilterQ, MaxFilterQ)
	}
	if p.CompressorEnabled != nil {
		fx.Compressor.Enabled = *p.CompressorEnabled
	}
	if p.CompressorThreshold != nil {
		fx.Compressor.ThresholdDB = clamp(*p.CompressorThreshold, MinThreshold, MaxThreshold)
	}
	if p.CompressorRatio != nil {
		fx.Compressor.Ratio = clamp(*p.CompressorRatio, MinRatio, MaxRatio)
	}
	if p.VolumeDB != nil {
		fx.VolumeDB = clamp(*p.VolumeDB, MinVolumeDB, MaxVolumeDB)
	}
	if p.Pan != nil {
		fx.Pan = clamp(*p.Pan, -1, 1)
	}
	return fx
}

func clamp(v, lo, hi float64) float64 {
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
