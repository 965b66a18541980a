package effects

import (
	"math"
	"testing"
)

func TestDelayProducesOutput(t *testing.T) {
	d := NewDelay(44100, 100, 0.5, 0, 0.5)
	d.Process(1.0, 1.0)
	for i := 0; i < d.Frames()-1; i++ {
		d.Process(0, 0)
	}
	l, r := d.Process(0, 0)
	if math.Abs(float64(l)) < 0.01 || math.Abs(float64(r)) < 0.01 {
		t.Errorf("expected delayed output, got l=%f r=%f", l, r)
	}
}

func TestReverbProducesTail(t *testing.T) {
	r := NewReverb(44100, 0.5, 0.7, 0.5)
	r.Process(1.0, 1.0)
	var maxOut float32
	for i := 0; i < 10000; i++ {
		l, _ := r.Process(0, 0)
		if l > maxOut {
			maxOut = l
		}
	}
	if maxOut < 0.001 {
		t.Error("expected reverb tail")
	}
}

func TestCompressorReducesLoud(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	var out float32
	for i := 0; i < 1000; i++ {
		out, _ = c.Process(1.0, 1.0)
	}
	if out >= 1.0 {
		t.Errorf("compressor should reduce loud signals, got %f", out)
	}
}

func TestCompressorLiveRatioChange(t *testing.T) {
	c := NewCompressor(44100, -20, 1, 1, 50, 0)
	var before float32
	for i := 0; i < 1000; i++ {
		before, _ = c.Process(0.9, 0.9)
	}
	if math.Abs(float64(before)-0.9) > 1e-4 {
		t.Fatalf("ratio 1 should be transparent, got %f", before)
	}
	c.SetRatio(10)
	after, _ := c.Process(0.9, 0.9)
	if after >= before {
		t.Fatalf("expected reduction after ratio change, before=%f after=%f", before, after)
	}
	c.SetRatio(0.2)
	if c.Ratio() != 1 {
		t.Fatalf("ratio below 1 should clamp to 1, got %f", c.Ratio())
	}
}

func TestFilterLowpassAttenuatesHighs(t *testing.T) {
	f := NewFilter(48000, Lowpass, 200, 0.707)
	var peak float64
	for i := 0; i < 4800; i++ {
		x := float32(math.Sin(2 * math.Pi * 10000 * float64(i) / 48000))
		l, _ := f.Process(x, x)
		if i > 1000 {
			peak = math.Max(peak, math.Abs(float64(l)))
		}
	}
	if peak > 0.05 {
		t.Fatalf("10kHz through 200Hz lowpass peak = %f", peak)
	}
}

func TestFilterBandpassPassesCentre(t *testing.T) {
	f := NewFilter(48000, Bandpass, 1000, 1)
	var peak float64
	for i := 0; i < 9600; i++ {
		x := float32(math.Sin(2 * math.Pi * 1000 * float64(i) / 48000))
		l, _ := f.Process(x, x)
		if i > 4800 {
			peak = math.Max(peak, math.Abs(float64(l)))
		}
	}
	if peak < 0.8 {
		t.Fatalf("centre frequency should pass near unity, peak = %f", peak)
	}
}

func TestFilterClampsParameters(t *testing.T) {
	f := NewFilter(48000, Lowpass, 1e6, 0)
	if f.Frequency() >= 24000 {
		t.Fatalf("frequency not clamped below nyquist: %f", f.Frequency())
	}
	if f.Q() <= 0 {
		t.Fatalf("q should stay positive, got %f", f.Q())
	}
	l, r := f.Process(1, 1)
	if math.IsNaN(float64(l)) || math.IsNaN(float64(r)) {
		t.Fatal("filter produced NaN")
	}
}

func TestPannerEqualPower(t *testing.T) {
	cases := []struct {
		pan          float64
		wantL, wantR float64
	}{
		{0, 1, 1},
		{-1, math.Sqrt2, 0},
		{1, 0, math.Sqrt2},
		{5, 0, math.Sqrt2},
	}
	for _, tc := range cases {
		p := NewPanner(tc.pan)
		l, r := p.Process(1, 1)
		if math.Abs(float64(l)-tc.wantL) > 1e-5 || math.Abs(float64(r)-tc.wantR) > 1e-5 {
			t.Errorf("pan %v: got (%f,%f), want (%f,%f)", tc.pan, l, r, tc.wantL, tc.wantR)
		}
	}
}

func TestGainDecibels(t *testing.T) {
	g := NewGain(-6)
	l, _ := g.Process(1, 1)
	if math.Abs(float64(l)-0.501187) > 1e-4 {
		t.Fatalf("-6dB gain = %f", l)
	}
	g.SetDB(0)
	if g.Linear() != 1 {
		t.Fatalf("0dB should be unity, got %f", g.Linear())
	}
}

func TestChainFromSpecs(t *testing.T) {
	c, err := NewChainFromSpecs([]Spec{{Type: "delay", Params: []float64{10}}, {Type: "Reverb"}}, 44100)
	if err != nil {
		t.Fatalf("build chain: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("chain len = %d, want 2", c.Len())
	}
	if _, err := NewChainFromSpecs([]Spec{{Type: "flanger"}}, 44100); err == nil {
		t.Fatal("expected error for unknown insert")
	}
}
