package wav

import (
	"errors"
	"math"
	"testing"
)

func TestEncodeFloat32Header(t *testing.T) {
	b := EncodeFloat32([]float32{0, 0.5, -0.5, 1}, 48000, 2)
	if len(b) != 44+16 {
		t.Fatalf("size: got=%d want=60", len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" || string(b[36:40]) != "data" {
		t.Fatalf("bad header")
	}
	if b[20] != formatFloat {
		t.Fatalf("format tag: got=%d", b[20])
	}
}

func TestRoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.25, 0.999, -1, 0.5}
	cases := []struct {
		name string
		enc  func([]float32, int, int) []byte
		tol  float64
	}{
		{name: "float32", enc: EncodeFloat32, tol: 0},
		{name: "pcm16", enc: EncodePCM16, tol: 1.0 / 16384},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Decode(tc.enc(in, 44100, 2))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if a.SampleRate != 44100 || a.Channels != 2 || a.Frames() != 3 {
				t.Fatalf("meta: %+v", a)
			}
			for i := range in {
				if d := math.Abs(float64(a.Data[i] - in[i])); d > tc.tol {
					t.Fatalf("sample %d: got=%v want=%v", i, a.Data[i], in[i])
				}
			}
		})
	}
}

func TestPCM16Clips(t *testing.T) {
	a, err := Decode(EncodePCM16([]float32{2, -3}, 8000, 1))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Data[0] != 1 || a.Data[1] < -1.0001 || a.Data[1] > -0.9999 {
		t.Fatalf("clip: %v", a.Data)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, b := range [][]byte{nil, []byte("RIFF0000WAVX"), []byte("RIFF\x04\x00\x00\x00WAVE")} {
		if _, err := Decode(b); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected ErrInvalid for %q, got %v", b, err)
		}
	}
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	src := EncodeFloat32([]float32{0.1, 0.2}, 48000, 1)
	list := []byte("LIST\x03\x00\x00\x00abc\x00")
	b := append(append(append([]byte{}, src[:36]...), list...), src[36:]...)
	a, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(a.Data) != 2 || a.Data[1] != 0.2 {
		t.Fatalf("data: %v", a.Data)
	}
}
