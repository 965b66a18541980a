// Package wav encodes and decodes RIFF/WAVE audio as interleaved float32.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrInvalid = errors.New("wav: invalid data")

const (
	formatPCM   = 1
	formatFloat = 3
)

// Audio is decoded interleaved sample data.
type Audio struct {
	SampleRate int
	Channels   int
	Data       []float32
}

// Frames returns the number of sample frames.
func (a Audio) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.Data) / a.Channels
}

// EncodeFloat32 writes 32-bit IEEE float little-endian WAV.
func EncodeFloat32(samples []float32, sampleRate, channels int) []byte {
	out := header(len(samples), sampleRate, channels, formatFloat, 4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}

// EncodePCM16 writes 16-bit signed PCM WAV. Samples are clipped to [-1,1].
func EncodePCM16(samples []float32, sampleRate, channels int) []byte {
	out := header(len(samples), sampleRate, channels, formatPCM, 2)
	for i, s := range samples {
		v := int16(clip(s) * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(v))
	}
	return out
}

func header(n, sampleRate, channels, format, bytesPerSample int) []byte {
	dataSize := n * bytesPerSample
	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], uint16(format))
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*channels*bytesPerSample))
	binary.LittleEndian.PutUint16(out[32:], uint16(channels*bytesPerSample))
	binary.LittleEndian.PutUint16(out[34:], uint16(8*bytesPerSample))
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	return out
}

func clip(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// Decode reads 16-bit PCM or 32-bit float WAV. Unknown chunks are skipped.
func Decode(b []byte) (Audio, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return Audio{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalid)
	}
	var (
		a       Audio
		format  int
		bits    int
		haveFmt bool
		pos     = 12
	)
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4:]))
		body := pos + 8
		if size < 0 || body+size > len(b) {
			return Audio{}, fmt.Errorf("%w: chunk %q overruns file", ErrInvalid, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return Audio{}, fmt.Errorf("%w: short fmt chunk", ErrInvalid)
			}
			format = int(binary.LittleEndian.Uint16(b[body:]))
			a.Channels = int(binary.LittleEndian.Uint16(b[body+2:]))
			a.SampleRate = int(binary.LittleEndian.Uint32(b[body+4:]))
			bits = int(binary.LittleEndian.Uint16(b[body+14:]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return Audio{}, fmt.Errorf("%w: data before fmt", ErrInvalid)
			}
			data, err := decodeSamples(b[body:body+size], format, bits)
			if err != nil {
				return Audio{}, err
			}
			a.Data = data
			if a.Channels <= 0 || a.SampleRate <= 0 {
				return Audio{}, fmt.Errorf("%w: channels=%d rate=%d", ErrInvalid, a.Channels, a.SampleRate)
			}
			return a, nil
		}
		// chunks are word aligned
		pos = body + size + size%2
	}
	return Audio{}, fmt.Errorf("%w: no data chunk", ErrInvalid)
}

func decodeSamples(raw []byte, format, bits int) ([]float32, error) {
	switch {
	case format == formatFloat && bits == 32:
		out := make([]float32, len(raw)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return out, nil
	case format == formatPCM && bits == 16:
		out := make([]float32, len(raw)/2)
		for i := range out {
			out[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / math.MaxInt16
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %d/%d-bit", ErrInvalid, format, bits)
	}
}
