// Package audio converts between client WAV frames and the raw PCM the live API speaks.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// InputRate is what the live API expects inbound.
	InputRate = 16000
	// OutputRate is what the live and TTS APIs produce.
	OutputRate = 24000
	// InputMIME labels normalized inbound PCM.
	InputMIME = "audio/pcm;rate=16000"
)

var ErrInvalidWAV = errors.New("audio: invalid wav data")

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// NormalizeWAV decodes a WAV file and returns 16-bit signed little-endian mono PCM at InputRate.
func NormalizeWAV(data []byte) ([]byte, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, fmt.Errorf("%w: unsupported format %d", ErrInvalidWAV, dec.WavAudioFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, ErrInvalidWAV
	}
	mono := toMono16(buf)
	return pcmBytes(resample(mono, buf.Format.SampleRate, InputRate)), nil
}

// toMono16 averages channels and rescales every sample to the signed 16-bit range.
func toMono16(buf *goaudio.IntBuffer) []int16 {
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < ch; c++ {
			sum += to16(buf.Data[i*ch+c], buf.SourceBitDepth)
		}
		out[i] = int16(sum / ch)
	}
	return out
}

func to16(v, depth int) int {
	switch depth {
	case 8:
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	default:
		return v
	}
}

// resample converts by linear interpolation.
func resample(in []int16, from, to int) []int16 {
	if from == to || len(in) == 0 {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	out := make([]int16, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = int16(float64(in[j])*(1-frac) + float64(in[j+1])*frac)
	}
	return out
}

func pcmBytes(samples []int16) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

// EncodeWAV wraps 16-bit little-endian mono PCM in a WAV container.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	w := &writeSeeker{}
	enc := wav.NewEncoder(w, sampleRate, 16, 1, formatPCM)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return w.buf, nil
}
