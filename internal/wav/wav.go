// Package wav frames PCM16 captures as RIFF/WAVE files and reads them back for
// display. It deliberately handles only uncompressed 16-bit PCM.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// HeaderSize is the size of the canonical PCM header Encode writes.
const HeaderSize = 44

const (
	pcmFormat = 1
	bitDepth  = 16
)

var (
	// ErrNotWAV is returned for data without a RIFF/WAVE signature.
	ErrNotWAV = errors.New("not a WAV file")
	// ErrUnsupported is returned for WAV data that is not 16-bit PCM.
	ErrUnsupported = errors.New("unsupported WAV encoding")
)

// Format describes a PCM stream.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Info is what Parse learns about a WAV file.
type Info struct {
	Format
	DataSize int
}

// Duration returns the playing time in seconds.
func (i Info) Duration() float64 {
	frame := i.Channels * i.BitsPerSample / 8
	if frame == 0 || i.SampleRate == 0 {
		return 0
	}
	return float64(i.DataSize/frame) / float64(i.SampleRate)
}

// Encode frames little-endian 16-bit samples as a WAV file. A trailing odd
// byte is dropped.
func Encode(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if channels < 1 {
		channels = 1
	}
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}

	out := &memFile{}
	enc := gowav.NewEncoder(out, sampleRate, bitDepth, channels, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish wav: %w", err)
	}
	return out.buf, nil
}

// IsWAV reports whether data starts with a RIFF/WAVE signature.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// Parse reads the format and locates the data chunk. A data size larger than
// the file, as left by recorders killed mid-write, is clamped to what is there.
func Parse(data []byte) (Info, error) {
	info, _, err := open(data)
	return info, err
}

func open(data []byte) (Info, *gowav.Decoder, error) {
	if !IsWAV(data) {
		return Info{}, nil, ErrNotWAV
	}
	r := bytes.NewReader(data)
	dec := gowav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return Info{}, nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}

	info := Info{Format: Format{
		SampleRate:    int(dec.SampleRate),
		Channels:      int(dec.NumChans),
		BitsPerSample: int(dec.BitDepth),
	}}
	if dec.WavAudioFormat != pcmFormat || dec.BitDepth != bitDepth {
		return info, nil, fmt.Errorf("%w: format %d, %d bits", ErrUnsupported, dec.WavAudioFormat, dec.BitDepth)
	}
	if err := dec.FwdToPCM(); err != nil {
		return Info{}, nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	info.DataSize = dec.PCMSize
	if avail := r.Len(); info.DataSize < 0 || info.DataSize > avail {
		info.DataSize = avail
	}
	return info, dec, nil
}

// Samples decodes the data chunk to floats in [-1, 1], interleaved by channel.
func Samples(data []byte) ([]float64, Info, error) {
	info, dec, err := open(data)
	if err != nil {
		return nil, info, err
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, info, fmt.Errorf("failed to decode wav: %w", err)
	}
	n := len(buf.Data)
	if limit := info.DataSize / 2; n > limit {
		n = limit
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(buf.Data[i]) / 32768.0
	}
	return out, info, nil
}

// memFile is the in-memory io.WriteSeeker the encoder patches sizes into.
type memFile struct {
	buf []byte
	pos int
}

func (f *memFile) Write(p []byte) (int, error) {
	if end := f.pos + len(p); end > len(f.buf) {
		f.buf = append(f.buf, make([]byte, end-len(f.buf))...)
	}
	n := copy(f.buf[f.pos:], p)
	f.pos += n
	return n, nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(f.pos) + offset
	case io.SeekEnd:
		abs = int64(len(f.buf)) + offset
	default:
		return 0, errors.New("wav: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("wav: negative position")
	}
	f.pos = int(abs)
	return abs, nil
}

// Envelope reduces samples to the peak absolute amplitude of each of n equal
// buckets. It is meant for drawing, not analysis.
func Envelope(samples []float64, n int) []float64 {
	if n <= 0 || len(samples) == 0 {
		return nil
	}
	if n > len(samples) {
		n = len(samples)
	}
	out := make([]float64, n)
	for b := 0; b < n; b++ {
		start := b * len(samples) / n
		end := (b + 1) * len(samples) / n
		peak := 0.0
		for _, s := range samples[start:end] {
			peak = math.Max(peak, math.Abs(s))
		}
		out[b] = peak
	}
	return out
}
