// Package audioconv decodes audio files into mono float32 PCM at a target rate.
package audioconv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"scing/pkg/audioconv/resample"
)

const DefaultSampleRate = 16000

type Options struct {
	SampleRate int // 0 = DefaultSampleRate
	MaxSamples int // 0 = no limit
}

// pcm is what every format decoder produces before normalization.
type pcm struct {
	samples  []float32 // interleaved
	rate     int
	channels int
}

type decoder struct {
	name   string
	decode func(io.ReadSeeker) (pcm, error)
}

var (
	wavDecoder    = decoder{"wav", decodeWAV}
	mp3Decoder    = decoder{"mp3", decodeMP3}
	vorbisDecoder = decoder{"ogg/vorbis", decodeVorbis}
	opusDecoder   = decoder{"ogg/opus", decodeOpus}

	byExt = map[string][]decoder{
		".wav":  {wavDecoder},
		".mp3":  {mp3Decoder},
		".ogg":  {vorbisDecoder, opusDecoder},
		".oga":  {vorbisDecoder, opusDecoder},
		".opus": {opusDecoder},
	}

	byMagic = map[string][]decoder{
		"RIFF":    {wavDecoder},
		"OggS":    {vorbisDecoder, opusDecoder},
		"ID3\x03": {mp3Decoder},
		"ID3\x04": {mp3Decoder},
	}
)

var ErrUnsupported = errors.New("unsupported audio format")

// DecodeFile reads a wav, mp3 or ogg (vorbis/opus) file as mono PCM.
func DecodeFile(_ context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f, filepath.Ext(path), opt)
}

// Decode picks decoders by extension, or by magic bytes when the extension
// is unknown, and returns the first one that succeeds.
func Decode(r io.ReadSeeker, ext string, opt Options) ([]float32, error) {
	candidates, ok := byExt[strings.ToLower(ext)]
	if !ok {
		magic, err := sniff(r)
		if err != nil {
			return nil, err
		}
		if candidates, ok = byMagic[magic]; !ok {
			return nil, fmt.Errorf("%w: %q (supported: wav, mp3, ogg vorbis/opus)", ErrUnsupported, ext)
		}
	}

	var errs []error
	for _, d := range candidates {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		p, err := d.decode(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
			continue
		}
		return normalize(p, opt), nil
	}

	return nil, fmt.Errorf("decode: %w", errors.Join(errs...))
}

func sniff(r io.ReadSeeker) (string, error) {
	magic, _ := bufio.NewReader(r).Peek(4)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return string(magic), nil
}

func normalize(p pcm, opt Options) []float32 {
	target := opt.SampleRate
	if target <= 0 {
		target = DefaultSampleRate
	}

	x := resample.Downmix(p.samples, p.channels)
	x = resample.Linear(x, p.rate, target)

	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}
