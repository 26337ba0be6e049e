// Package device binds the capture buffer to the default PortAudio input.
package device

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"scing/internal/audio"
)

type PortAudio struct{}

func NewPortAudio() *PortAudio { return &PortAudio{} }

func (p *PortAudio) Init() error {
	return portaudio.Initialize()
}

func (p *PortAudio) Close() {
	portaudio.Terminate()
}

// OpenInput opens the default input device as a mono callback stream.
func (p *PortAudio) OpenInput(sampleRate float64, blockSize int, cb audio.InputCallback) (audio.InputStream, error) {
	stream, err := portaudio.OpenDefaultStream(
		1, // in
		0, // no out
		sampleRate,
		blockSize,
		func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
			cb(in, convertFlags(flags))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("open default stream: %w", err)
	}
	return stream, nil
}

func convertFlags(f portaudio.StreamCallbackFlags) audio.StreamStatus {
	var st audio.StreamStatus
	if f&portaudio.InputUnderflow != 0 {
		st |= audio.StatusInputUnderflow
	}
	if f&portaudio.InputOverflow != 0 {
		st |= audio.StatusInputOverflow
	}
	return st
}
