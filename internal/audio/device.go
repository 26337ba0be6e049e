package audio

import "strings"

// StreamStatus carries the status flags a device reports with a block.
type StreamStatus uint32

const (
	StatusInputUnderflow StreamStatus = 1 << iota
	StatusInputOverflow
)

func (s StreamStatus) String() string {
	if s == 0 {
		return "ok"
	}
	var parts []string
	if s&StatusInputUnderflow != 0 {
		parts = append(parts, "input-underflow")
	}
	if s&StatusInputOverflow != 0 {
		parts = append(parts, "input-overflow")
	}
	if rest := s &^ (StatusInputUnderflow | StatusInputOverflow); rest != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}

// InputCallback receives each captured block. The slice is only valid for
// the duration of the call.
type InputCallback func(in []float32, status StreamStatus)

// InputDevice opens mono input streams that deliver blocks to a callback.
type InputDevice interface {
	OpenInput(sampleRate float64, blockSize int, cb InputCallback) (InputStream, error)
}

type InputStream interface {
	Start() error
	Stop() error
	Close() error
}
