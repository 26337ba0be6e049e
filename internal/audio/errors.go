package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteClip is returned when capture stops before every block arrived.
	ErrIncompleteClip = errors.New("capture ended before clip was complete")
	ErrInvalidRequest = errors.New("invalid capture request")
)

// DeviceError reports a failure to open, start or close the input stream.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
