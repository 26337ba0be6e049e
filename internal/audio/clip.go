package audio

import (
	"math"
	"time"
)

// BlockSize is the number of samples the device delivers per callback.
const BlockSize = 1024

// Frame is one block of mono samples captured from the input device.
type Frame []float32

// Clip is a contiguous mono recording.
type Clip struct {
	Samples    []float32
	SampleRate int
	// Blocks is the number of device frames that were concatenated
	// before trimming to the requested length.
	Blocks int
}

func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// RMS returns the root mean square level of the clip.
func (c Clip) RMS() float64 {
	return frameRMS(c.Samples)
}

// SampleCount is the number of samples in d at sampleRate, rounded to nearest.
func SampleCount(d time.Duration, sampleRate int) int {
	n := int64(sampleRate) * int64(d)
	return int((n + int64(time.Second)/2) / int64(time.Second))
}

// BlockCount is ceil(sampleRate*d/BlockSize), computed in integer nanoseconds.
func BlockCount(d time.Duration, sampleRate int) int {
	n := int64(sampleRate) * int64(d)
	den := int64(time.Second) * BlockSize
	return int((n + den - 1) / den)
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
