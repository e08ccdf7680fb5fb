// Package pcm describes raw signed little-endian PCM streams and measures them.
package pcm

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat is returned by Validate for formats the pipeline cannot carry.
var ErrInvalidFormat = errors.New("invalid pcm format")

// Format describes an interleaved signed little-endian PCM stream.
type Format struct {
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// CD is 44.1kHz 16-bit stereo.
var CD = Format{SampleRate: 44100, BitsPerSample: 16, Channels: 2}

// Validate reports whether f can be buffered and analyzed.
func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.Channels < 1 {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, f)
	}
	switch f.BitsPerSample {
	case 8, 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidFormat, f)
	}
}

// SampleSize is the number of bytes of one sample of one channel.
func (f Format) SampleSize() int {
	return f.BitsPerSample / 8
}

// FrameSize is the number of bytes of one sample across all channels.
func (f Format) FrameSize() int {
	return f.SampleSize() * f.Channels
}

// BytesPerSecond is the byte rate of the stream.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// BytesPerTenth is the number of bytes played in one tenth of a second.
func (f Format) BytesPerTenth() int {
	return f.BytesPerSecond() / 10
}

// BufferSize returns the capacity needed to hold the given number of seconds.
func (f Format) BufferSize(seconds int) int {
	return f.BytesPerSecond() * seconds
}

// Tenths converts a byte count into whole tenths of a second.
func (f Format) Tenths(n int64) int {
	bpt := f.BytesPerTenth()
	if bpt <= 0 {
		return 0
	}
	return int(n / int64(bpt))
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dbit/%dch", f.SampleRate, f.BitsPerSample, f.Channels)
}
