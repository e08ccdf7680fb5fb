// Package output provides the audio sinks decks write PCM into.
package output

import (
	"errors"
	"time"

	"github.com/llehouerou/deckcast/internal/pcm"
)

var (
	// ErrUnavailable is returned when no sink can be opened for a format.
	ErrUnavailable = errors.New("audio sink unavailable")
	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("audio sink closed")
)

// Sink accepts PCM for one deck.
type Sink interface {
	// Write blocks until p has been accepted.
	Write(p []byte) (int, error)
	Start() error
	Stop() error
	// Drain waits until everything written has been handed to the device.
	Drain() error
	// SetGain sets the output gain in decibels, 0 being unity.
	SetGain(db float64)
	Format() pcm.Format
	Close() error
}

// Opener opens a sink for a deck.
type Opener interface {
	Open(deck int, f pcm.Format) (Sink, error)
}

// pacer slows writes down to the stream's real-time rate.
type pacer struct {
	bytesPerSecond int64
	start          time.Time
	written        int64
}

func newPacer(f pcm.Format) *pacer {
	return &pacer{bytesPerSecond: int64(f.BytesPerSecond())}
}

func (p *pacer) reset() {
	p.start = time.Time{}
	p.written = 0
}

func (p *pacer) wait(n int) {
	if p == nil || p.bytesPerSecond <= 0 {
		return
	}
	if p.start.IsZero() {
		p.start = time.Now()
	}
	p.written += int64(n)
	due := p.start.Add(time.Duration(p.written * int64(time.Second) / p.bytesPerSecond))
	if d := time.Until(due); d > 0 {
		time.Sleep(d)
	}
}
