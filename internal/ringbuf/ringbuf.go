// Package ringbuf provides the bounded byte queue shared by a deck's reader
// and writer goroutines.
package ringbuf

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"
)

var (
	// ErrClosed is returned by both ends once the buffer has been torn down.
	ErrClosed = errors.New("ring buffer closed")
	// ErrTooLarge is returned for a single write larger than the capacity.
	ErrTooLarge = errors.New("write exceeds ring buffer capacity")
)

const noMarker = -1

// RingBuffer is a blocking single-producer single-consumer byte queue with
// one optional marker on the write side.
type RingBuffer struct {
	rb       *ringbuffer.RingBuffer
	capacity int

	written atomic.Int64
	read    atomic.Int64

	markerMu sync.Mutex
	marker   int64
}

// New creates a blocking ring buffer of the given capacity in bytes.
func New(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring buffer capacity %d: %w", capacity, ErrTooLarge)
	}
	return &RingBuffer{
		rb:       ringbuffer.New(capacity).SetBlocking(true),
		capacity: capacity,
		marker:   noMarker,
	}, nil
}

// Write blocks until all of p has been queued or the buffer is closed.
func (r *RingBuffer) Write(p []byte) (int, error) {
	if len(p) > r.capacity {
		return 0, ErrTooLarge
	}
	n, err := r.rb.Write(p)
	r.written.Add(int64(n))
	if err != nil {
		return n, r.mapErr(err)
	}
	return n, nil
}

// Read blocks until at least one byte is available. After CloseWriter it
// drains what is left and then returns io.EOF.
func (r *RingBuffer) Read(p []byte) (int, error) {
	n, err := r.rb.Read(p)
	r.read.Add(int64(n))
	if err != nil {
		return n, r.mapErr(err)
	}
	return n, nil
}

func (r *RingBuffer) mapErr(err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return io.EOF
	case errors.Is(err, ErrClosed), errors.Is(err, ringbuffer.ErrWriteOnClosed):
		return ErrClosed
	default:
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
}

// DropMarker records the current write offset.
func (r *RingBuffer) DropMarker() {
	r.markerMu.Lock()
	r.marker = r.written.Load()
	r.markerMu.Unlock()
}

// LiftMarker clears the marker.
func (r *RingBuffer) LiftMarker() {
	r.markerMu.Lock()
	r.marker = noMarker
	r.markerMu.Unlock()
}

// MarkerSet reports whether a marker is currently dropped.
func (r *RingBuffer) MarkerSet() bool {
	r.markerMu.Lock()
	defer r.markerMu.Unlock()
	return r.marker != noMarker
}

// HasPassedMarker reports whether the reader has consumed every byte written
// before the marker was dropped.
func (r *RingBuffer) HasPassedMarker() bool {
	r.markerMu.Lock()
	defer r.markerMu.Unlock()
	return r.marker != noMarker && r.read.Load() >= r.marker
}

// Buffered is the number of unread bytes.
func (r *RingBuffer) Buffered() int {
	return r.rb.Length()
}

// Capacity is the fixed size of the buffer.
func (r *RingBuffer) Capacity() int {
	return r.capacity
}

// Written is the total number of bytes ever queued.
func (r *RingBuffer) Written() int64 {
	return r.written.Load()
}

// Consumed is the total number of bytes ever read.
func (r *RingBuffer) Consumed() int64 {
	return r.read.Load()
}

// CloseWriter marks the end of the stream. Pending bytes remain readable.
func (r *RingBuffer) CloseWriter() {
	r.rb.CloseWriter()
}

// Close tears the buffer down. Blocked readers and writers return ErrClosed.
func (r *RingBuffer) Close() {
	r.rb.CloseWithError(ErrClosed)
}
