package deck

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/llehouerou/deckcast/internal/event"
	"github.com/llehouerou/deckcast/internal/output"
	"github.com/llehouerou/deckcast/internal/pcm"
	"github.com/llehouerou/deckcast/internal/ringbuf"
)

// writer drains the deck's ring buffer into its sink while the deck is
// playing. It lives as long as the deck and is re-armed by setLine.
type writer struct {
	deck *Deck

	// eof is set by the reader without taking mu.
	eof atomic.Bool

	mu            sync.Mutex
	sink          output.Sink
	rb            *ringbuf.RingBuffer
	bpt           int
	counter       int
	started       bool
	tripped       bool
	trippedAt     int64
	loadScheduled bool
	ack           <-chan struct{}
}

func newWriter(d *Deck) *writer {
	return &writer{deck: d}
}

func (w *writer) run() {
	defer w.deck.wg.Done()
	buf := make([]byte, chunkSize)
	for {
		playing, closing := w.deck.playState()
		if closing {
			return
		}
		if !playing {
			w.idle()
			if !w.deck.awaitPlay() {
				return
			}
			continue
		}
		w.step(buf)
	}
}

// setLine arms the writer for a freshly loaded track.
func (w *writer) setLine(sink output.Sink, rb *ringbuf.RingBuffer, f pcm.Format) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sink = sink
	w.rb = rb
	w.bpt = f.BytesPerTenth()
	w.counter = 0
	w.started = false
	w.tripped = false
	w.trippedAt = 0
	w.loadScheduled = false
	w.ack = nil
	w.eof.Store(false)
}

// detach drops the current line. A sink still marked as started is
// reported as stopped since it is about to be closed.
func (w *writer) detach() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		w.started = false
		w.deck.bus.Playback(event.PlaybackChange{Deck: w.deck.num, Playing: false})
	}
	w.sink = nil
	w.rb = nil
}

func (w *writer) markEOF() {
	w.eof.Store(true)
}

func (w *writer) step(buf []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.deck

	if w.sink == nil || w.rb == nil {
		d.halt()
		return
	}
	if !w.started {
		if err := w.sink.Start(); err != nil {
			d.playbackError(err)
			d.halt()
			return
		}
		w.started = true
		d.bus.Playback(event.PlaybackChange{Deck: d.num, Playing: true})
	}
	if w.eof.Load() && w.rb.Buffered() == 0 {
		d.notifyPoof()
		return
	}

	n, err := w.rb.Read(buf)
	if n > 0 {
		w.forward(buf[:n])
	}
	if err == nil {
		return
	}
	if errors.Is(err, io.EOF) {
		d.notifyPoof()
		return
	}
	d.logger.Debug("ring buffer closed under writer", "error", err)
	d.halt()
}

func (w *writer) forward(p []byte) {
	d := w.deck
	written, err := w.sink.Write(p)
	if err != nil {
		d.playbackError(err)
		if errors.Is(err, output.ErrClosed) {
			d.halt()
			return
		}
	}
	w.counter += written
	for w.bpt > 0 && w.counter >= w.bpt {
		w.counter -= w.bpt
		d.tick()
	}
	if d.pool.AutoAdvance() && !w.tripped && w.rb.HasPassedMarker() {
		w.trip()
	}
}

// trip hands over to the next deck. It runs at most once per load.
func (w *writer) trip() {
	w.tripped = true
	w.trippedAt = w.rb.Consumed()
	w.deck.logger.Info("auto-advance triggered", "offset", w.trippedAt)
	w.ack = w.deck.pool.handover(w.deck)
}

// idle stops a started sink and, with auto-advance enabled, makes sure the
// handover happened and the next track gets loaded on this deck.
func (w *writer) idle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.deck
	if !w.started {
		return
	}
	w.started = false
	if w.sink != nil {
		if err := w.sink.Drain(); err != nil {
			d.logger.Debug("sink drain failed", "error", err)
		}
		if err := w.sink.Stop(); err != nil {
			d.logger.Debug("sink stop failed", "error", err)
		}
	}
	d.bus.Playback(event.PlaybackChange{Deck: d.num, Playing: false})

	if !d.pool.AutoAdvance() || w.rb == nil {
		return
	}
	if !w.tripped {
		w.trip()
	}
	if !w.loadScheduled {
		w.loadScheduled = true
		d.scheduleAutoLoad(w.ack)
	}
}
