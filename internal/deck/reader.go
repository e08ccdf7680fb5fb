package deck

import (
	"errors"
	"io"
	"sync"

	"github.com/llehouerou/deckcast/internal/pcm"
	"github.com/llehouerou/deckcast/internal/ringbuf"
	"github.com/llehouerou/deckcast/internal/source"
)

// reader decodes the deck's source into its ring buffer. It lives as long
// as the deck and is re-armed by setSource on every load.
type reader struct {
	deck *Deck

	mu        sync.Mutex
	cond      *sync.Cond
	src       source.Source
	rb        *ringbuf.RingBuffer
	format    pcm.Format
	bpt       int
	counter   int
	remaining int
	duration  int
	exhausted bool
	closed    bool
	errs      int

	cued        bool
	runningPeak float64
	armed       bool
	arms        int
	lifts       int
}

func newReader(d *Deck) *reader {
	r := &reader{deck: d}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *reader) run() {
	defer r.deck.wg.Done()
	buf := make([]byte, chunkSize)
	for {
		r.mu.Lock()
		for !r.closed && (r.src == nil || r.exhausted) {
			r.cond.Wait()
		}
		if r.closed {
			if r.src != nil {
				_ = r.src.Close()
				r.src = nil
			}
			r.mu.Unlock()
			return
		}
		r.step(buf)
		r.mu.Unlock()
	}
}

// setSource arms the reader for a freshly loaded track.
func (r *reader) setSource(src source.Source, rb *ringbuf.RingBuffer, duration int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		_ = src.Close()
		return
	}
	r.src = src
	r.rb = rb
	r.format = src.Format()
	r.bpt = r.format.BytesPerTenth()
	r.counter = 0
	r.duration = duration
	r.remaining = duration
	r.exhausted = false
	r.errs = 0
	r.cued = false
	r.runningPeak = 0
	r.armed = false
	r.arms, r.lifts = 0, 0
	r.cond.Signal()
}

// detach disarms the reader and hands back its source for closing. The
// ring buffer must be closed first so a blocked write returns.
func (r *reader) detach() source.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.src
	r.src = nil
	r.rb = nil
	return src
}

func (r *reader) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cond.Broadcast()
}

func (r *reader) step(buf []byte) {
	n, err := r.src.Read(buf)
	if n > 0 {
		r.errs = 0
		r.handle(buf[:n])
	}
	if err == nil {
		return
	}
	if errors.Is(err, io.EOF) || errors.Is(err, source.ErrClosed) {
		r.finish()
		return
	}
	r.errs++
	r.deck.logger.Warn("source read failed", "error", err, "consecutive", r.errs)
	if r.errs >= maxReadErrors {
		r.finish()
	}
}

func (r *reader) handle(chunk []byte) {
	r.counter += len(chunk)
	for r.bpt > 0 && r.counter >= r.bpt {
		r.counter -= r.bpt
		if r.remaining > 0 {
			r.remaining--
		}
	}

	peak := pcm.Peak(chunk, len(chunk), r.format)
	if !r.cued {
		if peak <= cueThreshold {
			return
		}
		r.cued = true
		r.deck.notifyReady(r.duration)
	}

	tracking := r.deck.pool.AutoAdvance()
	if tracking && peak > r.runningPeak {
		r.runningPeak = peak
	}

	if _, err := r.rb.Write(chunk); err != nil {
		if errors.Is(err, ringbuf.ErrClosed) {
			// Torn down by a load or close; wait to be re-armed.
			r.exhausted = true
			return
		}
		r.deck.logger.Warn("ring buffer write failed", "error", err)
		return
	}

	if tracking {
		r.trackSilence(peak)
	}
}

// trackSilence arms the marker while the chunk sits under markerRatio of
// the running peak inside the last markerWindow tenths, and lifts it when
// the signal comes back.
func (r *reader) trackSilence(peak float64) {
	if trailing(r.remaining, r.duration, peak, r.runningPeak) {
		if !r.armed {
			r.rb.DropMarker()
			r.armed = true
			r.arms++
			r.deck.logger.Debug("auto-advance marker armed",
				"remaining", r.remaining,
				"offset", r.rb.Written(),
			)
		}
		return
	}
	if r.armed {
		r.rb.LiftMarker()
		r.armed = false
		r.lifts++
		r.deck.logger.Debug("auto-advance marker lifted", "remaining", r.remaining)
	}
}

// trailing reports whether a chunk counts as trailing silence. A track of
// unknown duration has no end window, so it never does.
func trailing(remaining, duration int, peak, runningPeak float64) bool {
	return duration > 0 && remaining < markerWindow && peak < markerRatio*runningPeak
}

func (r *reader) finish() {
	r.exhausted = true
	r.rb.CloseWriter()
	r.deck.logger.Debug("source exhausted", "bytes", r.rb.Written(), "cued", r.cued)
	r.deck.notifyEOF(r.cued)
}
