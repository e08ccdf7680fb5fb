// Package deck implements the per-deck streaming pipeline: a reader
// goroutine decoding into a ring buffer and a writer goroutine draining it
// to an output sink, with cue trimming and auto-advance on trailing silence.
package deck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/llehouerou/deckcast/internal/event"
	"github.com/llehouerou/deckcast/internal/output"
	"github.com/llehouerou/deckcast/internal/pcm"
	"github.com/llehouerou/deckcast/internal/playlist"
	"github.com/llehouerou/deckcast/internal/radio"
	"github.com/llehouerou/deckcast/internal/ringbuf"
	"github.com/llehouerou/deckcast/internal/source"
)

const (
	chunkSize = 4096

	// cueThreshold is the peak a chunk must exceed to end the cue trim.
	cueThreshold = 0.01
	// markerWindow is how close to the end, in tenths, trailing silence
	// may arm the auto-advance marker.
	markerWindow = 170
	// markerRatio is the fraction of the running peak under which a chunk
	// counts as trailing silence.
	markerRatio = 0.12
	// maxReadErrors consecutive source errors end the track.
	maxReadErrors = 8
)

// Deck is one playback unit. All methods are safe for concurrent use.
type Deck struct {
	num           int
	pool          *Pool
	bus           *event.Bus
	sources       source.Opener
	sinks         output.Opener
	bufferSeconds int
	logger        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// loadMu serializes loads so teardown and re-arm never interleave.
	loadMu sync.Mutex

	mu         sync.Mutex
	cond       *sync.Cond
	track      playlist.Track
	format     pcm.Format
	sink       output.Sink
	rb         *ringbuf.RingBuffer
	gain       float64
	duration   int
	remaining  int
	playing    bool
	ready      bool
	cued       bool
	loading    bool
	poofed     bool
	snpWaiting bool
	closing    bool

	reader *reader
	writer *writer

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newDeck(p *Pool, num int, sources source.Opener, sinks output.Opener, bufferSeconds int) *Deck {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Deck{
		num:           num,
		pool:          p,
		bus:           p.bus,
		sources:       sources,
		sinks:         sinks,
		bufferSeconds: bufferSeconds,
		logger:        p.logger.With("deck", num),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	d.reader = newReader(d)
	d.writer = newWriter(d)

	d.wg.Add(2)
	go d.reader.run()
	go d.writer.run()
	return d
}

// Number is the 1-based deck number.
func (d *Deck) Number() int {
	return d.num
}

// State returns the current phase of the deck.
func (d *Deck) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.closing:
		return StateClosed
	case d.loading:
		return StateLoading
	case d.sink == nil:
		return StateEmpty
	case d.playing:
		return StatePlaying
	case d.poofed:
		return StatePoofed
	case d.ready:
		return StateReady
	case !d.cued:
		return StateCueing
	default:
		return StateStopped
	}
}

// IsPlaying reports whether the deck is on air.
func (d *Deck) IsPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// Track returns the loaded track, with its duration confirmed.
func (d *Deck) Track() playlist.Track {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.track
}

// Remaining returns the countdown and total duration in tenths.
func (d *Deck) Remaining() (remaining, duration int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remaining, d.duration
}

// Gain returns the volume in dB applied to the current and next sinks.
func (d *Deck) Gain() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gain
}

// Load replaces whatever the deck holds with t. It is rejected while the
// deck is playing. With auto-advance enabled a failing track is replaced by
// the next auto-advance candidate instead of being reported.
func (d *Deck) Load(ctx context.Context, t playlist.Track) error {
	err := d.load(ctx, t)
	if err == nil || errors.Is(err, ErrPlaying) || errors.Is(err, ErrInterrupted) {
		return err
	}
	return d.loadFailed(ctx, t, err)
}

// Cue reloads the current track from the start, trimming leading silence
// again.
func (d *Deck) Cue(ctx context.Context) error {
	d.mu.Lock()
	t := d.track
	d.mu.Unlock()
	if t.Location == "" {
		return ErrNoTrack
	}
	return d.Load(ctx, t)
}

// AutoLoad asks the auto-advance picker for the next track and loads it.
func (d *Deck) AutoLoad(ctx context.Context) error {
	picker := d.pool.picker
	if picker == nil {
		return d.reportLoadError(playlist.Track{}, radio.ErrNoEligibleTrack)
	}
	t, err := picker.Next(ctx)
	if err != nil {
		return d.reportLoadError(playlist.Track{}, err)
	}
	d.logger.Info("auto-loading track", "track", t.Name())
	return d.Load(ctx, t)
}

// Play puts the deck on air. It returns false without side effects when
// the deck is already playing or has nothing left to play.
func (d *Deck) Play() bool {
	d.mu.Lock()
	if d.playing || d.closing || d.loading || d.poofed || d.sink == nil {
		d.mu.Unlock()
		return false
	}
	d.playing = true
	d.ready = false
	d.snpWaiting = false
	t := d.track
	d.cond.Broadcast()
	d.mu.Unlock()

	d.logger.Info("play", "track", t.Name())
	d.pool.markPlayed(d, t)
	return true
}

// Stop takes the deck off air. The writer drains and stops the sink.
func (d *Deck) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.playing {
		return
	}
	d.playing = false
	d.cond.Broadcast()
}

// Toggle plays a stopped deck and stops a playing one.
func (d *Deck) Toggle() {
	if d.IsPlaying() {
		d.Stop()
		return
	}
	d.Play()
}

// SetVolume sets the gain in dB. Without a sink it is kept for the next
// load.
func (d *Deck) SetVolume(db float64) {
	d.mu.Lock()
	d.gain = db
	sink := d.sink
	d.mu.Unlock()
	if sink != nil {
		sink.SetGain(db)
	}
}

// Close stops both goroutines and releases the source, ring buffer and
// sink. The deck cannot be used afterwards.
func (d *Deck) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closing = true
		d.playing = false
		rb, sink := d.rb, d.sink
		d.cond.Broadcast()
		d.mu.Unlock()

		d.cancel()
		close(d.done)
		if rb != nil {
			rb.Close()
		}
		if sink != nil {
			_ = sink.Close()
		}
		d.reader.close()
		d.wg.Wait()
		d.logger.Debug("deck closed")
	})
	return nil
}

func (d *Deck) load(ctx context.Context, t playlist.Track) error {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return ErrInterrupted
	}
	if d.playing {
		d.mu.Unlock()
		return ErrPlaying
	}
	oldRB, oldSink := d.rb, d.sink
	d.rb, d.sink = nil, nil
	d.loading = true
	d.ready, d.cued, d.poofed = false, false, false
	d.track = t
	d.mu.Unlock()

	committed := false
	defer func() {
		if committed {
			return
		}
		d.mu.Lock()
		d.loading = false
		d.mu.Unlock()
	}()

	// Closing the old buffer first unblocks both goroutines so they can be
	// detached.
	if oldRB != nil {
		oldRB.Close()
	}
	if old := d.reader.detach(); old != nil {
		_ = old.Close()
	}
	d.writer.detach()
	if oldSink != nil {
		_ = oldSink.Close()
	}

	src, err := d.sources.Open(ctx, t.Location)
	if err != nil {
		return err
	}
	format := src.Format()
	if err := format.Validate(); err != nil {
		_ = src.Close()
		return fmt.Errorf("%w: %w", source.ErrDecode, err)
	}
	sink, err := d.sinks.Open(d.num, format)
	if err != nil {
		_ = src.Close()
		if !errors.Is(err, output.ErrUnavailable) {
			err = fmt.Errorf("%w: %w", output.ErrUnavailable, err)
		}
		return err
	}
	rb, err := ringbuf.New(format.BufferSize(d.bufferSeconds))
	if err != nil {
		_ = src.Close()
		_ = sink.Close()
		return err
	}

	duration := t.Duration
	if duration <= 0 {
		duration = src.Duration()
	}

	d.writer.setLine(sink, rb, format)

	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		rb.Close()
		_ = sink.Close()
		_ = src.Close()
		return ErrInterrupted
	}
	sink.SetGain(d.gain)
	d.rb, d.sink, d.format = rb, sink, format
	d.duration, d.remaining = duration, duration
	d.track.Duration = duration
	d.loading = false
	committed = true
	d.mu.Unlock()

	d.reader.setSource(src, rb, duration)
	d.logger.Info("track loaded",
		"track", t.Name(),
		"format", format.String(),
		"duration", duration,
	)
	return nil
}

// loadFailed walks the auto-advance candidates after a failed load, or
// reports the failure when auto-advance is off.
func (d *Deck) loadFailed(ctx context.Context, t playlist.Track, cause error) error {
	if !d.pool.AutoAdvance() || d.pool.picker == nil {
		return d.reportLoadError(t, cause)
	}
	for attempt := 1; attempt <= d.pool.maxAttempts; attempt++ {
		d.logger.Warn("load failed, trying next candidate",
			"track", t.Name(),
			"attempt", attempt,
			"error", cause,
		)
		next, err := d.pool.picker.Next(ctx)
		if err != nil {
			return d.reportLoadError(t, err)
		}
		err = d.load(ctx, next)
		if err == nil || errors.Is(err, ErrPlaying) || errors.Is(err, ErrInterrupted) {
			return err
		}
		t, cause = next, err
	}
	return d.reportLoadError(t, fmt.Errorf("%w after %d attempts: %w",
		radio.ErrNoEligibleTrack, d.pool.maxAttempts, cause))
}

func (d *Deck) reportLoadError(t playlist.Track, err error) error {
	d.logger.Error("load failed", "track", t.Name(), "error", err)
	d.bus.LoadFailed(event.LoadError{Deck: d.num, Track: t, Err: err})
	return &LoadError{Deck: d.num, Track: t, Err: err}
}

// autoPlay starts the deck for an auto-advance handover, or defers the
// start until the deck has cued.
func (d *Deck) autoPlay() {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return
	}
	if d.playing {
		d.mu.Unlock()
		d.pool.commitPlayed()
		return
	}
	if d.ready {
		d.mu.Unlock()
		if d.Play() {
			return
		}
		d.mu.Lock()
	}
	d.snpWaiting = true
	d.mu.Unlock()
	d.logger.Info("auto-advance start deferred until cued")
}

// spawn runs fn on a goroutine tracked by Close. It returns false once the
// deck is closing.
func (d *Deck) spawn(fn func()) bool {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()
	go func() {
		defer d.wg.Done()
		fn()
	}()
	return true
}

// scheduleAutoLoad loads the next track once the handover has been
// committed, or after the settle timeout if it never is.
func (d *Deck) scheduleAutoLoad(ack <-chan struct{}) {
	settle := d.pool.settle
	d.spawn(func() {
		timer := time.NewTimer(settle)
		defer timer.Stop()
		select {
		case <-ack:
		case <-timer.C:
			d.logger.Debug("handover not committed, auto-loading anyway", "settle", settle)
		case <-d.done:
			return
		}
		if err := d.AutoLoad(d.ctx); err != nil {
			d.logger.Warn("auto-load failed", "error", err)
		}
	})
}

// Reader callbacks.

// notifyReady marks the track cued. A deck already on air, pressed while
// still cueing, is not ready: once stopped it is mid-track.
func (d *Deck) notifyReady(duration int) {
	d.mu.Lock()
	d.cued = true
	waiting := d.snpWaiting && !d.playing
	d.snpWaiting = false
	if !waiting && !d.playing {
		d.ready = true
	}
	d.mu.Unlock()

	d.bus.Ready(event.DeckReady{Deck: d.num, Duration: duration})
	if waiting && !d.Play() {
		d.mu.Lock()
		if !d.playing && !d.poofed {
			d.ready = true
		}
		d.mu.Unlock()
	}
}

func (d *Deck) notifyEOF(cued bool) {
	d.writer.markEOF()
	if cued {
		return
	}
	d.mu.Lock()
	t := d.track
	d.mu.Unlock()
	d.spawn(func() {
		_ = d.loadFailed(d.ctx, t, ErrSilentSource)
	})
}

// Writer callbacks.

func (d *Deck) tick() {
	d.mu.Lock()
	if d.remaining > 0 {
		d.remaining--
	}
	remaining := d.remaining
	d.mu.Unlock()
	d.bus.Tick(event.CounterTick{Deck: d.num, Remaining: remaining})
}

func (d *Deck) notifyPoof() {
	d.mu.Lock()
	d.playing = false
	d.poofed = true
	d.mu.Unlock()
	d.logger.Info("end of track")
	d.bus.EndOfTrack(event.EndOfTrack{Deck: d.num})
}

// halt takes the deck off air without marking it finished.
func (d *Deck) halt() {
	d.mu.Lock()
	d.playing = false
	d.mu.Unlock()
}

func (d *Deck) playbackError(err error) {
	d.logger.Error("playback error", "error", err)
	d.bus.PlaybackFailed(event.PlaybackError{Deck: d.num, Err: err})
}

// awaitPlay blocks until the deck is playing. It returns false once the
// deck is closing.
func (d *Deck) awaitPlay() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for !d.playing && !d.closing {
		d.cond.Wait()
	}
	return !d.closing
}

func (d *Deck) playState() (playing, closing bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing, d.closing
}
