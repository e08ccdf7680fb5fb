package deck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/llehouerou/deckcast/internal/event"
	"github.com/llehouerou/deckcast/internal/logging"
	"github.com/llehouerou/deckcast/internal/output"
	"github.com/llehouerou/deckcast/internal/playlist"
	"github.com/llehouerou/deckcast/internal/source"
)

const (
	DefaultBufferSeconds = 5
	DefaultMaxAttempts   = 25
	DefaultSettle        = 500 * time.Millisecond
)

// Playlist records tracks as they go on air.
type Playlist interface {
	MarkPlayed(t playlist.Track)
}

// Picker chooses the next auto-advance track.
type Picker interface {
	Next(ctx context.Context) (playlist.Track, error)
}

// Options configures a Pool.
type Options struct {
	Decks         int
	BufferSeconds int
	AutoAdvance   bool
	// MaxAttempts bounds how many candidates a failing load walks through.
	MaxAttempts int
	// Settle is how long a finished deck waits for the handover to be
	// committed before auto-loading anyway.
	Settle time.Duration
}

// Deps are the collaborators shared by every deck. Playlist, Picker, Bus
// and Logger are optional.
type Deps struct {
	Sources  source.Opener
	Sinks    output.Opener
	Playlist Playlist
	Picker   Picker
	Bus      *event.Bus
	Logger   *slog.Logger
}

// Pool holds the fixed set of decks and the global auto-advance switch.
type Pool struct {
	decks       []*Deck
	autoAdvance atomic.Bool
	maxAttempts int
	settle      time.Duration
	playlist    Playlist
	picker      Picker
	bus         *event.Bus
	logger      *slog.Logger

	mu      sync.Mutex
	pending []chan struct{}

	closeOnce sync.Once
}

// NewPool creates opts.Decks decks, numbered from 1, each with its reader
// and writer goroutines running.
func NewPool(opts Options, deps Deps) (*Pool, error) {
	if deps.Sources == nil || deps.Sinks == nil {
		return nil, errors.New("deck pool needs a source opener and a sink opener")
	}
	if opts.Decks < 1 {
		return nil, fmt.Errorf("deck count %d: %w", opts.Decks, ErrNoSuchDeck)
	}
	if opts.BufferSeconds <= 0 {
		opts.BufferSeconds = DefaultBufferSeconds
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	if deps.Bus == nil {
		deps.Bus = event.NewBus()
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	p := &Pool{
		maxAttempts: opts.MaxAttempts,
		settle:      opts.Settle,
		playlist:    deps.Playlist,
		picker:      deps.Picker,
		bus:         deps.Bus,
		logger:      logging.Module(deps.Logger, "deck"),
	}
	p.autoAdvance.Store(opts.AutoAdvance)
	for i := 1; i <= opts.Decks; i++ {
		p.decks = append(p.decks, newDeck(p, i, deps.Sources, deps.Sinks, opts.BufferSeconds))
	}
	return p, nil
}

// Deck returns deck n, numbered from 1.
func (p *Pool) Deck(n int) (*Deck, error) {
	if n < 1 || n > len(p.decks) {
		return nil, fmt.Errorf("deck %d: %w", n, ErrNoSuchDeck)
	}
	return p.decks[n-1], nil
}

// Decks returns every deck in order.
func (p *Pool) Decks() []*Deck {
	return append([]*Deck(nil), p.decks...)
}

// Len is the number of decks.
func (p *Pool) Len() int {
	return len(p.decks)
}

// SetAutoAdvance switches auto-advance for every deck.
func (p *Pool) SetAutoAdvance(on bool) {
	if p.autoAdvance.Swap(on) != on {
		p.logger.Info("auto-advance toggled", "enabled", on)
	}
}

// AutoAdvance reports whether auto-advance is enabled.
func (p *Pool) AutoAdvance() bool {
	return p.autoAdvance.Load()
}

// Bus is the event bus the decks publish on.
func (p *Pool) Bus() *event.Bus {
	return p.bus
}

// Subscribe registers a listener for deck events.
func (p *Pool) Subscribe() *event.Subscription {
	return p.bus.Subscribe()
}

// SubscribeSize registers a listener with the given buffer per event kind.
func (p *Pool) SubscribeSize(n int) *event.Subscription {
	return p.bus.SubscribeSize(n)
}

// Close closes every deck, then the bus.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		var wg sync.WaitGroup
		for _, d := range p.decks {
			wg.Go(func() { _ = d.Close() })
		}
		wg.Wait()
		p.commitPlayed()
		p.bus.Close()
	})
	return nil
}

// handover publishes an auto-advance from deck from and starts the next
// deck in rotation. The returned channel is closed once a deck has gone on
// air and the playlist has recorded it.
func (p *Pool) handover(from *Deck) <-chan struct{} {
	ack := make(chan struct{})
	p.mu.Lock()
	p.pending = append(p.pending, ack)
	p.mu.Unlock()

	p.bus.AutoAdvance(event.AutoAdvance{Deck: from.num})
	next := p.next(from)
	if next == nil {
		p.commitPlayed()
		return ack
	}
	p.logger.Info("auto-advance handover", "from", from.num, "to", next.num)
	next.autoPlay()
	return ack
}

func (p *Pool) next(from *Deck) *Deck {
	if len(p.decks) < 2 {
		return nil
	}
	return p.decks[from.num%len(p.decks)]
}

func (p *Pool) markPlayed(d *Deck, t playlist.Track) {
	if p.playlist != nil {
		p.playlist.MarkPlayed(t)
	}
	p.bus.MarkPlayed(event.MarkPlayed{Deck: d.num, Track: t})
	p.commitPlayed()
}

// commitPlayed releases every deck waiting on a handover.
func (p *Pool) commitPlayed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.pending {
		close(ch)
	}
	p.pending = nil
}
