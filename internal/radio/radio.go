// Package radio picks what a deck plays next when auto-advance loads a track
// on its own.
package radio

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/llehouerou/deckcast/internal/library"
	"github.com/llehouerou/deckcast/internal/playlist"
)

// ErrNoEligibleTrack is returned when no candidate was found within the
// attempt budget.
var ErrNoEligibleTrack = errors.New("no eligible track")

// Playlist is the pending list consulted before the library.
type Playlist interface {
	NextLoadableTentative() (playlist.Track, bool)
	AlreadyPlayed(artist, title string) bool
}

// Library provides random tracks from eligible sources.
type Library interface {
	AutoAdvanceSources(ctx context.Context) ([]library.Source, error)
	RandomTrack(ctx context.Context, source string) (library.Track, error)
}

// Radio chooses auto-advance candidates.
type Radio struct {
	mu          sync.Mutex
	playlist    Playlist
	library     Library
	maxAttempts int
	rng         *rand.Rand
}

// New creates a picker trying at most maxAttempts random library tracks.
// A nil library restricts picks to the playlist.
func New(pl Playlist, lib Library, maxAttempts int) *Radio {
	return &Radio{
		playlist:    pl,
		library:     lib,
		maxAttempts: max(maxAttempts, 1),
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // track shuffling
	}
}

// Seed makes library picks reproducible.
func (r *Radio) Seed(seed uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng = rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // track shuffling
}

// Next returns the next pending playlist track not yet auto-loaded, or else
// a random library track that has not been played.
func (r *Radio) Next(ctx context.Context) (playlist.Track, error) {
	if r.playlist != nil {
		if t, ok := r.playlist.NextLoadableTentative(); ok {
			return t, nil
		}
	}
	if r.library == nil {
		return playlist.Track{}, ErrNoEligibleTrack
	}

	sources, err := r.library.AutoAdvanceSources(ctx)
	if err != nil {
		return playlist.Track{}, err
	}
	if len(sources) == 0 {
		return playlist.Track{}, fmt.Errorf("%w: no auto-advance library", ErrNoEligibleTrack)
	}

	for range r.maxAttempts {
		if err := ctx.Err(); err != nil {
			return playlist.Track{}, err
		}
		src := sources[r.intN(len(sources))]
		t, err := r.library.RandomTrack(ctx, src.Name)
		if errors.Is(err, library.ErrEmptySource) {
			continue
		}
		if err != nil {
			return playlist.Track{}, err
		}
		if r.playlist != nil && r.playlist.AlreadyPlayed(t.Artist, t.Title) {
			continue
		}
		return FromLibraryTrack(t), nil
	}
	return playlist.Track{}, fmt.Errorf("%w after %d attempts", ErrNoEligibleTrack, r.maxAttempts)
}

func (r *Radio) intN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// FromLibraryTrack converts a library track to a playlist track.
func FromLibraryTrack(t library.Track) playlist.Track {
	return playlist.Track{
		Title:    t.Title,
		Artist:   t.Artist,
		Library:  t.Source,
		Location: t.Location,
		Duration: t.Duration,
	}
}
