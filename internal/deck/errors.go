package deck

import (
	"errors"

	"github.com/llehouerou/deckcast/internal/errmsg"
	"github.com/llehouerou/deckcast/internal/playlist"
)

var (
	// ErrPlaying is returned by Load while the deck is on air.
	ErrPlaying = errors.New("deck is playing")
	// ErrInterrupted is returned once the deck is closing.
	ErrInterrupted = errors.New("deck closed")
	// ErrNoTrack is returned by Cue on a deck that never loaded anything.
	ErrNoTrack = errors.New("deck has no track")
	// ErrNoSuchDeck is returned for deck numbers outside the pool.
	ErrNoSuchDeck = errors.New("no such deck")
	// ErrSilentSource is reported when a track ends without ever rising
	// above the cue threshold.
	ErrSilentSource = errors.New("track is silent")
)

// LoadError is a failed load on a numbered deck.
type LoadError struct {
	Deck  int
	Track playlist.Track
	Err   error
}

func (e *LoadError) Error() string {
	return errmsg.FormatDeck(e.Deck, errmsg.OpDeckLoad, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
