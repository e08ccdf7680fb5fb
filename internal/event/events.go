// Package event carries deck notifications to any number of subscribers.
package event

import "github.com/llehouerou/deckcast/internal/playlist"

// DeckReady is emitted once a loaded track has been cued past its leading
// silence and can start immediately.
type DeckReady struct {
	Deck     int
	Duration int // tenths
}

// LoadError is emitted when a deck could not load a track and auto-advance
// did not recover.
type LoadError struct {
	Deck  int
	Track playlist.Track
	Err   error
}

// PlaybackChange is emitted when a deck's output starts or stops.
type PlaybackChange struct {
	Deck    int
	Playing bool
}

// CounterTick is emitted for every tenth of a second written to the sink.
type CounterTick struct {
	Deck      int
	Remaining int // tenths
}

// EndOfTrack is emitted when a deck has played out every buffered byte.
type EndOfTrack struct {
	Deck int
}

// PlaybackError is emitted for sink failures during playback.
type PlaybackError struct {
	Deck int
	Err  error
}

// MarkPlayed is emitted once per press of play, after the playlist has
// recorded the track.
type MarkPlayed struct {
	Deck  int
	Track playlist.Track
}

// AutoAdvance is emitted when a deck hands over to the next one because
// its track trailed into silence or stopped.
type AutoAdvance struct {
	Deck int
}
