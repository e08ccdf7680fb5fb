package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/deckcast/internal/deck"
	"github.com/llehouerou/deckcast/internal/event"
	"github.com/llehouerou/deckcast/internal/output"
	"github.com/llehouerou/deckcast/internal/pcm"
	"github.com/llehouerou/deckcast/internal/playlist"
	"github.com/llehouerou/deckcast/internal/radio"
	"github.com/llehouerou/deckcast/internal/source"
)

const consoleTimeout = 3 * time.Second

var mono = pcm.Format{SampleRate: 8000, BitsPerSample: 16, Channels: 1}

type emptyPicker struct{}

func (emptyPicker) Next(context.Context) (playlist.Track, error) {
	return playlist.Track{}, radio.ErrNoEligibleTrack
}

type consoleHarness struct {
	pool     *deck.Pool
	sources  *source.MockOpener
	playlist *playlist.Playlist
	sub      *event.Subscription
	console  *console
}

func newConsoleHarness(t *testing.T, decks int, picker deck.Picker) *consoleHarness {
	t.Helper()
	h := &consoleHarness{
		sources:  source.NewMockOpener(),
		playlist: playlist.NewPlaylist(),
	}
	pool, err := deck.NewPool(deck.Options{Decks: decks}, deck.Deps{
		Sources:  h.sources,
		Sinks:    output.NewMockOpener(),
		Playlist: h.playlist,
		Picker:   picker,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	h.pool = pool
	h.sub = pool.SubscribeSize(256)
	h.console = &console{pool: pool, logger: slog.New(slog.DiscardHandler)}
	return h
}

func (h *consoleHarness) load(t *testing.T, n int, location string) {
	t.Helper()
	h.sources.Add(location, source.MockTrack{Format: mono, Data: source.Tone(mono, 5, 0.5), Duration: 5})
	d, err := h.pool.Deck(n)
	require.NoError(t, err)
	require.NoError(t, d.Load(context.Background(), playlist.Track{Title: location, Location: location}))
	require.Eventually(t, func() bool { return d.State() == deck.StateReady }, consoleTimeout, 5*time.Millisecond)
}

func (h *consoleHarness) run(t *testing.T, ctx context.Context) error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- h.console.run(ctx, h.sub) }()
	select {
	case err := <-errc:
		h.console.wg.Wait()
		return err
	case <-time.After(consoleTimeout):
		require.FailNow(t, "console did not stop")
		return nil
	}
}

func playedLocations(p *playlist.Playlist) []string {
	var out []string
	for _, e := range p.Entries() {
		if !e.Tentative {
			out = append(out, e.Location)
		}
	}
	return out
}

func TestConsole_StartsFirstReadyDeck(t *testing.T) {
	h := newConsoleHarness(t, 2, nil)
	h.load(t, 1, "opener")

	require.NoError(t, h.run(t, context.Background()))
	assert.Equal(t, []string{"opener"}, playedLocations(h.playlist))
	d, err := h.pool.Deck(1)
	require.NoError(t, err)
	assert.Equal(t, deck.StatePoofed, d.State())
}

func TestConsole_HandsOverAtEndOfTrack(t *testing.T) {
	h := newConsoleHarness(t, 2, nil)
	h.load(t, 1, "first")
	h.load(t, 2, "second")

	require.NoError(t, h.run(t, context.Background()))
	assert.Equal(t, []string{"first", "second"}, playedLocations(h.playlist))
}

func TestConsole_StopsWhenNothingIsLeft(t *testing.T) {
	h := newConsoleHarness(t, 2, emptyPicker{})
	for _, d := range h.pool.Decks() {
		h.console.autoLoad(context.Background(), d)
	}

	require.NoError(t, h.run(t, context.Background()))
	assert.Zero(t, h.playlist.Len())
}

func TestConsole_StopsOnCancel(t *testing.T) {
	h := newConsoleHarness(t, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.run(t, ctx))
}

func TestTrackFromLocation(t *testing.T) {
	tests := []struct {
		loc    string
		artist string
		title  string
	}{
		{"/music/Daft Punk - One More Time.flac", "Daft Punk", "One More Time"},
		{"jingle.wav", "", "jingle"},
		{"https://example.com/a/Station ID.mp3", "", "Station ID"},
	}

	for _, tt := range tests {
		t.Run(tt.loc, func(t *testing.T) {
			got := trackFromLocation(tt.loc)
			assert.Equal(t, tt.artist, got.Artist)
			assert.Equal(t, tt.title, got.Title)
			assert.Equal(t, tt.loc, got.Location)
		})
	}
}

func TestTenths(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, tenths(15))
	assert.Equal(t, time.Duration(0), tenths(0))
}
