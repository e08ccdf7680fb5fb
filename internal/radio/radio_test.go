package radio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/deckcast/internal/library"
	"github.com/llehouerou/deckcast/internal/playlist"
)

type fakeLibrary struct {
	sources []library.Source
	tracks  map[string][]library.Track
	next    map[string]int
	picks   int
	err     error
}

func (f *fakeLibrary) AutoAdvanceSources(context.Context) ([]library.Source, error) {
	return f.sources, f.err
}

func (f *fakeLibrary) RandomTrack(_ context.Context, source string) (library.Track, error) {
	f.picks++
	ts := f.tracks[source]
	if len(ts) == 0 {
		return library.Track{}, library.ErrEmptySource
	}
	if f.next == nil {
		f.next = make(map[string]int)
	}
	t := ts[f.next[source]%len(ts)]
	f.next[source]++
	return t, nil
}

func TestNext_PrefersPendingPlaylistEntry(t *testing.T) {
	pl := playlist.NewPlaylist()
	pl.Add(playlist.Track{Artist: "A", Title: "queued", Location: "/q.mp3"})
	lib := &fakeLibrary{}

	r := New(pl, lib, 5)
	got, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "queued", got.Title)
	assert.Zero(t, lib.picks)
}

func TestNext_SkipsAlreadyPlayed(t *testing.T) {
	pl := playlist.NewPlaylist()
	pl.MarkPlayed(playlist.Track{Artist: "A", Title: "old"})
	lib := &fakeLibrary{
		sources: []library.Source{{Name: "main", AutoAdvance: true}},
		tracks: map[string][]library.Track{"main": {
			{Source: "main", Artist: "A", Title: "old", Location: "/old.mp3"},
			{Source: "main", Artist: "B", Title: "fresh", Location: "/fresh.mp3", Duration: 2000},
		}},
	}

	r := New(pl, lib, 5)
	got, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, playlist.Track{Artist: "B", Title: "fresh", Library: "main", Location: "/fresh.mp3", Duration: 2000}, got)
	assert.Equal(t, 2, lib.picks)
}

func TestNext_BoundedAttempts(t *testing.T) {
	pl := playlist.NewPlaylist()
	pl.MarkPlayed(playlist.Track{Artist: "A", Title: "only"})
	lib := &fakeLibrary{
		sources: []library.Source{{Name: "main", AutoAdvance: true}},
		tracks:  map[string][]library.Track{"main": {{Artist: "A", Title: "only"}}},
	}

	r := New(pl, lib, 7)
	_, err := r.Next(context.Background())
	require.ErrorIs(t, err, ErrNoEligibleTrack)
	assert.Equal(t, 7, lib.picks)
}

func TestNext_SkipsEmptySources(t *testing.T) {
	lib := &fakeLibrary{
		sources: []library.Source{{Name: "empty"}, {Name: "full"}},
		tracks:  map[string][]library.Track{"full": {{Source: "full", Title: "x"}}},
	}

	r := New(nil, lib, 50)
	r.Seed(1)
	got, err := r.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "full", got.Library)
}

func TestNext_NoEligibleLibrary(t *testing.T) {
	_, err := New(playlist.NewPlaylist(), &fakeLibrary{}, 3).Next(context.Background())
	assert.ErrorIs(t, err, ErrNoEligibleTrack)

	_, err = New(playlist.NewPlaylist(), nil, 3).Next(context.Background())
	assert.ErrorIs(t, err, ErrNoEligibleTrack)
}

func TestNext_LibraryError(t *testing.T) {
	boom := errors.New("db gone")
	_, err := New(nil, &fakeLibrary{err: boom}, 3).Next(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestNext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lib := &fakeLibrary{sources: []library.Source{{Name: "main"}}}
	_, err := New(nil, lib, 3).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
