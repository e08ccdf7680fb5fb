package event

import (
	"errors"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/deckcast/internal/playlist"
)

func TestBus_DeliversEveryKind(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		b := NewBus()
		sub := b.Subscribe()
		boom := errors.New("boom")

		b.Ready(DeckReady{Deck: 1, Duration: 100})
		b.LoadFailed(LoadError{Deck: 2, Err: boom})
		b.Playback(PlaybackChange{Deck: 1, Playing: true})
		b.Tick(CounterTick{Deck: 1, Remaining: 99})
		b.EndOfTrack(EndOfTrack{Deck: 1})
		b.PlaybackFailed(PlaybackError{Deck: 1, Err: boom})
		b.MarkPlayed(MarkPlayed{Deck: 1, Track: playlist.Track{Title: "t"}})
		b.AutoAdvance(AutoAdvance{Deck: 1})

		assert.Equal(t, 100, (<-sub.Ready).Duration)
		assert.ErrorIs(t, (<-sub.LoadFailed).Err, boom)
		assert.True(t, (<-sub.Playback).Playing)
		assert.Equal(t, 99, (<-sub.Tick).Remaining)
		assert.Equal(t, 1, (<-sub.EndOfTrack).Deck)
		assert.ErrorIs(t, (<-sub.PlaybackError).Err, boom)
		assert.Equal(t, "t", (<-sub.MarkPlayed).Track.Title)
		assert.Equal(t, 1, (<-sub.AutoAdvance).Deck)
	})
}

func TestBus_FansOut(t *testing.T) {
	b := NewBus()
	a, c := b.Subscribe(), b.Subscribe()

	b.EndOfTrack(EndOfTrack{Deck: 3})

	assert.Equal(t, 3, (<-a.EndOfTrack).Deck)
	assert.Equal(t, 3, (<-c.EndOfTrack).Deck)
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := NewBus()
	sub := b.SubscribeSize(4)

	for range 10 {
		b.Tick(CounterTick{Deck: 1})
	}

	count := 0
	for {
		select {
		case <-sub.Tick:
			count++
		default:
			assert.Equal(t, 4, count)
			return
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		b := NewBus()
		sub := b.Subscribe()
		b.Unsubscribe(sub)
		<-sub.Done

		b.Ready(DeckReady{Deck: 1})
		select {
		case <-sub.Ready:
			t.Fatal("unsubscribed channel received an event")
		default:
		}
	})
}

func TestBus_Close(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		b := NewBus()
		sub := b.Subscribe()
		b.Close()
		b.Close()
		<-sub.Done

		late := b.Subscribe()
		_, open := <-late.Done
		require.False(t, open)

		b.Tick(CounterTick{Deck: 1})
	})
}
