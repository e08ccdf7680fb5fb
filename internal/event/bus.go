package event

import "sync"

// Bus fans deck notifications out to subscribers. Publishing never blocks:
// a subscriber that falls behind loses events.
type Bus struct {
	mu     sync.RWMutex
	subs   []*Subscription
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a subscription with DefaultBufferSize per channel.
func (b *Bus) Subscribe() *Subscription {
	return b.SubscribeSize(DefaultBufferSize)
}

// SubscribeSize returns a subscription with the given per-channel buffer.
// On a closed bus the subscription is returned already done.
func (b *Bus) SubscribeSize(size int) *Subscription {
	s := newSubscription(max(size, 1))
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.close()
		return s
	}
	b.subs = append(b.subs, s)
	return s
}

// Unsubscribe stops delivery to s and closes its Done channel.
func (b *Bus) Unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == s {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			s.close()
			return
		}
	}
}

// Close closes every subscription. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		s.close()
	}
	b.subs = nil
}

func publish[T any](b *Bus, pick func(*Subscription) chan T, e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		send(pick(s), e)
	}
}

func (b *Bus) Ready(e DeckReady) {
	publish(b, func(s *Subscription) chan DeckReady { return s.readyCh }, e)
}

func (b *Bus) LoadFailed(e LoadError) {
	publish(b, func(s *Subscription) chan LoadError { return s.loadCh }, e)
}

func (b *Bus) Playback(e PlaybackChange) {
	publish(b, func(s *Subscription) chan PlaybackChange { return s.playbackCh }, e)
}

func (b *Bus) Tick(e CounterTick) {
	publish(b, func(s *Subscription) chan CounterTick { return s.tickCh }, e)
}

func (b *Bus) EndOfTrack(e EndOfTrack) {
	publish(b, func(s *Subscription) chan EndOfTrack { return s.eotCh }, e)
}

func (b *Bus) PlaybackFailed(e PlaybackError) {
	publish(b, func(s *Subscription) chan PlaybackError { return s.errorCh }, e)
}

func (b *Bus) MarkPlayed(e MarkPlayed) {
	publish(b, func(s *Subscription) chan MarkPlayed { return s.playedCh }, e)
}

func (b *Bus) AutoAdvance(e AutoAdvance) {
	publish(b, func(s *Subscription) chan AutoAdvance { return s.advanceCh }, e)
}
