package event

// DefaultBufferSize is the per-channel buffer of Subscribe.
const DefaultBufferSize = 64

// Subscription provides event channels for a subscriber.
type Subscription struct {
	Ready         <-chan DeckReady
	LoadFailed    <-chan LoadError
	Playback      <-chan PlaybackChange
	Tick          <-chan CounterTick
	EndOfTrack    <-chan EndOfTrack
	PlaybackError <-chan PlaybackError
	MarkPlayed    <-chan MarkPlayed
	AutoAdvance   <-chan AutoAdvance
	Done          <-chan struct{}

	readyCh    chan DeckReady
	loadCh     chan LoadError
	playbackCh chan PlaybackChange
	tickCh     chan CounterTick
	eotCh      chan EndOfTrack
	errorCh    chan PlaybackError
	playedCh   chan MarkPlayed
	advanceCh  chan AutoAdvance
	doneCh     chan struct{}
}

func newSubscription(size int) *Subscription {
	s := &Subscription{
		readyCh:    make(chan DeckReady, size),
		loadCh:     make(chan LoadError, size),
		playbackCh: make(chan PlaybackChange, size),
		tickCh:     make(chan CounterTick, size),
		eotCh:      make(chan EndOfTrack, size),
		errorCh:    make(chan PlaybackError, size),
		playedCh:   make(chan MarkPlayed, size),
		advanceCh:  make(chan AutoAdvance, size),
		doneCh:     make(chan struct{}),
	}
	s.Ready = s.readyCh
	s.LoadFailed = s.loadCh
	s.Playback = s.playbackCh
	s.Tick = s.tickCh
	s.EndOfTrack = s.eotCh
	s.PlaybackError = s.errorCh
	s.MarkPlayed = s.playedCh
	s.AutoAdvance = s.advanceCh
	s.Done = s.doneCh
	return s
}

func (s *Subscription) close() {
	close(s.doneCh)
}

// send delivers e without blocking, dropping it if the buffer is full.
func send[T any](ch chan T, e T) {
	select {
	case ch <- e:
	default:
	}
}
