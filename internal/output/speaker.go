package output

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/smallnest/ringbuffer"

	"github.com/llehouerou/deckcast/internal/pcm"
)

const (
	resampleQuality = 4
	drainStall      = time.Second
)

// Speaker mixes every deck into the process-wide beep speaker.
type Speaker struct {
	rate   beep.SampleRate
	buffer time.Duration
	logger *slog.Logger

	once    sync.Once
	initErr error
}

// NewSpeaker creates a speaker backend mixing at sampleRate with the given
// device buffer. The device is opened on first use.
func NewSpeaker(sampleRate int, buffer time.Duration, logger *slog.Logger) *Speaker {
	return &Speaker{
		rate:   beep.SampleRate(sampleRate),
		buffer: buffer,
		logger: logger,
	}
}

func (s *Speaker) init() error {
	s.once.Do(func() {
		s.initErr = speaker.Init(s.rate, s.rate.N(s.buffer))
		if s.initErr == nil {
			s.logger.Info("speaker initialized", "rate", int(s.rate), "buffer", s.buffer)
		}
	})
	return s.initErr
}

// Open adds a paused streamer for the deck to the speaker mix.
func (s *Speaker) Open(deck int, f pcm.Format) (Sink, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := s.init(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	sink := newSpeakerSink(f, s.rate, s.buffer)
	speaker.Play(sink.volume)
	s.logger.Debug("speaker sink opened", "deck", deck, "format", f.String())
	return sink, nil
}

// speakerSink feeds one deck's PCM into the speaker through a byte queue.
type speakerSink struct {
	format   pcm.Format
	decoder  beep.Format
	queue    *ringbuffer.RingBuffer
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	scratch  []byte
	consumed chan struct{}
	done     chan struct{}
	closed   atomic.Bool
	closeMu  sync.Mutex
}

func newSpeakerSink(f pcm.Format, rate beep.SampleRate, buffer time.Duration) *speakerSink {
	queueBytes := max(f.BytesPerSecond()*int(buffer/time.Millisecond)/1000*2, f.FrameSize()*1024)
	s := &speakerSink{
		format: f,
		decoder: beep.Format{
			SampleRate:  beep.SampleRate(f.SampleRate),
			NumChannels: f.Channels,
			Precision:   f.SampleSize(),
		},
		queue:    ringbuffer.New(queueBytes).SetBlocking(true),
		consumed: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	var feed beep.Streamer = beep.StreamerFunc(s.stream)
	if s.decoder.SampleRate != rate {
		feed = beep.Resample(resampleQuality, s.decoder.SampleRate, rate, feed)
	}
	s.ctrl = &beep.Ctrl{Streamer: feed, Paused: true}
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 10, Volume: 0}
	return s
}

// stream runs on the speaker goroutine. It never blocks: missing data is
// played as silence.
func (s *speakerSink) stream(samples [][2]float64) (int, bool) {
	if s.closed.Load() {
		return 0, false
	}
	frame := s.format.FrameSize()
	n := min(s.queue.Length()/frame, len(samples))
	if n > 0 {
		need := n * frame
		if cap(s.scratch) < need {
			s.scratch = make([]byte, need)
		}
		buf := s.scratch[:need]
		if _, err := io.ReadFull(s.queue, buf); err != nil {
			return 0, false
		}
		for i := range n {
			samples[i], _ = s.decoder.DecodeSigned(buf[i*frame:])
		}
		select {
		case s.consumed <- struct{}{}:
		default:
		}
	}
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (s *speakerSink) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	written := 0
	capacity := s.queue.Capacity()
	for written < len(p) {
		end := min(written+capacity, len(p))
		n, err := s.queue.Write(p[written:end])
		written += n
		if err != nil {
			return written, ErrClosed
		}
	}
	return written, nil
}

func (s *speakerSink) Start() error {
	return s.setPaused(false)
}

func (s *speakerSink) Stop() error {
	return s.setPaused(true)
}

func (s *speakerSink) setPaused(paused bool) error {
	if s.closed.Load() {
		return ErrClosed
	}
	speaker.Lock()
	s.ctrl.Paused = paused
	speaker.Unlock()
	return nil
}

func (s *speakerSink) Drain() error {
	for s.queue.Length() > 0 {
		select {
		case <-s.consumed:
		case <-s.done:
			return ErrClosed
		case <-time.After(drainStall):
			return nil
		}
	}
	return nil
}

func (s *speakerSink) SetGain(db float64) {
	speaker.Lock()
	s.volume.Volume = db / 20
	speaker.Unlock()
}

func (s *speakerSink) Format() pcm.Format {
	return s.format
}

func (s *speakerSink) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)
	s.queue.CloseWithError(ErrClosed)
	return nil
}
