package output

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/llehouerou/deckcast/internal/pcm"
)

// Recorder writes each deck load to its own WAV file.
type Recorder struct {
	dir    string
	paced  bool
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder writing into dir. Paced recorders write at
// real-time speed, like a sound card would.
func NewRecorder(dir string, paced bool, logger *slog.Logger) *Recorder {
	return &Recorder{dir: dir, paced: paced, logger: logger, now: time.Now}
}

// Open creates dir/deck<N>-<timestamp>.wav.
func (r *Recorder) Open(deck int, f pcm.Format) (Sink, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	name := fmt.Sprintf("deck%d-%s.wav", deck, r.now().Format("20060102-150405.000"))
	path := filepath.Join(r.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	s := &wavSink{
		path:    path,
		file:    file,
		format:  f,
		encoder: wav.NewEncoder(file, f.SampleRate, f.BitsPerSample, f.Channels, 1),
		gain:    1,
		logger:  r.logger.With("deck", deck),
	}
	if r.paced {
		s.pacer = newPacer(f)
	}
	r.logger.Debug("recording deck", "deck", deck, "path", path)
	return s, nil
}

type wavSink struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	format  pcm.Format
	encoder *wav.Encoder
	gain    float64
	pacer   *pacer
	ints    []int
	peak    float64
	logger  *slog.Logger
	closed  bool
}

func (s *wavSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	s.ints = pcm.Decode(s.ints[:0], p, s.format)
	if s.gain != 1 {
		limit := float64(int64(1)<<(s.format.BitsPerSample-1)) - 1
		for i, v := range s.ints {
			s.ints[i] = int(math.Max(-limit-1, math.Min(limit, math.Round(float64(v)*s.gain))))
		}
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: s.format.Channels, SampleRate: s.format.SampleRate},
		Data:           s.ints,
		SourceBitDepth: s.format.BitsPerSample,
	}
	s.peak = max(s.peak, pcm.PeakInts(buf))
	err := s.encoder.Write(buf)
	pacer := s.pacer
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	pacer.wait(len(p))
	return len(p), nil
}

func (s *wavSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pacer != nil {
		s.pacer.reset()
	}
	return nil
}

func (s *wavSink) Stop() error  { return nil }
func (s *wavSink) Drain() error { return nil }

func (s *wavSink) SetGain(db float64) {
	s.mu.Lock()
	s.gain = math.Pow(10, db/20)
	s.mu.Unlock()
}

func (s *wavSink) Format() pcm.Format { return s.format }

func (s *wavSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.encoder.Close(); err != nil {
		s.file.Close()
		return err
	}
	s.logger.Info("recording finished", "path", s.path, "peak", s.peak)
	return s.file.Close()
}

// Peak is the loudest sample recorded so far, after gain, in [0,1].
func (s *wavSink) Peak() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// Discard accepts PCM and throws it away.
type Discard struct {
	paced bool
}

// NewDiscard creates a discard backend.
func NewDiscard(paced bool) *Discard {
	return &Discard{paced: paced}
}

func (d *Discard) Open(_ int, f pcm.Format) (Sink, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s := &discardSink{format: f}
	if d.paced {
		s.pacer = newPacer(f)
	}
	return s, nil
}

type discardSink struct {
	mu     sync.Mutex
	format pcm.Format
	pacer  *pacer
	closed bool
}

func (s *discardSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	s.pacer.wait(len(p))
	return len(p), nil
}

func (s *discardSink) Start() error {
	if s.pacer != nil {
		s.pacer.reset()
	}
	return nil
}

func (s *discardSink) Stop() error        { return nil }
func (s *discardSink) Drain() error       { return nil }
func (s *discardSink) SetGain(float64)    {}
func (s *discardSink) Format() pcm.Format { return s.format }

func (s *discardSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
