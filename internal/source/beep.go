package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/vorbis"

	"github.com/llehouerou/deckcast/internal/pcm"
)

// streamSource converts a beep streamer to 16-bit PCM.
type streamSource struct {
	streamer beep.StreamSeekCloser
	encoder  beep.Format
	format   pcm.Format
	duration int
	samples  [][2]float64
	out      []byte
	pending  pending
	closed   bool
}

func openFLAC(f *os.File) (Source, error) {
	s, format, err := flac.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return newStreamSource(s, format), nil
}

func openVorbis(f *os.File) (Source, error) {
	s, format, err := vorbis.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return newStreamSource(s, format), nil
}

func newStreamSource(s beep.StreamSeekCloser, format beep.Format) *streamSource {
	channels := min(max(format.NumChannels, 1), 2)
	return &streamSource{
		streamer: s,
		encoder:  beep.Format{SampleRate: format.SampleRate, NumChannels: channels, Precision: 2},
		format: pcm.Format{
			SampleRate:    int(format.SampleRate),
			BitsPerSample: 16,
			Channels:      channels,
		},
		duration: tenths(int64(s.Len()), int(format.SampleRate)),
	}
}

func (s *streamSource) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if len(s.pending.buf) == 0 {
		if err := s.fill(len(p)); err != nil {
			return 0, err
		}
	}
	return s.pending.drain(p), nil
}

func (s *streamSource) fill(want int) error {
	frameSize := s.format.FrameSize()
	frames := max(want/frameSize, 1)
	if cap(s.samples) < frames {
		s.samples = make([][2]float64, frames)
		s.out = make([]byte, frames*frameSize)
	}

	n, ok := s.streamer.Stream(s.samples[:frames])
	if n == 0 {
		if err := s.streamer.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if !ok {
			return io.EOF
		}
	}

	off := 0
	for i := range n {
		off += s.encoder.EncodeSigned(s.out[off:], s.samples[i])
	}
	s.pending.buf = s.out[:off]
	return nil
}

func (s *streamSource) Format() pcm.Format { return s.format }
func (s *streamSource) Duration() int      { return s.duration }

func (s *streamSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.streamer.Close()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
