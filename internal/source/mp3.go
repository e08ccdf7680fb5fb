package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/llehouerou/go-mp3"

	"github.com/llehouerou/deckcast/internal/pcm"
)

// mp3Source reads go-mp3 output, which is already 16-bit stereo PCM.
type mp3Source struct {
	decoder  *mp3.Decoder
	file     *os.File
	format   pcm.Format
	duration int
	closed   bool
}

func openMP3(f *os.File) (Source, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	rate := int(decoder.SampleRate())
	if rate == 0 {
		return nil, fmt.Errorf("%w: mp3: invalid sample rate", ErrDecode)
	}
	return &mp3Source{
		decoder:  decoder,
		file:     f,
		format:   pcm.Format{SampleRate: rate, BitsPerSample: 16, Channels: 2},
		duration: tenths(int64(decoder.SampleCount()), rate),
	}, nil
}

func (s *mp3Source) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, err := s.decoder.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return n, err
}

func (s *mp3Source) Format() pcm.Format { return s.format }
func (s *mp3Source) Duration() int      { return s.duration }

func (s *mp3Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
