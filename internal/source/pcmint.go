package source

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/llehouerou/deckcast/internal/pcm"
)

// intDecoder is the part of the go-audio wav and aiff decoders we read from.
type intDecoder interface {
	PCMBuffer(buf *audio.IntBuffer) (int, error)
}

// intSource converts go-audio integer samples to 16-bit PCM.
type intSource struct {
	decoder  intDecoder
	file     *os.File
	format   pcm.Format
	bits     int
	sample   func(v int) int16
	duration int
	buf      *audio.IntBuffer
	out      []byte
	pending  pending
	closed   bool
}

func openWAV(f *os.File) (Source, error) {
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav file", ErrDecode)
	}
	if d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: wav encoding %d", ErrUnsupported, d.WavAudioFormat)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	// 8-bit wav samples are unsigned.
	s, err := newIntSource(d, f, int(d.SampleRate), int(d.NumChans), int(d.BitDepth), true)
	if err != nil {
		return nil, err
	}
	if bps := s.format.SampleRate * s.format.Channels * s.bits / 8; bps > 0 {
		s.duration = d.PCMSize * 10 / bps
	}
	return s, nil
}

func openAIFF(f *os.File) (Source, error) {
	d := aiff.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid aiff file", ErrDecode)
	}
	format := d.Format()
	if format == nil {
		return nil, fmt.Errorf("%w: aiff without format", ErrDecode)
	}
	s, err := newIntSource(d, f, format.SampleRate, format.NumChannels, int(d.BitDepth), false)
	if err != nil {
		return nil, err
	}
	s.duration = tenths(int64(d.NumSampleFrames), format.SampleRate)
	return s, nil
}

func newIntSource(d intDecoder, f *os.File, rate, channels, bits int, unsigned8 bool) (*intSource, error) {
	var sample func(v int) int16
	switch {
	case bits == 8 && unsigned8:
		sample = func(v int) int16 { return int16((v - 128) << 8) } //nolint:gosec // widened sample
	case bits == 8:
		// go-audio hands back the raw byte of a signed sample.
		sample = func(v int) int16 { return int16(int8(uint8(v))) << 8 } //nolint:gosec // widened sample
	case bits == 16 || bits == 24 || bits == 32:
		shift := bits - 16
		sample = func(v int) int16 { return int16(v >> shift) } //nolint:gosec // narrowed sample
	default:
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupported, bits)
	}
	format := pcm.Format{SampleRate: rate, BitsPerSample: 16, Channels: channels}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	s := &intSource{
		decoder: d,
		file:    f,
		format:  format,
		bits:    bits,
		sample:  sample,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
			SourceBitDepth: bits,
		},
	}
	return s, nil
}

func (s *intSource) Read(p []byte) (int, error) {
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

func (s *intSource) fill(want int) error {
	frames := max(want/s.format.FrameSize(), 1)
	samples := frames * s.format.Channels
	if cap(s.buf.Data) < samples {
		s.buf.Data = make([]int, samples)
		s.out = make([]byte, samples*2)
	}
	s.buf.Data = s.buf.Data[:samples]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if n == 0 {
		return io.EOF
	}

	for i, v := range s.buf.Data[:n] {
		binary.LittleEndian.PutUint16(s.out[2*i:], uint16(s.sample(v))) //nolint:gosec // signed sample
	}
	s.pending.buf = s.out[:2*n]
	return nil
}

func (s *intSource) Format() pcm.Format { return s.format }
func (s *intSource) Duration() int      { return s.duration }

func (s *intSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
