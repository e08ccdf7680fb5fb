package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/llehouerou/deckcast/internal/pcm"
)

// Mock is an in-memory Source for tests.
type Mock struct {
	mu       sync.Mutex
	format   pcm.Format
	data     []byte
	pos      int
	duration int
	closed   bool
	hold     <-chan struct{}
	done     chan struct{}
}

// NewMock creates a source replaying data in the given format.
func NewMock(format pcm.Format, data []byte, duration int) *Mock {
	return &Mock{format: format, data: data, duration: duration, done: make(chan struct{})}
}

func (m *Mock) Read(p []byte) (int, error) {
	if m.hold != nil {
		select {
		case <-m.hold:
		case <-m.done:
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += n
	return n, nil
}

func (m *Mock) Format() pcm.Format { return m.format }
func (m *Mock) Duration() int      { return m.duration }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockTrack is what MockOpener serves for one location.
type MockTrack struct {
	Format   pcm.Format
	Data     []byte
	Duration int
	// Hold, when set, blocks every read until it is closed.
	Hold <-chan struct{}
}

// MockOpener is an Opener serving registered in-memory tracks.
type MockOpener struct {
	mu      sync.Mutex
	tracks  map[string]MockTrack
	errs    map[string]error
	opened  []string
	sources []*Mock
}

// NewMockOpener creates an opener with no tracks.
func NewMockOpener() *MockOpener {
	return &MockOpener{
		tracks: make(map[string]MockTrack),
		errs:   make(map[string]error),
	}
}

// Add registers a track under location.
func (o *MockOpener) Add(location string, t MockTrack) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tracks[location] = t
}

// Fail makes every Open of location return err.
func (o *MockOpener) Fail(location string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs[location] = err
}

func (o *MockOpener) Open(_ context.Context, location string) (Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, location)
	if err := o.errs[location]; err != nil {
		return nil, err
	}
	t, ok := o.tracks[location]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, location)
	}
	m := NewMock(t.Format, t.Data, t.Duration)
	m.hold = t.Hold
	o.sources = append(o.sources, m)
	return m, nil
}

// Opened returns every location passed to Open, in order.
func (o *MockOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

// Sources returns every Mock handed out, in order.
func (o *MockOpener) Sources() []*Mock {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Mock(nil), o.sources...)
}

// Tone returns tenths of a second of 16-bit PCM whose samples alternate
// between +amp and -amp of full scale.
func Tone(f pcm.Format, tenths int, amp float64) []byte {
	frames := f.SampleRate * tenths / 10
	v := int16(amp * 32767)
	out := make([]byte, frames*f.Channels*2)
	for i := range frames * f.Channels {
		s := v
		if (i/f.Channels)%2 == 1 {
			s = -v
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s)) //nolint:gosec // audio samples
	}
	return out
}

// Silence returns tenths of a second of zeroed PCM.
func Silence(f pcm.Format, tenths int) []byte {
	return make([]byte, f.SampleRate*tenths/10*f.FrameSize())
}
