package output

import (
	"sync"
	"time"

	"github.com/llehouerou/deckcast/internal/pcm"
)

// Mock is a Sink recording everything written to it.
type Mock struct {
	mu       sync.Mutex
	format   pcm.Format
	data     []byte
	running  bool
	starts   int
	stops    int
	drains   int
	gain     float64
	writeErr error
	delay    time.Duration
	closed   bool
}

// NewMock creates a mock sink for f.
func NewMock(f pcm.Format) *Mock {
	return &Mock{format: f}
}

func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.data = append(m.data, p...)
	return len(p), nil
}

func (m *Mock) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.starts++
	return nil
}

func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.stops++
	return nil
}

func (m *Mock) Drain() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drains++
	return nil
}

func (m *Mock) SetGain(db float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gain = db
}

func (m *Mock) Format() pcm.Format { return m.format }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetWriteError makes every following Write fail with err.
func (m *Mock) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetDelay makes every following Write sleep for d before recording.
func (m *Mock) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Data returns a copy of every byte written.
func (m *Mock) Data() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Written is the number of bytes written.
func (m *Mock) Written() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Gain is the last gain set.
func (m *Mock) Gain() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gain
}

// Running reports whether Start was called more recently than Stop.
func (m *Mock) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Counts returns how many times Start, Stop and Drain were called.
func (m *Mock) Counts() (starts, stops, drains int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops, m.drains
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockOpener hands out Mock sinks.
type MockOpener struct {
	mu    sync.Mutex
	sinks []*Mock
	decks []int
	err   error
	delay time.Duration
}

// NewMockOpener creates an opener that always succeeds.
func NewMockOpener() *MockOpener {
	return &MockOpener{}
}

func (o *MockOpener) Open(deck int, f pcm.Format) (Sink, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	m := NewMock(f)
	m.delay = o.delay
	o.sinks = append(o.sinks, m)
	o.decks = append(o.decks, deck)
	return m, nil
}

// Fail makes following Opens return err; nil restores success.
func (o *MockOpener) Fail(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

// SetDelay applies Mock.SetDelay to every sink opened afterwards.
func (o *MockOpener) SetDelay(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delay = d
}

// Sinks returns every sink opened, in order.
func (o *MockOpener) Sinks() []*Mock {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Mock(nil), o.sinks...)
}

// Last returns the most recent sink opened for deck, or nil.
func (o *MockOpener) Last(deck int) *Mock {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sinks) - 1; i >= 0; i-- {
		if o.decks[i] == deck {
			return o.sinks[i]
		}
	}
	return nil
}
