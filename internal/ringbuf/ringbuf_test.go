package ringbuf

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/deckcast/internal/pcm"
)

func TestNew_CapacityFromFormat(t *testing.T) {
	formats := []pcm.Format{
		pcm.CD,
		{SampleRate: 48000, BitsPerSample: 24, Channels: 2},
		{SampleRate: 8000, BitsPerSample: 16, Channels: 1},
		{SampleRate: 96000, BitsPerSample: 32, Channels: 6},
	}
	for _, f := range formats {
		t.Run(f.String(), func(t *testing.T) {
			rb, err := New(f.BufferSize(5))
			require.NoError(t, err)
			assert.Equal(t, f.SampleRate*(f.BitsPerSample/8)*f.Channels*5, rb.Capacity())
		})
	}
}

func TestNew_RejectsZeroCapacity(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}

func TestWriteRead_FIFO(t *testing.T) {
	rb, err := New(64)
	require.NoError(t, err)

	for i, size := range []int{1, 7, 64, 33, 16} {
		in := bytes.Repeat([]byte{byte(i + 1)}, size)
		n, err := rb.Write(in)
		require.NoError(t, err)
		require.Equal(t, size, n)

		out := make([]byte, size)
		_, err = io.ReadFull(rb, out)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
	assert.Equal(t, int64(121), rb.Written())
	assert.Equal(t, int64(121), rb.Consumed())
}

func TestWrite_TooLarge(t *testing.T) {
	rb, err := New(8)
	require.NoError(t, err)
	_, err = rb.Write(make([]byte, 9))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestWrite_BlocksUntilDrained(t *testing.T) {
	rb, err := New(8)
	require.NoError(t, err)
	_, err = rb.Write(make([]byte, 8))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := rb.Write([]byte{1, 2, 3, 4})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("write returned while buffer was full")
	case <-time.After(20 * time.Millisecond):
	}

	buf := make([]byte, 8)
	_, err = io.ReadFull(rb, buf)
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("write did not resume after drain")
	}
}

func TestClose_UnblocksBothEnds(t *testing.T) {
	rb, err := New(4)
	require.NoError(t, err)
	_, err = rb.Write(make([]byte, 4))
	require.NoError(t, err)

	writeErr := make(chan error, 1)
	go func() {
		_, err := rb.Write([]byte{1})
		writeErr <- err
	}()

	empty, err := New(4)
	require.NoError(t, err)
	readErr := make(chan error, 1)
	go func() {
		_, err := empty.Read(make([]byte, 1))
		readErr <- err
	}()

	rb.Close()
	empty.Close()

	for _, ch := range []chan error{writeErr, readErr} {
		select {
		case err := <-ch:
			assert.ErrorIs(t, err, ErrClosed)
		case <-time.After(time.Second):
			t.Fatal("blocked call did not return after Close")
		}
	}
}

func TestCloseWriter_DrainsThenEOF(t *testing.T) {
	rb, err := New(16)
	require.NoError(t, err)
	_, err = rb.Write([]byte("abc"))
	require.NoError(t, err)
	rb.CloseWriter()

	out, err := io.ReadAll(rb)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)

	_, err = rb.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestMarker_Lifecycle(t *testing.T) {
	rb, err := New(32)
	require.NoError(t, err)
	assert.False(t, rb.HasPassedMarker())

	_, err = rb.Write(make([]byte, 10))
	require.NoError(t, err)
	rb.DropMarker()
	assert.True(t, rb.MarkerSet())
	_, err = rb.Write(make([]byte, 10))
	require.NoError(t, err)

	buf := make([]byte, 9)
	_, err = io.ReadFull(rb, buf)
	require.NoError(t, err)
	assert.False(t, rb.HasPassedMarker())

	_, err = io.ReadFull(rb, buf[:1])
	require.NoError(t, err)
	assert.True(t, rb.HasPassedMarker())

	rb.LiftMarker()
	assert.False(t, rb.MarkerSet())
	assert.False(t, rb.HasPassedMarker())
}
