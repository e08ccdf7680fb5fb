package deck

import (
	"errors"
	"io"

	"github.com/llehouerou/deckcast/internal/pcm"
	"github.com/llehouerou/deckcast/internal/source"
)

// Analysis is what a deck would see while reading a whole source.
type Analysis struct {
	Format   pcm.Format
	Duration int   // hint from the source, tenths
	Length   int   // measured length, tenths
	Bytes    int64 // PCM bytes decoded
	Peak     float64
	// CueOffset is where playback would start, -1 if the source is silent.
	CueOffset int64
	// MarkerOffset is where auto-advance would trigger, -1 if never.
	MarkerOffset int64
}

// Analyze reads src to the end applying the same cue trim and trailing
// silence rules as a deck with auto-advance enabled. Offsets are in source
// bytes. Without a duration hint no marker is reported.
func Analyze(src source.Source) (Analysis, error) {
	f := src.Format()
	a := Analysis{
		Format:       f,
		Duration:     src.Duration(),
		CueOffset:    -1,
		MarkerOffset: -1,
	}
	if err := f.Validate(); err != nil {
		return a, err
	}

	bpt := f.BytesPerTenth()
	remaining := a.Duration
	counter := 0
	var runningPeak float64
	buf := make([]byte, chunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			counter += n
			for counter >= bpt {
				counter -= bpt
				if remaining > 0 {
					remaining--
				}
			}
			peak := pcm.Peak(buf, n, f)
			a.Peak = max(a.Peak, peak)
			if a.CueOffset < 0 && peak > cueThreshold {
				a.CueOffset = a.Bytes
			}
			a.Bytes += int64(n)
			if a.CueOffset >= 0 {
				runningPeak = max(runningPeak, peak)
				if trailing(remaining, a.Duration, peak, runningPeak) {
					if a.MarkerOffset < 0 {
						a.MarkerOffset = a.Bytes
					}
				} else {
					a.MarkerOffset = -1
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return a, err
		}
	}
	a.Length = f.Tenths(a.Bytes)
	return a, nil
}
