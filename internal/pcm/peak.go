package pcm

import (
	"encoding/binary"

	"github.com/go-audio/audio"
)

// Peak returns the normalized peak amplitude of the first n bytes of buf:
// the largest |sample| over every channel divided by full scale, in [0,1].
// A trailing partial sample is ignored.
func Peak(buf []byte, n int, f Format) float64 {
	size := f.SampleSize()
	if size == 0 {
		return 0
	}
	if n > len(buf) {
		n = len(buf)
	}
	n -= n % size

	var peak int64
	for i := 0; i < n; i += size {
		v := abs(sampleAt(buf[i:], size))
		if v > peak {
			peak = v
		}
	}
	return normalize(peak, f.BitsPerSample)
}

// PeakInts is Peak over a decoded integer buffer.
func PeakInts(b *audio.IntBuffer) float64 {
	if b == nil || b.SourceBitDepth == 0 {
		return 0
	}
	var peak int64
	for _, s := range b.Data {
		if v := abs(int64(s)); v > peak {
			peak = v
		}
	}
	return normalize(peak, b.SourceBitDepth)
}

func sampleAt(b []byte, size int) int64 {
	switch size {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(b))) //nolint:gosec // audio samples
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xffffff
		}
		return int64(v)
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(b))) //nolint:gosec // audio samples
	default:
		return 0
	}
}

func normalize(peak int64, bits int) float64 {
	if bits <= 0 {
		return 0
	}
	fullScale := int64(1) << (bits - 1)
	if peak >= fullScale {
		return 1
	}
	return float64(peak) / float64(fullScale)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Decode appends the signed samples of p to dst, one int per channel sample.
func Decode(dst []int, p []byte, f Format) []int {
	size := f.SampleSize()
	if size == 0 {
		return dst
	}
	for i := 0; i+size <= len(p); i += size {
		dst = append(dst, int(sampleAt(p[i:], size)))
	}
	return dst
}
