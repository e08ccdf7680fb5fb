// Package source opens audio locations as 16-bit signed little-endian PCM
// streams.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/llehouerou/deckcast/internal/errmsg"
	"github.com/llehouerou/deckcast/internal/pcm"
)

var (
	// ErrUnsupported is returned for file types no decoder handles.
	ErrUnsupported = errors.New("unsupported audio format")
	// ErrDecode wraps failures of the underlying decoder.
	ErrDecode = errors.New("decode failed")
	// ErrClosed is returned by Read after Close.
	ErrClosed = errors.New("source closed")
)

// Source is a decoded PCM stream.
type Source interface {
	io.Reader
	// Format of the bytes returned by Read.
	Format() pcm.Format
	// Duration is a hint in tenths of a second, 0 when unknown.
	Duration() int
	Close() error
}

// Opener turns a location into a Source.
type Opener interface {
	Open(ctx context.Context, location string) (Source, error)
}

// Extensions lists the file extensions OpenFile can decode.
var Extensions = []string{".mp3", ".flac", ".ogg", ".oga", ".wav", ".aif", ".aiff"}

// Supported reports whether path has a decodable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Factory opens local paths directly and remote URLs through a disk cache.
type Factory struct {
	cache  *Cache
	logger *slog.Logger
}

// NewFactory creates a factory caching remote audio in cache.
func NewFactory(cache *Cache, logger *slog.Logger) *Factory {
	return &Factory{cache: cache, logger: logger}
}

// Open resolves location to a local file and decodes it.
func (f *Factory) Open(ctx context.Context, location string) (Source, error) {
	path, err := f.resolve(ctx, location)
	if err != nil {
		return nil, err
	}
	src, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("source opened", "location", location, "format", src.Format().String(), "duration", src.Duration())
	return src, nil
}

func (f *Factory) resolve(ctx context.Context, location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path, including Windows drive letters
		return location, nil
	}
	switch u.Scheme {
	case "file":
		return u.Path, nil
	case "http", "https":
		if f.cache == nil {
			return "", fmt.Errorf("%w: no cache configured for %s", ErrUnsupported, location)
		}
		path, err := f.cache.Fetch(ctx, location)
		if err != nil {
			f.logger.Warn(errmsg.FormatWith(errmsg.OpSourceCache, location, err))
			return "", err
		}
		return path, nil
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupported, u.Scheme)
	}
}

// OpenFile decodes a local file chosen by its extension.
func OpenFile(path string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var src Source
	switch ext {
	case ".mp3":
		src, err = openMP3(f)
	case ".flac":
		src, err = openFLAC(f)
	case ".ogg", ".oga":
		src, err = openVorbis(f)
	case ".wav":
		src, err = openWAV(f)
	case ".aif", ".aiff":
		src, err = openAIFF(f)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return src, nil
}

func tenths(frames int64, rate int) int {
	if frames <= 0 || rate <= 0 {
		return 0
	}
	return int(frames * 10 / int64(rate))
}

// pending holds converted bytes not yet returned to the caller.
type pending struct {
	buf []byte
}

func (p *pending) drain(dst []byte) int {
	n := copy(dst, p.buf)
	p.buf = p.buf[n:]
	return n
}
