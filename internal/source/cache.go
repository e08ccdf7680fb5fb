package source

import (
	"context"
	"crypto/sha1" //nolint:gosec // cache key, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
)

const defaultFetchTimeout = 2 * time.Minute

// Cache downloads remote audio once and serves it from disk afterwards.
type Cache struct {
	dir    string
	client *http.Client
	logger *slog.Logger
}

// DefaultCacheDir is $XDG_CACHE_HOME/deckcast/audio.
func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, "deckcast", "audio")
}

// NewCache creates a cache rooted at dir. A nil client gets a default one.
func NewCache(dir string, client *http.Client, logger *slog.Logger) *Cache {
	if dir == "" {
		dir = DefaultCacheDir()
	}
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Cache{dir: dir, client: client, logger: logger}
}

// Dir is the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns where rawURL is stored, whether or not it was fetched.
func (c *Cache) Path(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL)) //nolint:gosec // cache key
	name := hex.EncodeToString(sum[:])
	if u, err := url.Parse(rawURL); err == nil {
		name += strings.ToLower(path.Ext(u.Path))
	}
	return filepath.Join(c.dir, name)
}

// Fetch returns the local path of rawURL, downloading it on first use.
func (c *Cache) Fetch(ctx context.Context, rawURL string) (string, error) {
	target := c.Path(rawURL)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
	}

	tmp, err := os.CreateTemp(c.dir, filepath.Base(target)+".*.part")
	if err != nil {
		return "", err
	}
	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	c.logger.Info("cached remote audio", "url", rawURL, "size", humanize.Bytes(uint64(n))) //nolint:gosec // n >= 0
	return target, nil
}
