package library

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"

	"github.com/llehouerou/deckcast/internal/db"
	"github.com/llehouerou/deckcast/internal/source"
)

const numWorkers = 4

// ScanStats summarizes one scan of a source.
type ScanStats struct {
	Added   int
	Updated int
	Removed int
	Skipped int // unreadable files
}

// fileInfo holds information about a discovered music file.
type fileInfo struct {
	path  string
	mtime int64
}

// Scan walks the source directory and brings its tracks up to date:
// new and modified files are (re)read, vanished files are removed.
func (l *Library) Scan(ctx context.Context, name string) (ScanStats, error) {
	var stats ScanStats
	src, err := l.Source(ctx, name)
	if err != nil {
		return stats, err
	}

	files := discoverFiles(src.Path)

	existing, err := l.existingMtimes(ctx, name)
	if err != nil {
		return stats, err
	}

	var changed []fileInfo
	for _, f := range files {
		if mtime, ok := existing[f.path]; ok && mtime == f.mtime {
			continue
		}
		changed = append(changed, f)
	}

	tracks, skipped := readTracks(ctx, name, changed)
	stats.Skipped = skipped
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.path] = true
	}

	now := time.Now().Unix()
	err = db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		for _, t := range tracks {
			if err := upsertTrack(ctx, tx, t, now); err != nil {
				return err
			}
			if _, ok := existing[t.Location]; ok {
				stats.Updated++
			} else {
				stats.Added++
			}
		}
		for path := range existing {
			if seen[path] {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM library_tracks WHERE source = ? AND location = ?
			`, name, path); err != nil {
				return err
			}
			stats.Removed++
		}
		return nil
	})
	return stats, err
}

// discoverFiles walks root and returns every decodable file.
func discoverFiles(root string) []fileInfo {
	var files []fileInfo
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		// Skip any walk errors - intentionally continuing to scan other paths
		if walkErr != nil {
			return nil //nolint:nilerr // intentionally skipping errors
		}
		if d.IsDir() || !source.Supported(path) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil //nolint:nilerr // intentionally skipping errors
		}
		files = append(files, fileInfo{path: path, mtime: info.ModTime().Unix()})
		return nil
	})
	return files
}

func (l *Library) existingMtimes(ctx context.Context, name string) (map[string]int64, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT location, mtime FROM library_tracks WHERE source = ?`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var path string
		var mtime int64
		if err := rows.Scan(&path, &mtime); err != nil {
			return nil, err
		}
		result[path] = mtime
	}
	return result, rows.Err()
}

// readTracks reads metadata of files in parallel.
func readTracks(ctx context.Context, name string, files []fileInfo) ([]Track, int) {
	workCh := make(chan fileInfo)
	var (
		mu      sync.Mutex
		tracks  = make([]Track, 0, len(files))
		skipped int
		wg      sync.WaitGroup
	)
	for range numWorkers {
		wg.Go(func() {
			for f := range workCh {
				t, err := readTrack(f)
				mu.Lock()
				if err != nil {
					skipped++
				} else {
					t.Source = name
					tracks = append(tracks, t)
				}
				mu.Unlock()
			}
		})
	}

	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		workCh <- f
	}
	close(workCh)
	wg.Wait()
	return tracks, skipped
}

// readTrack takes artist and title from tags, falling back to an
// "Artist - Title" file name.
func readTrack(f fileInfo) (Track, error) {
	t := Track{Location: f.path, Mtime: f.mtime}

	file, err := os.Open(f.path)
	if err != nil {
		return t, err
	}
	defer file.Close()

	if m, err := tag.ReadFrom(file); err == nil {
		t.Artist = strings.TrimSpace(m.Artist())
		t.Title = strings.TrimSpace(m.Title())
	}
	if strings.EqualFold(filepath.Ext(f.path), ".mp3") {
		readMP3Frames(f.path, &t)
	}
	if t.Artist == "" || t.Title == "" {
		artist, title := parseFileName(f.path)
		if t.Artist == "" {
			t.Artist = artist
		}
		if t.Title == "" {
			t.Title = title
		}
	}
	return t, nil
}

func parseFileName(path string) (artist, title string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if a, b, ok := strings.Cut(base, " - "); ok {
		return strings.TrimSpace(a), strings.TrimSpace(b)
	}
	return "", strings.TrimSpace(base)
}
