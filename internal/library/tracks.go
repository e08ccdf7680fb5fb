package library

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// AddTrack inserts or updates a track keyed by source and location.
func (l *Library) AddTrack(ctx context.Context, t Track) error {
	return upsertTrack(ctx, l.db, t, time.Now().Unix())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertTrack(ctx context.Context, e execer, t Track, now int64) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO library_tracks (source, location, mtime, artist, title, duration, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, location) DO UPDATE SET
			mtime = excluded.mtime,
			artist = excluded.artist,
			title = excluded.title,
			duration = excluded.duration,
			updated_at = excluded.updated_at
	`, t.Source, t.Location, t.Mtime, t.Artist, t.Title, t.Duration, now, now)
	return err
}

// Tracks returns every track of a source ordered by artist and title.
func (l *Library) Tracks(ctx context.Context, source string) ([]Track, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, source, location, mtime, artist, title, duration
		FROM library_tracks
		WHERE source = ?
		ORDER BY artist COLLATE NOCASE, title COLLATE NOCASE
	`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// TrackCount returns the number of tracks in a source.
func (l *Library) TrackCount(ctx context.Context, source string) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM library_tracks WHERE source = ?`, source).Scan(&count)
	return count, err
}

// RandomTrack picks a uniformly random track of a source.
func (l *Library) RandomTrack(ctx context.Context, source string) (Track, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, source, location, mtime, artist, title, duration
		FROM library_tracks
		WHERE source = ?
		ORDER BY RANDOM()
		LIMIT 1
	`, source)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Track{}, ErrEmptySource
	}
	return t, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(s scanner) (Track, error) {
	var t Track
	err := s.Scan(&t.ID, &t.Source, &t.Location, &t.Mtime, &t.Artist, &t.Title, &t.Duration)
	return t, err
}
