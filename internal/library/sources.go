package library

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/llehouerou/deckcast/internal/db"
)

// Sources returns all library sources in the order they were added.
func (l *Library) Sources(ctx context.Context) ([]Source, error) {
	return l.querySources(ctx, `SELECT name, path, auto_advance FROM library_sources ORDER BY added_at, name`)
}

// AutoAdvanceSources returns the sources eligible for random picks.
func (l *Library) AutoAdvanceSources(ctx context.Context) ([]Source, error) {
	return l.querySources(ctx, `
		SELECT name, path, auto_advance FROM library_sources
		WHERE auto_advance = 1
		ORDER BY added_at, name
	`)
}

func (l *Library) querySources(ctx context.Context, query string) ([]Source, error) {
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.Name, &s.Path, &s.AutoAdvance); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// Source returns the named source.
func (l *Library) Source(ctx context.Context, name string) (Source, error) {
	var s Source
	err := l.db.QueryRowContext(ctx, `
		SELECT name, path, auto_advance FROM library_sources WHERE name = ?
	`, name).Scan(&s.Name, &s.Path, &s.AutoAdvance)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, ErrNoSuchSource
	}
	return s, err
}

// AddSource registers a source, updating path and eligibility if the name
// already exists.
func (l *Library) AddSource(ctx context.Context, s Source) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO library_sources (name, path, auto_advance, added_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET path = excluded.path, auto_advance = excluded.auto_advance
	`, s.Name, s.Path, s.AutoAdvance, time.Now().Unix())
	return err
}

// SetAutoAdvance toggles whether a source feeds random picks.
func (l *Library) SetAutoAdvance(ctx context.Context, name string, enabled bool) error {
	res, err := l.db.ExecContext(ctx, `UPDATE library_sources SET auto_advance = ? WHERE name = ?`, enabled, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoSuchSource
	}
	return nil
}

// RemoveSource removes a source and all of its tracks.
func (l *Library) RemoveSource(ctx context.Context, name string) error {
	return db.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM library_tracks WHERE source = ?`, name); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM library_sources WHERE name = ?`, name)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNoSuchSource
		}
		return nil
	})
}
