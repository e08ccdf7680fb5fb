package db

import (
	"context"
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		PRAGMA foreign_keys = ON;

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS library_sources (
			name TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			auto_advance INTEGER NOT NULL DEFAULT 1,
			added_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS library_tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL REFERENCES library_sources(name) ON DELETE CASCADE,
			location TEXT NOT NULL,
			mtime INTEGER NOT NULL DEFAULT 0,
			artist TEXT NOT NULL,
			title TEXT NOT NULL,
			duration INTEGER NOT NULL DEFAULT 0,
			added_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(source, location)
		);

		CREATE INDEX IF NOT EXISTS idx_tracks_source ON library_tracks(source);
		CREATE INDEX IF NOT EXISTS idx_tracks_artist_title ON library_tracks(artist, title);
	`)
	if err != nil {
		return err
	}

	return WithTx(context.Background(), db, func(tx *sql.Tx) error {
		var version int
		err := tx.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
		if err != nil {
			return err
		}
		if version >= currentSchemaVersion {
			return nil
		}
		_, err = tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, currentSchemaVersion)
		return err
	})
}
