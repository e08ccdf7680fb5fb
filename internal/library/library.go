// Package library is the catalog of music the console can pick tracks from.
package library

import (
	"database/sql"
	"errors"
)

var (
	// ErrEmptySource is returned when a source has no tracks to pick from.
	ErrEmptySource = errors.New("library source has no tracks")
	// ErrNoSuchSource is returned for unknown source names.
	ErrNoSuchSource = errors.New("no such library source")
)

// Source is a named directory of music.
type Source struct {
	Name        string
	Path        string
	AutoAdvance bool // eligible for random auto-advance picks
}

// Track is one catalogued file.
type Track struct {
	ID       int64
	Source   string
	Location string
	Mtime    int64
	Artist   string
	Title    string
	Duration int // tenths, 0 when unknown
}

type Library struct {
	db *sql.DB
}

func New(db *sql.DB) *Library {
	return &Library{db: db}
}
