package playlist

import (
	"path/filepath"
	"strings"
)

// Track is the payload a deck loads and reports back on.
type Track struct {
	Title     string
	Artist    string
	Library   string // library source name, empty for ad-hoc loads
	Location  string // file path or http(s) URL
	Duration  int    // tenths of a second, 0 when unknown
	RequestID string // listener request this track answers, if any
}

// Name returns "Artist - Title", falling back to the file name.
func (t Track) Name() string {
	switch {
	case t.Artist != "" && t.Title != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	default:
		return filepath.Base(t.Location)
	}
}

// Same reports whether both tracks carry the same artist and title.
func (t Track) Same(o Track) bool {
	return matches(t, o.Artist, o.Title)
}

func matches(t Track, artist, title string) bool {
	if t.Title == "" && t.Artist == "" {
		return false
	}
	return strings.EqualFold(t.Artist, artist) && strings.EqualFold(t.Title, title)
}
