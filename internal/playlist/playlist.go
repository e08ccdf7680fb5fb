package playlist

import "sync"

// Entry is one line of the playlist.
type Entry struct {
	Track
	Tentative  bool // pending, not played yet
	AutoLoaded bool // already handed to a deck by auto-advance
}

// Playlist is the running log of a show. Entries before the pointer have
// been played; entries at or after it are pending.
type Playlist struct {
	mu      sync.Mutex
	entries []Entry
	pointer int
}

// NewPlaylist creates a new empty playlist.
func NewPlaylist() *Playlist {
	return &Playlist{
		entries: make([]Entry, 0),
	}
}

// Add appends tracks as pending entries.
func (p *Playlist) Add(tracks ...Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range tracks {
		p.entries = append(p.entries, Entry{Track: t, Tentative: true})
	}
}

// Insert places a pending entry at index, clamped to the list bounds.
func (p *Playlist) Insert(index int, t Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	index = max(0, min(index, len(p.entries)))
	p.insert(index, Entry{Track: t, Tentative: true})
}

func (p *Playlist) insert(index int, e Entry) {
	p.entries = append(p.entries, Entry{})
	copy(p.entries[index+1:], p.entries[index:])
	p.entries[index] = e
	if index < p.pointer {
		p.pointer++
	}
}

// Remove removes the entry at the given index.
// Returns false if index is out of bounds.
func (p *Playlist) Remove(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.entries) {
		return false
	}
	p.entries = append(p.entries[:index], p.entries[index+1:]...)
	if index < p.pointer {
		p.pointer--
	}
	return true
}

// Clear removes every entry and rewinds the pointer.
func (p *Playlist) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = p.entries[:0]
	p.pointer = 0
}

// Entries returns a copy of all entries.
func (p *Playlist) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]Entry, len(p.entries))
	copy(result, p.entries)
	return result
}

// Len returns the number of entries.
func (p *Playlist) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Pointer is the index of the first pending entry.
func (p *Playlist) Pointer() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pointer
}

// Move moves the entry at fromIndex to toIndex.
// Returns false if either index is out of bounds.
func (p *Playlist) Move(fromIndex, toIndex int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fromIndex < 0 || fromIndex >= len(p.entries) {
		return false
	}
	if toIndex < 0 || toIndex >= len(p.entries) {
		return false
	}
	if fromIndex == toIndex {
		return true
	}

	e := p.entries[fromIndex]
	p.entries = append(p.entries[:fromIndex], p.entries[fromIndex+1:]...)
	p.entries = append(p.entries[:toIndex], append([]Entry{e}, p.entries[toIndex:]...)...)
	return true
}

// NextLoadableTentative returns the first pending entry that auto-advance
// has not loaded yet and marks it as loaded.
func (p *Playlist) NextLoadableTentative() (Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := p.pointer; i < len(p.entries); i++ {
		e := &p.entries[i]
		if e.Tentative && !e.AutoLoaded {
			e.AutoLoaded = true
			return e.Track, true
		}
	}
	return Track{}, false
}

// AlreadyPlayed reports whether the playlist holds an entry for this
// artist and title, pending or played.
func (p *Playlist) AlreadyPlayed(artist, title string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if matches(e.Track, artist, title) {
			return true
		}
	}
	return false
}

// MarkPlayed logs t as played at the pointer. A matching pending entry is
// moved there; a track already in the played history is left alone, so
// resuming a stopped deck logs nothing new. Otherwise a new entry is
// inserted.
func (p *Playlist) MarkPlayed(t Track) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i := p.findPending(t); i >= 0 {
		e := p.entries[i]
		p.entries = append(p.entries[:i], p.entries[i+1:]...)
		e.Tentative = false
		p.insert(p.pointer, e)
	} else if p.findPlayed(t) >= 0 {
		return
	} else {
		p.insert(p.pointer, Entry{Track: t})
	}
	p.pointer++
}

// findPlayed returns the index of the latest played entry matching t.
func (p *Playlist) findPlayed(t Track) int {
	for i := p.pointer - 1; i >= 0; i-- {
		e := p.entries[i]
		if t.RequestID != "" && e.RequestID == t.RequestID {
			return i
		}
		if e.Same(t) || (e.Location != "" && e.Location == t.Location) {
			return i
		}
	}
	return -1
}

func (p *Playlist) findPending(t Track) int {
	if t.RequestID != "" {
		for i := p.pointer; i < len(p.entries); i++ {
			if p.entries[i].Tentative && p.entries[i].RequestID == t.RequestID {
				return i
			}
		}
	}
	for i := p.pointer; i < len(p.entries); i++ {
		e := p.entries[i]
		if !e.Tentative {
			continue
		}
		if e.Same(t) || (e.Location != "" && e.Location == t.Location) {
			return i
		}
	}
	return -1
}
