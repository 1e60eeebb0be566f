// Package bookmarks implements the per-file favourite/read/unread flag
// store, with sparse serialization: entries whose flags are all false are
// omitted from the on-disk array entirely.
package bookmarks

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/hnipps/seriesvault/pkg/models"
)

// entry is the on-disk shape of one bookmark. Only true flags are present,
// thanks to the omitempty tags matching the zero value of bool.
type entry struct {
	ID          string `json:"id"`
	IsRead      bool   `json:"is_read,omitempty"`
	IsUnread    bool   `json:"is_unread,omitempty"`
	IsFavourite bool   `json:"is_favourite,omitempty"`
}

// Table is a concurrency-safe map from a file's src path to its flags.
type Table struct {
	mu      sync.RWMutex
	entries map[string]models.BookmarkFlags
}

// NewTable returns an empty bookmark table.
func NewTable() *Table {
	return &Table{entries: make(map[string]models.BookmarkFlags)}
}

// Get returns the flags recorded for src, or the zero value if none.
func (t *Table) Get(src string) models.BookmarkFlags {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[src]
}

// Set records flags for src. If flags is the zero value, the entry is
// removed so it is not serialized.
func (t *Table) Set(src string, flags models.BookmarkFlags) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if flags.IsZero() {
		delete(t.entries, src)
		return
	}
	t.entries[src] = flags
}

// Len returns the number of non-zero bookmark entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Load replaces the table's contents with the bookmarks.json document at
// path. A missing file is treated as an empty table, not an error.
func (t *Table) Load(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.mu.Lock()
		t.entries = make(map[string]models.BookmarkFlags)
		t.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}

	var wire []entry
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	entries := make(map[string]models.BookmarkFlags, len(wire))
	for _, e := range wire {
		flags := models.BookmarkFlags{IsFavourite: e.IsFavourite, IsRead: e.IsRead, IsUnread: e.IsUnread}
		if !flags.IsZero() {
			entries[e.ID] = flags
		}
	}

	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
	return nil
}

// Save writes the table's non-zero entries to path as a JSON array.
func (t *Table) Save(path string) error {
	t.mu.RLock()
	wire := make([]entry, 0, len(t.entries))
	for src, flags := range t.entries {
		if flags.IsZero() {
			continue
		}
		wire = append(wire, entry{
			ID:          src,
			IsRead:      flags.IsRead,
			IsUnread:    flags.IsUnread,
			IsFavourite: flags.IsFavourite,
		})
	}
	t.mu.RUnlock()

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
