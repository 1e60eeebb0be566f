package bookmarks

import (
	"path/filepath"
	"testing"

	"github.com/hnipps/seriesvault/pkg/models"
)

func TestSetAndGetRoundTrip(t *testing.T) {
	tbl := NewTable()
	tbl.Set("a.mkv", models.BookmarkFlags{IsFavourite: true})

	flags := tbl.Get("a.mkv")
	if !flags.IsFavourite {
		t.Fatalf("expected favourite flag, got %+v", flags)
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", tbl.Len())
	}
}

func TestSetZeroFlagsRemovesEntry(t *testing.T) {
	tbl := NewTable()
	tbl.Set("a.mkv", models.BookmarkFlags{IsRead: true})
	tbl.Set("a.mkv", models.BookmarkFlags{})

	if tbl.Len() != 0 {
		t.Fatalf("expected entry removed on zero flags, got %d entries", tbl.Len())
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	tbl := NewTable()
	tbl.Set("stale.mkv", models.BookmarkFlags{IsRead: true})

	path := filepath.Join(t.TempDir(), "bookmarks.json")
	if err := tbl.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tbl.Len() != 0 {
		t.Fatalf("expected a missing file to reset the table to empty, got %d entries", tbl.Len())
	}
}

func TestSaveAndLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.json")

	tbl := NewTable()
	tbl.Set("a.mkv", models.BookmarkFlags{IsFavourite: true})
	tbl.Set("b.mkv", models.BookmarkFlags{IsRead: true, IsUnread: true})

	if err := tbl.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := NewTable()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 loaded entries, got %d", loaded.Len())
	}
	if got := loaded.Get("a.mkv"); !got.IsFavourite {
		t.Fatalf("expected a.mkv favourite flag to round-trip, got %+v", got)
	}
}
