package metadatacache

import (
	"path/filepath"
	"testing"

	"github.com/hnipps/seriesvault/pkg/models"
)

func TestNewSortsEpisodes(t *testing.T) {
	c := New(models.Series{ID: 1, Name: "Foo"}, []models.Episode{
		{Season: 1, Episode: 3},
		{Season: 1, Episode: 1},
		{Season: 1, Episode: 2},
	})

	eps := c.Episodes()
	if len(eps) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(eps))
	}
	for i, want := range []uint32{1, 2, 3} {
		if eps[i].Episode != want {
			t.Fatalf("episode[%d].Episode = %d, want %d", i, eps[i].Episode, want)
		}
	}
}

func TestEpisodeForLookup(t *testing.T) {
	c := New(models.Series{ID: 1, Name: "Foo"}, []models.Episode{
		{Season: 2, Episode: 5, Name: "The One"},
	})

	ep, ok := c.EpisodeFor(models.EpisodeKey{Season: 2, Episode: 5})
	if !ok || ep.Name != "The One" {
		t.Fatalf("unexpected lookup result: %+v, ok=%v", ep, ok)
	}

	if _, ok := c.EpisodeFor(models.EpisodeKey{Season: 9, Episode: 9}); ok {
		t.Fatalf("expected no match for an absent key")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := New(models.Series{ID: 7, Name: "Bar Baz"}, []models.Episode{
		{Season: 1, Episode: 1, Name: "Pilot"},
	})

	if err := SaveToDisk(dir, original); err != nil {
		t.Fatalf("SaveToDisk failed: %v", err)
	}

	loaded, err := LoadFromDisk(dir)
	if err != nil {
		t.Fatalf("LoadFromDisk failed: %v", err)
	}
	if loaded.Series().ID != 7 || loaded.Series().Name != "Bar Baz" {
		t.Fatalf("unexpected loaded series %+v", loaded.Series())
	}
	if len(loaded.Episodes()) != 1 || loaded.Episodes()[0].Name != "Pilot" {
		t.Fatalf("unexpected loaded episodes %+v", loaded.Episodes())
	}
}

func TestLoadFromDiskMissingFileIsError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	if _, err := LoadFromDisk(dir); err == nil {
		t.Fatal("expected an error loading a cache with no series.json present")
	}
}
