// Package metadatacache owns one Series plus its Episodes, kept sorted by
// (season, episode), with an index for O(1) lookup by Episode Key. A Cache
// is replaced atomically on every successful load; it is never partially
// mutated.
package metadatacache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hnipps/seriesvault/pkg/models"
)

const (
	seriesFileName   = "series.json"
	episodesFileName = "episodes.json"
)

// Cache is an immutable snapshot of one series and its episodes.
type Cache struct {
	series   models.Series
	episodes []models.Episode
	index    map[models.EpisodeKey]int
}

// New builds a Cache from a Series and an unordered Episode sequence. The
// sequence is always sorted by (season, episode) on construction, so every
// caller sees the same ordered view regardless of the order the source
// (disk or API) produced episodes in.
func New(series models.Series, episodes []models.Episode) *Cache {
	sorted := make([]models.Episode, len(episodes))
	copy(sorted, episodes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key().Less(sorted[j].Key())
	})

	index := make(map[models.EpisodeKey]int, len(sorted))
	for i, ep := range sorted {
		index[ep.Key()] = i
	}

	return &Cache{series: series, episodes: sorted, index: index}
}

// Series returns the cached series record.
func (c *Cache) Series() models.Series {
	return c.series
}

// Episodes returns the sorted episode sequence. Callers must not mutate the
// returned slice in place.
func (c *Cache) Episodes() []models.Episode {
	return c.episodes
}

// EpisodeFor looks up the episode at key in O(1).
func (c *Cache) EpisodeFor(key models.EpisodeKey) (models.Episode, bool) {
	i, ok := c.index[key]
	if !ok {
		return models.Episode{}, false
	}
	return c.episodes[i], true
}

// LoadFromDisk reads series.json and episodes.json from dir and builds a
// Cache from them.
func LoadFromDisk(dir string) (*Cache, error) {
	var series models.Series
	if err := readJSON(filepath.Join(dir, seriesFileName), &series); err != nil {
		return nil, fmt.Errorf("load series cache: %w", err)
	}

	var episodes []models.Episode
	if err := readJSON(filepath.Join(dir, episodesFileName), &episodes); err != nil {
		return nil, fmt.Errorf("load episodes cache: %w", err)
	}

	return New(series, episodes), nil
}

// SaveToDisk writes series.json and episodes.json under dir, creating dir if
// necessary. It reports each file's write result independently; a failure on
// one does not prevent an attempt at the other, and both errors (if any) are
// joined in the returned error.
func SaveToDisk(dir string, cache *Cache) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	seriesErr := writeJSON(filepath.Join(dir, seriesFileName), cache.Series())
	episodesErr := writeJSON(filepath.Join(dir, episodesFileName), cache.Episodes())

	switch {
	case seriesErr != nil && episodesErr != nil:
		return fmt.Errorf("save series cache: %w; save episodes cache: %v", seriesErr, episodesErr)
	case seriesErr != nil:
		return fmt.Errorf("save series cache: %w", seriesErr)
	case episodesErr != nil:
		return fmt.Errorf("save episodes cache: %w", episodesErr)
	default:
		return nil
	}
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
