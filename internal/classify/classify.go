// Package classify implements the Intent Classifier: a pure function from
// a file's relative path, the active Filter Rules, and a loaded Metadata
// Cache to a classification Intent.
package classify

import (
	"fmt"
	"path"
	"strings"

	"github.com/hnipps/seriesvault/internal/metadatacache"
	"github.com/hnipps/seriesvault/internal/parser"
	"github.com/hnipps/seriesvault/pkg/models"
)

// Intent is the (action, dest, descriptor?) triple the classifier produces
// for a single file.
type Intent struct {
	Action     models.Action
	Dest       string
	Descriptor *models.EpisodeKey
}

// Classify determines what should happen to the file at relativePath (a
// forward-slash path relative to the folder root) given rules and the
// folder's currently loaded cache. cache may be nil if no metadata has been
// loaded yet; in that case any file that would otherwise be a Rename
// candidate is left as Ignore, since no destination can be computed.
func Classify(relativePath string, rules models.FilterRules, cache *metadatacache.Cache) Intent {
	basename := path.Base(relativePath)

	ext, hasExt := extensionOf(basename)
	if relativePath == "" || basename == "" || basename == "." || !hasExt {
		return Intent{Action: models.ActionDelete}
	}

	if rules.IsBlacklistedExtension(ext) {
		return Intent{Action: models.ActionDelete}
	}

	for _, component := range strings.Split(relativePath, "/") {
		if rules.IsWhitelistedFolder(component) {
			return Intent{Action: models.ActionWhitelist}
		}
	}

	if rules.IsWhitelistedFilename(basename) {
		return Intent{Action: models.ActionWhitelist}
	}

	parsed, ok := parser.Parse(basename)
	if !ok {
		return Intent{Action: models.ActionIgnore}
	}

	if cache == nil {
		return Intent{Action: models.ActionIgnore}
	}

	key := models.EpisodeKey{Season: parsed.Season, Episode: parsed.Episode}
	newPath := proposedPath(rules, cache, key, parsed)

	if newPath == relativePath {
		return Intent{Action: models.ActionComplete}
	}

	descriptor := key
	return Intent{Action: models.ActionRename, Dest: newPath, Descriptor: &descriptor}
}

func proposedPath(rules models.FilterRules, cache *metadatacache.Cache, key models.EpisodeKey, parsed parser.Parsed) string {
	newFolder := fmt.Sprintf("Season %02d", parsed.Season)

	episodeTitleSuffix := ""
	if ep, found := cache.EpisodeFor(key); found && ep.Name != "" {
		episodeTitleSuffix = "-" + parser.CleanEpisodeTitle(ep.Name)
	}

	var tagSuffix strings.Builder
	for _, tag := range parsed.Tags {
		if rules.IsWhitelistedTag(tag) {
			tagSuffix.WriteString(".[")
			tagSuffix.WriteString(tag)
			tagSuffix.WriteString("]")
		}
	}

	newFilename := fmt.Sprintf("%s-S%02dE%02d%s%s.%s",
		parser.CleanSeriesName(cache.Series().Name),
		parsed.Season, parsed.Episode,
		episodeTitleSuffix, tagSuffix.String(), parsed.Extension)

	return newFolder + "/" + newFilename
}

func extensionOf(basename string) (string, bool) {
	i := strings.LastIndex(basename, ".")
	if i <= 0 || i == len(basename)-1 {
		return "", false
	}
	return basename[i+1:], true
}
