// Package parser extracts (title, season, episode, tags, extension) from an
// episode filename by trying a fixed, ordered set of regex strategies, and
// sanitizes series/episode names into the tokens used in a rename
// destination.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Parsed is the result of successfully parsing a filename.
type Parsed struct {
	Title     string
	Season    uint32
	Episode   uint32
	Tags      []string
	Extension string
}

// ordered strategies, first match wins. Each captures a leading title, the
// season/episode pair, and a trailing tail that tag extraction runs over.
var strategies = []*regexp.Regexp{
	// 1. ...S<d+>E<d+>...
	regexp.MustCompile(`(?i)^(.*?)[ ._-]*s(\d{1,2})e(\d{1,3})(.*)$`),
	// 2. ...Season <d+> Episode <d+>...
	regexp.MustCompile(`(?i)^(.*?)[ ._-]*season[ ._-]*(\d{1,2})[ ._-]*episode[ ._-]*(\d{1,3})(.*)$`),
	// 3. ...<d+>x<d+>...
	regexp.MustCompile(`(?i)^(.*?)[ ._-]*(\d{1,2})x(\d{1,3})(.*)$`),
	// 4. ...<non-word><d><dd><non-word>... (3-digit form)
	regexp.MustCompile(`(?i)^(.*[^0-9A-Za-z])(\d)(\d{2})([^0-9A-Za-z].*)$`),
}

var tagPattern = regexp.MustCompile(`\[(\w{2,})\]|\((\w{2,})\)`)

// Parse extracts (title, season, episode, tags, extension) from filename.
// It returns ok=false if no extension is present or no strategy matches.
func Parse(filename string) (Parsed, bool) {
	base, ext, ok := splitExtension(filename)
	if !ok {
		return Parsed{}, false
	}

	for _, re := range strategies {
		m := re.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		season, err1 := parseUint(m[2])
		episode, err2 := parseUint(m[3])
		if err1 != nil || err2 != nil {
			continue
		}
		return Parsed{
			Title:     strings.TrimSpace(m[1]),
			Season:    season,
			Episode:   episode,
			Tags:      extractTags(m[4]),
			Extension: ext,
		}, true
	}

	return Parsed{}, false
}

func splitExtension(filename string) (base, ext string, ok bool) {
	i := strings.LastIndex(filename, ".")
	if i <= 0 || i == len(filename)-1 {
		return "", "", false
	}
	return filename[:i], filename[i+1:], true
}

func parseUint(s string) (uint32, error) {
	var v uint32
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a digit: %q", s)
		}
		v = v*10 + uint32(r-'0')
	}
	return v, nil
}

// extractTags finds [xxx] / (xxx) tokens (alphanumeric, length >= 2) in tail,
// in source order.
func extractTags(tail string) []string {
	matches := tagPattern.FindAllStringSubmatch(tail, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		if m[1] != "" {
			tags = append(tags, m[1])
		} else {
			tags = append(tags, m[2])
		}
	}
	return tags
}

var bracketContent = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
var punctuationToStrip = strings.NewReplacer("'", "", ",", "", "(", "", ")", "", "[", "", "]", "")
var nonAlphanumericRun = regexp.MustCompile(`[^0-9A-Za-z]+`)

// CleanSeriesName strips bracketed tag tokens and stray quote/paren/bracket
// characters, collapses runs of non-alphanumerics to single spaces, trims,
// and replaces spaces with dots.
func CleanSeriesName(s string) string {
	s = bracketContent.ReplaceAllString(s, " ")
	s = punctuationToStrip.Replace(s)
	s = nonAlphanumericRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, " ", ".")
}

// transliterationFallback covers characters NFKD does not decompose into a
// base letter plus combining marks.
var transliterationFallback = strings.NewReplacer(
	"ß", "ss",
	"Ø", "O",
	"ø", "o",
	"Đ", "D",
	"đ", "d",
	"Ł", "L",
	"ł", "l",
	"Æ", "AE",
	"æ", "ae",
	"Œ", "OE",
	"œ", "oe",
	"Þ", "Th",
	"þ", "th",
)

var stripCombiningMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// transliterate maps accented Latin characters to their closest ASCII
// approximation via Unicode NFKD decomposition followed by combining-mark
// removal, with a small fixed fallback table for characters NFKD leaves
// intact (ß, ø, ...).
func transliterate(s string) string {
	s = transliterationFallback.Replace(s)
	out, _, err := transform.String(stripCombiningMarks, s)
	if err != nil {
		return s
	}
	return out
}

// CleanEpisodeTitle strips bracket contents and stray quote/paren/bracket
// characters, transliterates non-ASCII letters to ASCII, collapses runs of
// non-alphanumerics to single spaces, trims, and replaces spaces with dots.
func CleanEpisodeTitle(s string) string {
	s = bracketContent.ReplaceAllString(s, " ")
	s = punctuationToStrip.Replace(s)
	s = transliterate(s)
	s = nonAlphanumericRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, " ", ".")
}
