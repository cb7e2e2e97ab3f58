// package match resolves source catalog tracks to their best counterpart in
// the target catalog.
//
// Matching is a heuristic, not an exact oracle: candidates from the target
// catalog's search are scored on title similarity, artist similarity and
// duration closeness, and the best candidate is accepted only above a
// configurable threshold.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fingerprint is a normalized (title, artist) key used for cache lookup.
//
// Two tracks with different source ids but identical normalized title+artist
// share a fingerprint and may reuse a cached match.
type Fingerprint string

// Parenthetical/bracketed suffixes like "(remastered)", "(feat. X)" or
// "[live]" commonly differ between catalogs and are dropped.
var parenthetical = regexp.MustCompile(`\s*[(\[][^)\]]*[)\]]`)

// FingerprintOf derives the cache key for a track. Deterministic and pure.
func FingerprintOf(title, artist string) Fingerprint {
	return Fingerprint(Normalize(artist) + "|" + Normalize(title))
}

// Normalize lower-cases s, strips diacritics and punctuation, drops
// parenthetical segments and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = parenthetical.ReplaceAllString(s, " ")
	s = stripDiacritics(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// stripDiacritics decomposes s and removes combining marks, so "Beyoncé"
// compares equal to "Beyonce". Transformers carry state, so the chain is
// built per call.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SearchQuery builds the target catalog search string for a track: the title
// with any featuring suffix dropped, followed by the artist, with bare
// ampersands removed. Mirrors what the target catalog tolerates best.
func SearchQuery(title, artist string) string {
	title = featSuffix.ReplaceAllString(title, "")
	query := artist + " " + title
	return strings.ReplaceAll(query, " &", "")
}

var featSuffix = regexp.MustCompile(`\s*[(\[]feat\.[^)\]]*[)\]]`)
