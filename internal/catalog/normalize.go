package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/llehouerou/shelves/internal/library"
)

var (
	punctuationRe   = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multipleSpaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeTitle normalizes a title for comparison by:
// - Removing diacritics
// - Converting to lowercase
// - Replacing punctuation with spaces
// - Normalizing whitespace
func NormalizeTitle(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	s = punctuationRe.ReplaceAllString(s, " ")
	s = multipleSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// AlbumKeyFor derives the album identity of a track. A MusicBrainz release id
// wins; otherwise the normalized album artist and album title are used, so
// spelling variations of the same album collapse onto one key.
func AlbumKeyFor(mbReleaseID, albumArtist, albumTitle string) library.AlbumKey {
	if id := strings.ToLower(strings.TrimSpace(mbReleaseID)); id != "" {
		return library.AlbumKey("mb:" + id)
	}
	return library.AlbumKey("tag:" + NormalizeTitle(albumArtist) + "/" + NormalizeTitle(albumTitle))
}
