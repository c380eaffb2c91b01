package reconcile

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/llehouerou/shelves/internal/catalog"
	"github.com/llehouerou/shelves/internal/library"
)

const (
	// DefaultUnknownArtist titles the folder of tracks without an album artist.
	DefaultUnknownArtist = "Unknown Artist"
	unknownAlbum         = "Unknown Album"
)

// Identity maps catalog records onto library containers.
type Identity struct {
	unknownArtist string
	coll          *collate.Collator
}

// NewIdentity creates a resolver. Folder titles are ordered with the
// collation rules of tag.
func NewIdentity(unknownArtist string, tag language.Tag) *Identity {
	if strings.TrimSpace(unknownArtist) == "" {
		unknownArtist = DefaultUnknownArtist
	}
	return &Identity{
		unknownArtist: unknownArtist,
		coll:          collate.New(tag, collate.IgnoreCase, collate.Loose),
	}
}

// FolderTitle returns the natural folder of the record's album.
func (id *Identity) FolderTitle(r catalog.TrackRecord) string {
	if artist := strings.TrimSpace(r.AlbumArtist); artist != "" {
		return artist
	}
	return id.unknownArtist
}

// AlbumTitle returns the display title of the record's album.
func (id *Identity) AlbumTitle(r catalog.TrackRecord) string {
	if title := strings.TrimSpace(r.AlbumTitle); title != "" {
		return title
	}
	return unknownAlbum
}

// CompareFolderTitles orders folder titles locale-aware, with the unknown
// artist placeholder after everything else.
func (id *Identity) CompareFolderTitles(a, b string) int {
	ua, ub := a == id.unknownArtist, b == id.unknownArtist
	switch {
	case ua && ub:
		return 0
	case ua:
		return 1
	case ub:
		return -1
	}
	return id.coll.CompareString(a, b)
}

func (id *Identity) compareTitles(a, b string) int {
	return id.coll.CompareString(a, b)
}

// canonicalAlbums returns, per key, the topmost album carrying it: lowest
// folder index first, then lowest album index.
func canonicalAlbums(lib *library.Library) map[library.AlbumKey]*library.Album {
	out := make(map[library.AlbumKey]*library.Album)
	for _, a := range lib.Albums() {
		if _, ok := out[a.Key]; !ok {
			out[a.Key] = a
		}
	}
	return out
}

// recordLess is the canonical track order: disc, track number (unknown
// last), title ignoring case, then track id.
func recordLess(a, b catalog.TrackRecord) bool {
	if da, db := discOf(a), discOf(b); da != db {
		return da < db
	}
	if a.TrackNumber != b.TrackNumber {
		switch {
		case a.TrackNumber == catalog.TrackNumberUnknown:
			return false
		case b.TrackNumber == catalog.TrackNumberUnknown:
			return true
		}
		return a.TrackNumber < b.TrackNumber
	}
	if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
		return c < 0
	}
	return a.TrackID < b.TrackID
}

// discOf treats a missing disc number as disc 1.
func discOf(r catalog.TrackRecord) int {
	if r.DiscNumber == catalog.TrackNumberUnknown {
		return 1
	}
	return r.DiscNumber
}
