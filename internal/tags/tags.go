// Package tags reads the catalog-relevant metadata of music files.
// It covers MP3, FLAC, Opus/Ogg and M4A.
package tags

import (
	"strconv"
	"strings"
)

// File extensions supported by the tags package.
const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtOPUS = ".opus"
	ExtOGG  = ".ogg"
	ExtOGA  = ".oga"
	ExtM4A  = ".m4a"
	ExtMP4  = ".mp4"
)

// Tag holds the metadata the catalog needs from a music file.
type Tag struct {
	Path        string
	Title       string
	Artist      string
	AlbumArtist string // falls back to Artist when the file has none
	Album       string

	TrackNumber int // 0 when unknown
	DiscNumber  int // 0 when unknown

	Date         string // Release date (YYYY-MM-DD, YYYY-MM or YYYY)
	OriginalDate string // Original release date

	MBReleaseID string // MusicBrainz album (release) id
	MBTrackID   string // MusicBrainz release track id
}

// BestDate returns the release date, falling back to the original date.
func (t *Tag) BestDate() string {
	if t.Date != "" {
		return t.Date
	}
	return t.OriginalDate
}

// IsMusicFile returns true if the path has a supported music file extension.
func IsMusicFile(path string) bool {
	ext := strings.ToLower(path)
	if idx := strings.LastIndex(ext, "."); idx >= 0 {
		ext = ext[idx:]
	} else {
		return false
	}
	switch ext {
	case ExtMP3, ExtFLAC, ExtOPUS, ExtOGG, ExtOGA, ExtM4A, ExtMP4:
		return true
	}
	return false
}

// taglibTags wraps a taglib result map with helper methods.
type taglibTags map[string][]string

// get returns the first value for any of the given keys, or empty string if not found.
func (t taglibTags) get(keys ...string) string {
	for _, key := range keys {
		if values, ok := t[key]; ok && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// number parses a track/disc value that may be "N" or "N/M".
func (t taglibTags) number(key string) int {
	n, _ := parseNumberPair(t.get(key))
	return n
}

// parseNumberPair parses a track or disc number like "5" or "5/10".
func parseNumberPair(s string) (num, total int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0
	}
	parts := strings.SplitN(s, "/", 2)
	num, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	if len(parts) == 2 {
		total, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return num, total
}
