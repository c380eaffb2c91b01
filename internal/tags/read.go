package tags

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// Read reads the metadata of a music file.
// dhowden/tag handles the common case; format-specific readers fill in
// dates and MusicBrainz ids and take over when dhowden/tag cannot parse the file.
func Read(path string) (*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))

	m, err := tag.ReadFrom(f)
	if err != nil {
		switch ext {
		case ExtMP3:
			// dhowden/tag has issues with some UTF-16 encoded ID3 tags
			return readMP3WithID3v2(path)
		case ExtM4A, ExtMP4, ExtFLAC, ExtOPUS, ExtOGG, ExtOGA:
			return readWithTaglib(path)
		}
		return nil, err
	}

	track, _ := m.Track()
	disc, _ := m.Disc()

	t := &Tag{
		Path:        path,
		Title:       m.Title(),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		Album:       m.Album(),
		TrackNumber: track,
		DiscNumber:  disc,
	}
	if y := m.Year(); y > 0 {
		t.Date = strconv.Itoa(y)
	}

	switch ext {
	case ExtMP3:
		readMP3ExtendedTags(path, t)
	case ExtFLAC:
		readFLACExtendedTags(path, t)
	case ExtOPUS, ExtOGG, ExtOGA, ExtM4A, ExtMP4:
		readTaglibExtendedTags(path, t)
	}

	t.normalize()
	return t, nil
}

// normalize trims values and applies the album artist fallback.
func (t *Tag) normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.Artist = strings.TrimSpace(t.Artist)
	t.AlbumArtist = strings.TrimSpace(t.AlbumArtist)
	t.Album = strings.TrimSpace(t.Album)
	t.MBReleaseID = strings.TrimSpace(t.MBReleaseID)
	if t.AlbumArtist == "" {
		t.AlbumArtist = t.Artist
	}
}
