package tags

import (
	"go.senan.xyz/taglib"
)

// readWithTaglib reads metadata using TagLib when dhowden/tag fails.
func readWithTaglib(path string) (*Tag, error) {
	rawTags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, err
	}
	tags := taglibTags(rawTags)

	t := &Tag{
		Path:        path,
		Title:       tags.get(taglib.Title),
		Artist:      tags.get(taglib.Artist),
		AlbumArtist: tags.get(taglib.AlbumArtist),
		Album:       tags.get(taglib.Album),
		TrackNumber: tags.number(taglib.TrackNumber),
		DiscNumber:  tags.number(taglib.DiscNumber),
	}
	applyTaglibExtended(tags, t)

	t.normalize()
	return t, nil
}

// readTaglibExtendedTags reads dates and MusicBrainz ids using TagLib.
func readTaglibExtendedTags(path string, t *Tag) {
	rawTags, err := taglib.ReadTags(path)
	if err != nil {
		return
	}
	applyTaglibExtended(taglibTags(rawTags), t)
}

func applyTaglibExtended(tags taglibTags, t *Tag) {
	if date := tags.get(taglib.Date); date != "" {
		t.Date = date
	}
	t.OriginalDate = tags.get(taglib.OriginalDate, "ORIGINALYEAR")

	// M4A files written by Picard use the mixed-case freeform names
	t.MBReleaseID = tags.get(
		taglib.MusicBrainzAlbumID,
		"MUSICBRAINZ ALBUM ID",
		"MusicBrainz Album Id",
	)
	t.MBTrackID = tags.get(
		taglib.MusicBrainzReleaseTrackID,
		"MUSICBRAINZ RELEASE TRACK ID",
		"MusicBrainz Release Track Id",
	)
}
