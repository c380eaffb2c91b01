package tags

import (
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// readFLACExtendedTags reads dates and MusicBrainz ids from the Vorbis comment block.
func readFLACExtendedTags(path string, t *Tag) {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return
	}

	for _, meta := range f.Meta {
		if meta.Type != goflac.VorbisComment {
			continue
		}
		cmts, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return
		}
		get := func(keys ...string) string {
			for _, key := range keys {
				if values, err := cmts.Get(key); err == nil && len(values) > 0 {
					return values[0]
				}
			}
			return ""
		}

		if date := get("DATE", "YEAR"); date != "" {
			t.Date = date
		}
		t.OriginalDate = get("ORIGINALDATE", "ORIGINALYEAR")
		t.MBReleaseID = get("MUSICBRAINZ_ALBUMID")
		t.MBTrackID = get("MUSICBRAINZ_RELEASETRACKID")
		return
	}
}
