package tags

import (
	"github.com/bogem/id3v2/v2"
)

// readMP3ExtendedTags reads dates and MusicBrainz ids from ID3v2 frames.
func readMP3ExtendedTags(path string, t *Tag) {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return
	}
	defer id3tag.Close()

	applyID3Frames(id3tag, t)
}

func applyID3Frames(id3tag *id3v2.Tag, t *Tag) {
	// ID3v2.4 recording date first, then ID3v2.3 TYER + TDAT (DDMM)
	if date := getID3TextFrame(id3tag, "TDRC"); date != "" {
		t.Date = date
	} else if year := getID3TextFrame(id3tag, "TYER"); year != "" {
		t.Date = year
		if tdat := getID3TextFrame(id3tag, "TDAT"); len(tdat) == 4 {
			t.Date = year + "-" + tdat[2:4] + "-" + tdat[0:2]
		}
	}

	t.OriginalDate = getID3TextFrame(id3tag, "TDOR")
	if t.OriginalDate == "" {
		t.OriginalDate = getID3TextFrame(id3tag, "TORY")
	}
	if t.OriginalDate == "" {
		t.OriginalDate = getID3TXXXFrame(id3tag, "ORIGINALYEAR")
	}

	t.MBReleaseID = getID3TXXXFrame(id3tag, "MusicBrainz Album Id")
	t.MBTrackID = getID3TXXXFrame(id3tag, "MusicBrainz Release Track Id")
}

// readMP3WithID3v2 reads MP3 metadata using only the id3v2 library.
func readMP3WithID3v2(path string) (*Tag, error) {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	defer id3tag.Close()

	track, _ := parseNumberPair(getID3TextFrame(id3tag, "TRCK"))
	disc, _ := parseNumberPair(getID3TextFrame(id3tag, "TPOS"))

	t := &Tag{
		Path:        path,
		Title:       id3tag.Title(),
		Artist:      id3tag.Artist(),
		AlbumArtist: getID3TextFrame(id3tag, "TPE2"),
		Album:       id3tag.Album(),
		TrackNumber: track,
		DiscNumber:  disc,
	}
	if year := id3tag.Year(); len(year) >= 4 {
		t.Date = year[:4]
	}
	applyID3Frames(id3tag, t)

	t.normalize()
	return t, nil
}

// getID3TextFrame reads a text frame value from an ID3v2 tag.
func getID3TextFrame(id3tag *id3v2.Tag, frameID string) string {
	frames := id3tag.GetFrames(frameID)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		return tf.Text
	}
	return ""
}

// getID3TXXXFrame reads a user-defined text frame (TXXX) value.
func getID3TXXXFrame(id3tag *id3v2.Tag, description string) string {
	for _, frame := range id3tag.GetFrames("TXXX") {
		if txxx, ok := frame.(id3v2.UserDefinedTextFrame); ok && txxx.Description == description {
			return txxx.Value
		}
	}
	return ""
}
