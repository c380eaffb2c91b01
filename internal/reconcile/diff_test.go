package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"github.com/llehouerou/shelves/internal/catalog"
	"github.com/llehouerou/shelves/internal/library"
)

func TestComputeDiff(t *testing.T) {
	lib := seed(folder("X", album("A1", "keep", "gone")))
	songs := lib.Songs()

	d := ComputeDiff(songs, []catalog.TrackRecord{
		track("new", "A1", "X", 3),
		track("keep", "A2", "X", 1),
	})

	if assert.Len(t, d.ToUpdate, 1) {
		assert.Same(t, songs[0], d.ToUpdate[0].Song)
		assert.Equal(t, library.AlbumKey("A2"), d.ToUpdate[0].Record.AlbumKey)
	}
	assert.Equal(t, []*library.Song{songs[1]}, d.ToDelete)
	if assert.Len(t, d.ToCreate, 1) {
		assert.Equal(t, library.TrackID("new"), d.ToCreate[0].TrackID)
	}
}

func TestComputeDiff_EmptyCatalog(t *testing.T) {
	lib := seed(folder("X", album("A1", "a", "b")))

	d := ComputeDiff(lib.Songs(), nil)

	assert.Empty(t, d.ToUpdate)
	assert.Empty(t, d.ToCreate)
	assert.Len(t, d.ToDelete, 2)
}

func TestComputeDiff_EachRecordConsumedOnce(t *testing.T) {
	lib := seed(
		folder("X", album("A1", "a")),
		folder("Y", album("B1", "a")),
	)

	d := ComputeDiff(lib.Songs(), []catalog.TrackRecord{
		track("a", "A1", "X", 1),
		track("a", "B1", "Y", 1),
	})

	assert.Len(t, d.ToUpdate, 1)
	assert.Len(t, d.ToDelete, 1)
	assert.Empty(t, d.ToCreate)
}

func TestRecordLess(t *testing.T) {
	tests := []struct {
		name string
		a, b catalog.TrackRecord
		want bool
	}{
		{
			name: "disc first",
			a:    catalog.TrackRecord{DiscNumber: 1, TrackNumber: 9},
			b:    catalog.TrackRecord{DiscNumber: 2, TrackNumber: 1},
			want: true,
		},
		{
			name: "missing disc is disc one",
			a:    catalog.TrackRecord{TrackNumber: 1},
			b:    catalog.TrackRecord{DiscNumber: 1, TrackNumber: 2},
			want: true,
		},
		{
			name: "unknown track last",
			a:    catalog.TrackRecord{TrackNumber: catalog.TrackNumberUnknown},
			b:    catalog.TrackRecord{TrackNumber: 7},
			want: false,
		},
		{
			name: "title ignores case",
			a:    catalog.TrackRecord{TrackNumber: 1, Title: "apple"},
			b:    catalog.TrackRecord{TrackNumber: 1, Title: "Banana"},
			want: true,
		},
		{
			name: "track id breaks ties",
			a:    catalog.TrackRecord{TrackID: "b"},
			b:    catalog.TrackRecord{TrackID: "a"},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recordLess(tt.a, tt.b))
		})
	}
}

func TestIdentity(t *testing.T) {
	id := NewIdentity("", language.English)

	assert.Equal(t, DefaultUnknownArtist, id.FolderTitle(catalog.TrackRecord{AlbumArtist: "  "}))
	assert.Equal(t, "X", id.FolderTitle(catalog.TrackRecord{AlbumArtist: " X "}))
	assert.Equal(t, unknownAlbum, id.AlbumTitle(catalog.TrackRecord{}))

	assert.Negative(t, id.CompareFolderTitles("alpha", "Bravo"))
	assert.Positive(t, id.CompareFolderTitles(DefaultUnknownArtist, "Zulu"))
	assert.Negative(t, id.CompareFolderTitles("Zulu", DefaultUnknownArtist))
	assert.Zero(t, id.CompareFolderTitles("Émile", "emile"))
}
