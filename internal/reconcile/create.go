package reconcile

import (
	"slices"

	"github.com/llehouerou/shelves/internal/catalog"
	"github.com/llehouerou/shelves/internal/library"
)

// albumGroup is the set of new records sharing an album key, in canonical
// track order.
type albumGroup struct {
	key     library.AlbumKey
	records []catalog.TrackRecord
	folder  string
	title   string
}

// earliest returns the oldest DateAdded of the group.
func (g *albumGroup) earliest() (t int64) {
	for i, r := range g.records {
		if n := r.DateAdded.UnixNano(); i == 0 || n < t {
			t = n
		}
	}
	return t
}

// create materializes songs for brand-new records, grouped by album.
//
// On the first import groups are placed by artist and songs are appended.
// Afterwards groups are placed oldest-added first, each at the front of its
// album or folder, so the most recent additions end on top.
func (p *pass) create(records []catalog.TrackRecord) {
	for _, g := range p.groups(records) {
		if album := p.canonical[g.key]; album != nil {
			p.addToExisting(album, g)
		} else {
			p.addToNew(g)
		}
		p.stats.Created += len(g.records)
	}
}

func (p *pass) groups(records []catalog.TrackRecord) []*albumGroup {
	byKey := make(map[library.AlbumKey]*albumGroup)
	var groups []*albumGroup
	for _, r := range records {
		g, ok := byKey[r.AlbumKey]
		if !ok {
			g = &albumGroup{key: r.AlbumKey}
			byKey[r.AlbumKey] = g
			groups = append(groups, g)
		}
		g.records = append(g.records, r)
	}
	for _, g := range groups {
		slices.SortStableFunc(g.records, func(a, b catalog.TrackRecord) int {
			switch {
			case recordLess(a, b):
				return -1
			case recordLess(b, a):
				return 1
			}
			return 0
		})
		g.folder = p.ident.FolderTitle(g.records[0])
		g.title = p.ident.AlbumTitle(g.records[0])
	}

	slices.SortStableFunc(groups, func(a, b *albumGroup) int {
		if p.bulk {
			if c := p.ident.CompareFolderTitles(a.folder, b.folder); c != 0 {
				return c
			}
		} else {
			ea, eb := a.earliest(), b.earliest()
			switch {
			case ea < eb:
				return -1
			case ea > eb:
				return 1
			}
		}
		if c := p.ident.compareTitles(a.title, b.title); c != 0 {
			return c
		}
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	return groups
}

// addToExisting places new songs in an album that already exists: at the
// end on first import, at the front afterwards. An album whose songs were
// not in canonical order is re-sorted as a whole.
func (p *pass) addToExisting(album *library.Album, g *albumGroup) {
	wasCanonical := p.isCanonical(album)
	if p.bulk {
		for _, r := range g.records {
			album.AppendSong(r.TrackID)
		}
	} else {
		for i := len(g.records) - 1; i >= 0; i-- {
			album.PrependSong(g.records[i].TrackID)
		}
	}
	// Only an album already out of order is re-sorted. Prepended songs stay
	// on top of a canonical album even when they sort after its old songs.
	if !wasCanonical {
		album.SortSongs(p.songLess)
		p.stats.Resorted++
	}
}

// addToNew creates the album, and its folder when no folder carries the
// destination title yet.
func (p *pass) addToNew(g *albumGroup) {
	folder := p.lib.FolderByTitle(g.folder)
	if folder == nil {
		if p.bulk {
			folder = p.lib.AppendFolder(g.folder)
		} else {
			folder = p.lib.PrependFolder(g.folder)
		}
		p.stats.CreatedFolders++
	}

	var album *library.Album
	if p.bulk {
		album = folder.AppendAlbum(g.key, g.title)
	} else {
		album = folder.PrependAlbum(g.key, g.title)
	}
	p.canonical[g.key] = album
	p.stats.CreatedAlbums++

	for _, r := range g.records {
		album.AppendSong(r.TrackID)
	}
}
