// Package reconcile keeps the Folder → Album → Song library in step with
// the flat external catalog.
//
// A pass diffs the stored songs against a catalog snapshot, then runs the
// update, create, delete and cleanup stages in that order on an in-memory
// library before committing it in one transaction. Stages before cleanup
// may leave gaps in sibling indices; cleanup makes every level dense again.
package reconcile

import (
	"go.uber.org/zap"

	"github.com/llehouerou/shelves/internal/catalog"
	"github.com/llehouerou/shelves/internal/library"
)

// Stats counts what a pass changed.
type Stats struct {
	Merged         int // songs moved out of duplicate albums
	Relocated      int // songs whose album key changed
	Created        int
	CreatedAlbums  int
	CreatedFolders int
	Resorted       int // albums re-sorted into canonical order
	Deleted        int
	DeletedAlbums  int
	DeletedFolders int
	Redated        int // albums whose release estimate or title changed
	Reindexed      int // containers whose child indices were rewritten
}

// Changes returns the total number of mutations.
func (s Stats) Changes() int {
	return s.Merged + s.Relocated + s.Created + s.CreatedAlbums + s.CreatedFolders +
		s.Resorted + s.Deleted + s.DeletedAlbums + s.DeletedFolders + s.Redated + s.Reindexed
}

func (s Stats) fields() []zap.Field {
	return []zap.Field{
		zap.Int("merged", s.Merged),
		zap.Int("relocated", s.Relocated),
		zap.Int("created", s.Created),
		zap.Int("created_albums", s.CreatedAlbums),
		zap.Int("created_folders", s.CreatedFolders),
		zap.Int("resorted", s.Resorted),
		zap.Int("deleted", s.Deleted),
		zap.Int("deleted_albums", s.DeletedAlbums),
		zap.Int("deleted_folders", s.DeletedFolders),
		zap.Int("redated", s.Redated),
		zap.Int("reindexed", s.Reindexed),
	}
}

// pass holds the working state of one reconciliation over one snapshot.
type pass struct {
	lib     *library.Library
	ident   *Identity
	log     *zap.Logger
	records map[library.TrackID]catalog.TrackRecord

	// bulk selects the first-import ordering mode.
	bulk bool
	// canonical is the destination album per key, kept current as albums
	// are merged and created.
	canonical map[library.AlbumKey]*library.Album

	stats Stats
}

func newPass(lib *library.Library, records []catalog.TrackRecord, ident *Identity, log *zap.Logger) *pass {
	byID := make(map[library.TrackID]catalog.TrackRecord, len(records))
	for _, r := range records {
		if _, dup := byID[r.TrackID]; !dup {
			byID[r.TrackID] = r
		}
	}
	return &pass{
		lib:     lib,
		ident:   ident,
		log:     log,
		records: byID,
		bulk:    !lib.Imported,
	}
}

// run applies every stage of the diff to the library, reporting each
// stage to enter before it starts.
func (p *pass) run(d Diff, enter func(State)) {
	enter(Updating)
	p.update(d.ToUpdate)
	enter(Creating)
	p.create(d.ToCreate)
	enter(Deleting)
	p.deleteSongs(d.ToDelete)
	enter(CleaningUp)
	p.cleanup()
}

// songLess orders songs by their backing records. Songs without a record
// sort after every backed song.
func (p *pass) songLess(x, y *library.Song) bool {
	rx, okx := p.records[x.TrackID]
	ry, oky := p.records[y.TrackID]
	switch {
	case !okx:
		return false
	case !oky:
		return true
	}
	return recordLess(rx, ry)
}

// isCanonical reports whether the backed songs of a are in canonical order.
func (p *pass) isCanonical(a *library.Album) bool {
	var prev *library.Song
	for _, s := range a.Songs() {
		if _, ok := p.records[s.TrackID]; !ok {
			continue
		}
		if prev != nil && p.songLess(s, prev) {
			return false
		}
		prev = s
	}
	return true
}
