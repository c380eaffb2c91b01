package reconcile

import (
	"github.com/llehouerou/shelves/internal/catalog"
	"github.com/llehouerou/shelves/internal/library"
)

// SongUpdate pairs a stored song with the fresh record backing it.
type SongUpdate struct {
	Song   *library.Song
	Record catalog.TrackRecord
}

// Diff partitions the stored songs and the fresh records. The three sets
// are disjoint.
type Diff struct {
	ToUpdate []SongUpdate
	ToDelete []*library.Song
	ToCreate []catalog.TrackRecord
}

// ComputeDiff matches songs to records by track id. Each record is consumed
// by at most one song; songs without a record are deleted, records without
// a song are created. When the catalog repeats a track id the first record
// wins.
func ComputeDiff(songs []*library.Song, records []catalog.TrackRecord) Diff {
	fresh := make(map[library.TrackID]catalog.TrackRecord, len(records))
	for _, r := range records {
		if _, dup := fresh[r.TrackID]; !dup {
			fresh[r.TrackID] = r
		}
	}

	var d Diff
	for _, s := range songs {
		r, ok := fresh[s.TrackID]
		if !ok {
			d.ToDelete = append(d.ToDelete, s)
			continue
		}
		delete(fresh, s.TrackID)
		d.ToUpdate = append(d.ToUpdate, SongUpdate{Song: s, Record: r})
	}

	for _, r := range records {
		if _, ok := fresh[r.TrackID]; ok {
			d.ToCreate = append(d.ToCreate, r)
			delete(fresh, r.TrackID)
		}
	}
	return d
}
