// Package catalog exposes the flat, externally-owned track catalog the
// library is reconciled against.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/llehouerou/shelves/internal/library"
)

// TrackNumberUnknown is the track (and disc) number of a record whose file
// carries none.
const TrackNumberUnknown = 0

// ErrUnavailable is returned when the catalog cannot be read at all.
// A reconciliation pass treats it as a no-op.
var ErrUnavailable = errors.New("catalog unavailable")

// TrackRecord is one track of the external catalog.
type TrackRecord struct {
	TrackID     library.TrackID
	AlbumKey    library.AlbumKey
	AlbumArtist string // empty when unknown
	AlbumTitle  string // empty when unknown
	DiscNumber  int
	TrackNumber int
	Title       string // empty when unknown
	DateAdded   time.Time
	ReleaseDate *time.Time
}

// Source returns full snapshots of the catalog.
type Source interface {
	// FetchAllTracks returns every track, in no particular order.
	FetchAllTracks(ctx context.Context) ([]TrackRecord, error)
}

// Notifier signals that the catalog has changed since the last snapshot.
type Notifier interface {
	Changes() <-chan struct{}
}
