package reconcile

import (
	"time"

	"github.com/llehouerou/shelves/internal/library"
)

// cleanup recomputes derived album fields and makes the indices of every
// container dense. On the first import albums are ordered newest release
// first before renumbering.
func (p *pass) cleanup() {
	for _, f := range p.lib.Folders() {
		for _, a := range f.Albums() {
			p.refreshAlbum(a)
		}
		if p.bulk {
			f.SortAlbums(newestFirst)
		}
		for _, a := range f.Albums() {
			if a.Renumber() > 0 {
				p.stats.Reindexed++
			}
		}
		if f.Renumber() > 0 {
			p.stats.Reindexed++
		}
	}
	if p.lib.Renumber() > 0 {
		p.stats.Reindexed++
	}
}

// refreshAlbum sets the release estimate to the latest release date of the
// album's records, and fills a placeholder title from them. Dates are kept
// to the second, the precision the store persists.
func (p *pass) refreshAlbum(a *library.Album) {
	var latest *time.Time
	title := ""
	for _, s := range a.Songs() {
		r, ok := p.records[s.TrackID]
		if !ok {
			continue
		}
		if title == "" {
			title = p.ident.AlbumTitle(r)
		}
		if r.ReleaseDate != nil && (latest == nil || r.ReleaseDate.After(*latest)) {
			d := r.ReleaseDate.Truncate(time.Second)
			latest = &d
		}
	}

	changed := false
	if !sameDate(a.ReleaseDateEstimate, latest) {
		a.ReleaseDateEstimate = latest
		changed = true
	}
	if title != "" && title != a.Title && (a.Title == "" || a.Title == unknownAlbum) {
		a.Title = title
		changed = true
	}
	if changed {
		p.stats.Redated++
	}
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// newestFirst orders albums by release estimate, latest first, albums
// without an estimate last.
func newestFirst(a, b *library.Album) bool {
	if a.ReleaseDateEstimate == nil {
		return false
	}
	if b.ReleaseDateEstimate == nil {
		return true
	}
	return a.ReleaseDateEstimate.After(*b.ReleaseDateEstimate)
}
