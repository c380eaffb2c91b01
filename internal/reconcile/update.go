package reconcile

import (
	"slices"

	"go.uber.org/zap"

	"github.com/llehouerou/shelves/internal/library"
)

// update merges albums sharing a key into the topmost one, then moves every
// song whose album key changed into its new album.
func (p *pass) update(updates []SongUpdate) {
	p.mergeClones()

	type move struct {
		SongUpdate
		at library.Position
	}
	var moves []move
	for _, u := range updates {
		if u.Song.Album().Key != u.Record.AlbumKey {
			moves = append(moves, move{SongUpdate: u, at: u.Song.Position()})
		}
	}
	slices.SortStableFunc(moves, func(a, b move) int {
		switch {
		case a.at.Less(b.at):
			return -1
		case b.at.Less(a.at):
			return 1
		}
		return 0
	})

	// Replaying in reverse at the front of each destination keeps the
	// original relative order of the moved songs.
	for i := len(moves) - 1; i >= 0; i-- {
		m := moves[i]
		dest := p.canonical[m.Record.AlbumKey]
		if dest == nil {
			dest = m.Song.Album().Folder().PrependAlbum(m.Record.AlbumKey, p.ident.AlbumTitle(m.Record))
			p.canonical[m.Record.AlbumKey] = dest
			p.stats.CreatedAlbums++
		}
		dest.TakeFront(m.Song)
		p.stats.Relocated++
	}
}

// mergeClones moves the songs of every non-canonical album to the end of
// the canonical album with the same key, in full manual order, and removes
// the emptied clones. Folders emptied this way are left to the delete stage.
func (p *pass) mergeClones() {
	p.canonical = canonicalAlbums(p.lib)
	for _, a := range p.lib.Albums() {
		dest := p.canonical[a.Key]
		if dest == a {
			continue
		}
		p.log.Warn("merging duplicate album",
			zap.String("key", string(a.Key)),
			zap.Int("songs", a.Len()),
		)
		for _, s := range a.Songs() {
			dest.TakeBack(s)
			p.stats.Merged++
		}
		a.Folder().RemoveAlbum(a)
		p.stats.DeletedAlbums++
	}
}
