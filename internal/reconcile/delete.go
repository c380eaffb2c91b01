package reconcile

import "github.com/llehouerou/shelves/internal/library"

// deleteSongs removes songs without a backing record, then every album and
// folder left empty. Sibling indices keep their gaps until cleanup.
func (p *pass) deleteSongs(songs []*library.Song) {
	for _, s := range songs {
		if a := s.Album(); a != nil {
			a.RemoveSong(s)
			p.stats.Deleted++
		}
	}

	for _, f := range p.lib.Folders() {
		for _, a := range f.Albums() {
			if a.Len() == 0 {
				f.RemoveAlbum(a)
				if p.canonical[a.Key] == a {
					delete(p.canonical, a.Key)
				}
				p.stats.DeletedAlbums++
			}
		}
		if f.Len() == 0 {
			p.lib.RemoveFolder(f)
			p.stats.DeletedFolders++
		}
	}
}
