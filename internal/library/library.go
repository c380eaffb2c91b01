// Package library holds the user-curated Folder → Album → Song hierarchy.
//
// Every child carries an Index giving its manual order inside its parent.
// Children slices are always kept sorted by Index; indices may contain gaps
// while a reconciliation pass is running and are made dense again by Renumber.
// Songs and Albums can only be created through their parent, so the parent
// back-references are never nil for an attached item.
package library

import (
	"slices"
	"time"
)

// TrackID is the stable identity of a track in the external catalog.
type TrackID string

// AlbumKey is the stable identity of an album in the external catalog.
type AlbumKey string

// Song is a leaf of the hierarchy backed by one catalog track.
type Song struct {
	ID      int64 // store row id, 0 until saved
	TrackID TrackID
	Index   int

	album *Album
}

// Album returns the owning album, or nil once the song has been removed.
func (s *Song) Album() *Album { return s.album }

// Album groups songs sharing an album key.
type Album struct {
	ID    int64
	Key   AlbumKey
	Title string
	Index int

	// ReleaseDateEstimate is derived from the backing records and never authoritative.
	ReleaseDateEstimate *time.Time

	folder *Folder
	songs  []*Song
}

// Folder returns the owning folder, or nil once the album has been removed.
func (a *Album) Folder() *Folder { return a.folder }

// Songs returns the songs in manual order.
func (a *Album) Songs() []*Song { return slices.Clone(a.songs) }

// Len returns the number of songs.
func (a *Album) Len() int { return len(a.songs) }

// Folder groups albums under a user-renamable title.
type Folder struct {
	ID    int64
	Title string
	Index int

	lib    *Library
	albums []*Album
}

// Albums returns the albums in manual order.
func (f *Folder) Albums() []*Album { return slices.Clone(f.albums) }

// Len returns the number of albums.
func (f *Folder) Len() int { return len(f.albums) }

// Library is the root of the hierarchy.
type Library struct {
	// Imported is set once a reconciliation pass has been committed.
	Imported bool
	// LastPassAt is the commit time of the last reconciliation pass.
	LastPassAt time.Time

	folders []*Folder
}

// New returns an empty library.
func New() *Library {
	return &Library{}
}

// Folders returns the folders in manual order.
func (l *Library) Folders() []*Folder { return slices.Clone(l.folders) }

// IsEmpty reports whether the library has no folders.
func (l *Library) IsEmpty() bool { return len(l.folders) == 0 }

// Albums returns every album in full manual order.
func (l *Library) Albums() []*Album {
	var albums []*Album
	for _, f := range l.folders {
		albums = append(albums, f.albums...)
	}
	return albums
}

// Songs returns every song in full manual order (folder, album, song).
func (l *Library) Songs() []*Song {
	var songs []*Song
	for _, f := range l.folders {
		for _, a := range f.albums {
			songs = append(songs, a.songs...)
		}
	}
	return songs
}

// FolderByTitle returns the first folder, in manual order, with the given title.
func (l *Library) FolderByTitle(title string) *Folder {
	for _, f := range l.folders {
		if f.Title == title {
			return f
		}
	}
	return nil
}

// AppendFolder creates a folder after the last one.
func (l *Library) AppendFolder(title string) *Folder {
	f := &Folder{Title: title, lib: l}
	l.folders = appendItem(l.folders, f)
	return f
}

// PrependFolder creates a folder at index 0, shifting the others down.
func (l *Library) PrependFolder(title string) *Folder {
	f := &Folder{Title: title, lib: l}
	l.folders = prependItem(l.folders, f)
	return f
}

// RestoreFolder attaches a persisted folder at its stored index.
func (l *Library) RestoreFolder(id int64, title string, index int) *Folder {
	f := &Folder{ID: id, Title: title, Index: index, lib: l}
	l.folders = insertByIndex(l.folders, f)
	return f
}

// RemoveFolder detaches a folder and its content. Sibling indices are left untouched.
func (l *Library) RemoveFolder(f *Folder) {
	var ok bool
	if l.folders, ok = removeItem(l.folders, f); ok {
		f.lib = nil
	}
}

// Renumber makes folder indices dense and reports how many changed.
func (l *Library) Renumber() int {
	return renumber(l.folders)
}

// Rename changes the folder title.
func (f *Folder) Rename(title string) {
	f.Title = title
}

// AppendAlbum creates an album after the last one.
func (f *Folder) AppendAlbum(key AlbumKey, title string) *Album {
	a := &Album{Key: key, Title: title, folder: f}
	f.albums = appendItem(f.albums, a)
	return a
}

// PrependAlbum creates an album at index 0, shifting the others down.
func (f *Folder) PrependAlbum(key AlbumKey, title string) *Album {
	a := &Album{Key: key, Title: title, folder: f}
	f.albums = prependItem(f.albums, a)
	return a
}

// RestoreAlbum attaches a persisted album at its stored index.
func (f *Folder) RestoreAlbum(id int64, key AlbumKey, title string, index int, released *time.Time) *Album {
	a := &Album{ID: id, Key: key, Title: title, Index: index, ReleaseDateEstimate: released, folder: f}
	f.albums = insertByIndex(f.albums, a)
	return a
}

// RemoveAlbum detaches an album and its songs. Sibling indices are left untouched.
func (f *Folder) RemoveAlbum(a *Album) {
	var ok bool
	if f.albums, ok = removeItem(f.albums, a); ok {
		a.folder = nil
	}
}

// SortAlbums reorders albums with a stable sort. Indices are not rewritten.
func (f *Folder) SortAlbums(less func(a, b *Album) bool) {
	sortByLess(f.albums, less)
}

// Renumber makes album indices dense and reports how many changed.
func (f *Folder) Renumber() int {
	return renumber(f.albums)
}

// AppendSong creates a song after the last one.
func (a *Album) AppendSong(id TrackID) *Song {
	s := &Song{TrackID: id, album: a}
	a.songs = appendItem(a.songs, s)
	return s
}

// PrependSong creates a song at index 0, shifting the others down.
func (a *Album) PrependSong(id TrackID) *Song {
	s := &Song{TrackID: id, album: a}
	a.songs = prependItem(a.songs, s)
	return s
}

// RestoreSong attaches a persisted song at its stored index.
func (a *Album) RestoreSong(id int64, trackID TrackID, index int) *Song {
	s := &Song{ID: id, TrackID: trackID, Index: index, album: a}
	a.songs = insertByIndex(a.songs, s)
	return s
}

// RemoveSong detaches a song. Sibling indices are left untouched.
func (a *Album) RemoveSong(s *Song) {
	var ok bool
	if a.songs, ok = removeItem(a.songs, s); ok {
		s.album = nil
	}
}

// TakeFront moves s from its current album to index 0 of a.
// The source album keeps a gap where s was.
func (a *Album) TakeFront(s *Song) {
	if s.album != nil {
		s.album.RemoveSong(s)
	}
	s.album = a
	a.songs = prependItem(a.songs, s)
}

// TakeBack moves s from its current album after the last song of a.
// The source album keeps a gap where s was.
func (a *Album) TakeBack(s *Song) {
	if s.album != nil {
		s.album.RemoveSong(s)
	}
	s.album = a
	a.songs = appendItem(a.songs, s)
}

// SortSongs reorders songs with a stable sort. Indices are not rewritten.
func (a *Album) SortSongs(less func(x, y *Song) bool) {
	sortByLess(a.songs, less)
}

// Renumber makes song indices dense and reports how many changed.
func (a *Album) Renumber() int {
	return renumber(a.songs)
}

func sortByLess[T any](items []T, less func(a, b T) bool) {
	slices.SortStableFunc(items, func(a, b T) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})
}

// Clone returns a deep copy of the library, row ids included.
func (l *Library) Clone() *Library {
	out := &Library{Imported: l.Imported, LastPassAt: l.LastPassAt}
	for _, f := range l.folders {
		nf := out.RestoreFolder(f.ID, f.Title, f.Index)
		for _, a := range f.albums {
			var released *time.Time
			if a.ReleaseDateEstimate != nil {
				d := *a.ReleaseDateEstimate
				released = &d
			}
			na := nf.RestoreAlbum(a.ID, a.Key, a.Title, a.Index, released)
			for _, s := range a.songs {
				na.RestoreSong(s.ID, s.TrackID, s.Index)
			}
		}
	}
	return out
}
