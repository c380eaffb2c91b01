package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/llehouerou/shelves/internal/catalog"
	"github.com/llehouerou/shelves/internal/library"
)

// memStore keeps the last committed library in memory.
type memStore struct {
	mu    sync.Mutex
	lib   *library.Library
	saves int
	err   error
}

func newMemStore(lib *library.Library) *memStore {
	if lib == nil {
		lib = library.New()
	}
	return &memStore{lib: lib.Clone()}
}

func (m *memStore) Load(_ context.Context) (*library.Library, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lib.Clone(), nil
}

func (m *memStore) Save(_ context.Context, lib *library.Library) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.lib = lib.Clone()
	m.saves++
	return nil
}

func (m *memStore) current() *library.Library {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lib.Clone()
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

var baseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func date(year int) *time.Time {
	d := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return &d
}

// track builds a record of album key under artist. Later n values mean a
// later DateAdded.
func track(id, key, artist string, n int) catalog.TrackRecord {
	return catalog.TrackRecord{
		TrackID:     library.TrackID(id),
		AlbumKey:    library.AlbumKey(key),
		AlbumArtist: artist,
		AlbumTitle:  key,
		TrackNumber: n,
		Title:       id,
		DateAdded:   baseDate.Add(time.Duration(n) * time.Hour),
	}
}

func newTestDriver(src catalog.Source, st Store) *Driver {
	return NewDriver(src, st, nil, Options{Collation: language.English})
}

func reconcile(t *testing.T, d *Driver) *Result {
	t.Helper()
	res, err := d.Reconcile(context.Background())
	require.NoError(t, err)
	return res
}

// layout renders a library as one line per song with every index.
func layout(lib *library.Library) []string {
	var out []string
	for _, f := range lib.Folders() {
		for _, a := range f.Albums() {
			for _, s := range a.Songs() {
				out = append(out, fmt.Sprintf("%d:%s/%d:%s/%d:%s",
					f.Index, f.Title, a.Index, a.Key, s.Index, s.TrackID))
			}
		}
	}
	return out
}

func folderTitles(lib *library.Library) []string {
	var out []string
	for _, f := range lib.Folders() {
		out = append(out, f.Title)
	}
	return out
}

func albumKeys(f *library.Folder) []library.AlbumKey {
	var out []library.AlbumKey
	for _, a := range f.Albums() {
		out = append(out, a.Key)
	}
	return out
}

func songIDs(a *library.Album) []library.TrackID {
	var out []library.TrackID
	for _, s := range a.Songs() {
		out = append(out, s.TrackID)
	}
	return out
}

func songIndices(a *library.Album) []int {
	var out []int
	for _, s := range a.Songs() {
		out = append(out, s.Index)
	}
	return out
}

// requireConsistent checks the structural invariants and that songs and
// records match one to one.
func requireConsistent(t *testing.T, lib *library.Library, records []catalog.TrackRecord) {
	t.Helper()
	require.Empty(t, lib.Check())

	want := make(map[library.TrackID]bool)
	for _, r := range records {
		want[r.TrackID] = true
	}
	got := make(map[library.TrackID]bool)
	for _, s := range lib.Songs() {
		got[s.TrackID] = true
	}
	require.Equal(t, want, got)
}
