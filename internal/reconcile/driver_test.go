package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/shelves/internal/catalog"
	"github.com/llehouerou/shelves/internal/library"
	"github.com/llehouerou/shelves/internal/store"
)

// seed builds an imported library with one folder per artist, in the order
// given.
func seed(folders ...func(*library.Library)) *library.Library {
	lib := library.New()
	lib.Imported = true
	for _, add := range folders {
		add(lib)
	}
	return lib
}

func folder(title string, albums ...func(*library.Folder)) func(*library.Library) {
	return func(lib *library.Library) {
		f := lib.AppendFolder(title)
		for _, add := range albums {
			add(f)
		}
	}
}

func album(key string, tracks ...string) func(*library.Folder) {
	return func(f *library.Folder) {
		a := f.AppendAlbum(library.AlbumKey(key), key)
		for _, id := range tracks {
			a.AppendSong(library.TrackID(id))
		}
	}
}

func TestReconcile_FirstImportOfOneAlbum(t *testing.T) {
	src := catalog.NewMock(
		track("t1", "A1", "X", 2),
		track("t2", "A1", "X", 1),
	)
	st := newMemStore(nil)

	res := reconcile(t, newTestDriver(src, st))
	assert.True(t, res.Committed)

	lib := st.current()
	assert.True(t, lib.Imported)
	require.Equal(t, []string{"X"}, folderTitles(lib))
	albums := lib.Folders()[0].Albums()
	require.Len(t, albums, 1)
	assert.Equal(t, library.AlbumKey("A1"), albums[0].Key)
	assert.Equal(t, []library.TrackID{"t2", "t1"}, songIDs(albums[0]))
	assert.Equal(t, []int{0, 1}, songIndices(albums[0]))
}

func TestReconcile_RemovedTrackIsDeleted(t *testing.T) {
	st := newMemStore(seed(folder("X", album("A1", "a", "b", "c"))))
	src := catalog.NewMock(
		track("a", "A1", "X", 1),
		track("c", "A1", "X", 3),
	)

	res := reconcile(t, newTestDriver(src, st))
	assert.Equal(t, 1, res.Stats.Deleted)

	a := st.current().Folders()[0].Albums()[0]
	assert.Equal(t, []library.TrackID{"a", "c"}, songIDs(a))
	assert.Equal(t, []int{0, 1}, songIndices(a))
}

func TestReconcile_ChangedAlbumKeyRelocatesSong(t *testing.T) {
	t.Run("last song leaves its album", func(t *testing.T) {
		st := newMemStore(seed(folder("X", album("A1", "s1"))))
		src := catalog.NewMock(track("s1", "A2", "X", 1))

		reconcile(t, newTestDriver(src, st))

		lib := st.current()
		require.Equal(t, []string{"X"}, folderTitles(lib))
		f := lib.Folders()[0]
		require.Equal(t, []library.AlbumKey{"A2"}, albumKeys(f))
		a := f.Albums()[0]
		assert.Equal(t, []library.TrackID{"s1"}, songIDs(a))
		assert.Equal(t, 0, a.Index)
		assert.Equal(t, []int{0}, songIndices(a))
	})

	t.Run("new album stays in the song's folder", func(t *testing.T) {
		st := newMemStore(seed(
			folder("X", album("A1", "s1", "s2")),
			folder("Y", album("B1", "y1")),
		))
		src := catalog.NewMock(
			track("s1", "A2", "Y", 1),
			track("s2", "A1", "X", 2),
			track("y1", "B1", "Y", 1),
		)

		reconcile(t, newTestDriver(src, st))

		lib := st.current()
		require.Equal(t, []string{"X", "Y"}, folderTitles(lib))
		x := lib.Folders()[0]
		require.Equal(t, []library.AlbumKey{"A2", "A1"}, albumKeys(x))
		assert.Equal(t, []library.TrackID{"s1"}, songIDs(x.Albums()[0]))
		assert.Equal(t, []library.TrackID{"s2"}, songIDs(x.Albums()[1]))
		assert.Equal(t, []int{0}, songIndices(x.Albums()[1]))
	})

	t.Run("moved songs keep their relative order", func(t *testing.T) {
		st := newMemStore(seed(folder("X",
			album("A1", "a", "b", "c"),
			album("A2", "d"),
		)))
		src := catalog.NewMock(
			track("a", "A2", "X", 1),
			track("b", "A1", "X", 2),
			track("c", "A2", "X", 3),
			track("d", "A2", "X", 4),
		)

		res := reconcile(t, newTestDriver(src, st))
		assert.Equal(t, 2, res.Stats.Relocated)

		x := st.current().Folders()[0]
		require.Equal(t, []library.AlbumKey{"A1", "A2"}, albumKeys(x))
		assert.Equal(t, []library.TrackID{"b"}, songIDs(x.Albums()[0]))
		assert.Equal(t, []library.TrackID{"a", "c", "d"}, songIDs(x.Albums()[1]))
	})

	t.Run("songs share a freshly created album", func(t *testing.T) {
		st := newMemStore(seed(folder("X", album("A1", "a", "b", "c"))))
		src := catalog.NewMock(
			track("a", "A3", "X", 1),
			track("b", "A1", "X", 2),
			track("c", "A3", "X", 3),
		)

		res := reconcile(t, newTestDriver(src, st))
		assert.Equal(t, 1, res.Stats.CreatedAlbums)

		x := st.current().Folders()[0]
		require.Equal(t, []library.AlbumKey{"A3", "A1"}, albumKeys(x))
		assert.Equal(t, []library.TrackID{"a", "c"}, songIDs(x.Albums()[0]))
	})
}

func TestReconcile_DuplicateAlbumsAreMerged(t *testing.T) {
	st := newMemStore(seed(
		folder("X", album("A1", "a", "b")),
		folder("Y", album("A1", "c")),
	))
	src := catalog.NewMock(
		track("a", "A1", "X", 1),
		track("b", "A1", "X", 2),
		track("c", "A1", "X", 3),
	)

	res := reconcile(t, newTestDriver(src, st))
	assert.Equal(t, 1, res.Stats.Merged)

	lib := st.current()
	require.Equal(t, []string{"X"}, folderTitles(lib))
	albums := lib.Albums()
	require.Len(t, albums, 1)
	assert.Equal(t, []library.TrackID{"a", "b", "c"}, songIDs(albums[0]))
	assert.Equal(t, []int{0, 1, 2}, songIndices(albums[0]))
	requireConsistent(t, lib, src.Tracks())
}

func TestReconcile_FirstImportOrdersFoldersByArtist(t *testing.T) {
	src := catalog.NewMock(
		track("b1", "B", "Bravo", 1),
		track("u1", "U", "", 1),
		track("z1", "Z", "Zulu", 1),
		track("a1", "A", "Alpha", 1),
	)
	st := newMemStore(nil)

	reconcile(t, newTestDriver(src, st))

	assert.Equal(t,
		[]string{"Alpha", "Bravo", "Zulu", DefaultUnknownArtist},
		folderTitles(st.current()),
	)
}

func TestReconcile_FirstImportOrdersAlbumsNewestFirst(t *testing.T) {
	old := track("o1", "Old", "X", 1)
	old.ReleaseDate = date(2001)
	newer := track("n1", "New", "X", 1)
	newer.ReleaseDate = date(2010)
	undated := track("u1", "None", "X", 1)
	src := catalog.NewMock(old, undated, newer)
	st := newMemStore(nil)

	reconcile(t, newTestDriver(src, st))

	x := st.current().Folders()[0]
	assert.Equal(t, []library.AlbumKey{"New", "Old", "None"}, albumKeys(x))
	assert.True(t, x.Albums()[0].ReleaseDateEstimate.Equal(*date(2010)))
	assert.Nil(t, x.Albums()[2].ReleaseDateEstimate)
}

func TestReconcile_ReleaseEstimateIsLatestDate(t *testing.T) {
	a := track("a", "A1", "X", 1)
	a.ReleaseDate = date(1999)
	b := track("b", "A1", "X", 2)
	b.ReleaseDate = date(2003)
	c := track("c", "A1", "X", 3)
	st := newMemStore(nil)

	reconcile(t, newTestDriver(catalog.NewMock(a, b, c), st))

	got := st.current().Albums()[0].ReleaseDateEstimate
	require.NotNil(t, got)
	assert.True(t, got.Equal(*date(2003)))
}

func TestReconcile_IncrementalAdditionsSurfaceOnTop(t *testing.T) {
	st := newMemStore(seed(folder("X", album("A1", "a", "b"))))

	c := track("c", "A1", "X", 3)
	c.DateAdded = baseDate.Add(10 * time.Hour)
	n := track("n1", "A2", "X", 1)
	n.DateAdded = baseDate.Add(20 * time.Hour)
	y := track("y1", "B1", "Y", 1)
	y.DateAdded = baseDate.Add(30 * time.Hour)
	src := catalog.NewMock(y, track("a", "A1", "X", 1), n, track("b", "A1", "X", 2), c)

	res := reconcile(t, newTestDriver(src, st))
	assert.Equal(t, 3, res.Stats.Created)
	assert.Equal(t, 1, res.Stats.CreatedFolders)

	lib := st.current()
	require.Equal(t, []string{"Y", "X"}, folderTitles(lib))
	x := lib.Folders()[1]
	require.Equal(t, []library.AlbumKey{"A2", "A1"}, albumKeys(x))
	assert.Equal(t, []library.TrackID{"c", "a", "b"}, songIDs(x.Albums()[1]))
	requireConsistent(t, lib, src.Tracks())
}

func TestReconcile_NonCanonicalAlbumIsResorted(t *testing.T) {
	st := newMemStore(seed(folder("X", album("A1", "b", "a"))))
	src := catalog.NewMock(
		track("a", "A1", "X", 1),
		track("b", "A1", "X", 2),
		track("c", "A1", "X", 3),
	)

	res := reconcile(t, newTestDriver(src, st))
	assert.Equal(t, 1, res.Stats.Resorted)

	a := st.current().Albums()[0]
	assert.Equal(t, []library.TrackID{"a", "b", "c"}, songIDs(a))
	assert.Equal(t, []int{0, 1, 2}, songIndices(a))
}

func TestReconcile_CanonicalAlbumKeepsNewSongsOnTop(t *testing.T) {
	st := newMemStore(seed(folder("X", album("A1", "t3", "t4"))))
	src := catalog.NewMock(
		track("t3", "A1", "X", 3),
		track("t4", "A1", "X", 4),
		track("t5", "A1", "X", 5),
		track("t6", "A1", "X", 6),
	)

	res := reconcile(t, newTestDriver(src, st))
	assert.Equal(t, 2, res.Stats.Created)
	assert.Zero(t, res.Stats.Resorted)

	a := st.current().Albums()[0]
	assert.Equal(t, []library.TrackID{"t5", "t6", "t3", "t4"}, songIDs(a))
	assert.Equal(t, []int{0, 1, 2, 3}, songIndices(a))
}

func TestReconcile_UnknownTrackNumbersSortLast(t *testing.T) {
	src := catalog.NewMock(
		track("x", "A1", "X", catalog.TrackNumberUnknown),
		track("b", "A1", "X", 2),
		track("a", "A1", "X", 1),
	)
	st := newMemStore(nil)

	reconcile(t, newTestDriver(src, st))

	assert.Equal(t, []library.TrackID{"a", "b", "x"}, songIDs(st.current().Albums()[0]))
}

func TestReconcile_SecondPassIsNoOp(t *testing.T) {
	src := catalog.NewMock(
		track("t1", "A1", "X", 2),
		track("t2", "A1", "X", 1),
		track("t3", "B1", "Y", 1),
	)
	st := newMemStore(nil)
	d := newTestDriver(src, st)

	reconcile(t, d)
	first := layout(st.current())

	res := reconcile(t, d)
	assert.False(t, res.Committed)
	assert.Zero(t, res.Stats.Changes())
	assert.Equal(t, 1, st.saveCount())
	assert.Equal(t, first, layout(st.current()))
}

func TestReconcile_SubSecondReleaseDateIsStable(t *testing.T) {
	st, err := store.Open(store.MemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	r := track("t1", "A1", "X", 1)
	released := time.Date(2019, 5, 17, 12, 30, 45, 250_000_000, time.UTC)
	r.ReleaseDate = &released
	d := newTestDriver(catalog.NewMock(r), st)

	res := reconcile(t, d)
	require.True(t, res.Committed)

	res = reconcile(t, d)
	assert.False(t, res.Committed)
	assert.Zero(t, res.Stats.Redated)

	lib, err := st.Load(context.Background())
	require.NoError(t, err)
	got := lib.Albums()[0].ReleaseDateEstimate
	require.NotNil(t, got)
	assert.True(t, got.Equal(released.Truncate(time.Second)))
}

func TestReconcile_PreservesManualOrder(t *testing.T) {
	lib := seed(
		folder("X", album("A1", "a", "b", "c"), album("A2", "d")),
		folder("Y", album("B1", "e")),
	)
	_, err := lib.Folders()[0].Albums()[0].MoveSongs([]int{2}, -2)
	require.NoError(t, err)
	_, err = lib.Folders()[0].MoveAlbums([]int{1}, -1)
	require.NoError(t, err)
	_, err = lib.MoveFolders([]int{1}, -1)
	require.NoError(t, err)
	before := layout(lib)

	st := newMemStore(lib)
	src := catalog.NewMock(
		track("a", "A1", "X", 1),
		track("b", "A1", "X", 2),
		track("c", "A1", "X", 3),
		track("d", "A2", "X", 1),
		track("e", "B1", "Y", 1),
	)

	res := reconcile(t, newTestDriver(src, st))
	assert.False(t, res.Committed)
	assert.Equal(t, before, layout(st.current()))
}

func TestReconcile_EmptyCatalogDeletesEverything(t *testing.T) {
	st := newMemStore(seed(folder("X", album("A1", "a", "b"))))

	res := reconcile(t, newTestDriver(catalog.NewMock(), st))
	assert.True(t, res.Committed)
	assert.True(t, st.current().IsEmpty())
}

func TestReconcile_DuplicateTrackIDs(t *testing.T) {
	t.Run("in the catalog", func(t *testing.T) {
		st := newMemStore(nil)
		src := catalog.NewMock(
			track("a", "A1", "X", 1),
			track("a", "A2", "Y", 1),
		)

		reconcile(t, newTestDriver(src, st))

		lib := st.current()
		require.Len(t, lib.Songs(), 1)
		assert.Equal(t, library.AlbumKey("A1"), lib.Songs()[0].Album().Key)
	})

	t.Run("in the store", func(t *testing.T) {
		st := newMemStore(seed(
			folder("X", album("A1", "a")),
			folder("Y", album("B1", "a")),
		))
		src := catalog.NewMock(track("a", "A1", "X", 1))

		reconcile(t, newTestDriver(src, st))

		lib := st.current()
		require.Equal(t, []string{"X"}, folderTitles(lib))
		requireConsistent(t, lib, src.Tracks())
	})
}

func TestReconcile_UnavailableCatalogIsSkipped(t *testing.T) {
	st := newMemStore(seed(folder("X", album("A1", "a"))))
	src := catalog.NewMock()
	src.SetErr(fmt.Errorf("%w: no source directory", catalog.ErrUnavailable))

	res := reconcile(t, newTestDriver(src, st))
	assert.True(t, res.Skipped)
	assert.Zero(t, st.saveCount())
	assert.Len(t, st.current().Songs(), 1)
}

func TestReconcile_MissingSourceRootKeepsLibrary(t *testing.T) {
	st := newMemStore(seed(
		folder("X", album("A1", "a", "b")),
		folder("Y", album("B1", "c")),
	))
	src := catalog.NewDirSource([]string{t.TempDir(), filepath.Join(t.TempDir(), "unmounted")}, nil)

	before := layout(st.current())
	res := reconcile(t, newTestDriver(src, st))
	assert.True(t, res.Skipped)
	assert.Zero(t, st.saveCount())
	assert.Equal(t, before, layout(st.current()))
}

func TestReconcile_FetchErrorFailsPass(t *testing.T) {
	src := catalog.NewMock()
	src.SetErr(errors.New("permission denied"))

	_, err := newTestDriver(src, newMemStore(nil)).Reconcile(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCommit)
}

func TestReconcile_CommitFailureKeepsLastState(t *testing.T) {
	st := newMemStore(seed(folder("X", album("A1", "a"))))
	st.err = errors.New("disk full")
	src := catalog.NewMock(track("b", "B1", "Y", 1))
	d := newTestDriver(src, st)

	_, err := d.Reconcile(context.Background())
	require.ErrorIs(t, err, ErrCommit)
	assert.Equal(t, Idle, d.State())
	assert.Equal(t, []string{"0:X/0:A1/0:a"}, layout(st.current()))
}

func TestReconcile_StateDuringPass(t *testing.T) {
	src := catalog.NewMock(track("a", "A1", "X", 1))
	var d *Driver
	var seen State
	src.OnFetch = func() { seen = d.State() }
	d = newTestDriver(src, newMemStore(nil))

	reconcile(t, d)
	assert.Equal(t, Diffing, seen)
	assert.Equal(t, Idle, d.State())
}

func TestDriver_SubscribersAreNotified(t *testing.T) {
	d := newTestDriver(catalog.NewMock(track("a", "A1", "X", 1)), newMemStore(nil))
	sub := d.Subscribe()

	assert.Nil(t, d.LastCommitted())
	res := reconcile(t, d)
	select {
	case <-sub:
	default:
		t.Fatal("no completion signal after commit")
	}
	if last := d.LastCommitted(); assert.NotNil(t, last) {
		assert.Equal(t, res.PassID, last.PassID)
		assert.Equal(t, 1, last.Stats.Created)
	}

	// nothing changed, nothing committed
	reconcile(t, d)
	select {
	case <-sub:
		t.Fatal("unexpected completion signal")
	default:
	}
}

func TestDriver_RunReportsFailedPasses(t *testing.T) {
	src := catalog.NewMock(track("a", "A1", "X", 1))
	st := newMemStore(nil)
	st.err = errors.New("disk full")
	failed := make(chan error, 1)
	d := NewDriver(src, st, nil, Options{
		OnPassError: func(err error) { failed <- err },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, nil) }()
	d.Trigger()

	select {
	case err := <-failed:
		assert.ErrorIs(t, err, ErrCommit)
	case <-time.After(2 * time.Second):
		t.Fatal("failed pass was not reported")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestReconcile_ConcurrentCallsEachRunAPass(t *testing.T) {
	src := catalog.NewMock(track("a", "A1", "X", 1))
	started := make(chan struct{})
	release := make(chan struct{})
	first := true
	src.OnFetch = func() {
		if first {
			first = false
			close(started)
			<-release
		}
	}
	st := newMemStore(nil)
	d := newTestDriver(src, st)

	results := make(chan *Result, 2)
	run := func() {
		res, err := d.Reconcile(context.Background())
		assert.NoError(t, err)
		results <- res
	}
	go run()
	<-started
	go run()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, src.Calls(), "second call waits for the running pass")
	close(release)

	first1, second := <-results, <-results
	assert.Equal(t, 2, src.Calls())
	assert.NotEqual(t, first1.PassID, second.PassID)
	assert.Equal(t, 1, st.saveCount(), "the second pass finds nothing to change")
}

func TestDriver_RunCoalescesSignals(t *testing.T) {
	src := catalog.NewMock(track("a", "A1", "X", 1))
	started := make(chan struct{})
	release := make(chan struct{})
	first := true
	src.OnFetch = func() {
		if first {
			first = false
			close(started)
			<-release
		}
	}
	d := newTestDriver(src, newMemStore(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, changes) }()

	changes <- struct{}{}
	<-started
	for range 5 {
		d.Trigger()
	}
	close(release)

	require.Eventually(t, func() bool { return src.Calls() == 2 && d.State() == Idle },
		2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, src.Calls())

	cancel()
	require.NoError(t, <-done)
}

func TestReconcile_InvariantsHoldAcrossRandomCatalogs(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	artists := []string{"Alpha", "Bravo", "Charlie", ""}
	keys := []string{"K1", "K2", "K3", "K4", "K5", "K6"}

	st := newMemStore(nil)
	src := catalog.NewMock()
	d := newTestDriver(src, st)

	for round := range 12 {
		var records []catalog.TrackRecord
		for i := range 40 {
			if rng.IntN(3) == 0 {
				continue
			}
			k := keys[rng.IntN(len(keys))]
			r := track(fmt.Sprintf("t%02d", i), k, artists[rng.IntN(len(artists))], rng.IntN(12))
			r.DateAdded = baseDate.Add(time.Duration(round*100+i) * time.Minute)
			if rng.IntN(2) == 0 {
				r.ReleaseDate = date(1990 + rng.IntN(30))
			}
			records = append(records, r)
		}
		src.SetTracks(records...)

		reconcile(t, d)
		lib := st.current()
		requireConsistent(t, lib, records)
		after := layout(lib)

		res := reconcile(t, d)
		require.False(t, res.Committed, "round %d: second pass must be a no-op", round)
		require.Equal(t, after, layout(st.current()), "round %d", round)
	}
}
