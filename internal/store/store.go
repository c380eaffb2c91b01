// Package store persists the library hierarchy in SQLite.
//
// The whole library is loaded and committed at once; a commit replaces
// every row in one transaction, so readers only ever see a fully
// reconciled library.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/llehouerou/shelves/internal/db"
	"github.com/llehouerou/shelves/internal/library"
)

const (
	// MemoryPath opens a private in-memory store without a lock file.
	MemoryPath = ":memory:"

	settingImported = "has_imported"
	settingLastPass = "last_pass_at"
)

// ErrLocked is returned by Open when another process holds the store.
var ErrLocked = errors.New("library store is locked by another process")

// Store is the SQLite-backed library store.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	log  *zap.Logger
}

// Open opens or creates the store at path and takes its lock file.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{log: log.Named("store")}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		s.lock = flock.New(path + ".lock")
		ok, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		s.unlock()
		return nil, err
	}
	// one writer; also keeps an in-memory database on a single connection
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		s.unlock()
		return nil, err
	}
	if err := initSchema(conn); err != nil {
		conn.Close()
		s.unlock()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	s.db = conn

	s.log.Debug("store opened", zap.String("path", path))
	return s, nil
}

// Close closes the database and releases the lock file.
func (s *Store) Close() error {
	err := s.db.Close()
	s.unlock()
	return err
}

func (s *Store) unlock() {
	if s.lock == nil {
		return
	}
	if err := s.lock.Unlock(); err != nil {
		s.log.Warn("failed to release store lock", zap.Error(err))
	}
}

// Load reads the whole library.
func (s *Store) Load(ctx context.Context) (*library.Library, error) {
	lib := library.New()

	folders := make(map[int64]*library.Folder)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, position FROM folders ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("loading folders: %w", err)
	}
	for rows.Next() {
		var id int64
		var title string
		var position int
		if err := rows.Scan(&id, &title, &position); err != nil {
			rows.Close()
			return nil, err
		}
		folders[id] = lib.RestoreFolder(id, title, position)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	albums := make(map[int64]*library.Album)
	rows, err = s.db.QueryContext(ctx, `
		SELECT id, folder_id, album_key, title, position, release_estimate
		FROM albums ORDER BY folder_id, position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("loading albums: %w", err)
	}
	for rows.Next() {
		var id, folderID int64
		var key, title string
		var position int
		var released sql.NullInt64
		if err := rows.Scan(&id, &folderID, &key, &title, &position, &released); err != nil {
			rows.Close()
			return nil, err
		}
		f, ok := folders[folderID]
		if !ok {
			continue
		}
		albums[id] = f.RestoreAlbum(id, library.AlbumKey(key), title, position, db.NullTimeToPtr(released))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, album_id, track_id, position FROM songs ORDER BY album_id, position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("loading songs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, albumID int64
		var trackID string
		var position int
		if err := rows.Scan(&id, &albumID, &trackID, &position); err != nil {
			return nil, err
		}
		if a, ok := albums[albumID]; ok {
			a.RestoreSong(id, library.TrackID(trackID), position)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	settings, err := s.settings(ctx)
	if err != nil {
		return nil, err
	}
	lib.Imported = settings.imported
	lib.LastPassAt = settings.lastPass
	return lib, nil
}

// Save replaces the stored library with lib in one transaction. Row ids of
// new containers are assigned on success.
func (s *Store) Save(ctx context.Context, lib *library.Library) error {
	var assign []func()
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, table := range []string{"songs", "albums", "folders"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}

		for _, f := range lib.Folders() {
			folderID, err := insert(ctx, tx, f.ID, `
				INSERT INTO folders (id, title, position) VALUES (?, ?, ?)
			`, f.Title, f.Index)
			if err != nil {
				return fmt.Errorf("saving folder %q: %w", f.Title, err)
			}
			assign = append(assign, func() { f.ID = folderID })

			for _, a := range f.Albums() {
				albumID, err := insert(ctx, tx, a.ID, `
					INSERT INTO albums (id, folder_id, album_key, title, position, release_estimate)
					VALUES (?, ?, ?, ?, ?, ?)
				`, folderID, string(a.Key), a.Title, a.Index, db.NullTimeFromPtr(a.ReleaseDateEstimate))
				if err != nil {
					return fmt.Errorf("saving album %q: %w", a.Key, err)
				}
				assign = append(assign, func() { a.ID = albumID })

				for _, song := range a.Songs() {
					songID, err := insert(ctx, tx, song.ID, `
						INSERT INTO songs (id, album_id, track_id, position) VALUES (?, ?, ?, ?)
					`, albumID, string(song.TrackID), song.Index)
					if err != nil {
						return fmt.Errorf("saving song %q: %w", song.TrackID, err)
					}
					assign = append(assign, func() { song.ID = songID })
				}
			}
		}

		return putSettings(ctx, tx, map[string]string{
			settingImported: strconv.FormatBool(lib.Imported),
			settingLastPass: formatTime(lib.LastPassAt),
		})
	})
	if err != nil {
		return err
	}

	for _, fn := range assign {
		fn()
	}
	return nil
}

// Update loads the library, applies fn and saves the result. Nothing is
// saved when fn fails.
func (s *Store) Update(ctx context.Context, fn func(*library.Library) error) error {
	lib, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(lib); err != nil {
		return err
	}
	return s.Save(ctx, lib)
}

func insert(ctx context.Context, tx *sql.Tx, id int64, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, append([]any{db.NullID(id)}, args...)...)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}
	return res.LastInsertId()
}

// Status summarizes the stored library.
type Status struct {
	Folders    int
	Albums     int
	Songs      int
	Imported   bool
	LastPassAt time.Time
}

// Status returns container counts and the last pass time.
func (s *Store) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM folders),
			(SELECT COUNT(*) FROM albums),
			(SELECT COUNT(*) FROM songs)
	`).Scan(&st.Folders, &st.Albums, &st.Songs)
	if err != nil {
		return Status{}, fmt.Errorf("counting library: %w", err)
	}

	settings, err := s.settings(ctx)
	if err != nil {
		return Status{}, err
	}
	st.Imported = settings.imported
	st.LastPassAt = settings.lastPass
	return st, nil
}
