package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/shelves/internal/library"
	"github.com/llehouerou/shelves/internal/tags"
)

const numWorkers = 8

// DirSource is a catalog made of the music files under a set of directories.
// The absolute file path is the track identity.
type DirSource struct {
	roots []string
	log   *zap.Logger

	// read is swapped in tests.
	read func(path string) (*tags.Tag, error)
}

// NewDirSource creates a catalog over the given directories.
func NewDirSource(roots []string, log *zap.Logger) *DirSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &DirSource{roots: roots, log: log.Named("catalog"), read: tags.Read}
}

// Roots returns the absolute paths of the configured directories. Every
// one of them must exist: a missing root makes the whole catalog
// unavailable, so that tracks on an unmounted drive are not read as deleted.
func (s *DirSource) Roots() ([]string, error) {
	if len(s.roots) == 0 {
		return nil, fmt.Errorf("%w: no library source directory", ErrUnavailable)
	}
	roots := make([]string, 0, len(s.roots))
	for _, r := range s.roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, r, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, abs, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrUnavailable, abs)
		}
		roots = append(roots, abs)
	}
	return roots, nil
}

// FetchAllTracks scans every root and returns one record per readable music file.
// It returns ErrUnavailable when any root directory is missing.
func (s *DirSource) FetchAllTracks(ctx context.Context) ([]TrackRecord, error) {
	roots, err := s.Roots()
	if err != nil {
		return nil, err
	}

	files, err := discoverFiles(ctx, roots)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		records = make([]TrackRecord, 0, len(files))
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := s.read(f.path)
			if err != nil {
				s.log.Debug("skipping unreadable file", zap.String("path", f.path), zap.Error(err))
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			rec := recordFromTag(f, t)
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(records, func(a, b TrackRecord) int {
		return strings.Compare(string(a.TrackID), string(b.TrackID))
	})

	s.log.Debug("catalog scanned",
		zap.Strings("roots", roots),
		zap.Int("tracks", len(records)),
		zap.Int("skipped", skipped),
	)
	return records, nil
}

func recordFromTag(f fileInfo, t *tags.Tag) TrackRecord {
	title := t.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path))
	}
	return TrackRecord{
		TrackID:     library.TrackID(f.path),
		AlbumKey:    AlbumKeyFor(t.MBReleaseID, t.AlbumArtist, t.Album),
		AlbumArtist: t.AlbumArtist,
		AlbumTitle:  t.Album,
		DiscNumber:  t.DiscNumber,
		TrackNumber: t.TrackNumber,
		Title:       title,
		DateAdded:   f.mtime,
		ReleaseDate: releaseDate(t.BestDate()),
	}
}
