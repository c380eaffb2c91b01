package catalog

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/llehouerou/shelves/internal/tags"
)

// fileInfo holds information about a discovered music file.
type fileInfo struct {
	path  string
	mtime time.Time
}

// discoverFiles walks the given source directories and returns all music files found.
// Unreadable entries are skipped; only a cancelled context stops the walk.
func discoverFiles(ctx context.Context, sources []string) ([]fileInfo, error) {
	var files []fileInfo
	seen := make(map[string]struct{})
	for _, src := range sources {
		err := filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Skip any walk errors - intentionally continuing to scan other paths
			if walkErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}
			if d.IsDir() || !tags.IsMusicFile(path) {
				return nil
			}

			info, infoErr := d.Info()
			if infoErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}

			// nested sources would otherwise report the same file twice
			if _, ok := seen[path]; ok {
				return nil
			}
			seen[path] = struct{}{}
			files = append(files, fileInfo{path: path, mtime: info.ModTime()})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
