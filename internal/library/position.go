package library

import (
	"errors"
	"sort"
)

// ErrNotDense is returned by manual moves on a container whose indices have gaps.
var ErrNotDense = errors.New("container indices are not dense")

// Position is the full manual-order position of a song.
type Position struct {
	Folder int
	Album  int
	Song   int
}

// Less orders positions folder first, then album, then song.
func (p Position) Less(o Position) bool {
	if p.Folder != o.Folder {
		return p.Folder < o.Folder
	}
	if p.Album != o.Album {
		return p.Album < o.Album
	}
	return p.Song < o.Song
}

// Position returns the full manual-order position of an attached song.
func (s *Song) Position() Position {
	a := s.album
	return Position{Folder: a.folder.Index, Album: a.Index, Song: s.Index}
}

// positionCalculator computes a block move inside one container.
type positionCalculator struct {
	sorted []int // sorted positions to move
	count  int   // total item count
	delta  int   // movement amount (negative = up, positive = down)
}

func newPositionCalculator(positions []int, count, delta int) *positionCalculator {
	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Ints(sorted)
	return &positionCalculator{sorted: sorted, count: count, delta: delta}
}

// canMove reports whether every position stays in bounds after the move.
func (c *positionCalculator) canMove() bool {
	if len(c.sorted) == 0 || c.delta == 0 {
		return false
	}
	if c.sorted[0] < 0 || c.sorted[len(c.sorted)-1] >= c.count {
		return false
	}
	if c.delta < 0 {
		return c.sorted[0]+c.delta >= 0
	}
	return c.sorted[len(c.sorted)-1]+c.delta < c.count
}

// newPositions returns the positions after the move, in input order.
func (c *positionCalculator) newPositions(original []int) []int {
	result := make([]int, len(original))
	for i, pos := range original {
		result[i] = pos + c.delta
	}
	return result
}

// moveBlock moves the selected items by delta. Items keep their relative order,
// unselected items fill the vacated slots. Indices are renumbered.
func moveBlock[T positioned](items []T, c *positionCalculator) {
	step := func(from, to int) {
		it := items[from]
		if from < to {
			copy(items[from:to], items[from+1:to+1])
		} else {
			copy(items[to+1:from+1], items[to:from])
		}
		items[to] = it
	}
	if c.delta < 0 {
		for _, pos := range c.sorted {
			step(pos, pos+c.delta)
		}
	} else {
		for i := len(c.sorted) - 1; i >= 0; i-- {
			pos := c.sorted[i]
			step(pos, pos+c.delta)
		}
	}
	renumber(items)
}

func moveIndices[T positioned](items []T, positions []int, delta int) ([]int, error) {
	if !isDense(items) {
		return nil, ErrNotDense
	}
	calc := newPositionCalculator(positions, len(items), delta)
	if !calc.canMove() {
		return positions, nil
	}
	moveBlock(items, calc)
	return calc.newPositions(positions), nil
}

// MoveSongs moves the songs at the given indices by delta and returns their
// new indices. Out-of-bounds moves are ignored.
func (a *Album) MoveSongs(positions []int, delta int) ([]int, error) {
	return moveIndices(a.songs, positions, delta)
}

// MoveAlbums moves the albums at the given indices by delta.
func (f *Folder) MoveAlbums(positions []int, delta int) ([]int, error) {
	return moveIndices(f.albums, positions, delta)
}

// MoveFolders moves the folders at the given indices by delta.
func (l *Library) MoveFolders(positions []int, delta int) ([]int, error) {
	return moveIndices(l.folders, positions, delta)
}
