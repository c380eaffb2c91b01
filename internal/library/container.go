package library

import "sort"

// positioned is implemented by every child of an ordered container.
// The index it exposes is the manual order within the parent.
type positioned interface {
	comparable
	pos() *int
}

func (s *Song) pos() *int   { return &s.Index }
func (a *Album) pos() *int  { return &a.Index }
func (f *Folder) pos() *int { return &f.Index }

// prependItem inserts item at index 0, shifting every existing sibling down by one.
func prependItem[T positioned](items []T, item T) []T {
	for _, it := range items {
		*it.pos()++
	}
	*item.pos() = 0
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

// appendItem inserts item after the last sibling. Gaps left by earlier
// removals are not filled.
func appendItem[T positioned](items []T, item T) []T {
	next := 0
	if n := len(items); n > 0 {
		next = *items[n-1].pos() + 1
	}
	*item.pos() = next
	return append(items, item)
}

// insertByIndex places item according to its current index, after any
// sibling sharing the same index.
func insertByIndex[T positioned](items []T, item T) []T {
	at := sort.Search(len(items), func(i int) bool {
		return *items[i].pos() > *item.pos()
	})
	items = append(items, item)
	copy(items[at+1:], items[at:])
	items[at] = item
	return items
}

// removeItem detaches item without touching sibling indices.
func removeItem[T positioned](items []T, item T) ([]T, bool) {
	for i, it := range items {
		if it == item {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}

// renumber rewrites indices to 0..n-1 in current order and reports how many changed.
func renumber[T positioned](items []T) int {
	changed := 0
	for i, it := range items {
		if *it.pos() != i {
			*it.pos() = i
			changed++
		}
	}
	return changed
}

// isDense reports whether indices are exactly 0..n-1 in order.
func isDense[T positioned](items []T) bool {
	for i, it := range items {
		if *it.pos() != i {
			return false
		}
	}
	return true
}
