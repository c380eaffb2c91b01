package library

import "fmt"

// Violation describes a broken structural invariant.
type Violation struct {
	What string
}

func (v Violation) Error() string { return v.What }

// Check verifies the invariants a committed library must hold: dense indices
// at every level, no empty album or folder, at most one album per key and
// at most one song per track.
func (l *Library) Check() []Violation {
	var out []Violation
	if !isDense(l.folders) {
		out = append(out, Violation{"folder indices are not dense"})
	}
	albums := make(map[AlbumKey]*Album)
	songs := make(map[TrackID]struct{})
	for _, f := range l.folders {
		if len(f.albums) == 0 {
			out = append(out, Violation{fmt.Sprintf("folder %q is empty", f.Title)})
		}
		if !isDense(f.albums) {
			out = append(out, Violation{fmt.Sprintf("album indices in folder %q are not dense", f.Title)})
		}
		for _, a := range f.albums {
			if prev, ok := albums[a.Key]; ok && prev != a {
				out = append(out, Violation{fmt.Sprintf("album key %q is used twice", a.Key)})
			}
			albums[a.Key] = a
			if len(a.songs) == 0 {
				out = append(out, Violation{fmt.Sprintf("album %q is empty", a.Key)})
			}
			if !isDense(a.songs) {
				out = append(out, Violation{fmt.Sprintf("song indices in album %q are not dense", a.Key)})
			}
			for _, s := range a.songs {
				if _, ok := songs[s.TrackID]; ok {
					out = append(out, Violation{fmt.Sprintf("track %q appears twice", s.TrackID)})
				}
				songs[s.TrackID] = struct{}{}
			}
		}
	}
	return out
}
