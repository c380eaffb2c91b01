package catalog

import (
	"context"
	"slices"
	"sync"
)

// Mock is a test double for Source and Notifier.
type Mock struct {
	mu      sync.Mutex
	tracks  []TrackRecord
	err     error
	calls   int
	changes chan struct{}

	// OnFetch, when set, runs at the start of every FetchAllTracks call.
	OnFetch func()
}

// NewMock creates a mock catalog returning the given tracks.
func NewMock(tracks ...TrackRecord) *Mock {
	return &Mock{tracks: tracks, changes: make(chan struct{}, 1)}
}

// SetTracks replaces the catalog content.
func (m *Mock) SetTracks(tracks ...TrackRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks = tracks
}

// Tracks returns the current catalog content.
func (m *Mock) Tracks() []TrackRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tracks)
}

// SetErr makes FetchAllTracks fail with err.
func (m *Mock) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many snapshots were taken.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Signal emits a change notification.
func (m *Mock) Signal() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *Mock) FetchAllTracks(_ context.Context) ([]TrackRecord, error) {
	if m.OnFetch != nil {
		m.OnFetch()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.tracks), nil
}

func (m *Mock) Changes() <-chan struct{} {
	return m.changes
}
