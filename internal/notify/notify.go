// Package notify reports reconciliation passes as desktop notifications.
package notify

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Urgency is the freedesktop notification urgency hint.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyCritical Urgency = 2
)

// Notification is one desktop notification.
type Notification struct {
	Title      string
	Body       string
	Icon       string // icon name or image path
	Timeout    int32  // ms; -1 lets the server decide
	ReplacesID uint32 // 0 opens a new notification
	Urgency    Urgency
}

// Notifier sends and withdraws desktop notifications.
type Notifier interface {
	// Notify shows n and returns its id, 0 when nothing was shown.
	Notify(n Notification) (uint32, error)
	Close(id uint32) error
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Notification) (uint32, error) { return 0, nil }
func (discard) Close(uint32) error                  { return nil }

// LibraryChanges is what a committed pass did to the library.
type LibraryChanges struct {
	Added   int
	Removed int
	Moved   int
}

// LibraryUpdated builds the notification for a committed pass.
func LibraryUpdated(c LibraryChanges, replaces uint32) Notification {
	var parts []string
	if c.Added > 0 {
		parts = append(parts, fmt.Sprintf("%d added", c.Added))
	}
	if c.Removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", c.Removed))
	}
	if c.Moved > 0 {
		parts = append(parts, fmt.Sprintf("%d moved", c.Moved))
	}
	body := "Library reorganized"
	if len(parts) > 0 {
		body = strings.Join(parts, ", ")
	}
	return Notification{
		Title:      "Library updated",
		Body:       body,
		Icon:       "folder-music",
		Timeout:    5000,
		ReplacesID: replaces,
		Urgency:    UrgencyLow,
	}
}

// PassFailed builds the notification for a pass that was aborted. It stays
// until dismissed.
func PassFailed(err error, replaces uint32) Notification {
	return Notification{
		Title:      "Library update failed",
		Body:       err.Error(),
		Icon:       "dialog-error",
		Timeout:    0,
		ReplacesID: replaces,
		Urgency:    UrgencyCritical,
	}
}

// Reporter keeps a single notification on screen for the latest pass,
// replacing it as passes complete.
type Reporter struct {
	notifier Notifier
	log      *zap.Logger

	mu sync.Mutex
	id uint32
}

// NewReporter creates a reporter. A nil notifier discards everything.
func NewReporter(n Notifier, log *zap.Logger) *Reporter {
	if n == nil {
		n = Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{notifier: n, log: log.Named("notify")}
}

// Updated reports a committed pass.
func (r *Reporter) Updated(c LibraryChanges) {
	r.send(func(replaces uint32) Notification { return LibraryUpdated(c, replaces) })
}

// Failed reports an aborted pass.
func (r *Reporter) Failed(err error) {
	r.send(func(replaces uint32) Notification { return PassFailed(err, replaces) })
}

func (r *Reporter) send(build func(replaces uint32) Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := r.notifier.Notify(build(r.id))
	if err != nil {
		r.log.Warn("sending notification failed", zap.Error(err))
		return
	}
	if id != 0 {
		r.id = id
	}
}

// Dismiss withdraws the notification currently on screen, if any.
func (r *Reporter) Dismiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.id == 0 {
		return
	}
	if err := r.notifier.Close(r.id); err != nil {
		r.log.Debug("closing notification failed", zap.Uint32("id", r.id), zap.Error(err))
	}
	r.id = 0
}
