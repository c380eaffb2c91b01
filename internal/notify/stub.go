//go:build !linux

package notify

// New returns a notifier that discards everything; desktop notifications
// go through D-Bus, which only exists on Linux.
func New() (Notifier, error) {
	return Discard, nil
}
