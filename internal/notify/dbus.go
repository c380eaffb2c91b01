//go:build linux

package notify

import (
	"github.com/godbus/dbus/v5"
)

const (
	busName      = "org.freedesktop.Notifications"
	busPath      = dbus.ObjectPath("/org/freedesktop/Notifications")
	appName      = "Shelves"
	desktopEntry = "shelves"
)

type busNotifier struct {
	obj dbus.BusObject
}

// New connects to the session bus. Without a session bus notifications are
// discarded.
func New() (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return Discard, nil //nolint:nilerr // headless sessions run without notifications
	}
	return &busNotifier{obj: conn.Object(busName, busPath)}, nil
}

func (b *busNotifier) Notify(n Notification) (uint32, error) {
	var id uint32
	err := b.obj.Call(busName+".Notify", 0,
		appName,
		n.ReplacesID,
		n.Icon,
		n.Title,
		n.Body,
		[]string{},
		hints(n),
		n.Timeout,
	).Store(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (b *busNotifier) Close(id uint32) error {
	return b.obj.Call(busName+".CloseNotification", 0, id).Err
}

func hints(n Notification) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(n.Urgency)),
		"desktop-entry": dbus.MakeVariant(desktopEntry),
	}
}
