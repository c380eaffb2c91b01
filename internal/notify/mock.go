package notify

import "sync"

// Mock records notifications for tests.
type Mock struct {
	mu    sync.Mutex
	sent  []Notification
	next  uint32
	closed []uint32
}

// Notify records n. A replacing notification keeps its id.
func (m *Mock) Notify(n Notification) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	if n.ReplacesID != 0 {
		return n.ReplacesID, nil
	}
	m.next++
	return m.next, nil
}

func (m *Mock) Close(id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = append(m.closed, id)
	return nil
}

// Sent returns every notification sent so far.
func (m *Mock) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.sent))
	copy(out, m.sent)
	return out
}

// Closed returns the ids passed to Close.
func (m *Mock) Closed() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint32(nil), m.closed...)
}
