package session

import "sync"

// Mailbox holds at most one unread message. Put overwrites, Take consumes.
type Mailbox struct {
	mu      sync.Mutex
	message string
	pending bool
}

// Put stores msg, replacing any unread message
func (m *Mailbox) Put(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.message = msg
	m.pending = true
}

// Take returns the unread message and empties the mailbox
func (m *Mailbox) Take() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pending {
		return "", false
	}
	msg := m.message
	m.message = ""
	m.pending = false
	return msg, true
}

// Pending reports whether an unread message is waiting
func (m *Mailbox) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}
