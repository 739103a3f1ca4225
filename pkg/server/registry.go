package server

import "sync"

// SessionRegistry issues monotonically increasing session ids. It is owned
// by the server rather than being a process-wide counter, so two servers in
// one process (tests) never share id space.
type SessionRegistry struct {
	mu   sync.Mutex
	next uint64
}

// NewSessionRegistry creates a registry whose first issued id is 1.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{next: 1}
}

// NextID returns the next session id. Ids are unique and immutable for a
// session's lifetime.
func (r *SessionRegistry) NextID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	return id
}
