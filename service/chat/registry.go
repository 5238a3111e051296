package chat

import (
	"sync"
)

// Registry is the session registry: the in-memory mapping from an
// authenticated identity to its live connection. It is the single source
// of truth for who is currently reachable. At most one entry per
// identity; a later registration for the same identity supersedes the
// earlier one (last-writer-wins, no kick of the stale connection).
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client // identity -> current connection
	byConn map[string]*Client // conn id -> connection
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Client),
		byConn: make(map[string]*Client),
	}
}

// Register inserts or overwrites the entry for the client's identity.
// Idempotent for the same identity/connection pair.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[c.ConnID] = c
	r.byUser[c.UserID] = c
}

// Lookup returns the live connection for an identity, if any.
func (r *Registry) Lookup(user string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[user]
	return c, ok
}

// Unregister removes the entry addressed by connection id. Removal is
// matched by handle, never by identity: when a disconnect for an old
// connection races with a newer registration for the same identity, the
// stale unregister must not evict the fresh entry. Unknown ids are a
// no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if cur, ok := r.byUser[c.UserID]; ok && cur == c {
		delete(r.byUser, c.UserID)
	}
}

// ListAll snapshots every registered connection.
func (r *Registry) ListAll() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
