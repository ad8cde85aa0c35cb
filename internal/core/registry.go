package core

import (
	"sync"
	"time"
)

// Registry is the single source of truth for "is this user currently
// reachable". It maps an identity to the set of its live sessions and
// is safe for concurrent use; lookups never block on I/O.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]map[*Session]struct{}
	lastSeen map[int64]time.Time
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]map[*Session]struct{}),
		lastSeen: make(map[int64]time.Time),
	}
}

// Admit records the session as a reachable endpoint for its identity.
// Returns true if this is the identity's first live session, i.e. the
// user just came online.
func (r *Registry) Admit(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[s.UserID]
	if !ok {
		set = make(map[*Session]struct{})
		r.sessions[s.UserID] = set
	}
	set[s] = struct{}{}
	return !ok
}

// Remove deletes the session; idempotent. Returns true with a last-seen
// timestamp when this was the identity's final session, i.e. the user
// just went offline.
func (r *Registry) Remove(s *Session) (bool, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[s.UserID]
	if !ok {
		return false, time.Time{}
	}
	if _, ok := set[s]; !ok {
		return false, time.Time{}
	}
	delete(set, s)

	if len(set) > 0 {
		return false, time.Time{}
	}
	delete(r.sessions, s.UserID)
	now := time.Now()
	r.lastSeen[s.UserID] = now
	return true, now
}

// Lookup returns the current sessions for an identity, or nil if the
// user is not reachable.
func (r *Registry) Lookup(userID int64) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// Online reports whether the identity has at least one live session.
func (r *Registry) Online(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions[userID]) > 0
}

// All returns every live session across all identities.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Session
	for _, set := range r.sessions {
		for s := range set {
			out = append(out, s)
		}
	}
	return out
}

// Users returns one reference per online identity.
func (r *Registry) Users() []UserRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]UserRef, 0, len(r.sessions))
	for id, set := range r.sessions {
		for s := range set {
			out = append(out, UserRef{ID: id, Username: s.Username})
			break
		}
	}
	return out
}

// LastSeen returns the recorded last-seen time for an identity that has
// disconnected, if any.
func (r *Registry) LastSeen(userID int64) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.lastSeen[userID]
	return t, ok
}
