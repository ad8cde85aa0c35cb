package core

import (
	"time"

	"github.com/google/uuid"
)

const defaultEventBuffer = 32

// Session is one live connection for a verified identity. A user may
// hold several sessions at once (one per device); the registry fans
// pushes out to all of them.
type Session struct {
	ID          string
	UserID      int64
	Username    string
	Commands    chan *Command
	Events      chan *Event
	ConnectedAt time.Time

	// pairs the session has joined; owned by the hub run loop.
	pairs map[string]struct{}
	// detached is set by the hub run loop once the session is removed;
	// commands dispatched after that point are dropped.
	detached bool
	// done stops the session's pump goroutine.
	done chan struct{}
}

// NewSession constructs a session with initialized channels.
// buffer sizes the outbound event channel; <=0 uses the default.
func NewSession(userID int64, username string, buffer int) *Session {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		Username:    username,
		Commands:    make(chan *Command, 8),
		Events:      make(chan *Event, buffer),
		ConnectedAt: time.Now(),
		pairs:       make(map[string]struct{}),
		done:        make(chan struct{}),
	}
}

// send pushes an event to the session without blocking. Pushes are
// best-effort; a slow consumer loses events rather than stalling the
// hub. Returns false if the event was dropped.
func (s *Session) send(ev *Event) bool {
	select {
	case s.Events <- ev:
		return true
	default:
		return false
	}
}
