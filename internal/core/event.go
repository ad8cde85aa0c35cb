package core

import (
	"time"

	"github.com/vovakirdan/dmwire-server/internal/store"
)

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventWelcome completes the admission handshake for a session.
	EventWelcome EventKind = iota
	// EventPresenceState delivers the online-user snapshot to a freshly
	// admitted session.
	EventPresenceState
	// EventUserOnline notifies that a user came online.
	EventUserOnline
	// EventUserOffline notifies that a user went offline.
	EventUserOffline
	// EventMessageNew delivers a message to its recipient.
	EventMessageNew
	// EventMessageAck confirms persistence of a sent message to the sender.
	EventMessageAck
	// EventTypingStart notifies the peer that a user started typing.
	EventTypingStart
	// EventTypingStop notifies the peer that a user stopped typing.
	EventTypingStop
	// EventReadAck notifies the original sender that a message was read.
	EventReadAck
	// EventError notifies the session about a domain error.
	EventError
)

// UserRef identifies a user in events.
type UserRef struct {
	ID       int64
	Username string
}

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind       EventKind
	User       *UserRef       // online/offline/typing source, welcome identity
	Users      []UserRef      // for EventPresenceState
	Message    *store.Message // for EventMessageNew/EventMessageAck
	MessageID  int64          // for EventReadAck
	LastSeenAt time.Time      // for EventUserOffline
	ReadAt     time.Time      // for EventReadAck
	Error      *CoreError     // for EventError
}
