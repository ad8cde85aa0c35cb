package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a user in the system. Accounts are created upstream;
// this server only records the identities it has admitted so recipient
// resolution works.
type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

// Message represents a persisted direct message. Delivery state is
// monotonic: DeliveredAt and ReadAt are set at most once and never
// cleared. ReadAt set implies DeliveredAt set.
type Message struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	Body        string
	CreatedAt   time.Time
	DeliveredAt *time.Time
	ReadAt      *time.Time
}

// Delivered reports whether the message reached the recipient's device.
func (m *Message) Delivered() bool { return m.DeliveredAt != nil }

// Read reports whether the recipient acknowledged reading the message.
func (m *Message) Read() bool { return m.ReadAt != nil }

// UserStore handles user persistence.
type UserStore interface {
	// EnsureUser records an identity if it has not been seen before.
	// Idempotent; an existing row keeps its original created_at.
	EnsureUser(ctx context.Context, id int64, username string) error

	// GetUserByID retrieves a user by ID. Returns ErrNotFound if unknown.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// MessageStore handles message persistence and delivery-state transitions.
type MessageStore interface {
	// CreateMessage persists a new message in the sent state and
	// returns it with its assigned ID.
	CreateMessage(ctx context.Context, senderID, recipientID int64, body string) (*Message, error)

	// GetMessage retrieves a message by ID. Returns ErrNotFound if unknown.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// MarkDelivered stamps delivered_at if it is not already set.
	// Returns false if the message was already delivered.
	MarkDelivered(ctx context.Context, id int64, at time.Time) (bool, error)

	// MarkRead stamps read_at, and delivered_at too if delivery was
	// never acked, both with the same timestamp. Returns false if the
	// message was already read.
	MarkRead(ctx context.Context, id int64, at time.Time) (bool, error)

	// ListByPair retrieves messages exchanged between two users, newest
	// first. If beforeID is non-nil only messages older than that ID are
	// returned. Limit caps the result size.
	ListByPair(ctx context.Context, userA, userB int64, limit int, beforeID *int64) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
