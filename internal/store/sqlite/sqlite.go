package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/dmwire-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY,
	username   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id    INTEGER NOT NULL,
	recipient_id INTEGER NOT NULL,
	body         TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
	delivered_at DATETIME,
	read_at      DATETIME,
	FOREIGN KEY (sender_id) REFERENCES users(id),
	FOREIGN KEY (recipient_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_pair
	ON messages(sender_id, recipient_id, id DESC);
CREATE INDEX IF NOT EXISTS idx_messages_recipient
	ON messages(recipient_id, id DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// EnsureUser records an identity if it has not been seen before.
func (s *SQLiteStore) EnsureUser(ctx context.Context, id int64, username string) error {
	query := `
		INSERT INTO users (id, username)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username
	`
	if _, err := s.db.ExecContext(ctx, query, id, username); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT id, username, created_at FROM users WHERE id = ?`

	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT id, username, created_at FROM users WHERE username = ?`

	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== MessageStore implementation ====

// CreateMessage persists a new message in the sent state.
func (s *SQLiteStore) CreateMessage(ctx context.Context, senderID, recipientID int64, body string) (*store.Message, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO messages (sender_id, recipient_id, body, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, senderID, recipientID, body, now)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return &store.Message{
		ID:          id,
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		CreatedAt:   now,
	}, nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, body, created_at, delivered_at, read_at
		FROM messages
		WHERE id = ?
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

// MarkDelivered stamps delivered_at if it is not already set.
func (s *SQLiteStore) MarkDelivered(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE messages
		SET delivered_at = ?
		WHERE id = ? AND delivered_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("mark delivered: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkRead stamps read_at, backfilling delivered_at when delivery was
// never acked so read always implies delivered.
func (s *SQLiteStore) MarkRead(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE messages
		SET read_at = ?, delivered_at = COALESCE(delivered_at, ?)
		WHERE id = ? AND read_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, at.UTC(), at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListByPair retrieves messages exchanged between two users, newest first.
func (s *SQLiteStore) ListByPair(ctx context.Context, userA, userB int64, limit int, beforeID *int64) ([]*store.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, sender_id, recipient_id, body, created_at, delivered_at, read_at
		FROM messages
		WHERE ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))
	`
	args := []any{userA, userB, userB, userA}

	if beforeID != nil {
		query += ` AND id < ?`
		args = append(args, *beforeID)
	}

	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var (
		msg         store.Message
		deliveredAt sql.NullTime
		readAt      sql.NullTime
	)
	err := row.Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Body,
		&msg.CreatedAt,
		&deliveredAt,
		&readAt,
	)
	if err != nil {
		return nil, err
	}

	if deliveredAt.Valid {
		t := deliveredAt.Time
		msg.DeliveredAt = &t
	}
	if readAt.Valid {
		t := readAt.Time
		msg.ReadAt = &t
	}

	return &msg, nil
}
