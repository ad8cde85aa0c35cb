package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/dmwire-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func expectNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// memStore is an in-memory store.Store for hub tests.
type memStore struct {
	mu       sync.Mutex
	users    map[int64]*store.User
	messages map[int64]*store.Message
	nextID   int64

	failCreate bool
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*store.User),
		messages: make(map[int64]*store.Message),
	}
}

func (m *memStore) EnsureUser(_ context.Context, id int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		m.users[id] = &store.User{ID: id, Username: username, CreatedAt: time.Now()}
	}
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) CreateMessage(_ context.Context, senderID, recipientID int64, body string) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return nil, errors.New("store down")
	}
	m.nextID++
	msg := &store.Message{
		ID:          m.nextID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		CreatedAt:   time.Now(),
	}
	m.messages[msg.ID] = msg
	return copyMessage(msg), nil
}

func (m *memStore) GetMessage(_ context.Context, id int64) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyMessage(msg), nil
}

func (m *memStore) MarkDelivered(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if msg.DeliveredAt != nil {
		return false, nil
	}
	msg.DeliveredAt = &at
	return true, nil
}

func (m *memStore) MarkRead(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if msg.ReadAt != nil {
		return false, nil
	}
	msg.ReadAt = &at
	if msg.DeliveredAt == nil {
		msg.DeliveredAt = &at
	}
	return true, nil
}

func (m *memStore) ListByPair(_ context.Context, userA, userB int64, limit int, beforeID *int64) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Message
	for id := m.nextID; id > 0 && len(out) < limit; id-- {
		msg, ok := m.messages[id]
		if !ok {
			continue
		}
		if beforeID != nil && id >= *beforeID {
			continue
		}
		if (msg.SenderID == userA && msg.RecipientID == userB) ||
			(msg.SenderID == userB && msg.RecipientID == userA) {
			out = append(out, copyMessage(msg))
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func copyMessage(msg *store.Message) *store.Message {
	dup := *msg
	return &dup
}

func newTestHub(t *testing.T, st store.Store) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(NewRegistry(), NewTypingSet(), st, nil)
	go hub.Run(ctx)
	return hub
}
