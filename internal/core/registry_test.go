package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryAdmitAndLookup(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	req.Nil(r.Lookup(1))
	req.False(r.Online(1))

	s := NewSession(1, "alice", 0)
	first := r.Admit(s)
	req.True(first)
	req.True(r.Online(1))

	sessions := r.Lookup(1)
	req.Len(sessions, 1)
	req.Equal(s, sessions[0])
}

func TestRegistryMultiDeviceFanOut(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	phone := NewSession(1, "alice", 0)
	laptop := NewSession(1, "alice", 0)

	req.True(r.Admit(phone))
	req.False(r.Admit(laptop), "second device is not a first admit")

	req.Len(r.Lookup(1), 2)

	last, _ := r.Remove(phone)
	req.False(last, "user still reachable via the other device")
	req.True(r.Online(1))

	last, lastSeen := r.Remove(laptop)
	req.True(last)
	req.False(lastSeen.IsZero())
	req.False(r.Online(1))
	req.Nil(r.Lookup(1))
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	s := NewSession(1, "alice", 0)
	r.Admit(s)

	last, _ := r.Remove(s)
	req.True(last)

	last, _ = r.Remove(s)
	req.False(last, "second remove is a no-op")
}

func TestRegistryLastSeen(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	_, ok := r.LastSeen(1)
	req.False(ok)

	s := NewSession(1, "alice", 0)
	r.Admit(s)

	before := time.Now()
	r.Remove(s)

	seen, ok := r.LastSeen(1)
	req.True(ok)
	req.False(seen.Before(before))
}

func TestRegistryUsersOnePerIdentity(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	r.Admit(NewSession(1, "alice", 0))
	r.Admit(NewSession(1, "alice", 0))
	r.Admit(NewSession(2, "bob", 0))

	users := r.Users()
	req.Len(users, 2)

	ids := map[int64]string{}
	for _, u := range users {
		ids[u.ID] = u.Username
	}
	req.Equal("alice", ids[1])
	req.Equal("bob", ids[2])

	req.Len(r.All(), 3)
}
