package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypingStartStop(t *testing.T) {
	req := require.New(t)
	ts := NewTypingSet()
	pair := PairKey(1, 2)

	req.True(ts.Start(pair, 1))
	req.False(ts.Start(pair, 1), "re-adding a present id is a no-op")
	req.Equal([]int64{1}, ts.Typing(pair))

	req.True(ts.Stop(pair, 1))
	req.False(ts.Stop(pair, 1))
	req.Empty(ts.Typing(pair))
}

func TestTypingSweepUser(t *testing.T) {
	req := require.New(t)
	ts := NewTypingSet()

	ts.Start(PairKey(1, 2), 1)
	ts.Start(PairKey(1, 3), 1)
	ts.Start(PairKey(1, 2), 2)

	ts.SweepUser(1)

	req.Empty(ts.Typing(PairKey(1, 3)))
	req.Equal([]int64{2}, ts.Typing(PairKey(1, 2)), "other typers survive the sweep")
}

func TestTypingEmptySetsDiscarded(t *testing.T) {
	req := require.New(t)
	ts := NewTypingSet()
	pair := PairKey(5, 6)

	ts.Start(pair, 5)
	ts.Stop(pair, 5)

	_, exists := ts.byPair[pair]
	req.False(exists, "empty pair entries are dropped")
}
