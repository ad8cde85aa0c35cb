package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairKeyCanonicalOrder(t *testing.T) {
	req := require.New(t)

	req.Equal("dm:1:2", PairKey(1, 2))
	req.Equal("dm:1:2", PairKey(2, 1), "both ends derive the same key")
	req.Equal("dm:7:7", PairKey(7, 7))
	req.NotEqual(PairKey(1, 2), PairKey(1, 3))
}
