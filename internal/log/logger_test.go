package log

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	req := require.New(t)

	req.Equal(zerolog.TraceLevel, parseLevel("trace"))
	req.Equal(zerolog.DebugLevel, parseLevel("debug"))
	req.Equal(zerolog.InfoLevel, parseLevel("info"))
	req.Equal(zerolog.WarnLevel, parseLevel("warn"))
	req.Equal(zerolog.WarnLevel, parseLevel("WARNING"))
	req.Equal(zerolog.ErrorLevel, parseLevel("error"))
	req.Equal(zerolog.InfoLevel, parseLevel("nonsense"))
}

func TestNewHonorsLevel(t *testing.T) {
	logger := New("error")
	require.Equal(t, zerolog.ErrorLevel, logger.GetLevel())
}
