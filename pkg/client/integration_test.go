package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/dmwire-server/internal/auth"
	"github.com/vovakirdan/dmwire-server/internal/config"
	"github.com/vovakirdan/dmwire-server/internal/core"
	"github.com/vovakirdan/dmwire-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/dmwire-server/internal/transport/http"
)

var integrationJWT = &auth.JWTConfig{
	Secret:   []byte("integration-secret"),
	Issuer:   "dmwire-test",
	Audience: "dmwire",
	TTL:      time.Hour,
}

func startServer(t *testing.T) string {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	hub := core.NewHub(core.NewRegistry(), core.NewTypingSet(), st, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	nop := zerolog.Nop()
	server := transporthttp.NewServer(hub, auth.NewService(integrationJWT), st, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		AdmissionTimeout:  2 * time.Second,
		EventBuffer:       32,
	}, &nop)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

func token(t *testing.T, userID int64, username string) string {
	t.Helper()
	tok, err := auth.GenerateToken(integrationJWT, userID, username)
	require.NoError(t, err)
	return tok
}

func TestClientRoundTrip(t *testing.T) {
	req := require.New(t)
	url := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bobInbox := make(chan Message, 8)
	aliceAcks := make(chan Message, 8)
	aliceReceipts := make(chan int64, 8)

	alice := New(Config{URL: url, Token: token(t, 1, "alice")}, Handlers{
		OnAck:         func(m Message) { aliceAcks <- m },
		OnReadReceipt: func(id int64, _ time.Time) { aliceReceipts <- id },
	})
	bob := New(Config{URL: url, Token: token(t, 2, "bob")}, Handlers{
		OnMessage: func(m Message) { bobInbox <- m },
	})
	t.Cleanup(func() { alice.Close(); bob.Close() })

	req.NoError(alice.Connect(ctx))
	req.NoError(bob.Connect(ctx))
	req.Equal(StateOnline, alice.State())
	req.Equal(StateOnline, bob.State())

	req.NoError(alice.Send(2, "hello bob"))

	var ack Message
	select {
	case ack = <-aliceAcks:
	case <-ctx.Done():
		t.Fatal("timed out waiting for ack")
	}
	req.NotZero(ack.ID)
	req.Equal("hello bob", ack.Content)

	var got Message
	select {
	case got = <-bobInbox:
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
	req.Equal(ack.ID, got.ID)
	req.Equal("hello bob", got.Content)

	req.NoError(bob.MarkRead(got.ID))

	select {
	case id := <-aliceReceipts:
		req.Equal(ack.ID, id)
	case <-ctx.Done():
		t.Fatal("timed out waiting for read receipt")
	}
}

func TestClientDegradesWhenServerUnreachable(t *testing.T) {
	req := require.New(t)

	c := New(Config{
		URL:              "ws://127.0.0.1:1/ws",
		Token:            "irrelevant",
		AdmissionTimeout: 200 * time.Millisecond,
		MaxReconnects:    1,
		BackoffBase:      10 * time.Millisecond,
		BackoffMax:       20 * time.Millisecond,
	}, Handlers{})
	t.Cleanup(func() { c.Close() })

	start := time.Now()
	// Startup must not block on messaging infrastructure.
	req.NoError(c.Connect(context.Background()))
	req.Less(time.Since(start), 2*time.Second)

	require.Eventually(t, func() bool { return c.State() == StateDegraded }, 2*time.Second, 20*time.Millisecond)
	req.ErrorIs(c.Send(2, "hi"), ErrNotConnected)
}

func TestClientRejectedCredentialDegrades(t *testing.T) {
	req := require.New(t)
	url := startServer(t)

	c := New(Config{
		URL:              url,
		Token:            "not-a-valid-token",
		AdmissionTimeout: time.Second,
		MaxReconnects:    1,
		BackoffBase:      10 * time.Millisecond,
	}, Handlers{})
	t.Cleanup(func() { c.Close() })

	req.NoError(c.Connect(context.Background()))
	require.Eventually(t, func() bool { return c.State() == StateDegraded }, 3*time.Second, 20*time.Millisecond)
}
