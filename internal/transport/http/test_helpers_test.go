package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dmwire-server/internal/auth"
	"github.com/vovakirdan/dmwire-server/internal/config"
	"github.com/vovakirdan/dmwire-server/internal/core"
	"github.com/vovakirdan/dmwire-server/internal/proto"
	"github.com/vovakirdan/dmwire-server/internal/store"
	"github.com/vovakirdan/dmwire-server/internal/store/sqlite"
)

var testJWTConfig = &auth.JWTConfig{
	Secret:   []byte("test-secret"),
	Issuer:   "dmwire-test",
	Audience: "dmwire",
	TTL:      time.Hour,
}

type testEnv struct {
	ts    *httptest.Server
	store store.Store
}

func (e *testEnv) wsURL() string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
}

func startTestServer(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	gate := auth.NewService(testJWTConfig)

	hub := core.NewHub(core.NewRegistry(), core.NewTypingSet(), st, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	logger := testLogger()
	server := NewServer(hub, gate, st, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		AdmissionTimeout:  2 * time.Second,
		EventBuffer:       32,
	}, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st}
}

func testLogger() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}

func mustToken(t *testing.T, userID int64, username string) string {
	t.Helper()

	token, err := auth.GenerateToken(testJWTConfig, userID, username)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// dialAndHello connects a websocket client and completes the admission
// handshake, consuming the welcome and presence-state events.
func dialAndHello(t *testing.T, ctx context.Context, env *testEnv, userID int64, username string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, env.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", username, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	sendInbound(t, ctx, conn, proto.InboundTypeHello, proto.HelloData{
		Token:    mustToken(t, userID, username),
		Protocol: proto.ProtocolVersion,
	})

	mustReadEvent(t, ctx, conn, proto.EventWelcome)
	mustReadEvent(t, ctx, conn, proto.EventPresenceState)

	return conn
}

func sendInbound(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", msgType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

type outboundEnvelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *proto.Error    `json:"error,omitempty"`
}

// mustReadEvent reads frames until one carries the wanted event name.
func mustReadEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	for {
		var out outboundEnvelope
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read waiting for %q: %v", event, err)
		}
		if out.Type == proto.OutboundTypeError {
			t.Fatalf("error waiting for %q: %+v", event, out.Error)
		}
		if out.Event == event {
			return out.Data
		}
	}
}

func mustReadError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		var out outboundEnvelope
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read waiting for error: %v", err)
		}
		if out.Type == proto.OutboundTypeError {
			return out.Error
		}
	}
}
