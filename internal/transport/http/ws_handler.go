package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dmwire-server/internal/auth"
	"github.com/vovakirdan/dmwire-server/internal/core"
	"github.com/vovakirdan/dmwire-server/internal/proto"
	"github.com/vovakirdan/dmwire-server/internal/store"
)

// WSHandler upgrades HTTP connections, runs the admission handshake and
// bridges admitted connections to core sessions.
type WSHandler struct {
	hub              *core.Hub
	gate             *auth.Service
	users            store.UserStore
	admissionTimeout time.Duration
	eventBuffer      int
	log              *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, gate *auth.Service, users store.UserStore, admissionTimeout time.Duration, eventBuffer int, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:              hub,
		gate:             gate,
		users:            users,
		admissionTimeout: admissionTimeout,
		eventBuffer:      eventBuffer,
		log:              logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	// No registry mutation happens before the identity gate passes.
	identity, err := h.admit(ctx, conn)
	if err != nil {
		h.log.Debug().Err(err).Msg("admission rejected")
		_ = wsjson.Write(ctx, conn, proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "authentication failed"},
		})
		conn.Close(websocket.StatusPolicyViolation, "authentication failed")
		return
	}

	session := core.NewSession(identity.UserID, identity.Username, h.eventBuffer)
	h.hub.Attach(session)
	defer h.hub.Detach(session)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// admit runs the bounded admission handshake: the first frame must be a
// hello carrying a credential the identity gate accepts. On success the
// identity is recorded so recipient resolution can find it later.
func (h *WSHandler) admit(ctx context.Context, conn *websocket.Conn) (*auth.Identity, error) {
	admitCtx, cancel := context.WithTimeout(ctx, h.admissionTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(admitCtx, conn, &inbound); err != nil {
		return nil, err
	}
	if inbound.Type != proto.InboundTypeHello {
		return nil, errors.New("expected hello frame")
	}

	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		return nil, err
	}

	identity, err := h.gate.Verify(hello.Token)
	if err != nil {
		return nil, err
	}

	if err := h.users.EnsureUser(admitCtx, identity.UserID, identity.Username); err != nil {
		return nil, err
	}

	return identity, nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("session_id", session.ID).Msg("read ws inbound")
			return err
		}

		cmd, protoErr, err := inboundToCommand(inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
			continue
		}
		if cmd != nil {
			session.Commands <- cmd
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		select {
		case event, ok := <-session.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("session_id", session.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
