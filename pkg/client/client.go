// Package client is the channel wrapper a messaging UI embeds: it owns
// the websocket, runs the admission handshake within a bounded budget,
// reconnects with backoff, and debounces typing signals. When the
// server cannot be reached the wrapper degrades to offline mode instead
// of blocking the embedding application's startup.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/dmwire-server/internal/proto"
)

// State describes the wrapper's connection lifecycle.
type State int

const (
	// StateOffline is the initial state before Connect.
	StateOffline State = iota
	// StateConnecting covers dialing and the admission handshake.
	StateConnecting
	// StateOnline means the session is admitted and events flow.
	StateOnline
	// StateDegraded means admission or reconnection gave up; the app
	// keeps running without real-time messaging.
	StateDegraded
)

// ErrNotConnected is returned by operations that need a live session.
var ErrNotConnected = errors.New("not connected")

// Message is a direct message as seen by the embedding application.
type Message struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	Content     string
	CreatedAt   time.Time
	Delivered   bool
	Read        bool
}

// Config holds wrapper settings. Zero values get defaults.
type Config struct {
	URL   string
	Token string

	// AdmissionTimeout bounds the connect+hello handshake; on expiry
	// the wrapper proceeds in degraded mode.
	AdmissionTimeout time.Duration
	// MaxReconnects bounds reconnection attempts after a drop.
	MaxReconnects int
	// BackoffBase and BackoffMax shape the exponential retry delay.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// TypingIdle is how long after the last keystroke a typing-stop is
	// sent automatically.
	TypingIdle time.Duration
}

func (c *Config) applyDefaults() {
	if c.AdmissionTimeout <= 0 {
		c.AdmissionTimeout = 10 * time.Second
	}
	if c.MaxReconnects <= 0 {
		c.MaxReconnects = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.TypingIdle <= 0 {
		c.TypingIdle = 3 * time.Second
	}
}

// Handlers receive pushed events. Nil handlers are skipped.
type Handlers struct {
	OnMessage     func(Message)
	OnAck         func(Message)
	OnPresence    func(userID int64, username string, online bool, lastSeen time.Time)
	OnTyping      func(userID int64, typing bool)
	OnReadReceipt func(messageID int64, readAt time.Time)
	OnState       func(State)
}

// Client wraps one logical messaging connection.
type Client struct {
	cfg      Config
	handlers Handlers

	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	closed bool
	cancel context.CancelFunc

	typing map[int64]*typingDebouncer
}

// New constructs a client; Connect starts it.
func New(cfg Config, handlers Handlers) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:      cfg,
		handlers: handlers,
		state:    StateOffline,
		typing:   make(map[int64]*typingDebouncer),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials and runs the admission handshake. It never blocks
// longer than the admission budget: on timeout or failure the client
// enters degraded mode and Connect returns nil so the embedding app can
// proceed; reconnection then runs in the background.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("client closed")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	conn, err := c.admit(runCtx)
	if err != nil {
		c.mu.Lock()
		c.setStateLocked(StateDegraded)
		c.mu.Unlock()
		go c.reconnectLoop(runCtx)
		return nil
	}

	c.mu.Lock()
	c.conn = conn
	c.setStateLocked(StateOnline)
	c.mu.Unlock()

	go c.readLoop(runCtx, conn)
	return nil
}

// Close tears the connection down and stops reconnection.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.conn = nil
	c.setStateLocked(StateOffline)
	c.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "bye")
	}
	return nil
}

// Send pushes a direct message; the server acks via OnAck.
func (c *Client) Send(recipientID int64, content string) error {
	return c.write(proto.InboundTypeSend, proto.SendData{RecipientID: recipientID, Content: content})
}

// JoinConversation subscribes to the pair channel shared with a peer so
// typing signals for that conversation arrive.
func (c *Client) JoinConversation(peerID int64) error {
	return c.write(proto.InboundTypeJoin, proto.JoinData{PeerID: peerID})
}

// MarkRead acknowledges that the user read a message.
func (c *Client) MarkRead(messageID int64) error {
	return c.write(proto.InboundTypeRead, proto.ReadData{MessageID: messageID})
}

// Typing records a keystroke for the conversation with peerID. The
// first call sends typing-start; further calls within the idle window
// only refresh the timer, and typing-stop goes out automatically once
// the user pauses.
func (c *Client) Typing(peerID int64) {
	c.debouncer(peerID).Touch()
}

// StopTyping sends an immediate typing-stop, e.g. when the message was
// submitted.
func (c *Client) StopTyping(peerID int64) {
	c.debouncer(peerID).Stop()
}

func (c *Client) debouncer(peerID int64) *typingDebouncer {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.typing[peerID]
	if !ok {
		d = newTypingDebouncer(c.cfg.TypingIdle,
			func() { _ = c.write(proto.InboundTypeTypingStart, proto.TypingData{PeerID: peerID}) },
			func() { _ = c.write(proto.InboundTypeTypingStop, proto.TypingData{PeerID: peerID}) },
		)
		c.typing[peerID] = d
	}
	return d
}

func (c *Client) write(msgType string, data any) error {
	c.mu.Lock()
	conn := c.conn
	state := c.state
	c.mu.Unlock()

	if conn == nil || state != StateOnline {
		return ErrNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload})
}

// admit dials and completes the hello handshake within the admission
// budget.
func (c *Client) admit(ctx context.Context) (*websocket.Conn, error) {
	admitCtx, cancel := context.WithTimeout(ctx, c.cfg.AdmissionTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(admitCtx, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(proto.HelloData{Token: c.cfg.Token, Protocol: proto.ProtocolVersion})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "marshal hello")
		return nil, err
	}
	if err := wsjson.Write(admitCtx, conn, proto.Inbound{Type: proto.InboundTypeHello, Data: payload}); err != nil {
		conn.Close(websocket.StatusProtocolError, "hello failed")
		return nil, err
	}

	// The handshake completes when the welcome arrives.
	for {
		var out envelope
		if err := wsjson.Read(admitCtx, conn, &out); err != nil {
			conn.Close(websocket.StatusProtocolError, "no welcome")
			return nil, err
		}
		if out.Type == proto.OutboundTypeError {
			conn.Close(websocket.StatusPolicyViolation, "rejected")
			if out.Error != nil {
				return nil, errors.New(out.Error.Msg)
			}
			return nil, errors.New("admission rejected")
		}
		if out.Event == proto.EventWelcome {
			return conn, nil
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out envelope
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.conn = nil
			c.mu.Unlock()
			if closed || ctx.Err() != nil {
				return
			}
			c.reconnectLoop(ctx)
			return
		}
		c.dispatch(out)
	}
}

// reconnectLoop retries admission with exponential backoff up to the
// configured bound; on exhaustion the client stays degraded.
func (c *Client) reconnectLoop(ctx context.Context) {
	c.mu.Lock()
	c.setStateLocked(StateDegraded)
	c.mu.Unlock()

	for attempt := 1; attempt <= c.cfg.MaxReconnects; attempt++ {
		select {
		case <-time.After(nextBackoff(attempt, c.cfg.BackoffBase, c.cfg.BackoffMax)):
		case <-ctx.Done():
			return
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.setStateLocked(StateConnecting)
		c.mu.Unlock()

		conn, err := c.admit(ctx)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.setStateLocked(StateOnline)
			c.mu.Unlock()
			go c.readLoop(ctx, conn)
			return
		}

		c.mu.Lock()
		c.setStateLocked(StateDegraded)
		c.mu.Unlock()
	}
}

// nextBackoff returns the delay before the given 1-based attempt.
func nextBackoff(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.handlers.OnState != nil {
		go c.handlers.OnState(s)
	}
}

type envelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *proto.Error    `json:"error,omitempty"`
}

func (c *Client) dispatch(out envelope) {
	switch out.Event {
	case proto.EventMessageNew:
		if c.handlers.OnMessage == nil {
			return
		}
		var data proto.MessageData
		if json.Unmarshal(out.Data, &data) == nil {
			c.handlers.OnMessage(toMessage(data))
		}
	case proto.EventMessageAck:
		if c.handlers.OnAck == nil {
			return
		}
		var data proto.MessageData
		if json.Unmarshal(out.Data, &data) == nil {
			c.handlers.OnAck(toMessage(data))
		}
	case proto.EventOnline:
		if c.handlers.OnPresence == nil {
			return
		}
		var data proto.UserData
		if json.Unmarshal(out.Data, &data) == nil {
			c.handlers.OnPresence(data.UserID, data.Username, true, time.Time{})
		}
	case proto.EventOffline:
		if c.handlers.OnPresence == nil {
			return
		}
		var data proto.OfflineData
		if json.Unmarshal(out.Data, &data) == nil {
			c.handlers.OnPresence(data.UserID, data.Username, false, time.Unix(data.LastSeenAt, 0))
		}
	case proto.EventPresenceState:
		if c.handlers.OnPresence == nil {
			return
		}
		var data proto.PresenceStateData
		if json.Unmarshal(out.Data, &data) == nil {
			for _, u := range data.Users {
				c.handlers.OnPresence(u.UserID, u.Username, true, time.Time{})
			}
		}
	case proto.EventTypingStart, proto.EventTypingStop:
		if c.handlers.OnTyping == nil {
			return
		}
		var data proto.UserData
		if json.Unmarshal(out.Data, &data) == nil {
			c.handlers.OnTyping(data.UserID, out.Event == proto.EventTypingStart)
		}
	case proto.EventReadAck:
		if c.handlers.OnReadReceipt == nil {
			return
		}
		var data proto.ReadAckData
		if json.Unmarshal(out.Data, &data) == nil {
			c.handlers.OnReadReceipt(data.MessageID, time.Unix(data.ReadAt, 0))
		}
	}
}

func toMessage(data proto.MessageData) Message {
	return Message{
		ID:          data.ID,
		SenderID:    data.SenderID,
		RecipientID: data.RecipientID,
		Content:     data.Content,
		CreatedAt:   time.Unix(data.CreatedAt, 0),
		Delivered:   data.DeliveredAt != nil,
		Read:        data.ReadAt != nil,
	}
}
