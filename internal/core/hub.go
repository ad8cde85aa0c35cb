package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/dmwire-server/internal/store"
)

type requestKind int

const (
	reqAttach requestKind = iota
	reqDetach
	reqCommand
)

type request struct {
	kind requestKind
	sess *Session
	cmd  *Command
}

// Hub coordinates presence, typing and message delivery. A single run
// loop owns all pair subscriptions and processes session commands in
// order; the registry and typing set carry their own locks so other
// goroutines may read them directly.
type Hub struct {
	registry *Registry
	typing   *TypingSet
	store    store.Store
	log      *zerolog.Logger

	requests chan request
	// pairs maps a conversation channel id to the sessions subscribed
	// to it. Owned by the run loop.
	pairs map[string]map[*Session]struct{}
}

// NewHub constructs a hub around injected shared state.
func NewHub(registry *Registry, typing *TypingSet, st store.Store, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		registry: registry,
		typing:   typing,
		store:    st,
		log:      logger,
		requests: make(chan request, 64),
		pairs:    make(map[string]map[*Session]struct{}),
	}
}

// Attach admits a session: registry bookkeeping, presence broadcast and
// the welcome handshake all happen on the run loop.
func (h *Hub) Attach(s *Session) {
	h.requests <- request{kind: reqAttach, sess: s}
}

// Detach removes a session. Idempotent; safe to defer from transports.
func (h *Hub) Detach(s *Session) {
	h.requests <- request{kind: reqDetach, sess: s}
}

// Run processes requests until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case req := <-h.requests:
			switch req.kind {
			case reqAttach:
				h.handleAttach(ctx, req.sess)
			case reqDetach:
				h.handleDetach(req.sess)
			case reqCommand:
				h.dispatch(ctx, req.sess, req.cmd)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleAttach(ctx context.Context, s *Session) {
	var others []UserRef
	for _, u := range h.registry.Users() {
		if u.ID != s.UserID {
			others = append(others, u)
		}
	}

	first := h.registry.Admit(s)
	if first {
		h.broadcastPresence(&Event{
			Kind: EventUserOnline,
			User: &UserRef{ID: s.UserID, Username: s.Username},
		}, s.UserID)
	}

	s.send(&Event{Kind: EventWelcome, User: &UserRef{ID: s.UserID, Username: s.Username}})
	s.send(&Event{Kind: EventPresenceState, Users: others})

	h.log.Debug().Int64("user_id", s.UserID).Str("session_id", s.ID).Bool("first", first).Msg("session attached")

	go h.pump(ctx, s)
}

func (h *Hub) handleDetach(s *Session) {
	if s.detached {
		return
	}
	s.detached = true
	close(s.done)

	last, lastSeen := h.registry.Remove(s)

	for pair := range s.pairs {
		if set, ok := h.pairs[pair]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.pairs, pair)
			}
		}
	}

	if last {
		// No compensating typing-stop is pushed; peers time the
		// indicator out locally.
		h.typing.SweepUser(s.UserID)

		h.broadcastPresence(&Event{
			Kind:       EventUserOffline,
			User:       &UserRef{ID: s.UserID, Username: s.Username},
			LastSeenAt: lastSeen,
		}, s.UserID)
	}

	// Events stays open: commands in flight on the request queue may
	// still target this session, and send is non-blocking either way.
	// Transports exit their write loop through context cancellation.

	h.log.Debug().Int64("user_id", s.UserID).Str("session_id", s.ID).Bool("last", last).Msg("session detached")
}

// pump forwards a session's commands onto the run loop until the
// session detaches or the hub stops.
func (h *Hub) pump(ctx context.Context, s *Session) {
	for {
		select {
		case cmd, ok := <-s.Commands:
			if !ok {
				return
			}
			select {
			case h.requests <- request{kind: reqCommand, sess: s, cmd: cmd}:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, s *Session, cmd *Command) {
	// A command can race its session's detach onto the request queue.
	if s.detached {
		return
	}
	switch cmd.Kind {
	case CommandJoinConversation:
		h.handleJoin(s, cmd)
	case CommandSendMessage:
		h.handleSend(ctx, s, cmd)
	case CommandTypingStart:
		h.handleTyping(s, cmd, true)
	case CommandTypingStop:
		h.handleTyping(s, cmd, false)
	case CommandMarkRead:
		h.handleMarkRead(ctx, s, cmd)
	}
}

func (h *Hub) handleJoin(s *Session, cmd *Command) {
	pair := PairKey(s.UserID, cmd.PeerID)

	set, ok := h.pairs[pair]
	if !ok {
		set = make(map[*Session]struct{})
		h.pairs[pair] = set
	}
	set[s] = struct{}{}
	s.pairs[pair] = struct{}{}
}

func (h *Hub) handleTyping(s *Session, cmd *Command, start bool) {
	pair := PairKey(s.UserID, cmd.PeerID)

	if start {
		h.typing.Start(pair, s.UserID)
	} else {
		h.typing.Stop(pair, s.UserID)
	}

	kind := EventTypingStop
	if start {
		kind = EventTypingStart
	}

	// Repeated start signals are relayed every time; deduplication is
	// the client's debounce job.
	ev := &Event{Kind: kind, User: &UserRef{ID: s.UserID, Username: s.Username}}
	for sess := range h.pairs[pair] {
		if sess.UserID == cmd.PeerID {
			sess.send(ev)
		}
	}
}

// broadcastPresence emits a presence event to every session of every
// other registered user. Best-effort: slow consumers drop the event.
func (h *Hub) broadcastPresence(ev *Event, exceptUserID int64) {
	for _, sess := range h.registry.All() {
		if sess.UserID == exceptUserID {
			continue
		}
		if !sess.send(ev) {
			h.log.Warn().Int64("user_id", sess.UserID).Msg("presence event dropped, slow consumer")
		}
	}
}

func (h *Hub) sendError(s *Session, code, msg string) {
	s.send(&Event{Kind: EventError, Error: coreError(code, msg)})
}

const storeTimeout = 5 * time.Second
