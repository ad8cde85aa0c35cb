package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vovakirdan/dmwire-server/internal/store"
)

// handleSend runs the message delivery pipeline: validate, persist,
// attempt an immediate push, acknowledge the sender. Persistence is the
// durability point; the push is a best-effort notification allowed to
// fail independently and never retried here. An unreachable recipient
// leaves the message in the sent state and pulls it later through the
// query path.
func (h *Hub) handleSend(ctx context.Context, s *Session, cmd *Command) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		h.sendError(s, ErrCodeBadRequest, "message content is empty")
		return
	}

	if _, err := h.store.GetUserByID(ctx, cmd.PeerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendError(s, ErrCodeUnknownRecipient, "recipient does not exist")
			return
		}
		h.log.Error().Err(err).Int64("recipient_id", cmd.PeerID).Msg("resolve recipient")
		h.sendError(s, ErrCodeStoreError, "failed to resolve recipient")
		return
	}

	msg, err := h.store.CreateMessage(ctx, s.UserID, cmd.PeerID, content)
	if err != nil {
		// The sender must know the message was not durably recorded.
		h.log.Error().Err(err).Int64("sender_id", s.UserID).Msg("persist message")
		h.sendError(s, ErrCodeStoreError, "failed to persist message")
		return
	}

	// Re-check reachability after the persistence await; the recipient
	// may have connected or disconnected meanwhile.
	pushed := false
	for _, rs := range h.registry.Lookup(cmd.PeerID) {
		if rs.send(&Event{Kind: EventMessageNew, Message: msg}) {
			pushed = true
		}
	}

	if pushed {
		go h.markDelivered(msg.ID)
	}

	// The sender is acknowledged regardless of delivery outcome.
	s.send(&Event{Kind: EventMessageAck, Message: msg})
}

// markDelivered advances the message state once a push reached at least
// one recipient session. Best-effort: a failure leaves the message in
// the sent state and is only logged.
func (h *Hub) markDelivered(messageID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	changed, err := h.store.MarkDelivered(ctx, messageID, time.Now())
	if err != nil {
		h.log.Warn().Err(err).Int64("message_id", messageID).Msg("mark delivered")
		return
	}
	if changed {
		h.log.Debug().Int64("message_id", messageID).Msg("message delivered")
	}
}

// handleMarkRead flips a message to read on behalf of its recipient and
// notifies the original sender if reachable. Reading an undelivered
// message counts as delivery. Already-read messages are a no-op with no
// duplicate read-ack.
func (h *Hub) handleMarkRead(ctx context.Context, s *Session, cmd *Command) {
	msg, err := h.store.GetMessage(ctx, cmd.MessageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendError(s, ErrCodeMessageNotFound, "message not found")
			return
		}
		h.log.Error().Err(err).Int64("message_id", cmd.MessageID).Msg("load message")
		h.sendError(s, ErrCodeStoreError, "failed to load message")
		return
	}

	if msg.RecipientID != s.UserID {
		h.sendError(s, ErrCodeNotRecipient, "only the recipient can mark a message read")
		return
	}

	if msg.Read() {
		return
	}

	now := time.Now()
	changed, err := h.store.MarkRead(ctx, cmd.MessageID, now)
	if err != nil {
		h.log.Error().Err(err).Int64("message_id", cmd.MessageID).Msg("mark read")
		h.sendError(s, ErrCodeStoreError, "failed to mark message read")
		return
	}
	if !changed {
		// Lost the race with another session of the same user; the
		// first ack already went out.
		return
	}

	for _, senderSess := range h.registry.Lookup(msg.SenderID) {
		senderSess.send(&Event{Kind: EventReadAck, MessageID: msg.ID, ReadAt: now})
	}
}
