package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dmwire-server/internal/proto"
	"github.com/vovakirdan/dmwire-server/internal/store"
)

const maxHistoryLimit = 100

// APIHandlers provides HTTP handlers for the message query path. A
// reconnecting client pulls missed messages here; the socket never
// replays them.
type APIHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(st store.Store, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		store: st,
		log:   logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessagesResponse wraps a page of conversation history.
type MessagesResponse struct {
	Messages []proto.MessageData `json:"messages"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ListMessages returns conversation history between the authenticated
// user and a peer, newest first.
// GET /api/messages?peer=<id>&limit=<n>&before=<messageId>
func (h *APIHandlers) ListMessages(c *gin.Context) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	peerID, err := strconv.ParseInt(c.Query("peer"), 10, 64)
	if err != nil || peerID == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "peer query parameter is required"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}
	}

	var beforeID *int64
	if raw := c.Query("before"); raw != "" {
		before, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before cursor"})
			return
		}
		beforeID = &before
	}

	messages, err := h.store.ListByPair(c.Request.Context(), userID.(int64), peerID, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Msg("list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list messages"})
		return
	}

	out := make([]proto.MessageData, 0, len(messages))
	for _, msg := range messages {
		out = append(out, messageToData(msg))
	}

	c.JSON(http.StatusOK, MessagesResponse{Messages: out})
}

// GetUser resolves a username to a user id so clients can address peers.
// GET /api/users/:username
func (h *APIHandlers) GetUser(c *gin.Context) {
	username := c.Param("username")

	user, err := h.store.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("username", username).Msg("get user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load user"})
		return
	}

	c.JSON(http.StatusOK, UserResponse{ID: user.ID, Username: user.Username})
}
