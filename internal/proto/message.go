package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello       = "hello"
	InboundTypeJoin        = "join-channel"
	InboundTypeSend        = "message-send"
	InboundTypeTypingStart = "typing-start"
	InboundTypeTypingStop  = "typing-stop"
	InboundTypeRead        = "message-read"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventWelcome       = "welcome"
	EventPresenceState = "presence-state"
	EventOnline        = "online"
	EventOffline       = "offline"
	EventMessageNew    = "message-new"
	EventMessageAck    = "message-ack"
	EventTypingStart   = "typing-start"
	EventTypingStop    = "typing-stop"
	EventReadAck       = "message-read-ack"
)

// HelloData is sent by the client to present its credential. The
// admission handshake must complete within the server's budget.
type HelloData struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol,omitempty"`
}

// JoinData requests subscription to the conversation channel shared
// with a peer.
type JoinData struct {
	PeerID int64 `json:"peerId"`
}

// SendData is a direct message send request.
type SendData struct {
	RecipientID int64  `json:"recipientId"`
	Content     string `json:"content"`
}

// TypingData scopes a typing signal to a peer.
type TypingData struct {
	PeerID int64 `json:"peerId"`
}

// ReadData acknowledges that the client read a message.
type ReadData struct {
	MessageID int64 `json:"messageId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// WelcomeData completes the admission handshake.
type WelcomeData struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Protocol int    `json:"protocol"`
}

// UserData identifies a user in presence and typing events.
type UserData struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username,omitempty"`
}

// PresenceStateData lists users online at admission time.
type PresenceStateData struct {
	Users []UserData `json:"users"`
}

// OfflineData announces a user going offline.
type OfflineData struct {
	UserID     int64  `json:"userId"`
	Username   string `json:"username,omitempty"`
	LastSeenAt int64  `json:"lastSeenAt"`
}

// MessageData is a direct message in transit, including its delivery
// state so pulled history and pushed messages share one shape.
type MessageData struct {
	ID          int64  `json:"id"`
	SenderID    int64  `json:"senderId"`
	RecipientID int64  `json:"recipientId"`
	Content     string `json:"content"`
	CreatedAt   int64  `json:"createdAt"`
	DeliveredAt *int64 `json:"deliveredAt,omitempty"`
	ReadAt      *int64 `json:"readAt,omitempty"`
}

// ReadAckData notifies the original sender that a message was read.
type ReadAckData struct {
	MessageID int64 `json:"messageId"`
	ReadAt    int64 `json:"readAt"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
