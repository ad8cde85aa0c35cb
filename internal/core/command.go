package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinConversation subscribes the session to the pair channel
	// shared with a peer, scoping ephemeral signals.
	CommandJoinConversation CommandKind = iota
	// CommandSendMessage runs a message through the delivery pipeline.
	CommandSendMessage
	// CommandTypingStart signals the user started typing to a peer.
	CommandTypingStart
	// CommandTypingStop signals the user stopped typing to a peer.
	CommandTypingStop
	// CommandMarkRead acknowledges that the session's user read a message.
	CommandMarkRead
)

// Command represents an action requested by a client.
type Command struct {
	Kind      CommandKind
	PeerID    int64
	Content   string
	MessageID int64
}
