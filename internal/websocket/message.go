package websocket

import "github.com/kataclub/kataclub_server/internal/store"

type MessageType string

const (
	MessageTypeChange      MessageType = "change"
	MessageTypeConnected   MessageType = "connected"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeError       MessageType = "error"
)

// Entities clients can follow. A change message names the entity whose
// snapshot moved so clients know which list to refetch.
const (
	EntityKatas = "katas"
	EntityPosts = "posts"
)

type IncomingMessage struct {
	Type   MessageType `json:"type"`
	Entity string      `json:"entity,omitempty"`
}

type OutgoingMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type ChangeMessage struct {
	Type   MessageType      `json:"type"`
	Entity string           `json:"entity"`
	Kind   store.ChangeKind `json:"kind"`
	ID     string           `json:"id,omitempty"`
}

type BroadcastMessage struct {
	Entity string
	Change store.Change
}
