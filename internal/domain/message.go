package domain

import "time"

type MessageKind string

const (
	MessageUser   MessageKind = "user"
	MessageSystem MessageKind = "system"
)

// ChatMessage is immutable once appended. SenderID is empty for system messages.
type ChatMessage struct {
	Seq        uint64
	RoomCode   string
	SenderID   string
	SenderName string
	Kind       MessageKind
	Content    string
	CreatedAt  time.Time
}
