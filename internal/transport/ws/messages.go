package ws

import "encoding/json"

// сервер -> клиент
const (
	TypeState      = "state"       // снапшот комнаты
	TypeChatAck    = "chat_ack"    // подтверждение отправки, только отправителю
	TypeError      = "error"       // ошибка команды, только отправителю
	TypeRoomClosed = "room_closed" // комната закрыта, соединение будет закрыто
	TypeLeft       = "left"        // участник вышел, соединение будет закрыто
)

// клиент -> сервер
const (
	TypeChat     = "chat"
	TypeVote     = "vote"
	TypeAddTrack = "add_track"
	TypeSkip     = "skip"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Inbound is a client command; Ref is echoed back in acks and errors.
type Inbound struct {
	Type    string          `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ChatPayload struct {
	Content string `json:"content"`
}

type VotePayload struct {
	TrackID string `json:"track_id"`
}

type ChatAckPayload struct {
	Ref string `json:"ref,omitempty"`
	Seq uint64 `json:"seq"`
}

type ErrorPayload struct {
	Ref     string `json:"ref,omitempty"`
	Command string `json:"command"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RoomClosedPayload struct {
	Code string `json:"code"`
}

type LeftPayload struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participant_id"`
}
