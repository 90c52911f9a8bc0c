package grpcx

import "github.com/voicecanvas/listening-room/internal/transport/dto"

type RoomRequest struct {
	Code string `json:"code"`
}

type JoinRoomRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type ListRoomsRequest struct {
	Limit  int    `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

type AddTrackRequest struct {
	Code  string              `json:"code"`
	Track dto.AddTrackRequest `json:"track"`
}

type TrackRequest struct {
	Code    string `json:"code"`
	TrackID string `json:"track_id"`
}

type TransferHostRequest struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participant_id"`
}

type PostMessageRequest struct {
	Code    string `json:"code"`
	Content string `json:"content"`
}

// ReadMessagesRequest: Since is the last seq the client already has.
type ReadMessagesRequest struct {
	Code  string `json:"code"`
	Since uint64 `json:"since,omitempty"`
}

type Empty struct{}
