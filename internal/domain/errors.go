package domain

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrRoomCreationFailed = errors.New("room creation failed")
	ErrRoomBusy           = errors.New("room is busy")

	ErrAlreadyVoted  = errors.New("participant already voted for the track")
	ErrTrackNotFound = errors.New("track not found")
	ErrInvalidTrack  = errors.New("invalid track")

	ErrNotAuthorized = errors.New("not authorized")
	ErrNotAMember    = errors.New("participant not in the room")
	ErrInvalidName   = errors.New("invalid display name")

	ErrEmptyMessage   = errors.New("empty message")
	ErrMessageTooLong = errors.New("message too long")
)
