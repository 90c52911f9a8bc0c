package dto

import (
	"errors"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/ratelimit"
	"github.com/voicecanvas/listening-room/internal/registry"
	"github.com/voicecanvas/listening-room/internal/session"
)

// Stable error codes seen by clients on every transport.
const (
	CodeRoomNotFound     = "room_not_found"
	CodeRoomFull         = "room_full"
	CodeRoomCreation     = "room_creation_failed"
	CodeRoomBusy         = "room_busy"
	CodeAlreadyVoted     = "already_voted"
	CodeTrackNotFound    = "track_not_found"
	CodeInvalidTrack     = "invalid_track"
	CodeNotAuthorized    = "not_authorized"
	CodeNotAMember       = "not_a_member"
	CodeInvalidName      = "invalid_name"
	CodeEmptyMessage     = "empty_message"
	CodeMessageTooLong   = "message_too_long"
	CodeInvalidCursor    = "invalid_cursor"
	CodeUnauthenticated  = "unauthenticated"
	CodeRateLimited      = "rate_limited"
	CodeBadRequest       = "bad_request"
	CodeInternal         = "internal"
	CodeDeadlineExceeded = "deadline_exceeded"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error Error `json:"error"`
}

var codes = []struct {
	err  error
	code string
}{
	{domain.ErrRoomNotFound, CodeRoomNotFound},
	{domain.ErrRoomFull, CodeRoomFull},
	{domain.ErrRoomCreationFailed, CodeRoomCreation},
	{domain.ErrRoomBusy, CodeRoomBusy},
	{domain.ErrAlreadyVoted, CodeAlreadyVoted},
	{domain.ErrTrackNotFound, CodeTrackNotFound},
	{domain.ErrInvalidTrack, CodeInvalidTrack},
	{domain.ErrNotAuthorized, CodeNotAuthorized},
	{domain.ErrNotAMember, CodeNotAMember},
	{domain.ErrInvalidName, CodeInvalidName},
	{domain.ErrEmptyMessage, CodeEmptyMessage},
	{domain.ErrMessageTooLong, CodeMessageTooLong},
	{registry.ErrInvalidCursor, CodeInvalidCursor},
	{session.ErrInvalidToken, CodeUnauthenticated},
	{session.ErrInvalidIssuer, CodeUnauthenticated},
	{session.ErrTokenExpired, CodeUnauthenticated},
	{session.ErrWrongRoom, CodeUnauthenticated},
	{ratelimit.ErrRateLimited, CodeRateLimited},
}

// ErrorCode classifies err; unknown errors are internal.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// NewError builds the client-facing error. Internal errors do not leak details.
func NewError(err error) Error {
	code := ErrorCode(err)
	msg := err.Error()
	if code == CodeInternal {
		msg = "internal error"
	}
	return Error{Code: code, Message: msg}
}
