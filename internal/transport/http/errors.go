package http

import (
	"net/http"

	"github.com/voicecanvas/listening-room/internal/logger"
	"github.com/voicecanvas/listening-room/internal/transport/dto"
)

var statusByCode = map[string]int{
	dto.CodeRoomNotFound:    http.StatusNotFound,
	dto.CodeRoomFull:        http.StatusConflict,
	dto.CodeRoomCreation:    http.StatusServiceUnavailable,
	dto.CodeRoomBusy:        http.StatusServiceUnavailable,
	dto.CodeAlreadyVoted:    http.StatusConflict,
	dto.CodeTrackNotFound:   http.StatusNotFound,
	dto.CodeInvalidTrack:    http.StatusBadRequest,
	dto.CodeNotAuthorized:   http.StatusForbidden,
	dto.CodeNotAMember:      http.StatusForbidden,
	dto.CodeInvalidName:     http.StatusBadRequest,
	dto.CodeEmptyMessage:    http.StatusBadRequest,
	dto.CodeMessageTooLong:  http.StatusBadRequest,
	dto.CodeInvalidCursor:   http.StatusBadRequest,
	dto.CodeUnauthenticated: http.StatusUnauthorized,
	dto.CodeRateLimited:     http.StatusTooManyRequests,
	dto.CodeBadRequest:      http.StatusBadRequest,
}

func statusFor(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// writeError maps a service error to status + stable code. RoomBusy is retryable.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	e := dto.NewError(err)
	status := statusFor(e.Code)
	if e.Code == dto.CodeRoomBusy {
		w.Header().Set("Retry-After", "1")
	}
	if status >= 500 {
		logger.FromContext(r.Context()).Error("handler."+op, "err", err)
	}
	writeJSON(w, status, dto.ErrorResponse{Error: e})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: dto.Error{Code: dto.CodeBadRequest, Message: msg}})
}
