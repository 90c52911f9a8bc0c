package httpmw

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/transport/dto"
)

type PresenceToucher interface {
	Touch(ctx context.Context, code, participantID string) error
}

// Presence refreshes LastSeen of the authenticated participant. The session
// token outlives membership, so a participant who left (or was swept) gets 403.
func Presence(members PresenceToucher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pid := ParticipantIDFromCtx(r.Context())
			if pid == "" {
				next.ServeHTTP(w, r)
				return
			}
			if err := members.Touch(r.Context(), RoomCodeFromCtx(r.Context()), pid); err != nil {
				status := http.StatusForbidden
				if errors.Is(err, domain.ErrRoomNotFound) {
					status = http.StatusNotFound
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: dto.NewError(err)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
