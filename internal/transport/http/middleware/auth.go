package httpmw

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/voicecanvas/listening-room/internal/logger"
	"github.com/voicecanvas/listening-room/internal/session"
	"github.com/voicecanvas/listening-room/internal/transport/dto"

	"github.com/go-chi/chi/v5"
)

type ctxKey string

const (
	ctxKeyParticipantID ctxKey = "participant_id"
	ctxKeyRoomCode      ctxKey = "room_code"
)

// SessionAuth requires a Bearer session token issued for the {code} room in the path.
func SessionAuth(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || len(auth) <= 7 {
				unauthorized(w, "missing bearer token")
				return
			}
			code := strings.ToUpper(chi.URLParam(r, "code"))
			claims, err := sessions.ParseForRoom(strings.TrimSpace(auth[7:]), code)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyParticipantID, claims.ParticipantID())
			ctx = context.WithValue(ctx, ctxKeyRoomCode, claims.RoomCode())
			ctx = logger.WithRoom(ctx, claims.RoomCode(), claims.ParticipantID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ParticipantIDFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyParticipantID).(string)
	return v
}

func RoomCodeFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRoomCode).(string)
	return v
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: dto.Error{Code: dto.CodeUnauthenticated, Message: msg}})
}
