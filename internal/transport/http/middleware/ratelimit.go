package httpmw

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/voicecanvas/listening-room/internal/logger"
	"github.com/voicecanvas/listening-room/internal/ratelimit"
	"github.com/voicecanvas/listening-room/internal/transport/dto"
)

// RateLimit throttles mutating requests, keyed by participant when known and by client IP otherwise.
func RateLimit(l ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			key := ParticipantIDFromCtx(r.Context())
			if key == "" {
				key = "ip:" + r.RemoteAddr
			}

			res, err := l.Allow(r.Context(), key)
			if err != nil {
				// лимитер недоступен: пропускаем, а не роняем API
				logger.FromContext(r.Context()).Warn("rate limiter failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if res.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
			}
			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter(time.Now()).Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: dto.NewError(ratelimit.ErrRateLimited)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
