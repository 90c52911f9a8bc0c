package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// Ключи, общие для всех слоёв: по ним склеиваются логи одной комнаты.
const (
	KeyRoom        = "room"
	KeyParticipant = "participant"
	KeyTrack       = "track"
)

func Room(code string) slog.Attr      { return slog.String(KeyRoom, code) }
func Participant(id string) slog.Attr { return slog.String(KeyParticipant, id) }
func Track(id string) slog.Attr       { return slog.String(KeyTrack, id) }

// WithRoom scopes the context logger to a room and, when known, a participant.
func WithRoom(ctx context.Context, code, participantID string) context.Context {
	args := []any{Room(code)}
	if participantID != "" {
		args = append(args, Participant(participantID))
	}
	return WithContext(ctx, FromContext(ctx).With(args...))
}

// instance id: host:pid плюс короткий uuid, чтобы различать рестарты
func ensureInstanceID(v string) string {
	if v != "" {
		return v
	}
	hn, err := os.Hostname()
	if err != nil {
		hn = "unknown"
	}
	return fmt.Sprintf("%s:%d-%s", hn, os.Getpid(), uuid.NewString()[:8])
}

func commonAttr(cfg Config) []slog.Attr {
	return []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("version", cfg.Version),
		slog.String("instance_id", cfg.InstanceID),
		slog.Time("started_at", time.Now()),
	}
}
