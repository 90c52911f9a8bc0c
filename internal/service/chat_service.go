package service

import (
	"context"
	"iter"

	"github.com/voicecanvas/listening-room/internal/domain"
)

type ChatService struct {
	*core
}

func (s *ChatService) Post(ctx context.Context, code, participantID, content string) (domain.ChatMessage, error) {
	rm, err := s.room(code)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	msg, err := rm.Post(ctx, participantID, content)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	s.publish(rm)
	return msg, nil
}

// Messages returns the restartable sequence of messages after since.
func (s *ChatService) Messages(_ context.Context, code string, since uint64) (iter.Seq[domain.ChatMessage], error) {
	rm, err := s.room(code)
	if err != nil {
		return nil, err
	}
	return rm.Messages(since), nil
}

// History returns up to limit messages after since, plus the cursor to poll
// with next time.
func (s *ChatService) History(ctx context.Context, code string, since uint64, limit int) ([]domain.ChatMessage, uint64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	seq, err := s.Messages(ctx, code, since)
	if err != nil {
		return nil, since, err
	}
	out := make([]domain.ChatMessage, 0, limit)
	next := since
	for m := range seq {
		out = append(out, m)
		next = m.Seq
		if len(out) == limit {
			break
		}
	}
	return out, next, nil
}

// Changed returns a channel closed on the next change of the room.
// Take it before reading, then wait on it.
func (s *ChatService) Changed(code string) <-chan struct{} {
	return s.changes.wait(code)
}
