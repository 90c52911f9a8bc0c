package room

import (
	"context"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/voicecanvas/listening-room/internal/domain"
)

// chatLog is append-only; Seq of msgs[i] is always i+1.
type chatLog struct {
	msgs []domain.ChatMessage
}

func (c *chatLog) append(m domain.ChatMessage) domain.ChatMessage {
	m.Seq = uint64(len(c.msgs)) + 1
	c.msgs = append(c.msgs, m)
	return m
}

func (c *chatLog) since(seq uint64) []domain.ChatMessage {
	if seq >= uint64(len(c.msgs)) {
		return nil
	}
	out := make([]domain.ChatMessage, len(c.msgs)-int(seq))
	copy(out, c.msgs[seq:])
	return out
}

func (c *chatLog) tail(n int) []domain.ChatMessage {
	if n <= 0 || len(c.msgs) == 0 {
		return nil
	}
	from := len(c.msgs) - n
	if from < 0 {
		from = 0
	}
	return c.since(uint64(from))
}

func (c *chatLog) lastSeq() uint64 { return uint64(len(c.msgs)) }

// Post appends a participant message. Content is stored trimmed.
func (r *Room) Post(ctx context.Context, participantID, content string) (domain.ChatMessage, error) {
	var out domain.ChatMessage
	err := r.write(ctx, func(now time.Time) error {
		p, err := r.member(participantID)
		if err != nil {
			return err
		}
		text := strings.TrimSpace(content)
		if text == "" {
			return domain.ErrEmptyMessage
		}
		if utf8.RuneCountInString(text) > r.maxMessageLen {
			return domain.ErrMessageTooLong
		}
		out = r.chat.append(domain.ChatMessage{
			RoomCode:   r.code,
			SenderID:   p.ID,
			SenderName: p.Name,
			Kind:       domain.MessageUser,
			Content:    text,
			CreatedAt:  now,
		})
		return nil
	})
	return out, err
}

// Messages yields messages with Seq > since in ascending order. The sequence
// is finite and restartable: every range over it takes a fresh snapshot.
func (r *Room) Messages(since uint64) iter.Seq[domain.ChatMessage] {
	return func(yield func(domain.ChatMessage) bool) {
		r.mu.RLock()
		batch := r.chat.since(since)
		r.mu.RUnlock()

		for _, m := range batch {
			if !yield(m) {
				return
			}
		}
	}
}

func (r *Room) LastSeq() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chat.lastSeq()
}
