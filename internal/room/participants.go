package room

import (
	"context"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
)

type LeaveResult struct {
	NewHostID string // не пусто, если роль хоста перешла к другому участнику
	Empty     bool
}

// Join adds a new non-host participant; the first participant of an empty room becomes host.
func (r *Room) Join(ctx context.Context, name string) (domain.Participant, error) {
	name, err := validName(name)
	if err != nil {
		return domain.Participant{}, err
	}

	var out domain.Participant
	err = r.write(ctx, func(now time.Time) error {
		if r.maxParticipants > 0 && r.members.len() >= r.maxParticipants {
			return domain.ErrRoomFull
		}
		p := &domain.Participant{
			ID:       r.newID(),
			RoomCode: r.code,
			Name:     name,
			JoinedAt: now,
			LastSeen: now,
		}
		r.members.add(p)
		out = *p
		return nil
	})
	return out, err
}

// Leave removes the participant together with its votes. Host departure hands
// the role to the earliest-joined remaining participant.
func (r *Room) Leave(ctx context.Context, participantID string) (LeaveResult, error) {
	var res LeaveResult
	err := r.write(ctx, func(now time.Time) error {
		if _, err := r.member(participantID); err != nil {
			return err
		}
		r.queue.dropVoter(participantID)
		res.NewHostID = r.members.remove(participantID)
		res.Empty = r.members.len() == 0
		if res.NewHostID != "" {
			if p, ok := r.members.get(res.NewHostID); ok {
				r.systemMessage(now, "%s is now the host", p.Name)
			}
		}
		return nil
	})
	return res, err
}

// TransferHost moves the host role; only the current host may call it.
func (r *Room) TransferHost(ctx context.Context, by, to string) error {
	return r.write(ctx, func(now time.Time) error {
		if _, err := r.member(by); err != nil {
			return err
		}
		if !r.members.isHost(by) {
			return domain.ErrNotAuthorized
		}
		target, err := r.member(to)
		if err != nil {
			return err
		}
		if by == to {
			return nil
		}
		r.members.setHost(to)
		r.systemMessage(now, "%s is now the host", target.Name)
		return nil
	})
}

// Touch refreshes LastSeen. It bypasses the writer queue and does not bump the revision.
func (r *Room) Touch(participantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.members.get(participantID)
	if !ok {
		return domain.ErrNotAMember
	}
	p.LastSeen = r.now()
	return nil
}

func (r *Room) IsMember(participantID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members.get(participantID)
	return ok
}

func (r *Room) Participant(participantID string) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.members.get(participantID)
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// IdleParticipants lists participants not seen since cutoff.
func (r *Room) IdleParticipants(cutoff time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members.idleSince(cutoff)
}
