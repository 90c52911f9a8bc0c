package room

import (
	"context"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
)

type playback struct {
	current   *domain.Track // nil = Idle
	startedAt time.Time
	history   *ringBuffer[domain.PlayedTrack]
}

func newPlayback(historySize int) playback {
	return playback{history: newRingBuffer[domain.PlayedTrack](historySize)}
}

func (p *playback) state() domain.PlaybackState {
	if p.current == nil {
		return domain.PlaybackIdle
	}
	return domain.PlaybackPlaying
}

// advance retires the current track to history and promotes the best queued
// track. With an empty queue the room falls back to Idle.
func (r *Room) advance(now time.Time, skipped bool) *domain.Track {
	if cur := r.playback.current; cur != nil {
		r.playback.history.push(domain.PlayedTrack{
			Track:     *cur,
			StartedAt: r.playback.startedAt,
			EndedAt:   now,
			Skipped:   skipped,
		})
		r.playback.current = nil
		r.playback.startedAt = time.Time{}
	}

	e := r.queue.best()
	if e == nil {
		return nil
	}
	t := e.view()
	r.queue.remove(t.ID)
	r.playback.current = &t
	r.playback.startedAt = now
	r.systemMessage(now, "Now playing: %s by %s", t.Title, t.Artist)

	out := t
	return &out
}

// Activate starts playback if the room is Idle and has queued tracks.
func (r *Room) Activate(ctx context.Context) (*domain.Track, error) {
	var out *domain.Track
	err := r.write(ctx, func(now time.Time) error {
		if cur := r.playback.current; cur != nil {
			t := *cur
			out = &t
			return nil
		}
		out = r.advance(now, false)
		return nil
	})
	return out, err
}

// Skip is host-only. The old track is discarded to history, never re-queued.
func (r *Room) Skip(ctx context.Context, participantID string) (*domain.Track, error) {
	var out *domain.Track
	err := r.write(ctx, func(now time.Time) error {
		if _, err := r.member(participantID); err != nil {
			return err
		}
		if !r.members.isHost(participantID) {
			return domain.ErrNotAuthorized
		}
		out = r.advance(now, true)
		return nil
	})
	return out, err
}

// Finish is the host's "track ended" signal. A trackID that is not the playing
// track (a late or duplicate signal) is rejected with ErrTrackNotFound.
func (r *Room) Finish(ctx context.Context, participantID, trackID string) (*domain.Track, error) {
	var out *domain.Track
	err := r.write(ctx, func(now time.Time) error {
		if _, err := r.member(participantID); err != nil {
			return err
		}
		if !r.members.isHost(participantID) {
			return domain.ErrNotAuthorized
		}
		var err error
		out, err = r.finishLocked(now, trackID)
		return err
	})
	return out, err
}

// Expire advances past trackID once its duration ran out. Only the playback
// timer calls it; there is no participant behind it.
func (r *Room) Expire(ctx context.Context, trackID string) (*domain.Track, error) {
	var out *domain.Track
	err := r.write(ctx, func(now time.Time) error {
		var err error
		out, err = r.finishLocked(now, trackID)
		return err
	})
	return out, err
}

func (r *Room) finishLocked(now time.Time, trackID string) (*domain.Track, error) {
	cur := r.playback.current
	if cur == nil || cur.ID != trackID {
		return nil, domain.ErrTrackNotFound
	}
	return r.advance(now, false), nil
}

func (r *Room) NowPlaying() (domain.Track, time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.playback.current == nil {
		return domain.Track{}, time.Time{}, false
	}
	return *r.playback.current, r.playback.startedAt, true
}

func (r *Room) History() []domain.PlayedTrack {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playback.history.snapshot()
}
