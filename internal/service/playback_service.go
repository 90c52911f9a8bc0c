package service

import (
	"context"
	"errors"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/logger"
	"github.com/voicecanvas/listening-room/internal/room"
)

type PlaybackService struct {
	*core
}

// Skip advances playback on the host's command. The returned track is the new
// one, nil when the room went idle.
func (s *PlaybackService) Skip(ctx context.Context, code, participantID string) (*domain.Track, error) {
	rm, err := s.room(code)
	if err != nil {
		return nil, err
	}
	next, err := rm.Skip(ctx, participantID)
	if err != nil {
		return nil, err
	}
	s.schedule(rm)
	s.publish(rm)
	return next, nil
}

// FinishTrack is the host's "track ended" signal. Only the id of the track
// currently playing is accepted.
func (s *PlaybackService) FinishTrack(ctx context.Context, code, participantID, trackID string) (*domain.Track, error) {
	rm, err := s.room(code)
	if err != nil {
		return nil, err
	}
	next, err := rm.Finish(ctx, participantID, trackID)
	if err != nil {
		return nil, err
	}
	s.schedule(rm)
	s.publish(rm)
	return next, nil
}

// schedule keeps the auto-advance timer in line with the room's playing track.
func (c *core) schedule(rm *room.Room) {
	code := rm.Code()
	if !c.cfg.AutoAdvance {
		c.timers.stop(code)
		return
	}
	c.timers.arm(code, func() (string, time.Duration, bool) {
		cur, startedAt, ok := rm.NowPlaying()
		if !ok {
			return "", 0, false
		}
		left := cur.Duration - c.cfg.Now().Sub(startedAt)
		if left < 0 {
			left = 0
		}
		return cur.ID, left, true
	}, func(trackID string) {
		c.expire(code, trackID)
	})
}

// expire runs when a track's duration has elapsed.
func (c *core) expire(code, trackID string) {
	ctx := context.Background()
	rm, err := c.room(code)
	if err == nil {
		_, err = rm.Expire(ctx, trackID)
	}
	switch {
	case err == nil:
		c.schedule(rm)
		c.publish(rm)
	case errors.Is(err, domain.ErrTrackNotFound), errors.Is(err, domain.ErrRoomNotFound):
		// трек уже сменили вручную или комнату закрыли
	default:
		logger.L().Warn("auto-advance failed", logger.Room(code), logger.Track(trackID), "err", err)
	}
}
