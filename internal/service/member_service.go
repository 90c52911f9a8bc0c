package service

import (
	"context"
	"errors"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/logger"
	"github.com/voicecanvas/listening-room/internal/room"
)

type MemberService struct {
	*core
}

func (s *MemberService) JoinRoom(ctx context.Context, code, name string) (JoinResult, error) {
	rm, err := s.room(code)
	if err != nil {
		return JoinResult{}, err
	}
	p, err := rm.Join(ctx, name)
	if err != nil {
		return JoinResult{}, err
	}
	if s.reg.CancelTeardown(code) {
		logger.FromContext(ctx).Info("room teardown cancelled", logger.Room(code))
	}

	res, err := s.issue(rm, p)
	if err != nil {
		return JoinResult{}, err
	}
	s.publish(rm)
	return res, nil
}

// LeaveRoom removes the participant. An emptied room is torn down after the
// grace period unless someone joins first.
func (s *MemberService) LeaveRoom(ctx context.Context, code, participantID string) error {
	rm, err := s.room(code)
	if err != nil {
		return err
	}
	res, err := rm.Leave(ctx, participantID)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	if res.NewHostID != "" {
		log.Info("host reassigned", logger.Room(code), "host", res.NewHostID)
	}
	if res.Empty {
		s.scheduleTeardown(rm)
	}
	s.notifier.ParticipantLeft(code, participantID)
	s.publish(rm)
	return nil
}

// IsMember reports whether participantID is still in the room.
func (s *MemberService) IsMember(_ context.Context, code, participantID string) (bool, error) {
	rm, err := s.room(code)
	if err != nil {
		return false, err
	}
	return rm.IsMember(participantID), nil
}

func (s *MemberService) scheduleTeardown(rm *room.Room) {
	code := rm.Code()
	s.reg.ScheduleTeardown(code, s.cfg.EmptyGrace, func() {
		ctx := context.Background()
		closed, err := rm.CloseIfEmpty(ctx)
		if err != nil {
			logger.L().Warn("room teardown failed", logger.Room(code), "err", err)
			return
		}
		if closed {
			s.retire(ctx, code, "empty")
		}
	})
}

func (s *MemberService) TransferHost(ctx context.Context, code, by, to string) error {
	rm, err := s.room(code)
	if err != nil {
		return err
	}
	if err := rm.TransferHost(ctx, by, to); err != nil {
		return err
	}
	s.publish(rm)
	return nil
}

// Touch marks the participant as present.
func (s *MemberService) Touch(_ context.Context, code, participantID string) error {
	rm, err := s.room(code)
	if err != nil {
		return err
	}
	return rm.Touch(participantID)
}

// Sweep removes participants not seen for longer than the presence timeout.
func (s *MemberService) Sweep(ctx context.Context) int {
	if s.cfg.PresenceTimeout <= 0 {
		return 0
	}
	cutoff := s.cfg.Now().Add(-s.cfg.PresenceTimeout)
	removed := 0
	for _, rm := range s.reg.All() {
		for _, pid := range rm.IdleParticipants(cutoff) {
			err := s.LeaveRoom(ctx, rm.Code(), pid)
			switch {
			case err == nil:
				removed++
			case errors.Is(err, domain.ErrNotAMember), errors.Is(err, domain.ErrRoomNotFound):
			default:
				logger.FromContext(ctx).Warn("presence sweep", logger.Room(rm.Code()), logger.Participant(pid), "err", err)
			}
		}
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (s *MemberService) Run(ctx context.Context) {
	every := s.cfg.SweepEvery
	if every <= 0 {
		every = 30 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(ctx); n > 0 {
				logger.FromContext(ctx).Info("presence sweep", "removed", n)
			}
		}
	}
}
