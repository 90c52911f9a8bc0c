package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/logger"
	"github.com/voicecanvas/listening-room/internal/room"
)

const defaultRoomName = "My Listening Room"

type RoomService struct {
	*core
}

// CreateRoom allocates a fresh code, seeds the library, registers hostName as
// the sole participant and host, and starts playback.
func (s *RoomService) CreateRoom(ctx context.Context, name, hostName string) (JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultRoomName
	}

	rm, err := s.allocate(name)
	if err != nil {
		return JoinResult{}, err
	}

	host, err := rm.Join(ctx, hostName)
	if err != nil {
		s.reg.Remove(rm.Code())
		return JoinResult{}, err
	}
	if len(s.cfg.Library) > 0 {
		if err := rm.Seed(ctx, s.cfg.Library); err != nil {
			s.reg.Remove(rm.Code())
			return JoinResult{}, fmt.Errorf("seed library: %w", err)
		}
	}
	if _, err := rm.Activate(ctx); err != nil {
		s.reg.Remove(rm.Code())
		return JoinResult{}, fmt.Errorf("activate: %w", err)
	}
	s.schedule(rm)

	res, err := s.issue(rm, host)
	if err != nil {
		s.reg.Remove(rm.Code())
		return JoinResult{}, err
	}
	logger.FromContext(ctx).Info("room created", logger.Room(rm.Code()), "host", host.ID)
	s.publish(rm)
	return res, nil
}

// allocate retries code generation a bounded number of times.
func (s *RoomService) allocate(name string) (*room.Room, error) {
	for i := 0; i < s.cfg.CodeAttempts; i++ {
		code := s.newCode()
		if s.reg.Exists(code) {
			continue
		}
		rm := room.New(s.roomOptions(code, name))
		if s.reg.Add(rm) {
			return rm, nil
		}
	}
	return nil, fmt.Errorf("%w: no free code after %d attempts", domain.ErrRoomCreationFailed, s.cfg.CodeAttempts)
}

func (s *RoomService) Snapshot(_ context.Context, code string) (domain.Snapshot, error) {
	rm, err := s.room(code)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return rm.Snapshot(), nil
}

// CloseRoom is the host's explicit close.
func (s *RoomService) CloseRoom(ctx context.Context, code, by string) error {
	rm, err := s.room(code)
	if err != nil {
		return err
	}
	if err := rm.Close(ctx, by); err != nil {
		return err
	}
	s.retire(ctx, code, "closed by host")
	return nil
}

// RoomSummary is a lobby line: metadata plus occupancy and current track.
type RoomSummary struct {
	Room         domain.Room
	Participants int
	NowPlaying   *domain.Track
}

// ListRooms pages through live rooms, newest first.
func (s *RoomService) ListRooms(_ context.Context, limit int, cursor string) ([]RoomSummary, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	infos, next, err := s.reg.List(limit, cursor)
	if err != nil {
		return nil, "", err
	}
	out := make([]RoomSummary, 0, len(infos))
	for _, info := range infos {
		rm, err := s.room(info.Code)
		if err != nil {
			continue // закрылась между List и Get
		}
		sum := RoomSummary{Room: info, Participants: rm.ParticipantCount()}
		if t, _, ok := rm.NowPlaying(); ok {
			sum.NowPlaying = &t
		}
		out = append(out, sum)
	}
	return out, next, nil
}
