package service

import (
	"context"

	"github.com/voicecanvas/listening-room/internal/domain"
)

type QueueService struct {
	*core
}

// AddTrack queues a caller-described track; the submitter's vote is counted.
func (s *QueueService) AddTrack(ctx context.Context, code string, desc domain.TrackDescriptor, participantID string) (domain.Track, error) {
	rm, err := s.room(code)
	if err != nil {
		return domain.Track{}, err
	}
	// клиент не может выдать свой трек за библиотечный
	desc.Source = domain.SourceUserAdded
	t, err := rm.AddTrack(ctx, desc, participantID)
	if err != nil {
		return domain.Track{}, err
	}
	// в простаивающей комнате трек сразу ушёл в эфир
	s.schedule(rm)
	s.publish(rm)
	return t, nil
}

func (s *QueueService) Vote(ctx context.Context, code, trackID, participantID string) (domain.Track, error) {
	rm, err := s.room(code)
	if err != nil {
		return domain.Track{}, err
	}
	t, err := rm.Vote(ctx, trackID, participantID)
	if err != nil {
		return domain.Track{}, err
	}
	s.publish(rm)
	return t, nil
}

// Queue returns the votable tracks in play order.
func (s *QueueService) Queue(_ context.Context, code string) ([]domain.Track, error) {
	rm, err := s.room(code)
	if err != nil {
		return nil, err
	}
	return rm.OrderedQueue(), nil
}

func (s *QueueService) NextTrack(_ context.Context, code string) (domain.Track, bool, error) {
	rm, err := s.room(code)
	if err != nil {
		return domain.Track{}, false, err
	}
	t, ok := rm.NextTrack()
	return t, ok, nil
}
