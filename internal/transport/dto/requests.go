package dto

import (
	"fmt"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
)

type CreateRoomRequest struct {
	Name     string `json:"name"`
	HostName string `json:"host_name"`
}

type JoinRoomRequest struct {
	Name string `json:"name"`
}

type TransferHostRequest struct {
	ParticipantID string `json:"participant_id"`
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

// AddTrackRequest takes the duration either as "m:ss" or in milliseconds.
type AddTrackRequest struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Duration   string `json:"duration,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

func (r AddTrackRequest) Descriptor() (domain.TrackDescriptor, error) {
	d := time.Duration(r.DurationMs) * time.Millisecond
	if r.Duration != "" {
		parsed, err := domain.ParseDuration(r.Duration)
		if err != nil {
			return domain.TrackDescriptor{}, fmt.Errorf("%w: %v", domain.ErrInvalidTrack, err)
		}
		d = parsed
	}
	desc := domain.TrackDescriptor{
		Title:    r.Title,
		Artist:   r.Artist,
		Duration: d,
		Source:   domain.SourceUserAdded,
	}
	if err := desc.Validate(); err != nil {
		return domain.TrackDescriptor{}, err
	}
	return desc, nil
}
