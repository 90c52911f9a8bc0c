package room

import (
	"context"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
)

// AddTrack appends a track to the queue; the submitter's vote is counted right away.
// An Idle room starts playing at once. The returned track carries the votes it
// was queued with, even when it went straight to playback.
func (r *Room) AddTrack(ctx context.Context, desc domain.TrackDescriptor, submitterID string) (domain.Track, error) {
	if err := desc.Validate(); err != nil {
		return domain.Track{}, err
	}

	var out domain.Track
	err := r.write(ctx, func(now time.Time) error {
		p, err := r.member(submitterID)
		if err != nil {
			return err
		}
		e := r.queue.add(r.newID(), desc, submitterID, now)
		e.voters[submitterID] = struct{}{}
		out = e.view()
		r.systemMessage(now, "%s added %s to the queue", p.Name, out.Title)
		// комната не простаивает с непустой очередью
		if r.playback.current == nil {
			r.advance(now, false)
		}
		return nil
	})
	return out, err
}

// Seed adds catalog tracks without a submitter and without votes.
func (r *Room) Seed(ctx context.Context, descs []domain.TrackDescriptor) error {
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return r.write(ctx, func(now time.Time) error {
		for _, d := range descs {
			if d.Source == "" {
				d.Source = domain.SourceLibrary
			}
			r.queue.add(r.newID(), d, "", now)
		}
		return nil
	})
}

// Vote records one vote of participantID for a queued (non-playing) track.
func (r *Room) Vote(ctx context.Context, trackID, participantID string) (domain.Track, error) {
	var out domain.Track
	err := r.write(ctx, func(now time.Time) error {
		p, err := r.member(participantID)
		if err != nil {
			return err
		}
		e, ok := r.queue.get(trackID)
		if !ok {
			return domain.ErrTrackNotFound
		}
		if _, voted := e.voters[participantID]; voted {
			return domain.ErrAlreadyVoted
		}
		e.voters[participantID] = struct{}{}
		out = e.view()
		r.systemMessage(now, "%s voted for %s by %s", p.Name, out.Title, out.Artist)
		return nil
	})
	return out, err
}

// OrderedQueue returns the votable tracks by votes desc, insertion order on ties.
func (r *Room) OrderedQueue() []domain.Track {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.queue.ordered()
}

// NextTrack reports which track would be played next without consuming it.
func (r *Room) NextTrack() (domain.Track, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.queue.best()
	if e == nil {
		return domain.Track{}, false
	}
	return e.view(), true
}
