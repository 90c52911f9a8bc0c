// Package dto holds the JSON shapes shared by the HTTP, WebSocket and gRPC
// transports, and the mapping from domain values into them.
package dto

import (
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/service"

	"github.com/samber/lo"
)

type Room struct {
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	HostID          string    `json:"host_id,omitempty"`
	MaxParticipants int       `json:"max_participants,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type Track struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Duration    string    `json:"duration"` // "m:ss"
	DurationMs  int64     `json:"duration_ms"`
	Source      string    `json:"source"`
	SubmitterID string    `json:"submitter_id,omitempty"`
	Votes       int       `json:"votes"`
	AddedAt     time.Time `json:"added_at"`
}

type PlayedTrack struct {
	Track     Track     `json:"track"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Skipped   bool      `json:"skipped"`
}

type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	IsHost   bool      `json:"is_host"`
	JoinedAt time.Time `json:"joined_at"`
	LastSeen time.Time `json:"last_seen"`
}

type ChatMessage struct {
	Seq        uint64    `json:"seq"`
	SenderID   string    `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name"`
	Kind       string    `json:"kind"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type Snapshot struct {
	Room         Room          `json:"room"`
	State        string        `json:"state"`
	NowPlaying   *Track        `json:"now_playing,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	Queue        []Track       `json:"queue"`
	Participants []Participant `json:"participants"`
	Chat         []ChatMessage `json:"chat"`
	History      []PlayedTrack `json:"history"`
	Revision     uint64        `json:"revision"`
}

type RoomSummary struct {
	Room         Room   `json:"room"`
	Participants int    `json:"participants"`
	NowPlaying   *Track `json:"now_playing,omitempty"`
}

type RoomsPage struct {
	Items      []RoomSummary `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type ChatPage struct {
	Items []ChatMessage `json:"items"`
	Next  uint64        `json:"next"` // since для следующего запроса
}

type JoinResponse struct {
	Token       string      `json:"token"`
	Participant Participant `json:"participant"`
	Snapshot    Snapshot    `json:"snapshot"`
}

// PlaybackResponse: NowPlaying is nil when the room went idle.
type PlaybackResponse struct {
	NowPlaying *Track `json:"now_playing"`
}

func FromRoom(r domain.Room) Room {
	return Room{
		Code:            r.Code,
		Name:            r.Name,
		HostID:          r.HostID,
		MaxParticipants: r.MaxParticipants,
		CreatedAt:       r.CreatedAt,
	}
}

func FromTrack(t domain.Track) Track {
	return Track{
		ID:          t.ID,
		Title:       t.Title,
		Artist:      t.Artist,
		Duration:    domain.FormatDuration(t.Duration),
		DurationMs:  t.Duration.Milliseconds(),
		Source:      string(t.Source),
		SubmitterID: t.SubmitterID,
		Votes:       t.Votes,
		AddedAt:     t.AddedAt,
	}
}

func FromTrackPtr(t *domain.Track) *Track {
	if t == nil {
		return nil
	}
	v := FromTrack(*t)
	return &v
}

func FromTracks(ts []domain.Track) []Track {
	return lo.Map(ts, func(t domain.Track, _ int) Track { return FromTrack(t) })
}

func FromParticipant(p domain.Participant) Participant {
	return Participant{
		ID:       p.ID,
		Name:     p.Name,
		IsHost:   p.IsHost,
		JoinedAt: p.JoinedAt,
		LastSeen: p.LastSeen,
	}
}

func FromMessage(m domain.ChatMessage) ChatMessage {
	return ChatMessage{
		Seq:        m.Seq,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Kind:       string(m.Kind),
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}

func FromMessages(ms []domain.ChatMessage) []ChatMessage {
	return lo.Map(ms, func(m domain.ChatMessage, _ int) ChatMessage { return FromMessage(m) })
}

func FromSnapshot(s domain.Snapshot) Snapshot {
	out := Snapshot{
		Room:         FromRoom(s.Room),
		State:        string(s.State),
		NowPlaying:   FromTrackPtr(s.NowPlaying),
		Queue:        FromTracks(s.Queue),
		Participants: lo.Map(s.Participants, func(p domain.Participant, _ int) Participant { return FromParticipant(p) }),
		Chat:         FromMessages(s.Chat),
		History: lo.Map(s.History, func(h domain.PlayedTrack, _ int) PlayedTrack {
			return PlayedTrack{Track: FromTrack(h.Track), StartedAt: h.StartedAt, EndedAt: h.EndedAt, Skipped: h.Skipped}
		}),
		Revision: s.Revision,
	}
	if s.NowPlaying != nil {
		out.StartedAt = lo.ToPtr(s.StartedAt)
	}
	return out
}

func FromJoin(res service.JoinResult) JoinResponse {
	return JoinResponse{
		Token:       res.Token,
		Participant: FromParticipant(res.Participant),
		Snapshot:    FromSnapshot(res.Snapshot),
	}
}

func FromSummaries(items []service.RoomSummary, next string) RoomsPage {
	return RoomsPage{
		Items: lo.Map(items, func(s service.RoomSummary, _ int) RoomSummary {
			return RoomSummary{Room: FromRoom(s.Room), Participants: s.Participants, NowPlaying: FromTrackPtr(s.NowPlaying)}
		}),
		NextCursor: next,
	}
}
