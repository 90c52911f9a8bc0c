package domain

import "time"

type Room struct {
	Code            string
	Name            string
	HostID          string
	MaxParticipants int
	CreatedAt       time.Time
}

type PlaybackState string

const (
	PlaybackIdle    PlaybackState = "idle"
	PlaybackPlaying PlaybackState = "playing"
)

// Snapshot: согласованный срез состояния комнаты на момент чтения.
type Snapshot struct {
	Room         Room
	State        PlaybackState
	NowPlaying   *Track
	StartedAt    time.Time
	Queue        []Track
	Participants []Participant
	Chat         []ChatMessage
	History      []PlayedTrack
	Revision     uint64
}
