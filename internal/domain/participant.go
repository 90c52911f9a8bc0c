package domain

import "time"

type Participant struct {
	ID       string
	RoomCode string
	Name     string
	IsHost   bool
	JoinedAt time.Time
	LastSeen time.Time
}
