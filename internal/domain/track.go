package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type TrackSource string

const (
	SourceLibrary   TrackSource = "library"
	SourceUserAdded TrackSource = "user_added"
)

type Track struct {
	ID          string
	Title       string
	Artist      string
	Duration    time.Duration
	Source      TrackSource
	SubmitterID string
	Votes       int
	AddedAt     time.Time
}

// TrackDescriptor: то, что присылает клиент при добавлении трека.
type TrackDescriptor struct {
	Title    string
	Artist   string
	Duration time.Duration
	Source   TrackSource
}

func (d TrackDescriptor) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTrack)
	}
	if d.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidTrack)
	}
	switch d.Source {
	case "", SourceLibrary, SourceUserAdded:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidTrack, d.Source)
	}
	return nil
}

type PlayedTrack struct {
	Track     Track
	StartedAt time.Time
	EndedAt   time.Time
	Skipped   bool
}

// FormatDuration renders d as "m:ss".
func FormatDuration(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// ParseDuration accepts "m:ss" and falls back to time.ParseDuration ("3m45s").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	mm, ss, ok := strings.Cut(s, ":")
	if !ok {
		return time.ParseDuration(s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 {
		return 0, fmt.Errorf("invalid minutes in %q", s)
	}
	sv, err := strconv.Atoi(ss)
	if err != nil || sv < 0 || sv > 59 || len(ss) != 2 {
		return 0, fmt.Errorf("invalid seconds in %q", s)
	}
	return time.Duration(m)*time.Minute + time.Duration(sv)*time.Second, nil
}
