package room

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.now.Store(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time          { return time.Unix(0, c.now.Load()).UTC() }
func (c *fakeClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

func sequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s%d", prefix, n.Add(1)) }
}

func newTestRoom(t *testing.T, mutate ...func(*Options)) (*Room, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts := Options{
		Code:        "ABCDEF",
		Name:        "My Listening Room",
		LockTimeout: time.Second,
		Now:         clock.Now,
		NewID:       sequentialIDs("id-"),
	}
	for _, m := range mutate {
		m(&opts)
	}
	return New(opts), clock
}

func mustJoin(t *testing.T, r *Room, name string) domain.Participant {
	t.Helper()
	p, err := r.Join(context.Background(), name)
	require.NoError(t, err)
	return p
}

func mustAdd(t *testing.T, r *Room, title string, by string) domain.Track {
	t.Helper()
	tr, err := r.AddTrack(context.Background(), domain.TrackDescriptor{
		Title:    title,
		Artist:   "Artist " + title,
		Duration: 3 * time.Minute,
	}, by)
	require.NoError(t, err)
	return tr
}

// playFiller puts a track on air so that later additions stay in the queue.
func playFiller(t *testing.T, r *Room, by string) domain.Track {
	t.Helper()
	tr := mustAdd(t, r, "Filler", by)
	cur, _, ok := r.NowPlaying()
	require.True(t, ok)
	require.Equal(t, tr.ID, cur.ID)
	return tr
}

func titles(tracks []domain.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.Title)
	}
	return out
}
