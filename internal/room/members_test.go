package room

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	r, clock := newTestRoom(t, func(o *Options) { o.MaxParticipants = 2 })

	host := mustJoin(t, r, "  DJ Alex ")
	assert.True(t, host.IsHost)
	assert.Equal(t, "DJ Alex", host.Name)
	assert.Equal(t, "ABCDEF", host.RoomCode)
	assert.Equal(t, clock.Now(), host.JoinedAt)

	mia := mustJoin(t, r, "Mia")
	assert.False(t, mia.IsHost)
	assert.Equal(t, host.ID, r.Info().HostID)

	_, err := r.Join(context.Background(), "Jake")
	assert.ErrorIs(t, err, domain.ErrRoomFull)
	assert.Equal(t, 2, r.ParticipantCount())
}

func TestJoin_InvalidName(t *testing.T) {
	r, _ := newTestRoom(t)
	for _, name := range []string{"", "   ", strings.Repeat("я", maxNameLen+1)} {
		_, err := r.Join(context.Background(), name)
		assert.ErrorIs(t, err, domain.ErrInvalidName)
	}
	assert.Zero(t, r.ParticipantCount())
	assert.Zero(t, r.Snapshot().Revision)
}

func TestLeave_ReassignsHostToEarliestJoined(t *testing.T) {
	r, _ := newTestRoom(t, func(o *Options) { o.Announce = true })
	host := mustJoin(t, r, "DJ Alex")
	mia := mustJoin(t, r, "Mia")
	jake := mustJoin(t, r, "Jake")

	res, err := r.Leave(context.Background(), host.ID)
	require.NoError(t, err)
	assert.Equal(t, mia.ID, res.NewHostID)
	assert.False(t, res.Empty)

	s := r.Snapshot()
	assert.Equal(t, mia.ID, s.Room.HostID)
	hosts := 0
	for _, p := range s.Participants {
		if p.IsHost {
			hosts++
			assert.Equal(t, mia.ID, p.ID)
		}
	}
	assert.Equal(t, 1, hosts)
	require.NotEmpty(t, s.Chat)
	assert.Equal(t, "Mia is now the host", s.Chat[len(s.Chat)-1].Content)

	res, err = r.Leave(context.Background(), jake.ID)
	require.NoError(t, err)
	assert.Empty(t, res.NewHostID)

	res, err = r.Leave(context.Background(), mia.ID)
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.Empty(t, r.Info().HostID)

	// первый вошедший в пустую комнату снова становится хостом
	next := mustJoin(t, r, "Sam")
	assert.True(t, next.IsHost)
}

func TestLeave_DropsVotesKeepsChat(t *testing.T) {
	r, _ := newTestRoom(t)
	host := mustJoin(t, r, "DJ Alex")
	mia := mustJoin(t, r, "Mia")
	playFiller(t, r, host.ID)
	a := mustAdd(t, r, "A", host.ID)
	_, err := r.Vote(context.Background(), a.ID, mia.ID)
	require.NoError(t, err)
	_, err = r.Post(context.Background(), mia.ID, "bye")
	require.NoError(t, err)

	_, err = r.Leave(context.Background(), mia.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, r.OrderedQueue()[0].Votes)
	assert.False(t, r.IsMember(mia.ID))

	var last domain.ChatMessage
	for m := range r.Messages(0) {
		last = m
	}
	assert.Equal(t, "Mia", last.SenderName)

	_, err = r.Leave(context.Background(), mia.ID)
	assert.ErrorIs(t, err, domain.ErrNotAMember)
}

func TestTransferHost(t *testing.T) {
	r, _ := newTestRoom(t)
	host := mustJoin(t, r, "DJ Alex")
	mia := mustJoin(t, r, "Mia")

	err := r.TransferHost(context.Background(), mia.ID, mia.ID)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	err = r.TransferHost(context.Background(), host.ID, "stranger")
	assert.ErrorIs(t, err, domain.ErrNotAMember)

	require.NoError(t, r.TransferHost(context.Background(), host.ID, mia.ID))
	assert.Equal(t, mia.ID, r.Info().HostID)

	p, ok := r.Participant(host.ID)
	require.True(t, ok)
	assert.False(t, p.IsHost)

	_, err = r.Skip(context.Background(), host.ID)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestTouchAndIdleParticipants(t *testing.T) {
	r, clock := newTestRoom(t)
	host := mustJoin(t, r, "DJ Alex")
	mia := mustJoin(t, r, "Mia")

	clock.Advance(time.Minute)
	require.NoError(t, r.Touch(host.ID))
	assert.ErrorIs(t, r.Touch("stranger"), domain.ErrNotAMember)

	idle := r.IdleParticipants(clock.Now().Add(-30 * time.Second))
	assert.Equal(t, []string{mia.ID}, idle)

	rev := r.Snapshot().Revision
	require.NoError(t, r.Touch(mia.ID))
	assert.Empty(t, r.IdleParticipants(clock.Now().Add(-30*time.Second)))
	assert.Equal(t, rev, r.Snapshot().Revision)
}
