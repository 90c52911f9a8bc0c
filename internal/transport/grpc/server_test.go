package grpcx

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/ratelimit"
	"github.com/voicecanvas/listening-room/internal/registry"
	"github.com/voicecanvas/listening-room/internal/service"
	"github.com/voicecanvas/listening-room/internal/session"
	"github.com/voicecanvas/listening-room/internal/transport/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fixture struct {
	svc    *service.Services
	client *Client
}

func newFixture(t *testing.T, limiter ratelimit.Limiter) fixture {
	t.Helper()
	sessions := session.NewManager("grpc-secret", "listening-room", time.Hour, 0)
	svc, err := service.New(service.Config{
		MaxParticipants: 5,
		LockTimeout:     time.Second,
		EmptyGrace:      time.Hour,
		Library: []domain.TrackDescriptor{
			{Title: "Midnight Dreams", Artist: "Luna Echo", Duration: 225 * time.Second},
		},
	}, registry.New(), sessions, nil)
	require.NoError(t, err)

	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(time.Second), RateLimitInterceptor(limiter)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)
	Register(gs, NewServer(svc, sessions))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	c, err := Dial(ClientOptions{
		Target: "passthrough:///bufnet",
		Dial: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return fixture{svc: svc, client: c}
}

func TestCreateJoinSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	host, err := f.client.CreateRoom(ctx, "Friday", "Ann")
	require.NoError(t, err)
	code := host.Snapshot.Room.Code
	require.NotNil(t, host.Snapshot.NowPlaying)

	guest, err := f.client.JoinRoom(ctx, code, "Bob")
	require.NoError(t, err)

	snap, err := f.client.GetSnapshot(ctx, guest.Token, code)
	require.NoError(t, err)
	assert.Len(t, snap.Participants, 2)
	assert.Equal(t, host.Participant.ID, snap.Room.HostID)

	page, err := f.client.ListRooms(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Items[0].Participants)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.client.JoinRoom(ctx, "QQQQQQ", "Bob")
	assert.Equal(t, codes.NotFound, status.Code(err))

	host, err := f.client.CreateRoom(ctx, "", "Ann")
	require.NoError(t, err)
	code := host.Snapshot.Room.Code

	_, err = f.client.GetSnapshot(ctx, "", code)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = f.client.GetSnapshot(ctx, "garbage", code)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	guest, err := f.client.JoinRoom(ctx, code, "Bob")
	require.NoError(t, err)
	_, err = f.client.Skip(ctx, guest.Token, code)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	// стабильный код ошибки в trailer
	var trailer metadata.MD
	err = f.client.invoke(ctx, guest.Token, "AddTrack",
		&AddTrackRequest{Code: code, Track: dto.AddTrackRequest{Title: "no duration"}}, &dto.Track{}, grpc.Trailer(&trailer))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, []string{dto.CodeInvalidTrack}, trailer.Get(mdErrorCode))
}

func TestQueueOverGRPC(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	host, err := f.client.CreateRoom(ctx, "Friday", "Ann")
	require.NoError(t, err)
	code := host.Snapshot.Room.Code
	guest, err := f.client.JoinRoom(ctx, code, "Bob")
	require.NoError(t, err)

	tr, err := f.client.AddTrack(ctx, guest.Token, code, dto.AddTrackRequest{Title: "Urban Jungle", Artist: "City Beats", Duration: "2:55"})
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Votes)

	tr, err = f.client.Vote(ctx, host.Token, code, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Votes)

	_, err = f.client.Vote(ctx, host.Token, code, tr.ID)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	pb, err := f.client.Skip(ctx, host.Token, code)
	require.NoError(t, err)
	require.NotNil(t, pb.NowPlaying)
	assert.Equal(t, tr.ID, pb.NowPlaying.ID)

	// конец трека объявляет только хост
	_, err = f.client.FinishTrack(ctx, guest.Token, code, tr.ID)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	snap, err := f.client.GetSnapshot(ctx, guest.Token, code)
	require.NoError(t, err)
	require.NotNil(t, snap.NowPlaying)
	assert.Equal(t, tr.ID, snap.NowPlaying.ID)

	pb, err = f.client.FinishTrack(ctx, host.Token, code, tr.ID)
	require.NoError(t, err)
	assert.Nil(t, pb.NowPlaying)

	snap, err = f.client.TransferHost(ctx, host.Token, code, guest.Participant.ID)
	require.NoError(t, err)
	assert.Equal(t, guest.Participant.ID, snap.Room.HostID)

	require.NoError(t, f.client.LeaveRoom(ctx, host.Token, code))
	_, err = f.client.GetSnapshot(ctx, host.Token, code)
	assert.Equal(t, codes.PermissionDenied, status.Code(err), "токен ушедшего участника больше не пускает")
}

func TestReadMessagesFollows(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host, err := f.client.CreateRoom(ctx, "Friday", "Ann")
	require.NoError(t, err)
	code := host.Snapshot.Room.Code

	first, err := f.client.PostMessage(ctx, host.Token, code, "before")
	require.NoError(t, err)

	stream, err := f.client.ReadMessages(ctx, host.Token, code, 0)
	require.NoError(t, err)

	var got []dto.ChatMessage
	for {
		m, err := stream.Recv()
		require.NoError(t, err)
		got = append(got, m)
		if m.Seq == first.Seq {
			break
		}
	}
	assert.Equal(t, "before", got[len(got)-1].Content)

	_, err = f.client.PostMessage(ctx, host.Token, code, "after")
	require.NoError(t, err)
	m, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "after", m.Content)
	assert.Greater(t, m.Seq, first.Seq)

	// закрытие комнаты завершает стрим
	require.NoError(t, f.svc.Rooms.CloseRoom(ctx, code, host.Participant.ID))
	for {
		_, err = stream.Recv()
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadMessagesEndsWhenParticipantLeaves(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host, err := f.client.CreateRoom(ctx, "Friday", "Ann")
	require.NoError(t, err)
	code := host.Snapshot.Room.Code
	guest, err := f.client.JoinRoom(ctx, code, "Bob")
	require.NoError(t, err)

	hello, err := f.client.PostMessage(ctx, guest.Token, code, "hello")
	require.NoError(t, err)
	stream, err := f.client.ReadMessages(ctx, guest.Token, code, 0)
	require.NoError(t, err)
	for {
		m, err := stream.Recv()
		require.NoError(t, err)
		if m.Seq == hello.Seq {
			break
		}
	}

	require.NoError(t, f.client.LeaveRoom(ctx, guest.Token, code))
	_, err = f.client.PostMessage(ctx, host.Token, code, "not for Bob")
	require.NoError(t, err)

	_, err = stream.Recv()
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestRateLimitInterceptor(t *testing.T) {
	f := newFixture(t, ratelimit.NewMemory(2, time.Minute))
	ctx := context.Background()

	host, err := f.client.CreateRoom(ctx, "Friday", "Ann")
	require.NoError(t, err)
	code := host.Snapshot.Room.Code

	_, err = f.client.PostMessage(ctx, host.Token, code, "one")
	require.NoError(t, err)
	_, err = f.client.PostMessage(ctx, host.Token, code, "two")
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	// чтения проходят
	_, err = f.client.GetSnapshot(ctx, host.Token, code)
	assert.NoError(t, err)
}
