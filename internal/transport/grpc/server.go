package grpcx

import (
	"context"
	"errors"
	"strings"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/logger"
	"github.com/voicecanvas/listening-room/internal/service"
	"github.com/voicecanvas/listening-room/internal/session"
	"github.com/voicecanvas/listening-room/internal/transport/dto"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	mdAuthorization = "authorization"
	mdErrorCode     = "x-error-code"
)

type Server struct {
	roomSvc     *service.RoomService
	memberSvc   *service.MemberService
	queueSvc    *service.QueueService
	playbackSvc *service.PlaybackService
	chatSvc     *service.ChatService
	sessions    *session.Manager
}

var _ RoomServiceServer = (*Server)(nil)

func NewServer(svc *service.Services, sessions *session.Manager) *Server {
	return &Server{
		roomSvc:     svc.Rooms,
		memberSvc:   svc.Members,
		queueSvc:    svc.Queue,
		playbackSvc: svc.Playback,
		chatSvc:     svc.Chat,
		sessions:    sessions,
	}
}

// -------- helpers --------

// participant checks the bearer session token against the room and refreshes
// presence. A token outlives membership, so departed participants are rejected here.
func (s *Server) participant(ctx context.Context, code string) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	// Authorization: Bearer <session_token>
	auth := first(md.Get(mdAuthorization))
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") || len(auth) <= 7 {
		return "", status.Error(codes.Unauthenticated, "missing bearer token")
	}
	claims, err := s.sessions.ParseForRoom(strings.TrimSpace(auth[7:]), code)
	if err != nil {
		return "", status.Error(codes.Unauthenticated, err.Error())
	}
	pid := claims.ParticipantID()
	if err := s.memberSvc.Touch(ctx, code, pid); err != nil {
		return "", mapErr(ctx, err)
	}
	return pid, nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func normCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

var grpcCodes = map[string]codes.Code{
	dto.CodeRoomNotFound:     codes.NotFound,
	dto.CodeTrackNotFound:    codes.NotFound,
	dto.CodeRoomFull:         codes.FailedPrecondition,
	dto.CodeAlreadyVoted:     codes.AlreadyExists,
	dto.CodeRoomCreation:     codes.Unavailable,
	dto.CodeRoomBusy:         codes.Unavailable,
	dto.CodeInvalidTrack:     codes.InvalidArgument,
	dto.CodeInvalidName:      codes.InvalidArgument,
	dto.CodeEmptyMessage:     codes.InvalidArgument,
	dto.CodeMessageTooLong:   codes.InvalidArgument,
	dto.CodeInvalidCursor:    codes.InvalidArgument,
	dto.CodeBadRequest:       codes.InvalidArgument,
	dto.CodeNotAuthorized:    codes.PermissionDenied,
	dto.CodeNotAMember:       codes.PermissionDenied,
	dto.CodeUnauthenticated:  codes.Unauthenticated,
	dto.CodeRateLimited:      codes.ResourceExhausted,
	dto.CodeDeadlineExceeded: codes.DeadlineExceeded,
}

// mapErr turns a service error into a status; the stable error code goes to
// the x-error-code trailer.
func mapErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	e := dto.NewError(err)
	_ = grpc.SetTrailer(ctx, metadata.Pairs(mdErrorCode, e.Code))
	c, ok := grpcCodes[e.Code]
	if !ok {
		logger.FromContext(ctx).Error("grpc handler failed", "err", err)
		c = codes.Internal
	}
	return status.Error(c, e.Message)
}

func ptr[T any](v T) *T { return &v }

// -------- methods --------

func (s *Server) CreateRoom(ctx context.Context, in *dto.CreateRoomRequest) (*dto.JoinResponse, error) {
	res, err := s.roomSvc.CreateRoom(ctx, in.Name, in.HostName)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return ptr(dto.FromJoin(res)), nil
}

func (s *Server) ListRooms(ctx context.Context, in *ListRoomsRequest) (*dto.RoomsPage, error) {
	items, next, err := s.roomSvc.ListRooms(ctx, in.Limit, in.Cursor)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return ptr(dto.FromSummaries(items, next)), nil
}

func (s *Server) JoinRoom(ctx context.Context, in *JoinRoomRequest) (*dto.JoinResponse, error) {
	res, err := s.memberSvc.JoinRoom(ctx, normCode(in.Code), in.Name)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return ptr(dto.FromJoin(res)), nil
}

func (s *Server) LeaveRoom(ctx context.Context, in *RoomRequest) (*Empty, error) {
	code := normCode(in.Code)
	pid, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.memberSvc.LeaveRoom(ctx, code, pid); err != nil {
		return nil, mapErr(ctx, err)
	}
	return &Empty{}, nil
}

func (s *Server) TransferHost(ctx context.Context, in *TransferHostRequest) (*dto.Snapshot, error) {
	code := normCode(in.Code)
	pid, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.memberSvc.TransferHost(ctx, code, pid, in.ParticipantID); err != nil {
		return nil, mapErr(ctx, err)
	}
	return s.snapshot(ctx, code)
}

func (s *Server) GetSnapshot(ctx context.Context, in *RoomRequest) (*dto.Snapshot, error) {
	code := normCode(in.Code)
	if _, err := s.participant(ctx, code); err != nil {
		return nil, err
	}
	return s.snapshot(ctx, code)
}

func (s *Server) snapshot(ctx context.Context, code string) (*dto.Snapshot, error) {
	snap, err := s.roomSvc.Snapshot(ctx, code)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return ptr(dto.FromSnapshot(snap)), nil
}

func (s *Server) AddTrack(ctx context.Context, in *AddTrackRequest) (*dto.Track, error) {
	code := normCode(in.Code)
	pid, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	desc, err := in.Track.Descriptor()
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	t, err := s.queueSvc.AddTrack(ctx, code, desc, pid)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return ptr(dto.FromTrack(t)), nil
}

func (s *Server) Vote(ctx context.Context, in *TrackRequest) (*dto.Track, error) {
	code := normCode(in.Code)
	pid, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	t, err := s.queueSvc.Vote(ctx, code, in.TrackID, pid)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return ptr(dto.FromTrack(t)), nil
}

func (s *Server) Skip(ctx context.Context, in *RoomRequest) (*dto.PlaybackResponse, error) {
	code := normCode(in.Code)
	pid, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	next, err := s.playbackSvc.Skip(ctx, code, pid)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return &dto.PlaybackResponse{NowPlaying: dto.FromTrackPtr(next)}, nil
}

func (s *Server) FinishTrack(ctx context.Context, in *TrackRequest) (*dto.PlaybackResponse, error) {
	code := normCode(in.Code)
	pid, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	next, err := s.playbackSvc.FinishTrack(ctx, code, pid, in.TrackID)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return &dto.PlaybackResponse{NowPlaying: dto.FromTrackPtr(next)}, nil
}

func (s *Server) PostMessage(ctx context.Context, in *PostMessageRequest) (*dto.ChatMessage, error) {
	code := normCode(in.Code)
	pid, err := s.participant(ctx, code)
	if err != nil {
		return nil, err
	}
	m, err := s.chatSvc.Post(ctx, code, pid, in.Content)
	if err != nil {
		return nil, mapErr(ctx, err)
	}
	return ptr(dto.FromMessage(m)), nil
}

// ReadMessages streams the chat log after in.Since, then follows new
// messages until the client goes away, leaves the room or the room closes.
func (s *Server) ReadMessages(in *ReadMessagesRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	code := normCode(in.Code)
	pid, err := s.participant(ctx, code)
	if err != nil {
		return err
	}

	since := in.Since
	for attempt := 0; ; attempt++ {
		// подписка до чтения, иначе можно пропустить сообщение
		changed := s.chatSvc.Changed(code)
		if attempt > 0 {
			member, err := s.memberSvc.IsMember(ctx, code, pid)
			switch {
			case errors.Is(err, domain.ErrRoomNotFound):
				return nil // комната закрылась
			case err != nil:
				return mapErr(ctx, err)
			case !member:
				return status.Error(codes.PermissionDenied, "participant left the room")
			}
		}
		seq, err := s.chatSvc.Messages(ctx, code, since)
		if err != nil {
			if attempt > 0 && errors.Is(err, domain.ErrRoomNotFound) {
				return nil // комната закрылась
			}
			return mapErr(ctx, err)
		}
		for m := range seq {
			if err := stream.SendMsg(ptr(dto.FromMessage(m))); err != nil {
				return err
			}
			since = m.Seq
		}

		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case <-changed:
		}
	}
}
