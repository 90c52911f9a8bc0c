package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/logger"
	"github.com/voicecanvas/listening-room/internal/ratelimit"
	"github.com/voicecanvas/listening-room/internal/session"
	"github.com/voicecanvas/listening-room/internal/transport/dto"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type RoomSvc interface {
	Snapshot(ctx context.Context, code string) (domain.Snapshot, error)
}

type MemberSvc interface {
	Touch(ctx context.Context, code, participantID string) error
}

type QueueSvc interface {
	AddTrack(ctx context.Context, code string, desc domain.TrackDescriptor, participantID string) (domain.Track, error)
	Vote(ctx context.Context, code, trackID, participantID string) (domain.Track, error)
}

type PlaybackSvc interface {
	Skip(ctx context.Context, code, participantID string) (*domain.Track, error)
}

type ChatSvc interface {
	Post(ctx context.Context, code, participantID, content string) (domain.ChatMessage, error)
}

type Deps struct {
	Rooms    RoomSvc
	Members  MemberSvc
	Queue    QueueSvc
	Playback PlaybackSvc
	Chat     ChatSvc
	Sessions *session.Manager
	Limiter  ratelimit.Limiter
}

type Server struct {
	Deps
	upgrader websocket.Upgrader
	hub      *Hub

	pingEvery time.Duration
	readLimit int64
}

func NewServer(hub *Hub, d Deps) *Server {
	if d.Limiter == nil {
		d.Limiter = ratelimit.Noop{}
	}
	return &Server{
		Deps: d,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origin проверяет CORS на HTTP-уровне, токен обязателен
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
		readLimit: 64 << 10,
	}
}

// HandleWS: GET /ws/rooms/{code}?token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := s.Sessions.ParseForRoom(token, code)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	pid := claims.ParticipantID()

	// до апгрейда: участник должен ещё быть в комнате
	if err := s.Members.Touch(r.Context(), code, pid); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, domain.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, dto.ErrorCode(err), status)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.FromContext(r.Context()).Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, code, pid)
	s.hub.Add(c)
	go c.writeLoop(s.pingEvery)

	ctx := logger.WithRoom(context.WithoutCancel(r.Context()), code, pid)
	log := logger.FromContext(ctx)
	log.Debug("ws connected")

	if snap, err := s.Rooms.Snapshot(ctx, code); err == nil {
		_ = c.Send(Message{Type: TypeState, Payload: dto.FromSnapshot(snap)})
	}

	s.readLoop(ctx, c)

	// отключение сокета не выход из комнаты: участника уберёт presence sweep
	s.hub.Remove(c)
	_ = c.Close()
	<-c.drained
	log.Debug("ws disconnected")
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	c.conn.SetReadLimit(s.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		_ = s.Members.Touch(ctx, c.roomCode, c.participantID)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case <-c.closed:
			return
		default:
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			s.reply(c, in, dto.Error{Code: dto.CodeBadRequest, Message: "invalid json"})
			continue
		}
		_ = s.Members.Touch(ctx, c.roomCode, c.participantID)
		s.dispatch(ctx, c, in)
	}
}

func (s *Server) dispatch(ctx context.Context, c *wsConn, in Inbound) {
	res, err := s.Limiter.Allow(ctx, c.participantID)
	if err == nil && !res.Allowed {
		err = ratelimit.ErrRateLimited
	}
	if err != nil {
		s.reply(c, in, dto.NewError(err))
		return
	}

	code, pid := c.roomCode, c.participantID
	switch in.Type {
	case TypeChat:
		var p ChatPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			s.reply(c, in, dto.Error{Code: dto.CodeBadRequest, Message: "invalid chat payload"})
			return
		}
		msg, err := s.Chat.Post(ctx, code, pid, p.Content)
		if err != nil {
			s.reply(c, in, dto.NewError(err))
			return
		}
		_ = c.Send(Message{Type: TypeChatAck, Payload: ChatAckPayload{Ref: in.Ref, Seq: msg.Seq}})

	case TypeVote:
		var p VotePayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			s.reply(c, in, dto.Error{Code: dto.CodeBadRequest, Message: "invalid vote payload"})
			return
		}
		if _, err := s.Queue.Vote(ctx, code, p.TrackID, pid); err != nil {
			s.reply(c, in, dto.NewError(err))
		}

	case TypeAddTrack:
		var p dto.AddTrackRequest
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			s.reply(c, in, dto.Error{Code: dto.CodeBadRequest, Message: "invalid track payload"})
			return
		}
		desc, err := p.Descriptor()
		if err == nil {
			_, err = s.Queue.AddTrack(ctx, code, desc, pid)
		}
		if err != nil {
			s.reply(c, in, dto.NewError(err))
		}

	case TypeSkip:
		if _, err := s.Playback.Skip(ctx, code, pid); err != nil {
			s.reply(c, in, dto.NewError(err))
		}

	default:
		s.reply(c, in, dto.Error{Code: dto.CodeBadRequest, Message: "unknown command " + in.Type})
	}
}

func (s *Server) reply(c *wsConn, in Inbound, e dto.Error) {
	_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{
		Ref:     in.Ref,
		Command: in.Type,
		Code:    e.Code,
		Message: e.Message,
	}})
}
