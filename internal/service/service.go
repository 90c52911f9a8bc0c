// Package service exposes the room operations used by every transport. It
// owns cross-room concerns: code allocation, session tokens, empty-room
// teardown, presence sweeping, playback timers and change fan-out.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/logger"
	"github.com/voicecanvas/listening-room/internal/registry"
	"github.com/voicecanvas/listening-room/internal/room"
	"github.com/voicecanvas/listening-room/internal/session"

	nanoid "github.com/jaevor/go-nanoid"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

type Config struct {
	MaxParticipants int
	CodeLength      int
	CodeAttempts    int
	LockTimeout     time.Duration
	EmptyGrace      time.Duration
	PresenceTimeout time.Duration
	SweepEvery      time.Duration
	HistorySize     int
	ChatTail        int
	MaxMessageLen   int
	Announce        bool
	AutoAdvance     bool
	Library         []domain.TrackDescriptor

	// для тестов
	Now     func() time.Time
	NewCode func() string
}

// Notifier receives room changes after they are applied. Implementations must not block.
type Notifier interface {
	RoomChanged(code string, snap domain.Snapshot)
	RoomClosed(code string)
	// ParticipantLeft fires before the room change that drops participantID,
	// so the departed member gets no further state.
	ParticipantLeft(code, participantID string)
}

type noopNotifier struct{}

func (noopNotifier) RoomChanged(string, domain.Snapshot) {}
func (noopNotifier) RoomClosed(string)                   {}
func (noopNotifier) ParticipantLeft(string, string)      {}

// JoinResult is what a participant gets on create/join: the room state, its
// own record and the bearer token for subsequent calls.
type JoinResult struct {
	Snapshot    domain.Snapshot
	Participant domain.Participant
	Token       string
}

type core struct {
	cfg      Config
	reg      *registry.Registry
	sessions *session.Manager
	notifier Notifier
	newCode  func() string
	timers   *trackTimers
	changes  *changeFeed
}

type Services struct {
	Rooms    *RoomService
	Members  *MemberService
	Queue    *QueueService
	Playback *PlaybackService
	Chat     *ChatService
}

func New(cfg Config, reg *registry.Registry, sessions *session.Manager, notifier Notifier) (*Services, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = 8
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	gen := cfg.NewCode
	if gen == nil {
		g, err := nanoid.CustomASCII(codeAlphabet, cfg.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("room code generator: %w", err)
		}
		gen = g
	}

	c := &core{
		cfg:      cfg,
		reg:      reg,
		sessions: sessions,
		notifier: notifier,
		newCode:  gen,
		timers:   newTrackTimers(),
		changes:  newChangeFeed(),
	}
	return &Services{
		Rooms:    &RoomService{core: c},
		Members:  &MemberService{core: c},
		Queue:    &QueueService{core: c},
		Playback: &PlaybackService{core: c},
		Chat:     &ChatService{core: c},
	}, nil
}

func (c *core) room(code string) (*room.Room, error) {
	return c.reg.Get(code)
}

func (c *core) roomOptions(code, name string) room.Options {
	return room.Options{
		Code:            code,
		Name:            name,
		MaxParticipants: c.cfg.MaxParticipants,
		LockTimeout:     c.cfg.LockTimeout,
		HistorySize:     c.cfg.HistorySize,
		ChatTail:        c.cfg.ChatTail,
		MaxMessageLen:   c.cfg.MaxMessageLen,
		Announce:        c.cfg.Announce,
		Now:             c.cfg.Now,
	}
}

// publish pushes the room's current state to subscribers.
func (c *core) publish(rm *room.Room) {
	c.changes.signal(rm.Code())
	c.notifier.RoomChanged(rm.Code(), rm.Snapshot())
}

// retire forgets a closed room everywhere.
func (c *core) retire(ctx context.Context, code, reason string) {
	c.reg.Remove(code)
	c.timers.stop(code)
	c.changes.signal(code)
	c.notifier.RoomClosed(code)
	logger.FromContext(ctx).Info("room closed", logger.Room(code), "reason", reason)
}

func (c *core) issue(rm *room.Room, p domain.Participant) (JoinResult, error) {
	tok, err := c.sessions.Issue(rm.Code(), p.ID, p.Name)
	if err != nil {
		return JoinResult{}, fmt.Errorf("issue session: %w", err)
	}
	return JoinResult{Snapshot: rm.Snapshot(), Participant: p, Token: tok}, nil
}
