// Package room implements the per-room aggregate of a listening room: the vote
// ordered queue, membership with a single host, the append-only chat log and the
// playback state machine. All mutations of a room are serialized; readers see a
// consistent snapshot and never observe a half-applied mutation.
package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/voicecanvas/listening-room/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	systemSender   = "System"
	maxNameLen     = 64
	defaultLockTTL = 2 * time.Second
)

type Options struct {
	Code            string
	Name            string
	MaxParticipants int           // 0 = без ограничения
	LockTimeout     time.Duration // сколько ждать очередь на запись до ErrRoomBusy
	HistorySize     int
	ChatTail        int
	MaxMessageLen   int
	Announce        bool // системные сообщения в чат о голосах, треках и смене хоста

	Now   func() time.Time
	NewID func() string
}

type Room struct {
	code            string
	name            string
	createdAt       time.Time
	maxParticipants int
	lockTimeout     time.Duration
	chatTail        int
	maxMessageLen   int
	announce        bool
	now             func() time.Time
	newID           func() string

	// writers queue on sem with a bounded wait; mu keeps readers off half-applied state.
	sem *semaphore.Weighted
	mu  sync.RWMutex

	closed   bool
	revision uint64
	members  members
	queue    queue
	chat     chatLog
	playback playback
}

func New(opts Options) *Room {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTTL
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 20
	}
	if opts.ChatTail <= 0 {
		opts.ChatTail = 50
	}
	if opts.MaxMessageLen <= 0 {
		opts.MaxMessageLen = 4000
	}
	return &Room{
		code:            opts.Code,
		name:            opts.Name,
		createdAt:       opts.Now(),
		maxParticipants: opts.MaxParticipants,
		lockTimeout:     opts.LockTimeout,
		chatTail:        opts.ChatTail,
		maxMessageLen:   opts.MaxMessageLen,
		announce:        opts.Announce,
		now:             opts.Now,
		newID:           opts.NewID,
		sem:             semaphore.NewWeighted(1),
		members:         newMembers(),
		queue:           newQueue(),
		playback:        newPlayback(opts.HistorySize),
	}
}

func (r *Room) Code() string { return r.code }

// write runs fn as one serialized, all-or-nothing mutation. fn must validate
// before it changes anything: an error return leaves the room untouched.
func (r *Room) write(ctx context.Context, fn func(now time.Time) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	defer cancel()
	if err := r.sem.Acquire(lockCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s", domain.ErrRoomBusy, r.code)
	}
	defer r.sem.Release(1)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.ErrRoomNotFound
	}
	if err := fn(r.now()); err != nil {
		return err
	}
	r.revision++
	return nil
}

func (r *Room) member(id string) (*domain.Participant, error) {
	p, ok := r.members.get(id)
	if !ok {
		return nil, domain.ErrNotAMember
	}
	return p, nil
}

func (r *Room) systemMessage(now time.Time, format string, args ...any) {
	if !r.announce {
		return
	}
	r.chat.append(domain.ChatMessage{
		RoomCode:   r.code,
		SenderName: systemSender,
		Kind:       domain.MessageSystem,
		Content:    fmt.Sprintf(format, args...),
		CreatedAt:  now,
	})
}

// Close closes the room on behalf of its host.
func (r *Room) Close(ctx context.Context, by string) error {
	return r.write(ctx, func(time.Time) error {
		if _, err := r.member(by); err != nil {
			return err
		}
		if !r.members.isHost(by) {
			return domain.ErrNotAuthorized
		}
		r.closed = true
		return nil
	})
}

// CloseIfEmpty closes the room only when nobody is in it; used by teardown.
func (r *Room) CloseIfEmpty(ctx context.Context) (bool, error) {
	var closed bool
	err := r.write(ctx, func(time.Time) error {
		if r.members.len() == 0 {
			r.closed = true
			closed = true
		}
		return nil
	})
	return closed, err
}

func (r *Room) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *Room) Info() domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.infoLocked()
}

func (r *Room) infoLocked() domain.Room {
	return domain.Room{
		Code:            r.code,
		Name:            r.name,
		HostID:          r.members.hostID,
		MaxParticipants: r.maxParticipants,
		CreatedAt:       r.createdAt,
	}
}

func (r *Room) ParticipantCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members.len()
}

func (r *Room) Snapshot() domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := domain.Snapshot{
		Room:         r.infoLocked(),
		State:        r.playback.state(),
		Queue:        r.queue.ordered(),
		Participants: r.members.snapshot(),
		Chat:         r.chat.tail(r.chatTail),
		History:      r.playback.history.snapshot(),
		Revision:     r.revision,
	}
	if cur := r.playback.current; cur != nil {
		t := *cur
		s.NowPlaying = &t
		s.StartedAt = r.playback.startedAt
	}
	return s
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return "", domain.ErrInvalidName
	}
	return name, nil
}
