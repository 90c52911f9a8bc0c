// Package registry keeps the live rooms of the process, keyed by room code,
// together with the teardown timers of rooms that have become empty.
package registry

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/voicecanvas/listening-room/internal/domain"
	"github.com/voicecanvas/listening-room/internal/room"
)

type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*room.Room
	timers map[string]*time.Timer
}

func New() *Registry {
	return &Registry{
		rooms:  make(map[string]*room.Room),
		timers: make(map[string]*time.Timer),
	}
}

// Add registers rm under its code. It returns false if the code is taken.
func (r *Registry) Add(rm *room.Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[rm.Code()]; ok {
		return false
	}
	r.rooms[rm.Code()] = rm
	return true
}

func (r *Registry) Exists(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[code]
	return ok
}

// Get returns a live room; a closed room is reported as not found.
func (r *Registry) Get(code string) (*room.Room, error) {
	r.mu.RLock()
	rm, ok := r.rooms[code]
	r.mu.RUnlock()
	if !ok || rm.Closed() {
		return nil, domain.ErrRoomNotFound
	}
	return rm, nil
}

// Remove drops the room and stops its pending teardown, if any.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, code)
	if t, ok := r.timers[code]; ok {
		t.Stop()
		delete(r.timers, code)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// All returns the live rooms in no particular order.
func (r *Registry) All() []*room.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*room.Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		if !rm.Closed() {
			out = append(out, rm)
		}
	}
	return out
}

// List pages through live rooms, newest first.
func (r *Registry) List(limit int, cursor string) ([]domain.Room, string, error) {
	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	infos := make([]domain.Room, 0, r.Len())
	for _, rm := range r.All() {
		info := rm.Info()
		if cur.after(info.CreatedAt, info.Code) {
			infos = append(infos, info)
		}
	}
	slices.SortFunc(infos, func(a, b domain.Room) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Code, a.Code)
	})

	if limit <= 0 || len(infos) <= limit {
		return infos, "", nil
	}
	page := infos[:limit]
	last := page[len(page)-1]
	next, err := EncodeCursor(Cursor{CreatedAt: last.CreatedAt, Code: last.Code})
	if err != nil {
		return nil, "", err
	}
	return page, next, nil
}

// ScheduleTeardown arms fn to run after d unless cancelled first. A previously
// armed timer for the same room is replaced.
func (r *Registry) ScheduleTeardown(code string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[code]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		r.mu.Lock()
		// таймер могли отменить или заменить, пока мы ждали блокировку
		if r.timers[code] != t {
			r.mu.Unlock()
			return
		}
		delete(r.timers, code)
		r.mu.Unlock()
		fn()
	})
	r.timers[code] = t
}

// CancelTeardown stops a pending teardown. It reports whether one was armed.
func (r *Registry) CancelTeardown(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[code]
	if !ok {
		return false
	}
	t.Stop()
	delete(r.timers, code)
	return true
}

func (r *Registry) TeardownPending(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.timers[code]
	return ok
}
