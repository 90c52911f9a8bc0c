package service

import (
	"sync"
	"time"
)

type trackTimer struct {
	timer   *time.Timer
	trackID string
}

// trackTimers holds at most one auto-advance timer per room, bound to the
// track it will expire.
type trackTimers struct {
	mu     sync.Mutex
	timers map[string]trackTimer
}

func newTrackTimers() *trackTimers {
	return &trackTimers{timers: make(map[string]trackTimer)}
}

// arm installs the timer for whatever current reports as playing right now.
// current is evaluated under the lock, so two concurrent callers cannot leave
// a timer for a track that is no longer on air. A timer already bound to the
// same track is kept.
func (t *trackTimers) arm(code string, current func() (trackID string, left time.Duration, ok bool), fire func(trackID string)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	trackID, left, ok := current()
	old, armed := t.timers[code]
	if armed && ok && old.trackID == trackID {
		return
	}
	if armed {
		old.timer.Stop()
		delete(t.timers, code)
	}
	if !ok {
		return
	}

	var tm *time.Timer
	tm = time.AfterFunc(left, func() {
		t.release(code, tm)
		fire(trackID)
	})
	t.timers[code] = trackTimer{timer: tm, trackID: trackID}
}

// release forgets a timer that has fired, unless it was already replaced.
func (t *trackTimers) release(code string, tm *time.Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.timers[code]; ok && cur.timer == tm {
		delete(t.timers, code)
	}
}

func (t *trackTimers) stop(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[code]; ok {
		old.timer.Stop()
		delete(t.timers, code)
	}
}

// armedFor reports the track the room's timer is bound to.
func (t *trackTimers) armedFor(code string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.timers[code]
	return cur.trackID, ok
}

func (t *trackTimers) pending(code string) bool {
	_, ok := t.armedFor(code)
	return ok
}
