package service

import "sync"

// changeFeed hands out per-room channels that are closed on the next change.
// A waiter takes the channel first, reads state, then waits on it.
type changeFeed struct {
	mu    sync.Mutex
	rooms map[string]chan struct{}
}

func newChangeFeed() *changeFeed {
	return &changeFeed{rooms: make(map[string]chan struct{})}
}

func (f *changeFeed) wait(code string) <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.rooms[code]
	if !ok {
		ch = make(chan struct{})
		f.rooms[code] = ch
	}
	return ch
}

func (f *changeFeed) signal(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.rooms[code]; ok {
		close(ch)
		delete(f.rooms, code)
	}
}
