package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type memoryEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Memory keeps a token bucket per key: Limit requests per Window, bursting up to Limit.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*memoryEntry
	limit   int
	every   rate.Limit
	idleTTL time.Duration
	now     func() time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Memory{
		buckets: make(map[string]*memoryEntry),
		limit:   limit,
		every:   rate.Every(window / time.Duration(limit)),
		idleTTL: 2 * window,
		now:     time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.buckets[key]
	if !ok {
		e = &memoryEntry{lim: rate.NewLimiter(m.every, m.limit)}
		m.buckets[key] = e
	}
	e.lastSeen = now

	res := Result{Limit: m.limit}
	r := e.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		res.ResetAt = now.Add(delay)
		return res, nil
	}
	res.Allowed = true
	res.Remaining = int(math.Floor(e.lim.TokensAt(now)))
	res.ResetAt = now
	return res, nil
}

// Prune forgets buckets that have been idle long enough to be full again.
func (m *Memory) Prune() int {
	cutoff := m.now().Add(-m.idleTTL)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(m.buckets, k)
			n++
		}
	}
	return n
}
