package tasks

import "sync"

// Limiter caps the number of concurrently running background tasks.
// Acquisition never blocks: callers that cannot get a slot are turned away
// and report busy upstream.
type Limiter struct {
	mu     sync.Mutex
	active int
	limit  int
}

func NewLimiter(limit int) *Limiter {
	return &Limiter{limit: limit}
}

// TryAcquire claims a slot if one is free.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active >= l.limit {
		return false
	}
	l.active++
	return true
}

func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active > 0 {
		l.active--
	}
}

func (l *Limiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Limiter) Limit() int {
	return l.limit
}
