package services

import (
	"sync"

	"github.com/viab/viab-backend/internal/memory"
)

// sessionLocks serializes work per (user, session) scope. A scope holds at
// most one in-flight agent run; a second request for the same scope is
// rejected rather than queued.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[memory.Scope]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[memory.Scope]*sessionLock)}
}

// tryAcquire takes the scope's lock without blocking. It returns a release
// function, or false when the scope is already busy.
func (s *sessionLocks) tryAcquire(scope memory.Scope) (func(), bool) {
	s.mu.Lock()
	l, ok := s.locks[scope]
	if !ok {
		l = &sessionLock{}
		s.locks[scope] = l
	}
	l.refs++
	s.mu.Unlock()

	if !l.mu.TryLock() {
		s.release(scope, l)
		return nil, false
	}

	return func() {
		l.mu.Unlock()
		s.release(scope, l)
	}, true
}

func (s *sessionLocks) release(scope memory.Scope, l *sessionLock) {
	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, scope)
	}
	s.mu.Unlock()
}
