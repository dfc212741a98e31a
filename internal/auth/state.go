package auth

import (
	"sync"
	"time"
)

// maxPendingLogins bounds the state store so unauthenticated callers cannot
// grow it without limit.
const maxPendingLogins = 10000

type pendingLogin struct {
	verifier string
	expires  time.Time
}

// stateStore remembers issued OAuth states until they are consumed or expire.
type stateStore struct {
	mu    sync.Mutex
	items map[string]pendingLogin
	now   func() time.Time
}

func newStateStore(now func() time.Time) *stateStore {
	if now == nil {
		now = time.Now
	}
	return &stateStore{items: make(map[string]pendingLogin), now: now}
}

// put records state; it reports false when the store is full of live entries.
func (s *stateStore) put(state, verifier string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if len(s.items) >= maxPendingLogins {
		for k, p := range s.items {
			if !now.Before(p.expires) {
				delete(s.items, k)
			}
		}
		if len(s.items) >= maxPendingLogins {
			return false
		}
	}
	s.items[state] = pendingLogin{verifier: verifier, expires: now.Add(ttl)}
	return true
}

// consume removes state and returns its PKCE verifier if it was still live.
func (s *stateStore) consume(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[state]
	if !ok {
		return "", false
	}
	delete(s.items, state)
	if !s.now().Before(p.expires) {
		return "", false
	}
	return p.verifier, true
}
