// ABOUTME: Holds live editing sessions in memory, keyed by uuid, with idle expiry and a size cap.
// ABOUTME: Expired and evicted sessions are dropped without saving; persistence is the repository's job.

package editor

import (
	"sync"
	"time"

	"github.com/2389-research/nodewire/workflow"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store is a concurrency-safe set of sessions. A session idle for longer
// than ttl is removed by Cleanup; when maxSessions is reached, Create evicts
// the least recently used one.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
	now         func() time.Time
}

// NewStore returns an empty store. maxSessions <= 0 disables the cap.
func NewStore(maxSessions int, ttl time.Duration) *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Create starts a session editing g, or an empty canvas when g is nil. The
// store takes ownership of g.
func (s *Store) Create(g *workflow.Graph) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		if id := s.leastRecentlyUsed(); id != "" {
			delete(s.sessions, id)
			log.Debug().Str("session", id).Msg("evicted session at capacity")
		}
	}

	sess := newSession(uuid.NewString(), g, s.now())
	s.sessions[sess.ID] = sess
	return sess
}

// leastRecentlyUsed returns the id with the oldest LastAccess. Caller holds mu.
func (s *Store) leastRecentlyUsed() string {
	var victim *Session
	for _, sess := range s.sessions {
		if victim == nil || sess.LastAccess.Before(victim.LastAccess) {
			victim = sess
		}
	}
	if victim == nil {
		return ""
	}
	return victim.ID
}

// Get returns the session and marks it as used.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if ok {
		sess.LastAccess = s.now()
	}
	return sess, ok
}

// Delete removes a session. Returns false if it was not present.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup drops sessions idle for longer than the ttl and returns how many
// were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastAccess.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(s.sessions)).Msg("expired idle sessions")
	}
	return removed
}

// StartCleanup runs Cleanup every interval until the returned function is
// called. Calling stop more than once is safe.
func (s *Store) StartCleanup(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
