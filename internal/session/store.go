package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Store keeps live sessions in memory, keyed by their random IDs. Sessions
// are created on first contact and dropped when ended or idle past the TTL.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idleTTL  time.Duration
}

func NewStore(idleTTL time.Duration) *Store {
	if idleTTL <= 0 {
		idleTTL = time.Hour
	}
	return &Store{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
	}
}

// Create mints a new session with a fresh ID.
func (s *Store) Create() *Session {
	sess := &Session{
		ID:         uuid.NewString(),
		lastActive: time.Now(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the live session for id.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete ends a session, discarding its transcript and index.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// PruneIdle drops sessions inactive since before the idle TTL and returns
// how many were removed.
func (s *Store) PruneIdle(now time.Time) int {
	cutoff := now.Add(-s.idleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	var pruned int
	for id, sess := range s.sessions {
		if sess.lastActiveTime().Before(cutoff) {
			delete(s.sessions, id)
			pruned++
		}
	}
	return pruned
}

// Sweep prunes idle sessions on a fixed interval until ctx is done.
func (s *Store) Sweep(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.PruneIdle(now)
		}
	}
}
