package session

import (
	"context"
	"sync"
	"time"

	"github.com/chatgate/obo-identity/core"
)

type memoryEntry struct {
	session   core.Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

// NewMemoryStore returns a MemoryStore. A zero ttl keeps sessions until they
// are deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
	}
}

// Get returns a copy of the stored session.
func (s *MemoryStore) Get(_ context.Context, id string) (*core.Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if s.expired(entry) {
		s.mu.Lock()
		defer s.mu.Unlock()
		// A concurrent Save may have refreshed the entry since the read.
		entry, ok = s.sessions[id]
		if !ok {
			return nil, ErrNotFound
		}
		if s.expired(entry) {
			delete(s.sessions, id)
			return nil, ErrNotFound
		}
	}

	sess := entry.session
	return &sess, nil
}

func (s *MemoryStore) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt)
}

// Save stores a copy of sess and restarts its TTL.
func (s *MemoryStore) Save(_ context.Context, sess *core.Session) error {
	if err := validate(sess); err != nil {
		return err
	}

	entry := memoryEntry{session: *sess}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.sessions[sess.ID] = entry
	s.mu.Unlock()
	return nil
}

// Delete removes the session. Deleting an unknown ID is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
