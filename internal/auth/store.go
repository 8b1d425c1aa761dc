// package auth implements session storage and lazy token refresh.
package auth

import (
	"sync"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// SessionStore persists [models.Session] records keyed by session id.
//
// Implementations must be safe for concurrent use. The interface exists so a
// persistent backend (see repositories.SessionRepository) can be substituted
// without touching call sites.
type SessionStore interface {
	Get(id string) (*models.Session, error) // Get returns shared.ErrNotAuthenticated when no session exists
	Set(session *models.Session) error      // Set creates or overwrites the session under its id
	Delete(id string) error                 // Delete removes the session; absent ids are not an error
}

// PendingStore tracks issued-but-unredeemed authorization prompts keyed by
// OAuth state token.
type PendingStore interface {
	Get(state string) (*models.PendingAuth, error) // Get returns shared.ErrInvalidState for unknown or consumed states
	Set(pending *models.PendingAuth) error
	Delete(state string) error
	Sweep(maxAge time.Duration, now time.Time) int // Sweep removes entries older than maxAge, returning the count removed
}

// MemorySessionStore is a mutex-guarded in-memory [SessionStore].
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*models.Session)}
}

// Get retrieves a copy of the session for the given id.
func (s *MemorySessionStore) Get(id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}

	// Copies keep callers from mutating the stored record directly.
	copied := *session
	return &copied, nil
}

// Set stores or overwrites a session under its id.
func (s *MemorySessionStore) Set(session *models.Session) error {
	if session == nil || session.ID == "" {
		return shared.ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// Delete removes a session by id.
func (s *MemorySessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// MemoryPendingStore is a mutex-guarded in-memory [PendingStore].
type MemoryPendingStore struct {
	mu      sync.RWMutex
	pending map[string]*models.PendingAuth
}

// NewMemoryPendingStore creates an empty in-memory pending authorization store.
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{pending: make(map[string]*models.PendingAuth)}
}

// Get retrieves a copy of the pending authorization for the given state token.
func (s *MemoryPendingStore) Get(state string) (*models.PendingAuth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending, ok := s.pending[state]
	if !ok {
		return nil, shared.ErrInvalidState
	}

	copied := *pending
	return &copied, nil
}

// Set records a pending authorization under its state token.
func (s *MemoryPendingStore) Set(pending *models.PendingAuth) error {
	if pending == nil || pending.State == "" {
		return shared.ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *pending
	s.pending[pending.State] = &copied
	return nil
}

// Delete removes a pending authorization by state token.
func (s *MemoryPendingStore) Delete(state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, state)
	return nil
}

// Sweep removes pending authorizations older than maxAge and returns how many were removed.
func (s *MemoryPendingStore) Sweep(maxAge time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for state, pending := range s.pending {
		if now.Sub(pending.CreatedAt) > maxAge {
			delete(s.pending, state)
			removed++
		}
	}
	return removed
}
