package repository

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"configurator-service/internal/models"
)

// ErrSessionNotFound is returned when a session id is unknown or expired
var ErrSessionNotFound = errors.New("session not found")

// SessionStore is the in-memory holder of live configuration sessions. It is
// a thin mutable cell: all configuration logic lives in the services package,
// the store only keeps the latest state per session and expires idle ones.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	ttl      time.Duration
	onEvict  func(sessionID string)
	logger   *logrus.Entry
}

// NewSessionStore creates a session store with the given idle TTL. onEvict,
// when non-nil, is called for every expired or deleted session.
func NewSessionStore(ttl time.Duration, onEvict func(sessionID string), logger *logrus.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.Session),
		ttl:      ttl,
		onEvict:  onEvict,
		logger:   logger.WithField("component", "session-store"),
	}
}

// Put stores or replaces a session
func (s *SessionStore) Put(session *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

// Get returns the session with the given id for the tenant
func (s *SessionStore) Get(tenantID, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.TenantID != tenantID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Update runs fn on the session under the write lock, serializing mutations.
// The session's UpdatedAt is refreshed when fn succeeds.
func (s *SessionStore) Update(tenantID, sessionID string, fn func(*models.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.TenantID != tenantID {
		return ErrSessionNotFound
	}
	if err := fn(session); err != nil {
		return err
	}
	session.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a session
func (s *SessionStore) Delete(tenantID, sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok || session.TenantID != tenantID {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if s.onEvict != nil {
		s.onEvict(sessionID)
	}
	return nil
}

// ProductSessionIDs returns the ids of sessions configuring the product.
// Used when a catalog change invalidates live sessions.
func (s *SessionStore) ProductSessionIDs(productID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, session := range s.sessions {
		if session.ProductID == productID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartSweeper expires idle sessions every interval until stop is closed
func (s *SessionStore) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-stop:
				return
			}
		}
	}()
}

func (s *SessionStore) sweep() {
	cutoff := time.Now().UTC().Add(-s.ttl)

	s.mu.Lock()
	var expired []string
	for id, session := range s.sessions {
		if session.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	if len(expired) == 0 {
		return
	}
	for _, id := range expired {
		if s.onEvict != nil {
			s.onEvict(id)
		}
	}
	s.logger.WithField("count", len(expired)).Info("Expired idle configurator sessions")
}
