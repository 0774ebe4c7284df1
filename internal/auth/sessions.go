// ABOUTME: In-memory session table for authenticated administrators
// ABOUTME: Opaque random tokens with sliding expiry, never persisted

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultSessionTTL is the sliding expiry applied when no TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// Session holds the server-side state for one logged-in client.
type Session struct {
	Username  string
	ExpiresAt time.Time
}

// SessionManager is a mutex-guarded in-memory session table. Sessions are
// never persisted; a restart logs every admin out.
type SessionManager struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionManager creates a session manager with the given sliding TTL.
// A zero or negative TTL falls back to DefaultSessionTTL.
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Issue creates a session for the given username and returns its token.
func (m *SessionManager) Issue(username string) (string, error) {
	token, err := generateToken(32)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeExpiredLocked()
	m.sessions[token] = &Session{
		Username:  username,
		ExpiresAt: m.now().Add(m.ttl),
	}
	return token, nil
}

// Lookup returns the session for a token, refreshing its sliding expiry.
// Expired or unknown tokens return false.
func (m *SessionManager) Lookup(token string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[token]
	if !ok {
		return nil, false
	}
	if m.now().After(session.ExpiresAt) {
		delete(m.sessions, token)
		return nil, false
	}

	session.ExpiresAt = m.now().Add(m.ttl)
	return &Session{Username: session.Username, ExpiresAt: session.ExpiresAt}, true
}

// Delete removes a session. Deleting an unknown token is a no-op, which
// makes logout idempotent.
func (m *SessionManager) Delete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// purgeExpiredLocked drops expired sessions. Caller must hold mu.
func (m *SessionManager) purgeExpiredLocked() {
	now := m.now()
	for token, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			delete(m.sessions, token)
		}
	}
}

// generateToken generates a cryptographically secure random token.
func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
