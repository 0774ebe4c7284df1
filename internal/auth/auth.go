// ABOUTME: Administrator registration, login and logout against the credential store
// ABOUTME: Enforces single-admin bootstrap and constant-time credential checks

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jevicarn/site/internal/store"
)

// ErrRegistrationClosed is returned when registering while an admin exists.
var ErrRegistrationClosed = errors.New("registration closed")

// ErrPasswordMismatch is returned when the confirmation doesn't match.
var ErrPasswordMismatch = errors.New("passwords do not match")

// ErrNoAdminExists is returned on login against an empty credential store.
var ErrNoAdminExists = errors.New("no administrator exists")

// ErrInvalidCredentials is returned on any username/password mismatch.
// Callers must not reveal which part was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUnauthorized is returned by guards when a session is anonymous.
var ErrUnauthorized = errors.New("unauthorized")

// dummyHash keeps the bcrypt comparison on the unknown-user path as slow as
// the real one, so login timing doesn't reveal whether a username exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Authenticator validates credentials against the store and manages the
// session lifecycle for logged-in administrators.
type Authenticator struct {
	store    store.CredentialStore
	sessions *SessionManager
	logger   *slog.Logger
}

// New creates an Authenticator over the given credential store.
func New(credStore store.CredentialStore, sessions *SessionManager) *Authenticator {
	return &Authenticator{
		store:    credStore,
		sessions: sessions,
		logger:   slog.Default().With("component", "auth"),
	}
}

// Register creates the bootstrap administrator. It is permitted only while
// the credential store is empty; afterwards it fails with
// ErrRegistrationClosed regardless of input.
func (a *Authenticator) Register(ctx context.Context, id, username, password, confirm string) (*store.Admin, error) {
	if password != confirm {
		return nil, ErrPasswordMismatch
	}
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	count, err := a.store.CountAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting admins: %w", err)
	}
	if count > 0 {
		return nil, ErrRegistrationClosed
	}

	admin, err := a.createAdmin(ctx, id, username, password)
	if err != nil {
		return nil, err
	}

	a.logger.Info("bootstrap admin registered", "username", username)
	return admin, nil
}

// Login validates a username/password pair. An empty store fails with
// ErrNoAdminExists; an unknown username and a wrong password both fail
// with ErrInvalidCredentials after a full-cost hash comparison.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*store.Admin, error) {
	count, err := a.store.CountAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting admins: %w", err)
	}
	if count == 0 {
		return nil, ErrNoAdminExists
	}

	admin, err := a.store.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same bcrypt cost as a real comparison.
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	a.logger.Info("admin login successful", "username", username)
	return admin, nil
}

// IssueSession creates a session for an authenticated administrator and
// returns the opaque token for the client cookie.
func (a *Authenticator) IssueSession(username string) (string, error) {
	return a.sessions.Issue(username)
}

// Lookup resolves a session token, refreshing its expiry.
func (a *Authenticator) Lookup(token string) (*Session, bool) {
	return a.sessions.Lookup(token)
}

// Logout destroys the session for a token. Idempotent.
func (a *Authenticator) Logout(token string) {
	a.sessions.Delete(token)
}

// Seed creates an administrator from environment-provided credentials when
// the store is empty. Called once at startup; a populated store makes this
// a no-op so restarts never clobber an existing admin.
func (a *Authenticator) Seed(ctx context.Context, id, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	count, err := a.store.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := a.createAdmin(ctx, id, username, password); err != nil {
		// A concurrent bootstrap registration may have won; that's fine.
		if errors.Is(err, store.ErrUsernameExists) {
			return nil
		}
		return err
	}

	a.logger.Info("seeded bootstrap admin", "username", username)
	return nil
}

func (a *Authenticator) createAdmin(ctx context.Context, id, username, password string) (*store.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	admin := &store.Admin{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := a.store.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}
