// Package session owns the authentication state machine: the single
// process-wide session, the credential lifecycle, and local expiry detection.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/fentz26/sitechat/internal/api"
	"github.com/fentz26/sitechat/internal/store"
)

// Status is the authentication state. There are exactly three values;
// StatusChecking only persists while a network call is in flight.
type Status string

const (
	StatusChecking        Status = "checking"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// Identity is who the credential belongs to. The identity endpoint returns a
// single value used as both fields, so they may be identical.
type Identity struct {
	ID    string
	Email string
}

// Session is a snapshot of the authentication state.
type Session struct {
	Identity  *Identity
	Status    Status
	LastError string
}

// Gateway is the slice of the request gateway the manager needs.
type Gateway interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Signup(ctx context.Context, email, password string) (*api.SignupResponse, error)
	Identity(ctx context.Context, token string) (*api.UserInfo, error)
}

// CredentialStore is the durable slot holding the bearer token.
type CredentialStore interface {
	Token() (string, error)
	PutToken(token string) error
	DeleteToken() (bool, error)
}

// Manager mutates the session. No operation panics or lets a transport error
// escape: callers observe outcomes through the returned status and the
// session's LastError field.
type Manager struct {
	gw    Gateway
	creds CredentialStore
	log   zerolog.Logger

	mu      sync.RWMutex
	session Session
}

// NewManager creates a manager in the checking state; call Check to reach a
// terminal status.
func NewManager(gw Gateway, creds CredentialStore, log zerolog.Logger) *Manager {
	return &Manager{
		gw:      gw,
		creds:   creds,
		log:     log,
		session: Session{Status: StatusChecking},
	}
}

// Current returns a snapshot of the session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Check validates the stored credential and ends in a terminal status. An
// expired or rejected credential is purged, never left stale. Safe to call
// repeatedly.
func (m *Manager) Check(ctx context.Context) Status {
	m.setChecking()

	token, err := m.creds.Token()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.log.Warn().Err(err).Msg("credential read failed")
		}
		return m.setUnauthenticated("")
	}

	if tokenExpired(token) {
		m.purge()
		return m.setUnauthenticated("")
	}

	info, err := m.gw.Identity(ctx, "")
	if err != nil {
		m.purge()
		return m.setUnauthenticated("")
	}

	return m.setAuthenticated(info)
}

// Login authenticates with the remote service, fetches the identity with the
// returned token, then persists the token. Fetching before persisting means a
// token that cannot even identify its owner is never stored, and the session
// always carries the identity of this response rather than an older one.
func (m *Manager) Login(ctx context.Context, email, password string) Status {
	m.setChecking()

	resp, err := m.gw.Login(ctx, email, password)
	if err != nil {
		return m.setUnauthenticated(err.Error())
	}

	info, err := m.gw.Identity(ctx, resp.AccessToken)
	if err != nil {
		return m.setUnauthenticated(err.Error())
	}

	if err := m.creds.PutToken(resp.AccessToken); err != nil {
		m.log.Error().Err(err).Msg("credential write failed")
		return m.setUnauthenticated("Could not save login. Please try again.")
	}

	m.log.Info().Str("user", info.Email).Msg("logged in")
	return m.setAuthenticated(info)
}

// Signup registers an account and then logs in with the same credentials.
// A registration failure aborts before the login attempt and surfaces the
// registration error; a login failure surfaces the login error instead.
func (m *Manager) Signup(ctx context.Context, email, password string) Status {
	m.setChecking()

	if _, err := m.gw.Signup(ctx, email, password); err != nil {
		return m.setUnauthenticated(err.Error())
	}

	return m.Login(ctx, email, password)
}

// Logout purges the credential and resets the session. No network call.
func (m *Manager) Logout() {
	m.purge()
	m.setUnauthenticated("")
	m.log.Info().Msg("logged out")
}

// HandleAuthRejected resets the session after the gateway has already purged
// the credential on a rejected call.
func (m *Manager) HandleAuthRejected() {
	m.setUnauthenticated("Session expired. Please log in again.")
}

func (m *Manager) purge() {
	if _, err := m.creds.DeleteToken(); err != nil {
		m.log.Warn().Err(err).Msg("credential purge failed")
	}
}

func (m *Manager) setChecking() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Status = StatusChecking
	m.session.LastError = ""
}

func (m *Manager) setAuthenticated(info *api.UserInfo) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{
		Identity: &Identity{ID: info.ID, Email: info.Email},
		Status:   StatusAuthenticated,
	}
	return StatusAuthenticated
}

func (m *Manager) setUnauthenticated(lastError string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{
		Status:    StatusUnauthenticated,
		LastError: lastError,
	}
	return StatusUnauthenticated
}

// tokenExpired reports whether the token's embedded expiry is in the past.
// The signature is not verified here; the client holds no signing secret and
// the server remains the authority on validity. A token that cannot be parsed
// counts as expired so it gets purged rather than retried forever.
func tokenExpired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
