package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/sitechat/internal/api"
	"github.com/fentz26/sitechat/internal/store"
)

// fakeService emulates the remote endpoints the manager exercises.
type fakeService struct {
	token         string // token issued on successful login
	email         string
	password      string
	identityFails bool

	loginCalls    atomic.Int32
	signupCalls   atomic.Int32
	identityCalls atomic.Int32
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCalls.Add(1)
		r.ParseForm()
		if r.PostForm.Get("username") != f.email || r.PostForm.Get("password") != f.password {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Incorrect username or password"}`))
			return
		}
		w.Write([]byte(`{"access_token":"` + f.token + `","token_type":"bearer"}`))
	})

	mux.HandleFunc("/signup", func(w http.ResponseWriter, r *http.Request) {
		f.signupCalls.Add(1)
		w.Write([]byte(`{"message":"User created","user":{"id":"` + f.email + `","email":"` + f.email + `"}}`))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.identityCalls.Add(1)
		if f.identityFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Could not validate credentials"}`))
			return
		}
		w.Write([]byte(`{"user":"` + f.email + `"}`))
	})

	return mux
}

func mintToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "a@b.com",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

type fixture struct {
	svc     *fakeService
	creds   *store.Store
	manager *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	svc := &fakeService{
		token:    mintToken(t, time.Now().Add(time.Hour)),
		email:    "a@b.com",
		password: "secret1",
	}
	srv := httptest.NewServer(svc.handler())
	t.Cleanup(srv.Close)

	creds, err := store.Open(filepath.Join(t.TempDir(), "creds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { creds.Close() })

	gw := api.NewClient(srv.URL, creds, 0, zerolog.Nop())
	return &fixture{
		svc:     svc,
		creds:   creds,
		manager: NewManager(gw, creds, zerolog.Nop()),
	}
}

func TestCheckWithoutTokenIsUnauthenticated(t *testing.T) {
	f := newFixture(t)

	status := f.manager.Check(context.Background())
	assert.Equal(t, StatusUnauthenticated, status)

	sess := f.manager.Current()
	assert.Nil(t, sess.Identity)
	assert.Empty(t, sess.LastError)
	assert.Zero(t, f.svc.identityCalls.Load(), "no network call without a token")
}

func TestCheckPurgesExpiredToken(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.creds.PutToken(mintToken(t, time.Now().Add(-time.Hour))))

	status := f.manager.Check(context.Background())
	assert.Equal(t, StatusUnauthenticated, status)

	_, err := f.creds.Token()
	assert.ErrorIs(t, err, store.ErrNotFound, "expired token must not be retained")
	assert.Zero(t, f.svc.identityCalls.Load(), "expiry is detected locally")
}

func TestCheckPurgesMalformedToken(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.creds.PutToken("not-a-jwt"))

	status := f.manager.Check(context.Background())
	assert.Equal(t, StatusUnauthenticated, status)

	_, err := f.creds.Token()
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCheckWithValidTokenAuthenticates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.creds.PutToken(f.svc.token))

	status := f.manager.Check(context.Background())
	assert.Equal(t, StatusAuthenticated, status)

	sess := f.manager.Current()
	require.NotNil(t, sess.Identity)
	assert.Equal(t, "a@b.com", sess.Identity.Email)
}

func TestCheckPurgesOnIdentityFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.creds.PutToken(f.svc.token))
	f.svc.identityFails = true

	status := f.manager.Check(context.Background())
	assert.Equal(t, StatusUnauthenticated, status)

	_, err := f.creds.Token()
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCheckIsIdempotent(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		status := f.manager.Check(context.Background())
		assert.Equal(t, StatusUnauthenticated, status)
	}
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)

	status := f.manager.Login(context.Background(), "a@b.com", "secret1")
	assert.Equal(t, StatusAuthenticated, status)

	sess := f.manager.Current()
	require.NotNil(t, sess.Identity)
	assert.Equal(t, "a@b.com", sess.Identity.Email)
	assert.Empty(t, sess.LastError)

	stored, err := f.creds.Token()
	require.NoError(t, err)
	assert.Equal(t, f.svc.token, stored)
}

func TestLoginFailureRecordsError(t *testing.T) {
	f := newFixture(t)

	status := f.manager.Login(context.Background(), "a@b.com", "wrong")
	assert.Equal(t, StatusUnauthenticated, status)

	sess := f.manager.Current()
	assert.Nil(t, sess.Identity)
	assert.Equal(t, "Incorrect username or password", sess.LastError)

	_, err := f.creds.Token()
	assert.ErrorIs(t, err, store.ErrNotFound, "failed login must not store a credential")
}

func TestSignupAutoLogsIn(t *testing.T) {
	f := newFixture(t)

	status := f.manager.Signup(context.Background(), "a@b.com", "secret1")
	assert.Equal(t, StatusAuthenticated, status)
	assert.Equal(t, int32(1), f.svc.signupCalls.Load())
	assert.Equal(t, int32(1), f.svc.loginCalls.Load())

	sess := f.manager.Current()
	require.NotNil(t, sess.Identity)
	assert.Equal(t, "a@b.com", sess.Identity.Email)
}

func TestSignupFailureAbortsBeforeLogin(t *testing.T) {
	f := newFixture(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/signup" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":"Email already registered"}`))
			return
		}
		t.Errorf("unexpected call to %s after failed registration", r.URL.Path)
	}))
	defer srv.Close()

	gw := api.NewClient(srv.URL, f.creds, 0, zerolog.Nop())
	m := NewManager(gw, f.creds, zerolog.Nop())

	status := m.Signup(context.Background(), "a@b.com", "secret1")
	assert.Equal(t, StatusUnauthenticated, status)
	assert.Equal(t, "Email already registered", m.Current().LastError)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, StatusAuthenticated, f.manager.Login(context.Background(), "a@b.com", "secret1"))

	f.manager.Logout()

	sess := f.manager.Current()
	assert.Equal(t, StatusUnauthenticated, sess.Status)
	assert.Nil(t, sess.Identity)

	_, err := f.creds.Token()
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHandleAuthRejected(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, StatusAuthenticated, f.manager.Login(context.Background(), "a@b.com", "secret1"))

	f.manager.HandleAuthRejected()

	sess := f.manager.Current()
	assert.Equal(t, StatusUnauthenticated, sess.Status)
	assert.Nil(t, sess.Identity)
	assert.NotEmpty(t, sess.LastError)
}
