// Package api is the request gateway: the single choke point for every call
// to the remote crawl/query service. It injects the stored bearer token,
// normalizes failures into *Error, and forces de-authentication exactly once
// when the server rejects a credential.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fentz26/sitechat/internal/store"
)

// DefaultTimeout is the default timeout for API requests.
const DefaultTimeout = 30 * time.Second

// TokenStore is the slice of the credential store the gateway needs: read on
// every call, purge on rejection.
type TokenStore interface {
	Token() (string, error)
	DeleteToken() (bool, error)
}

// Client wraps HTTP calls to the crawl/query service.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	creds          TokenStore
	onAuthRejected func()
	log            zerolog.Logger
}

// NewClient creates a gateway for the service at baseURL. creds may be nil
// for a credential-free client.
func NewClient(baseURL string, creds TokenStore, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
		log:        log,
	}
}

// SetAuthRejectedHook registers the callback invoked when a rejected request
// purges the stored credential. The hook fires at most once per
// present-to-absent transition of the token, so two simultaneously rejected
// calls trigger a single de-authentication.
func (c *Client) SetAuthRejectedHook(fn func()) {
	c.onAuthRejected = fn
}

// LoginResponse is the payload of POST /login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserInfo identifies the authenticated user.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignupResponse is the payload of POST /signup.
type SignupResponse struct {
	Message string   `json:"message"`
	User    UserInfo `json:"user"`
}

// CrawlResponse is the payload of POST /crawl.
type CrawlResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// QueryResponse is the payload of POST /query.
type QueryResponse struct {
	Response string `json:"response"`
	URL      string `json:"url"`
}

// KnowledgeResponse is the payload of GET /knowledge.
type KnowledgeResponse struct {
	KnowledgeBase struct {
		URL string `json:"url"`
	} `json:"knowledge_base"`
}

// Login exchanges credentials for a bearer token. The endpoint expects form
// data, not JSON.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var out LoginResponse
	call := newPendingCall(http.MethodPost, "/login")
	err := c.do(ctx, call, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", "", "Login failed", &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, email, password string) (*SignupResponse, error) {
	var out SignupResponse
	if err := c.postJSON(ctx, "/signup", map[string]string{"email": email, "password": password}, "Registration failed", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Identity fetches who the stored credential belongs to. A non-empty token
// overrides the stored one, which lets a fresh login verify its own token
// before it is persisted. The endpoint returns a single user field used as
// both id and email.
func (c *Client) Identity(ctx context.Context, token string) (*UserInfo, error) {
	var out struct {
		User string `json:"user"`
	}
	call := newPendingCall(http.MethodGet, "/")
	if err := c.do(ctx, call, nil, "", token, "Failed to fetch user info", &out); err != nil {
		return nil, err
	}
	return &UserInfo{ID: out.User, Email: out.User}, nil
}

// Crawl asks the service to index a website.
func (c *Client) Crawl(ctx context.Context, target string) (*CrawlResponse, error) {
	var out CrawlResponse
	if err := c.postJSON(ctx, "/crawl", map[string]string{"url": target}, "Failed to crawl website", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query asks a question about a previously crawled website.
func (c *Client) Query(ctx context.Context, target, query string) (*QueryResponse, error) {
	var out QueryResponse
	if err := c.postJSON(ctx, "/query", map[string]string{"url": target, "query": query}, "Failed to query content", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Knowledge fetches the currently indexed website.
func (c *Client) Knowledge(ctx context.Context) (*KnowledgeResponse, error) {
	var out KnowledgeResponse
	call := newPendingCall(http.MethodGet, "/knowledge")
	if err := c.do(ctx, call, nil, "", "", "Failed to fetch knowledge base", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, fallback string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	call := newPendingCall(http.MethodPost, path)
	return c.do(ctx, call, bytes.NewReader(body), "application/json", "", fallback, out)
}

// pendingCall is the ephemeral record of one in-flight request. It exists for
// a single request-response cycle and guarantees the forced-logout side
// effect runs at most once for the call.
type pendingCall struct {
	id          string
	method      string
	path        string
	started     time.Time
	authHandled bool
}

func newPendingCall(method, path string) *pendingCall {
	return &pendingCall{
		id:      uuid.New().String(),
		method:  method,
		path:    path,
		started: time.Now(),
	}
}

// do performs one request. Every failure comes back as *Error: transport
// failures carry the generic network message, rejected responses carry the
// server's detail when present and fallback otherwise. It never retries.
func (c *Client) do(ctx context.Context, call *pendingCall, body io.Reader, contentType, token, fallback string, out any) error {
	req, err := http.NewRequestWithContext(ctx, call.method, c.baseURL+call.path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if token == "" && c.creds != nil {
		stored, err := c.creds.Token()
		if err == nil {
			token = stored
		} else if !errors.Is(err, store.ErrNotFound) {
			c.log.Warn().Str("call", call.id).Err(err).Msg("credential read failed; proceeding without token")
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Str("call", call.id).Str("method", call.method).Str("path", call.path).Err(err).Msg("transport failure")
		return &Error{Message: genericNetworkMessage}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("call", call.id).
		Str("method", call.method).
		Str("path", call.path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(call.started)).
		Msg("api call")

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleAuthRejected(call)
	}

	if resp.StatusCode >= 400 {
		msg := fallback
		var detail errorDetail
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil && detail.Detail != "" {
			msg = detail.Detail
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Status: resp.StatusCode, Message: genericNetworkMessage}
		}
	}
	return nil
}

// handleAuthRejected purges the stored credential and notifies the hosting
// shell. The hook only fires when this call actually removed a token, so
// concurrent rejections de-authenticate once, and a rejected login attempt
// with no stored token triggers no navigation at all.
func (c *Client) handleAuthRejected(call *pendingCall) {
	if call.authHandled || c.creds == nil {
		return
	}
	call.authHandled = true

	deleted, err := c.creds.DeleteToken()
	if err != nil {
		c.log.Error().Str("call", call.id).Err(err).Msg("credential purge failed")
		return
	}
	if deleted {
		c.log.Info().Str("call", call.id).Str("path", call.path).Msg("credential rejected; forcing logout")
		if c.onAuthRejected != nil {
			c.onAuthRejected()
		}
	}
}
