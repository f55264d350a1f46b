// Package identity talks to the Supabase GoTrue API and verifies the access
// tokens it issues.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"babyhabits/internal/domain/apperr"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

type Event string

const (
	EventSignedIn  Event = "SIGNED_IN"
	EventSignedOut Event = "SIGNED_OUT"
)

type Listener func(event Event, user User)

type User struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
	User         User
}

// OAuthStart is returned to the browser, which keeps Verifier until the
// provider redirects back with a code.
type OAuthStart struct {
	URL      string
	Verifier string
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

var supportedProviders = map[string]struct{}{
	"google":   {},
	"apple":    {},
	"github":   {},
	"facebook": {},
	"azure":    {},
}

type Client struct {
	rest       *resty.Client
	baseURL    string
	configured bool

	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	rest := resty.New().
		SetBaseURL(baseURL+"/auth/v1").
		SetTimeout(timeout).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Accept", "application/json")

	return &Client{
		rest:       rest,
		baseURL:    baseURL,
		configured: baseURL != "" && cfg.APIKey != "",
		listeners:  make(map[int]Listener),
	}
}

type userPayload struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (p userPayload) toUser() User {
	return User{
		ID:        p.ID,
		Email:     p.Email,
		Name:      firstNonEmpty(stringFromMap(p.UserMetadata, "name"), stringFromMap(p.UserMetadata, "full_name")),
		AvatarURL: stringFromMap(p.UserMetadata, "avatar_url"),
	}
}

type sessionPayload struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         *userPayload `json:"user"`

	// sign-up without auto-confirm answers with the bare user
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (p sessionPayload) user() User {
	if p.User != nil {
		return p.User.toUser()
	}
	return User{ID: p.ID, Email: p.Email}
}

func (p sessionPayload) session() *Session {
	if p.AccessToken == "" {
		return nil
	}
	return &Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    p.ExpiresIn,
		User:         p.user(),
	}
}

type errorPayload struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (p errorPayload) text() string {
	return firstNonEmpty(p.Msg, p.ErrorDescription, p.Message, p.Error)
}

// GetUser resolves an access token to its user.
func (c *Client) GetUser(ctx context.Context, token string) (User, error) {
	if !c.configured {
		return User{}, ErrNotConfigured
	}

	var payload userPayload
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&payload).
		Get("/user")
	if err != nil {
		return User{}, apperr.Store("identity get user", err)
	}
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return User{}, ErrInvalidToken
	case resp.IsError():
		return User{}, unexpected("get user", resp)
	}

	user := payload.toUser()
	if user.ID == "" {
		return User{}, ErrInvalidToken
	}
	return user, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrInvalidCredentials
	}
	if !c.configured {
		return nil, ErrNotConfigured
	}

	var payload sessionPayload
	var failure errorPayload
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&payload).
		SetError(&failure).
		Post("/token")
	if err != nil {
		return nil, apperr.Store("identity sign in", err)
	}
	switch resp.StatusCode() {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity:
		return nil, ErrInvalidCredentials
	}
	if resp.IsError() {
		return nil, unexpected("sign in", resp)
	}

	session := payload.session()
	if session == nil || session.User.ID == "" {
		return nil, unexpected("sign in", resp)
	}
	c.notify(EventSignedIn, session.User)
	return session, nil
}

// SignUp registers a user. The session is nil when the project requires
// e-mail confirmation first.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (User, *Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, nil, ErrEmailRequired
	}
	if len(password) < 6 {
		return User{}, nil, ErrPasswordTooShort
	}
	if !c.configured {
		return User{}, nil, ErrNotConfigured
	}

	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var payload sessionPayload
	var failure errorPayload
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&payload).
		SetError(&failure).
		Post("/signup")
	if err != nil {
		return User{}, nil, apperr.Store("identity sign up", err)
	}
	switch resp.StatusCode() {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		message := failure.text()
		if message == "" {
			message = ErrSignUpRejected.Message
		}
		return User{}, nil, apperr.New(apperr.ErrValidation, ErrSignUpRejected.Code, message)
	}
	if resp.IsError() {
		return User{}, nil, unexpected("sign up", resp)
	}

	user := payload.user()
	session := payload.session()
	if session != nil {
		c.notify(EventSignedIn, session.User)
	}
	return user, session, nil
}

// SignOut revokes the token. A token the provider already rejects counts
// as signed out.
func (c *Client) SignOut(ctx context.Context, user User, token string) error {
	if !c.configured {
		c.notify(EventSignedOut, user)
		return nil
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(token).
		Post("/logout")
	if err != nil {
		return apperr.Store("identity sign out", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusUnauthorized && resp.StatusCode() != http.StatusForbidden {
		return unexpected("sign out", resp)
	}

	c.notify(EventSignedOut, user)
	return nil
}

// OAuthURL builds the provider redirect with a fresh PKCE verifier.
func (c *Client) OAuthURL(provider, redirectTo string) (OAuthStart, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if _, ok := supportedProviders[provider]; !ok {
		return OAuthStart{}, ErrUnsupportedProvider
	}
	if redirectTo != "" {
		parsed, err := url.Parse(redirectTo)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return OAuthStart{}, ErrInvalidRedirect
		}
	}
	if !c.configured {
		return OAuthStart{}, ErrNotConfigured
	}

	verifier := oauth2.GenerateVerifier()
	query := url.Values{}
	query.Set("provider", provider)
	query.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	query.Set("code_challenge_method", "s256")
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}

	return OAuthStart{
		URL:      c.baseURL + "/auth/v1/authorize?" + query.Encode(),
		Verifier: verifier,
	}, nil
}

func (c *Client) ExchangeCode(ctx context.Context, authCode, verifier string) (*Session, error) {
	authCode = strings.TrimSpace(authCode)
	verifier = strings.TrimSpace(verifier)
	if authCode == "" || verifier == "" {
		return nil, ErrInvalidCode
	}
	if !c.configured {
		return nil, ErrNotConfigured
	}

	var payload sessionPayload
	var failure errorPayload
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "pkce").
		SetBody(map[string]string{"auth_code": authCode, "code_verifier": verifier}).
		SetResult(&payload).
		SetError(&failure).
		Post("/token")
	if err != nil {
		return nil, apperr.Store("identity exchange code", err)
	}
	switch resp.StatusCode() {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity:
		return nil, ErrInvalidCode
	}
	if resp.IsError() {
		return nil, unexpected("exchange code", resp)
	}

	session := payload.session()
	if session == nil || session.User.ID == "" {
		return nil, unexpected("exchange code", resp)
	}
	c.notify(EventSignedIn, session.User)
	return session, nil
}

// OnAuthStateChange registers fn for sign-in and sign-out events. The
// returned function removes it.
func (c *Client) OnAuthStateChange(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) notify(event Event, user User) {
	c.mu.RLock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(event, user)
	}
}

func unexpected(op string, resp *resty.Response) error {
	return fmt.Errorf("%w: %s returned %d", ErrProviderUnavailable, op, resp.StatusCode())
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func stringFromMap(values map[string]any, key string) string {
	if values == nil {
		return ""
	}
	value, ok := values[key].(string)
	if !ok {
		return ""
	}
	return value
}
