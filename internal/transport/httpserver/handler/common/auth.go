package common

import (
	"errors"
	"net/http"
	"strings"

	userdomain "babyhabits/internal/domain/user"
	"babyhabits/internal/identity"
	"babyhabits/internal/transport/httpserver/middleware"
	"github.com/go-chi/chi/v5"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code"`
}

type exchangeRequest struct {
	Code     string `json:"code"`
	Verifier string `json:"verifier"`
}

type authMeResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type sessionResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	TokenType    string         `json:"token_type,omitempty"`
	ExpiresIn    int            `json:"expires_in,omitempty"`
	User         authMeResponse `json:"user"`
}

type signUpResponse struct {
	User    authMeResponse   `json:"user"`
	Session *sessionResponse `json:"session"`
	// confirmation_required is true when the provider sent a confirmation
	// e-mail instead of opening a session.
	ConfirmationRequired bool `json:"confirmation_required"`
}

type oauthStartResponse struct {
	URL      string `json:"url"`
	Verifier string `json:"verifier"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) AuthMe(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(w, r)
	if !ok {
		return
	}

	response := authMeResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
	if h.Users != nil {
		profile, err := h.Users.Profile(r.Context(), user.ID)
		switch {
		case err == nil:
			fillFromProfile(&response, profile)
		case !errors.Is(err, userdomain.ErrProfileNotFound):
			h.log.Warn("auth.me: read profile failed", "user_id", user.ID, "err", err)
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteInvalidJSON(w)
		return
	}

	session, err := h.Identity.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteDomainError(w, h.log, "auth.signin", err, "email", strings.ToLower(strings.TrimSpace(req.Email)))
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// SignUp registers a user. An invite code is kept as the user's pending
// invitation and redeemed the next time their babies are loaded.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteInvalidJSON(w)
		return
	}

	var metadata map[string]any
	if name := strings.TrimSpace(req.Name); name != "" {
		metadata = map[string]any{"name": name}
	}

	user, session, err := h.Identity.SignUp(r.Context(), req.Email, req.Password, metadata)
	if err != nil {
		WriteDomainError(w, h.log, "auth.signup", err, "email", strings.ToLower(strings.TrimSpace(req.Email)))
		return
	}

	if code := strings.TrimSpace(req.InviteCode); code != "" && user.ID != "" {
		if err := h.Preferences.SetPendingInviteCode(r.Context(), user.ID, code); err != nil {
			h.log.Warn("auth.signup: store pending invite failed", "user_id", user.ID, "err", err)
		}
	}

	response := signUpResponse{
		User:                 toAuthMe(user),
		ConfirmationRequired: session == nil,
	}
	if session != nil {
		converted := toSessionResponse(session)
		response.Session = &converted
	}
	writeJSON(w, http.StatusCreated, response)
}

func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(w, r)
	if !ok {
		return
	}

	err := h.Identity.SignOut(r.Context(), identity.User{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}, middleware.TokenFromContext(r.Context()))
	if err != nil {
		WriteDomainError(w, h.log, "auth.signout", err, "user_id", user.ID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) OAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	start, err := h.Identity.OAuthURL(provider, r.URL.Query().Get("redirect_to"))
	if err != nil {
		WriteDomainError(w, h.log, "auth.oauth_start", err, "provider", provider)
		return
	}
	writeJSON(w, http.StatusOK, oauthStartResponse{URL: start.URL, Verifier: start.Verifier})
}

func (h *Handlers) OAuthExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteInvalidJSON(w)
		return
	}

	session, err := h.Identity.ExchangeCode(r.Context(), req.Code, req.Verifier)
	if err != nil {
		WriteDomainError(w, h.log, "auth.oauth_exchange", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func toAuthMe(user identity.User) authMeResponse {
	return authMeResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
}

func toSessionResponse(session *identity.Session) sessionResponse {
	return sessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    session.TokenType,
		ExpiresIn:    session.ExpiresIn,
		User:         toAuthMe(session.User),
	}
}

func fillFromProfile(response *authMeResponse, profile *userdomain.Profile) {
	if response.Email == "" && profile.Email != nil {
		response.Email = *profile.Email
	}
	if response.Name == "" && profile.Name != nil {
		response.Name = *profile.Name
	}
	if response.AvatarURL == "" && profile.AvatarURL != nil {
		response.AvatarURL = *profile.AvatarURL
	}
}
