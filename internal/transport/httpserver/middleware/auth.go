package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"babyhabits/internal/config"
	"babyhabits/internal/domain/apperr"
	userdomain "babyhabits/internal/domain/user"
	"babyhabits/internal/identity"
	"babyhabits/pkg/logger"
)

// TokenVerifier checks a token without calling the identity provider.
type TokenVerifier interface {
	Verify(token string) (identity.User, error)
}

// UserResolver asks the identity provider who owns a token.
type UserResolver interface {
	GetUser(ctx context.Context, token string) (identity.User, error)
}

type ProfileSaver interface {
	SaveIdentity(ctx context.Context, identity userdomain.Identity) error
}

type SupabaseAuth struct {
	verifier TokenVerifier
	resolver UserResolver
	profiles ProfileSaver
	skipAuth bool
	mockUser User
	log      logger.Logger
}

type contextKey int

const (
	userIDKey contextKey = iota
	userKey
	tokenKey
)

type User struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

// NewSupabaseAuth builds the auth middleware. verifier may be nil, in which
// case every token is resolved through the provider.
func NewSupabaseAuth(cfg config.SupabaseConfig, verifier TokenVerifier, resolver UserResolver, profiles ProfileSaver, log logger.Logger) *SupabaseAuth {
	if v, ok := verifier.(*identity.Verifier); ok && v == nil {
		verifier = nil
	}
	return &SupabaseAuth{
		verifier: verifier,
		resolver: resolver,
		profiles: profiles,
		skipAuth: cfg.SkipAuth,
		mockUser: User{
			ID:        strings.TrimSpace(cfg.MockUserID),
			Email:     strings.TrimSpace(cfg.MockUserEmail),
			Name:      strings.TrimSpace(cfg.MockUserName),
			AvatarURL: strings.TrimSpace(cfg.MockUserAvatar),
		},
		log: log,
	}
}

func (a *SupabaseAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			user := a.mockUser
			if user.ID == "" {
				writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth mock user id not configured")
				return
			}
			a.saveProfile(r.Context(), user)
			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w)
			return
		}

		user, err := a.authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrNotConfigured):
				a.log.InternalError("auth: identity provider not configured", err)
				writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth not configured")
			case errors.Is(err, apperr.ErrStore):
				a.log.InternalError("auth: identity provider unavailable", err)
				writeError(w, http.StatusServiceUnavailable, "auth_unavailable", "identity provider unavailable")
			default:
				unauthorized(w)
			}
			return
		}

		a.saveProfile(r.Context(), user)
		ctx := WithToken(WithUser(r.Context(), user), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate prefers local verification and falls back to the provider
// when no secret is configured.
func (a *SupabaseAuth) authenticate(ctx context.Context, token string) (User, error) {
	var (
		resolved identity.User
		err      error
	)
	switch {
	case a.verifier != nil:
		resolved, err = a.verifier.Verify(token)
	case a.resolver != nil:
		resolved, err = a.resolver.GetUser(ctx, token)
	default:
		return User{}, identity.ErrNotConfigured
	}
	if err != nil {
		return User{}, err
	}
	if resolved.ID == "" {
		return User{}, identity.ErrInvalidToken
	}
	return FromIdentity(resolved), nil
}

func (a *SupabaseAuth) saveProfile(ctx context.Context, user User) {
	if a.profiles == nil {
		return
	}
	err := a.profiles.SaveIdentity(ctx, userdomain.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	})
	if err != nil {
		a.log.Warn("auth: upsert profile failed", "user_id", user.ID, "err", err)
	}
}

func FromIdentity(user identity.User) User {
	return User{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
}

func bearerToken(value string) (string, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
}

func WithUser(ctx context.Context, user User) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, userIDKey, user.ID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func UserFromContext(ctx context.Context) (User, bool) {
	value := ctx.Value(userKey)
	user, ok := value.(User)
	if !ok || user.ID == "" {
		return User{}, false
	}
	return user, true
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(userIDKey)
	userID, ok := value.(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// TokenFromContext is empty for the skip-auth mock user.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
