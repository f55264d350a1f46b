package common

import (
	"context"

	"babyhabits/internal/domain/preferences"
	userdomain "babyhabits/internal/domain/user"
	"babyhabits/internal/identity"
	"babyhabits/pkg/logger"
)

// IdentityProvider is the subset of the identity client the auth endpoints use.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (identity.User, *identity.Session, error)
	SignOut(ctx context.Context, user identity.User, token string) error
	OAuthURL(provider, redirectTo string) (identity.OAuthStart, error)
	ExchangeCode(ctx context.Context, authCode, verifier string) (*identity.Session, error)
}

type Handlers struct {
	Identity    IdentityProvider
	Users       *userdomain.Service
	Preferences *preferences.Service
	log         logger.Logger
}

func New(identity IdentityProvider, users *userdomain.Service, prefs *preferences.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Identity:    identity,
		Users:       users,
		Preferences: prefs,
		log:         log,
	}
}
