package user

import (
	"context"
	"strings"

	"babyhabits/internal/domain/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SaveIdentity records the latest e-mail, name and avatar seen for a user so
// caregiver lists can show them. Empty values keep what is stored.
func (s *Service) SaveIdentity(ctx context.Context, identity Identity) error {
	userID := strings.TrimSpace(identity.UserID)
	if userID == "" {
		return ErrUserIDRequired
	}

	profile := Profile{
		UserID:    userID,
		Email:     optional(strings.ToLower(identity.Email)),
		Name:      optional(identity.Name),
		AvatarURL: optional(identity.AvatarURL),
	}
	if err := s.repo.UpsertProfile(ctx, &profile); err != nil {
		return apperr.Store("upsert profile", err)
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, apperr.Store("get profile", err)
	}
	return profile, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
