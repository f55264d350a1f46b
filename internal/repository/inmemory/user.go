package inmemory

import (
	"context"
	"time"

	userdomain "babyhabits/internal/domain/user"
)

type UserRepository struct {
	session
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{session: session{store: store}}
}

func (r *UserRepository) UpsertProfile(ctx context.Context, profile *userdomain.Profile) error {
	defer r.lock()()
	now := time.Now().UTC()
	existing, ok := r.store.state.profiles[profile.UserID]
	if !ok {
		stored := *profile
		stored.CreatedAt = now
		stored.UpdatedAt = now
		r.store.state.profiles[profile.UserID] = stored
		return nil
	}
	if profile.Email != nil {
		existing.Email = profile.Email
	}
	if profile.Name != nil {
		existing.Name = profile.Name
	}
	if profile.AvatarURL != nil {
		existing.AvatarURL = profile.AvatarURL
	}
	existing.UpdatedAt = now
	r.store.state.profiles[profile.UserID] = existing
	return nil
}

func (r *UserRepository) GetProfile(ctx context.Context, userID string) (*userdomain.Profile, error) {
	defer r.lock()()
	profile, ok := r.store.state.profiles[userID]
	if !ok {
		return nil, userdomain.ErrProfileNotFound
	}
	return &profile, nil
}
