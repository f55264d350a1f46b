package preferences

import (
	"context"
	"strconv"
	"strings"

	"babyhabits/internal/domain/apperr"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type Settings struct {
	DarkMode bool
}

func (s *Service) Settings(ctx context.Context, userID string) (Settings, error) {
	value, ok, err := s.store.Get(ctx, userID, KeyDarkMode)
	if err != nil {
		return Settings{}, apperr.Store("get preferences", err)
	}
	if !ok {
		return Settings{}, nil
	}
	darkMode, _ := strconv.ParseBool(value)
	return Settings{DarkMode: darkMode}, nil
}

func (s *Service) SetDarkMode(ctx context.Context, userID string, enabled bool) error {
	return s.set(ctx, userID, KeyDarkMode, strconv.FormatBool(enabled))
}

func (s *Service) LastSide(ctx context.Context, userID, babyID string) (string, error) {
	return s.get(ctx, userID, lastSideKey(babyID))
}

func (s *Service) SetLastSide(ctx context.Context, userID, babyID, side string) error {
	return s.set(ctx, userID, lastSideKey(babyID), side)
}

func (s *Service) PendingInviteCode(ctx context.Context, userID string) (string, error) {
	return s.get(ctx, userID, KeyPendingInviteCode)
}

func (s *Service) SetPendingInviteCode(ctx context.Context, userID, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return s.ClearPendingInviteCode(ctx, userID)
	}
	return s.set(ctx, userID, KeyPendingInviteCode, code)
}

func (s *Service) ClearPendingInviteCode(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, userID, KeyPendingInviteCode); err != nil {
		return apperr.Store("clear pending invite code", err)
	}
	return nil
}

func (s *Service) CurrentBaby(ctx context.Context, userID string) (string, error) {
	return s.get(ctx, userID, KeyCurrentBaby)
}

func (s *Service) SetCurrentBaby(ctx context.Context, userID, babyID string) error {
	if babyID == "" {
		if err := s.store.Delete(ctx, userID, KeyCurrentBaby); err != nil {
			return apperr.Store("clear current baby", err)
		}
		return nil
	}
	return s.set(ctx, userID, KeyCurrentBaby, babyID)
}

func (s *Service) get(ctx context.Context, userID, key string) (string, error) {
	value, _, err := s.store.Get(ctx, userID, key)
	if err != nil {
		return "", apperr.Store("get preference "+key, err)
	}
	return value, nil
}

func (s *Service) set(ctx context.Context, userID, key, value string) error {
	if err := s.store.Set(ctx, userID, key, value); err != nil {
		return apperr.Store("set preference "+key, err)
	}
	return nil
}
