package user

import "babyhabits/internal/domain/apperr"

var (
	ErrUserIDRequired  = apperr.New(apperr.ErrValidation, "user_id_required", "user id is required")
	ErrProfileNotFound = apperr.New(apperr.ErrNotFound, "profile_not_found", "profile not found")
)
