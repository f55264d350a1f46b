package baby

import "babyhabits/internal/domain/apperr"

var (
	ErrBabyNotFound          = apperr.New(apperr.ErrNotFound, "baby_not_found", "baby not found")
	ErrCaregiverNotFound     = apperr.New(apperr.ErrNotFound, "caregiver_not_found", "caregiver not found")
	ErrInvitationNotFound    = apperr.New(apperr.ErrNotFound, "invitation_not_found", "invitation code not found")
	ErrPendingInviteNotFound = apperr.New(apperr.ErrNotFound, "pending_invite_not_found", "pending invite not found")

	ErrNameRequired        = apperr.New(apperr.ErrValidation, "name_required", "name is required")
	ErrBirthdateRequired   = apperr.New(apperr.ErrValidation, "birthdate_required", "birthdate is required")
	ErrInvalidGender       = apperr.New(apperr.ErrValidation, "invalid_gender", "gender must be male, female, other or unspecified")
	ErrInvalidMeasurement  = apperr.New(apperr.ErrValidation, "invalid_measurement", "birth weight and height must be positive")
	ErrInvalidRole         = apperr.New(apperr.ErrValidation, "invalid_role", "role must be admin, collaborator or viewer")
	ErrInvalidEmail        = apperr.New(apperr.ErrValidation, "invalid_email", "invalid email address")
	ErrInvalidUses         = apperr.New(apperr.ErrValidation, "invalid_uses", "uses must be at least 1")
	ErrInvalidTTL          = apperr.New(apperr.ErrValidation, "invalid_ttl", "expiry must be positive")
	ErrCodeRequired        = apperr.New(apperr.ErrValidation, "code_required", "invitation code is required")
	ErrInvitationExpired   = apperr.New(apperr.ErrValidation, "invitation_expired", "invitation has expired")
	ErrInvitationExhausted = apperr.New(apperr.ErrValidation, "invitation_exhausted", "invitation has no uses left")

	ErrAlreadyCaregiver     = apperr.New(apperr.ErrConflict, "already_caregiver", "already a caregiver for this baby")
	ErrInviteAlreadyPending = apperr.New(apperr.ErrConflict, "invite_already_pending", "an invite for this email is already pending")
	ErrLastAdmin            = apperr.New(apperr.ErrConflict, "last_admin", "a baby must keep at least one admin")

	ErrNotCaregiver = apperr.New(apperr.ErrForbidden, "not_caregiver", "not a caregiver for this baby")
	ErrNotAllowed   = apperr.New(apperr.ErrForbidden, "not_allowed", "role does not allow this action")

	ErrCodeGenerationFailed = apperr.New(apperr.ErrStore, "code_generation_failed", "invitation code generation failed")
)
