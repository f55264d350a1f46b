package tracking

import "babyhabits/internal/domain/apperr"

var (
	ErrFeedingAlreadyOpen   = apperr.New(apperr.ErrConflict, "feeding_already_open", "a feeding session is already open")
	ErrSleepAlreadyOpen     = apperr.New(apperr.ErrConflict, "sleep_already_open", "a sleep session is already open")
	ErrSessionAlreadyClosed = apperr.New(apperr.ErrConflict, "session_already_closed", "session already closed")

	ErrNoOpenFeeding   = apperr.New(apperr.ErrNotFound, "no_open_feeding", "no open feeding session")
	ErrFeedingNotFound = apperr.New(apperr.ErrNotFound, "feeding_not_found", "feeding session not found")
	ErrSleepNotFound   = apperr.New(apperr.ErrNotFound, "sleep_not_found", "sleep session not found")
	ErrDiaperNotFound  = apperr.New(apperr.ErrNotFound, "diaper_not_found", "diaper event not found")
	ErrWeightNotFound  = apperr.New(apperr.ErrNotFound, "weight_not_found", "weight entry not found")

	ErrSessionIDRequired      = apperr.New(apperr.ErrValidation, "session_id_required", "session id is required")
	ErrInvalidFeedingKind     = apperr.New(apperr.ErrValidation, "invalid_feeding_kind", "kind must be breastfeeding, bottle or food")
	ErrInvalidSide            = apperr.New(apperr.ErrValidation, "invalid_side", "side does not match feeding kind")
	ErrInvalidAmount          = apperr.New(apperr.ErrValidation, "invalid_amount", "amount must be positive and is not allowed for breastfeeding")
	ErrInvalidDiaperType      = apperr.New(apperr.ErrValidation, "invalid_diaper_type", "type must be wet, dirty or mixed")
	ErrDiaperDetailsNotWet    = apperr.New(apperr.ErrValidation, "diaper_details_not_allowed", "stool details are only accepted for dirty or mixed diapers")
	ErrInvalidDiaperColor     = apperr.New(apperr.ErrValidation, "invalid_diaper_color", "unknown stool color")
	ErrInvalidDiaperTexture   = apperr.New(apperr.ErrValidation, "invalid_diaper_texture", "unknown stool texture")
	ErrInvalidWeight          = apperr.New(apperr.ErrValidation, "invalid_weight", "grams must be a positive integer")
	ErrInvalidEventKind       = apperr.New(apperr.ErrValidation, "invalid_event_kind", "unknown event kind")
	ErrEventNotDeletable      = apperr.New(apperr.ErrValidation, "event_not_deletable", "sessions cannot be deleted")
	ErrInvalidHistoryInterval = apperr.New(apperr.ErrValidation, "invalid_interval", "from must be before to")
)
