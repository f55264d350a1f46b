package identity

import "babyhabits/internal/domain/apperr"

var (
	ErrInvalidToken        = apperr.New(apperr.ErrAuth, "invalid_token", "invalid token")
	ErrInvalidCredentials  = apperr.New(apperr.ErrAuth, "invalid_credentials", "invalid email or password")
	ErrInvalidCode         = apperr.New(apperr.ErrAuth, "invalid_auth_code", "authorization code rejected")
	ErrEmailRequired       = apperr.New(apperr.ErrValidation, "email_required", "email is required")
	ErrPasswordTooShort    = apperr.New(apperr.ErrValidation, "password_too_short", "password must be at least 6 characters")
	ErrUnsupportedProvider = apperr.New(apperr.ErrValidation, "unsupported_provider", "unsupported oauth provider")
	ErrInvalidRedirect     = apperr.New(apperr.ErrValidation, "invalid_redirect", "redirect_to must be an absolute http(s) url")
	ErrSignUpRejected      = apperr.New(apperr.ErrValidation, "signup_rejected", "sign up rejected")
	ErrNotConfigured       = apperr.New(apperr.ErrStore, "auth_not_configured", "identity provider not configured")
	ErrProviderUnavailable = apperr.New(apperr.ErrStore, "identity_unavailable", "identity provider unavailable")
)
