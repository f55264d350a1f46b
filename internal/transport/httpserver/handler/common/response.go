package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"babyhabits/internal/domain/apperr"
	"babyhabits/internal/identity"
	"babyhabits/internal/transport/httpserver/middleware"
	"babyhabits/pkg/logger"
)

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, code, message)
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	writeJSON(w, status, payload)
}

func DecodeJSON(r *http.Request, dst interface{}) error {
	return decodeJSON(r, dst)
}

func WriteInvalidJSON(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
}

// CurrentUser writes a 401 and returns false when the request carries no
// authenticated user.
func CurrentUser(w http.ResponseWriter, r *http.Request) (middleware.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return middleware.User{}, false
	}
	return user, true
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, identity.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteDomainError logs err under scope and writes the error envelope.
// Expected failures are business errors; everything else is internal and
// its details stay in the log.
func WriteDomainError(w http.ResponseWriter, log logger.Logger, scope string, err error, args ...any) {
	status := StatusOf(err)
	code := apperr.CodeOf(err, "internal_error")
	message := apperr.MessageOf(err, "internal error")

	if status >= http.StatusInternalServerError {
		log.InternalError(scope+": failed", err, args...)
		if code == "store_error" || code == "internal_error" {
			code = "internal_error"
			message = "internal error"
		}
		writeError(w, status, code, message)
		return
	}

	log.BusinessError(scope+": "+code, err, args...)
	writeError(w, status, code, message)
}
