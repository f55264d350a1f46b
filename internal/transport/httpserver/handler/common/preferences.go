package common

import "net/http"

type preferencesResponse struct {
	DarkMode bool `json:"dark_mode"`
}

type updatePreferencesRequest struct {
	DarkMode *bool `json:"dark_mode"`
}

func (h *Handlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(w, r)
	if !ok {
		return
	}

	settings, err := h.Preferences.Settings(r.Context(), user.ID)
	if err != nil {
		WriteDomainError(w, h.log, "preferences.get", err, "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, preferencesResponse{DarkMode: settings.DarkMode})
}

func (h *Handlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(w, r)
	if !ok {
		return
	}

	var req updatePreferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteInvalidJSON(w)
		return
	}
	if req.DarkMode == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "dark_mode is required")
		return
	}

	if err := h.Preferences.SetDarkMode(r.Context(), user.ID, *req.DarkMode); err != nil {
		WriteDomainError(w, h.log, "preferences.update", err, "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, preferencesResponse{DarkMode: *req.DarkMode})
}
