package babies

import (
	"net/http"

	babydomain "babyhabits/internal/domain/baby"
	"babyhabits/internal/transport/httpserver/handler/common"
	"github.com/go-chi/chi/v5"
)

type createBabyRequest struct {
	Name        string   `json:"name"`
	Birthdate   *string  `json:"birthdate"`
	Gender      string   `json:"gender"`
	BirthWeight *float64 `json:"birth_weight"`
	BirthHeight *float64 `json:"birth_height"`
}

type updateBabyRequest struct {
	Name        *string  `json:"name"`
	Birthdate   *string  `json:"birthdate"`
	Gender      *string  `json:"gender"`
	BirthWeight *float64 `json:"birth_weight"`
	BirthHeight *float64 `json:"birth_height"`
}

type selectBabyRequest struct {
	BabyID string `json:"baby_id"`
}

func (h *Handlers) ListBabies(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}

	babies, current, err := h.registry(user.ID).Load(r.Context())
	if err != nil {
		common.WriteDomainError(w, h.log, "babies.list", err, "user_id", user.ID)
		return
	}
	common.WriteJSON(w, http.StatusOK, toBabiesResponse(babies, current))
}

func (h *Handlers) CreateBaby(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}

	var req createBabyRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}
	birthdate, err := parseDate(req.Birthdate)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	registry := h.registry(user.ID)
	if _, _, err := registry.Load(r.Context()); err != nil {
		common.WriteDomainError(w, h.log, "babies.create", err, "user_id", user.ID)
		return
	}
	baby, err := registry.Add(r.Context(), babydomain.NewBaby{
		Name:        req.Name,
		Birthdate:   birthdate,
		Gender:      req.Gender,
		BirthWeight: req.BirthWeight,
		BirthHeight: req.BirthHeight,
	})
	if err != nil {
		common.WriteDomainError(w, h.log, "babies.create", err, "user_id", user.ID)
		return
	}
	common.WriteJSON(w, http.StatusCreated, toBabyResponse(*baby))
}

func (h *Handlers) GetCurrentBaby(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}

	_, current, err := h.registry(user.ID).Load(r.Context())
	if err != nil {
		common.WriteDomainError(w, h.log, "babies.current", err, "user_id", user.ID)
		return
	}
	common.WriteJSON(w, http.StatusOK, currentResponse(current))
}

// SelectCurrentBaby leaves the selection unchanged for ids the user does
// not care for.
func (h *Handlers) SelectCurrentBaby(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}

	var req selectBabyRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}

	registry := h.registry(user.ID)
	if _, _, err := registry.Load(r.Context()); err != nil {
		common.WriteDomainError(w, h.log, "babies.select", err, "user_id", user.ID)
		return
	}
	current, err := registry.Select(r.Context(), req.BabyID)
	if err != nil {
		common.WriteDomainError(w, h.log, "babies.select", err, "user_id", user.ID, "baby_id", req.BabyID)
		return
	}
	common.WriteJSON(w, http.StatusOK, currentResponse(current))
}

func (h *Handlers) GetBaby(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	baby, err := h.Babies.GetBaby(r.Context(), user.ID, babyID)
	if err != nil {
		common.WriteDomainError(w, h.log, "babies.get", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	common.WriteJSON(w, http.StatusOK, toBabyResponse(*baby))
}

func (h *Handlers) UpdateBaby(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	var req updateBabyRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}
	birthdate, err := parseDate(req.Birthdate)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	baby, err := h.registry(user.ID).Update(r.Context(), babyID, babydomain.BabyUpdate{
		Name:        req.Name,
		Birthdate:   birthdate,
		Gender:      req.Gender,
		BirthWeight: req.BirthWeight,
		BirthHeight: req.BirthHeight,
	})
	if err != nil {
		common.WriteDomainError(w, h.log, "babies.update", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	common.WriteJSON(w, http.StatusOK, toBabyResponse(*baby))
}

func (h *Handlers) DeleteBaby(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	registry := h.registry(user.ID)
	if _, _, err := registry.Load(r.Context()); err != nil {
		common.WriteDomainError(w, h.log, "babies.delete", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	if err := registry.Delete(r.Context(), babyID); err != nil {
		common.WriteDomainError(w, h.log, "babies.delete", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func currentResponse(current *babydomain.Baby) currentBabyResponse {
	if current == nil {
		return currentBabyResponse{}
	}
	response := toBabyResponse(*current)
	return currentBabyResponse{Baby: &response}
}
