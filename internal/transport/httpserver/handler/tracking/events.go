package tracking

import (
	"net/http"

	babydomain "babyhabits/internal/domain/baby"
	trackingdomain "babyhabits/internal/domain/tracking"
	"babyhabits/internal/transport/httpserver/handler/common"
	"github.com/go-chi/chi/v5"
)

type addDiaperRequest struct {
	Type     string `json:"type"`
	Color    string `json:"color"`
	Texture  string `json:"texture"`
	HasMucus *bool  `json:"has_mucus"`
	Note     string `json:"note"`
}

type addWeightRequest struct {
	Grams float64 `json:"grams"`
	Note  string  `json:"note"`
}

func (h *Handlers) AddDiaper(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.add_diaper", babydomain.ActionTrack)
	if !ok {
		return
	}

	var req addDiaperRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}

	var details *trackingdomain.DiaperDetails
	if req.Color != "" || req.Texture != "" || req.HasMucus != nil {
		details = &trackingdomain.DiaperDetails{
			Color:    req.Color,
			Texture:  req.Texture,
			HasMucus: req.HasMucus,
		}
	}

	event, err := s.tracker.AddDiaper(r.Context(), trackingdomain.DiaperType(req.Type), details, req.Note)
	if err != nil {
		common.WriteDomainError(w, h.log, "tracking.add_diaper", err, "user_id", s.user.ID, "baby_id", s.babyID)
		return
	}
	common.WriteJSON(w, http.StatusCreated, toDiaperResponse(*event))
}

func (h *Handlers) AddWeight(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.add_weight", babydomain.ActionTrack)
	if !ok {
		return
	}

	var req addWeightRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}
	grams, err := trackingdomain.ParseGrams(req.Grams)
	if err != nil {
		common.WriteDomainError(w, h.log, "tracking.add_weight", err, "user_id", s.user.ID, "baby_id", s.babyID)
		return
	}

	entry, err := s.tracker.AddWeight(r.Context(), grams, req.Note)
	if err != nil {
		common.WriteDomainError(w, h.log, "tracking.add_weight", err, "user_id", s.user.ID, "baby_id", s.babyID)
		return
	}
	common.WriteJSON(w, http.StatusCreated, toWeightResponse(*entry))
}

func (h *Handlers) UpdateNote(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.update_note", babydomain.ActionTrack)
	if !ok {
		return
	}
	kind := trackingdomain.EventKind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "id")

	var req noteRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}

	if err := s.tracker.UpdateNote(r.Context(), kind, id, req.Note); err != nil {
		common.WriteDomainError(w, h.log, "tracking.update_note", err, "user_id", s.user.ID, "baby_id", s.babyID, "kind", kind, "id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.delete_event", babydomain.ActionTrack)
	if !ok {
		return
	}
	kind := trackingdomain.EventKind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "id")

	if err := s.tracker.DeleteEvent(r.Context(), kind, id); err != nil {
		common.WriteDomainError(w, h.log, "tracking.delete_event", err, "user_id", s.user.ID, "baby_id", s.babyID, "kind", kind, "id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
