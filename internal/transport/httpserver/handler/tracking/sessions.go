package tracking

import (
	"net/http"
	"strings"

	babydomain "babyhabits/internal/domain/baby"
	trackingdomain "babyhabits/internal/domain/tracking"
	"babyhabits/internal/transport/httpserver/handler/common"
	"github.com/go-chi/chi/v5"
)

type startFeedingRequest struct {
	Kind   string   `json:"kind"`
	Side   *string  `json:"side"`
	Breast *string  `json:"breast"`
	Amount *float64 `json:"amount"`
	Note   string   `json:"note"`
}

type stopRequest struct {
	SessionID string `json:"session_id"`
	Note      string `json:"note"`
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *Handlers) Today(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.today", babydomain.ActionView)
	if !ok {
		return
	}

	data, stats, err := s.tracker.Snapshot(r.Context())
	if err != nil {
		common.WriteDomainError(w, h.log, "tracking.today", err, "user_id", s.user.ID, "baby_id", s.babyID)
		return
	}
	common.WriteJSON(w, http.StatusOK, toTodayResponse(data, stats, s.tracker.CurrentFeeding(), s.tracker.CurrentSleep()))
}

func (h *Handlers) StartFeeding(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.start_feeding", babydomain.ActionTrack)
	if !ok {
		return
	}

	var req startFeedingRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}
	start, err := req.toFeedingStart()
	if err != nil {
		common.WriteDomainError(w, h.log, "tracking.start_feeding", err, "user_id", s.user.ID, "baby_id", s.babyID)
		return
	}

	session, err := s.tracker.StartFeeding(r.Context(), start)
	if err != nil {
		common.WriteDomainError(w, h.log, "tracking.start_feeding", err, "user_id", s.user.ID, "baby_id", s.babyID)
		return
	}
	common.WriteJSON(w, http.StatusCreated, toFeedingResponse(*session))
}

// StopFeeding ends the session named in the body, or the open one when
// the body carries no id.
func (h *Handlers) StopFeeding(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.stop_feeding", babydomain.ActionTrack)
	if !ok {
		return
	}

	var req stopRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}

	session, err := s.tracker.EndFeeding(r.Context(), req.SessionID, req.Note)
	if err != nil {
		common.WriteDomainError(w, h.log, "tracking.stop_feeding", err, "user_id", s.user.ID, "baby_id", s.babyID, "session_id", req.SessionID)
		return
	}
	common.WriteJSON(w, http.StatusOK, toFeedingResponse(*session))
}

func (h *Handlers) StartSleep(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.start_sleep", babydomain.ActionTrack)
	if !ok {
		return
	}

	var req noteRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}

	session, err := s.tracker.StartSleep(r.Context(), req.Note)
	if err != nil {
		common.WriteDomainError(w, h.log, "tracking.start_sleep", err, "user_id", s.user.ID, "baby_id", s.babyID)
		return
	}
	common.WriteJSON(w, http.StatusCreated, toSleepResponse(*session))
}

func (h *Handlers) StopSleep(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.stop_sleep", babydomain.ActionTrack)
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "session_id")

	var req noteRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}

	session, err := s.tracker.EndSleep(r.Context(), sessionID, req.Note)
	if err != nil {
		common.WriteDomainError(w, h.log, "tracking.stop_sleep", err, "user_id", s.user.ID, "baby_id", s.babyID, "session_id", sessionID)
		return
	}
	common.WriteJSON(w, http.StatusOK, toSleepResponse(*session))
}

func (h *Handlers) Reap(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.reap", babydomain.ActionTrack)
	if !ok {
		return
	}
	reaped := s.tracker.ReapStaleSessions(r.Context())
	common.WriteJSON(w, http.StatusOK, map[string]bool{"reaped": reaped})
}

// toFeedingStart accepts "breast" as an older name for "side" and infers
// the kind from the side when it is omitted.
func (req startFeedingRequest) toFeedingStart() (trackingdomain.FeedingStart, error) {
	start := trackingdomain.FeedingStart{
		Kind:   trackingdomain.FeedingKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Amount: req.Amount,
		Note:   req.Note,
	}

	raw := req.Side
	if raw == nil || strings.TrimSpace(*raw) == "" {
		raw = req.Breast
	}
	if raw != nil && strings.TrimSpace(*raw) != "" {
		side, ok := trackingdomain.ParseSide(*raw)
		if !ok {
			return trackingdomain.FeedingStart{}, trackingdomain.ErrInvalidSide
		}
		start.Side = &side
	}

	if start.Kind == "" {
		start.Kind = trackingdomain.KindBreastfeeding
		if start.Side != nil {
			switch *start.Side {
			case trackingdomain.SideBottle:
				start.Kind = trackingdomain.KindBottle
			case trackingdomain.SideFood:
				start.Kind = trackingdomain.KindFood
			}
		}
	}
	return start, nil
}

func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return common.DecodeJSON(r, dst)
}
