package babies

import (
	"net/http"
	"time"

	"babyhabits/internal/transport/httpserver/handler/common"
	"github.com/go-chi/chi/v5"
)

type inviteCaregiverRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type createInviteLinkRequest struct {
	Role           string `json:"role"`
	Uses           int    `json:"uses"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (h *Handlers) ListCaregivers(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	list, err := h.Babies.ListCaregivers(r.Context(), user.ID, babyID)
	if err != nil {
		common.WriteDomainError(w, h.log, "caregivers.list", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	common.WriteJSON(w, http.StatusOK, toCaregiversResponse(list))
}

func (h *Handlers) InviteCaregiver(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	var req inviteCaregiverRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}

	pending, err := h.Babies.InviteCaregiverByEmail(r.Context(), user.ID, user.Email, babyID, req.Email, req.Role)
	if err != nil {
		common.WriteDomainError(w, h.log, "caregivers.invite", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	common.WriteJSON(w, http.StatusCreated, toPendingResponse(*pending))
}

func (h *Handlers) UpdateCaregiverRole(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")
	targetID := chi.URLParam(r, "user_id")

	var req updateRoleRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}

	if err := h.Babies.UpdateCaregiverRole(r.Context(), user.ID, babyID, targetID, req.Role); err != nil {
		common.WriteDomainError(w, h.log, "caregivers.update_role", err, "user_id", user.ID, "baby_id", babyID, "target_id", targetID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) RemoveCaregiver(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")
	targetID := chi.URLParam(r, "user_id")

	if err := h.Babies.RemoveCaregiver(r.Context(), user.ID, babyID, targetID); err != nil {
		common.WriteDomainError(w, h.log, "caregivers.remove", err, "user_id", user.ID, "baby_id", babyID, "target_id", targetID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CreateInviteLink(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")

	var req createInviteLinkRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}
	ttl := time.Duration(req.ExpiresInHours) * time.Hour
	invitation, err := h.Babies.CreateInviteLink(r.Context(), user.ID, babyID, req.Role, req.Uses, ttl)
	if err != nil {
		common.WriteDomainError(w, h.log, "invitations.create", err, "user_id", user.ID, "baby_id", babyID)
		return
	}
	common.WriteJSON(w, http.StatusCreated, h.toInvitationResponse(invitation))
}

func (h *Handlers) CancelPendingInvite(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}
	babyID := chi.URLParam(r, "baby_id")
	pendingID := chi.URLParam(r, "pending_id")

	if err := h.Babies.CancelPendingInvite(r.Context(), user.ID, babyID, pendingID); err != nil {
		common.WriteDomainError(w, h.log, "invitations.cancel", err, "user_id", user.ID, "baby_id", babyID, "pending_id", pendingID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RedeemInvitation joins the caregiver list of the invited baby and makes
// it the current selection.
func (h *Handlers) RedeemInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := common.CurrentUser(w, r)
	if !ok {
		return
	}

	var req redeemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteInvalidJSON(w)
		return
	}

	baby, err := h.Babies.RedeemInvitation(r.Context(), user.ID, req.Code)
	if err != nil {
		common.WriteDomainError(w, h.log, "invitations.redeem", err, "user_id", user.ID)
		return
	}
	if err := h.Preferences.SetCurrentBaby(r.Context(), user.ID, baby.ID); err != nil {
		h.log.Warn("invitations.redeem: select baby failed", "user_id", user.ID, "baby_id", baby.ID, "err", err)
	}
	common.WriteJSON(w, http.StatusOK, toBabyResponse(*baby))
}
