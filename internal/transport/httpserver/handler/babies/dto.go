package babies

import (
	"errors"
	"time"

	babydomain "babyhabits/internal/domain/baby"
	"babyhabits/internal/transport/httpserver/handler/common"
)

type babyResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Birthdate   *string   `json:"birthdate"`
	Gender      string    `json:"gender"`
	BirthWeight *float64  `json:"birth_weight"`
	BirthHeight *float64  `json:"birth_height"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type babiesResponse struct {
	Babies        []babyResponse `json:"babies"`
	CurrentBabyID *string        `json:"current_baby_id"`
}

type currentBabyResponse struct {
	Baby *babyResponse `json:"baby"`
}

type caregiverResponse struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

type pendingResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	InvitedBy string    `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
}

type caregiversResponse struct {
	Confirmed []caregiverResponse `json:"confirmed"`
	Pending   []pendingResponse   `json:"pending"`
}

type invitationResponse struct {
	Code      string    `json:"code"`
	Role      string    `json:"role"`
	UsesLeft  int       `json:"uses_left"`
	ExpiresAt time.Time `json:"expires_at"`
	Link      string    `json:"link"`
}

func toBabyResponse(baby babydomain.Baby) babyResponse {
	response := babyResponse{
		ID:          baby.ID,
		Name:        baby.Name,
		Gender:      string(baby.Gender),
		BirthWeight: baby.BirthWeight,
		BirthHeight: baby.BirthHeight,
		CreatedBy:   baby.CreatedBy,
		CreatedAt:   baby.CreatedAt,
		UpdatedAt:   baby.UpdatedAt,
	}
	if baby.Birthdate != nil {
		formatted := baby.Birthdate.Format(common.DateLayout)
		response.Birthdate = &formatted
	}
	return response
}

func toBabiesResponse(babies []babydomain.Baby, current *babydomain.Baby) babiesResponse {
	response := babiesResponse{Babies: make([]babyResponse, 0, len(babies))}
	for _, baby := range babies {
		response.Babies = append(response.Babies, toBabyResponse(baby))
	}
	if current != nil {
		id := current.ID
		response.CurrentBabyID = &id
	}
	return response
}

func toCaregiversResponse(list *babydomain.CaregiverList) caregiversResponse {
	response := caregiversResponse{
		Confirmed: make([]caregiverResponse, 0, len(list.Confirmed)),
		Pending:   make([]pendingResponse, 0, len(list.Pending)),
	}
	for _, caregiver := range list.Confirmed {
		response.Confirmed = append(response.Confirmed, caregiverResponse{
			UserID:    caregiver.UserID,
			Role:      string(caregiver.Role),
			Email:     caregiver.Email,
			AvatarURL: caregiver.AvatarURL,
			CreatedAt: caregiver.CreatedAt,
		})
	}
	for _, pending := range list.Pending {
		response.Pending = append(response.Pending, toPendingResponse(pending))
	}
	return response
}

func toPendingResponse(pending babydomain.PendingCaregiver) pendingResponse {
	return pendingResponse{
		ID:        pending.ID,
		Email:     pending.Email,
		Role:      string(pending.Role),
		InvitedBy: pending.InvitedBy,
		CreatedAt: pending.CreatedAt,
	}
}

func (h *Handlers) toInvitationResponse(invitation *babydomain.Invitation) invitationResponse {
	return invitationResponse{
		Code:      invitation.Code,
		Role:      string(invitation.Role),
		UsesLeft:  invitation.UsesLeft,
		ExpiresAt: invitation.ExpiresAt,
		Link:      h.appBaseURL + "/join?code=" + invitation.Code,
	}
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	parsed, err := common.ParseDateParam(*value, time.UTC)
	if err != nil {
		return nil, errors.New("birthdate must be YYYY-MM-DD")
	}
	return parsed, nil
}
