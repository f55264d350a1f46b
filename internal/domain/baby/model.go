package baby

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "collaborator"
	RoleViewer       Role = "viewer"
)

// Action is a capability checked by Authorize.
type Action string

const (
	ActionView   Action = "view"
	ActionTrack  Action = "track"
	ActionManage Action = "manage"
)

func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleCollaborator:
		return RoleCollaborator, nil
	case RoleViewer:
		return RoleViewer, nil
	}
	return "", ErrInvalidRole
}

func (r Role) Can(action Action) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleCollaborator:
		return action == ActionView || action == ActionTrack
	case RoleViewer:
		return action == ActionView
	}
	return false
}

type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderOther       Gender = "other"
	GenderUnspecified Gender = "unspecified"
)

// ParseGender maps the legacy client values (boy, girl, m, f) onto the
// stored enum. An empty value is unspecified.
func ParseGender(value string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "male", "boy", "m":
		return GenderMale, nil
	case "female", "girl", "f":
		return GenderFemale, nil
	case "other":
		return GenderOther, nil
	case "", "unspecified", "prefer_not_to_say":
		return GenderUnspecified, nil
	}
	return "", ErrInvalidGender
}

type Baby struct {
	ID          string     `gorm:"type:uuid;primaryKey"`
	Name        string     `gorm:"not null"`
	Birthdate   *time.Time `gorm:"type:date"`
	Gender      Gender     `gorm:"type:varchar(16);not null;default:'unspecified'"`
	BirthWeight *float64   `gorm:"type:numeric(8,2)"`
	BirthHeight *float64   `gorm:"type:numeric(6,2)"`
	CreatedBy   string     `gorm:"type:uuid;not null"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
}

type Caregiver struct {
	BabyID    string    `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"type:uuid;primaryKey;index"`
	Role      Role      `gorm:"type:varchar(16);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// CaregiverProfile is a confirmed caregiver joined with the user profile.
type CaregiverProfile struct {
	UserID    string
	Role      Role
	Email     string
	AvatarURL *string
	CreatedAt time.Time
}

type Invitation struct {
	Code      string    `gorm:"size:8;primaryKey"`
	BabyID    string    `gorm:"type:uuid;index;not null"`
	Role      Role      `gorm:"type:varchar(16);not null"`
	ExpiresAt time.Time `gorm:"not null"`
	UsesLeft  int       `gorm:"not null"`
	CreatedBy string    `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type PendingCaregiver struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	BabyID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_pending_baby_email"`
	Email     string    `gorm:"not null;uniqueIndex:idx_pending_baby_email"`
	Role      Role      `gorm:"type:varchar(16);not null"`
	Code      string    `gorm:"size:8;not null;index"`
	InvitedBy string    `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type CaregiverList struct {
	Confirmed []CaregiverProfile
	Pending   []PendingCaregiver
}

type NewBaby struct {
	Name        string
	Birthdate   *time.Time
	Gender      string
	BirthWeight *float64
	BirthHeight *float64
}

// BabyUpdate carries optional changes; nil fields are left untouched.
type BabyUpdate struct {
	Name        *string
	Birthdate   *time.Time
	Gender      *string
	BirthWeight *float64
	BirthHeight *float64
}

// InvitationEmail is handed to the Mailer after an e-mail invite is stored.
type InvitationEmail struct {
	To           string
	BabyName     string
	InviterEmail string
	Role         Role
	Code         string
	ExpiresAt    time.Time
}
