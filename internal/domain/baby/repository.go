package baby

import "context"

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	LockBaby(ctx context.Context, babyID string) error

	CreateBaby(ctx context.Context, baby *Baby) error
	GetBaby(ctx context.Context, babyID string) (*Baby, error)
	ListBabiesForUser(ctx context.Context, userID string) ([]Baby, error)
	UpdateBaby(ctx context.Context, baby *Baby) error
	DeleteBaby(ctx context.Context, babyID string) error

	// UpsertCaregiver inserts the row and ignores an existing (baby, user) pair.
	UpsertCaregiver(ctx context.Context, caregiver *Caregiver) error
	AddCaregiver(ctx context.Context, caregiver *Caregiver) error
	GetCaregiver(ctx context.Context, babyID, userID string) (*Caregiver, error)
	ListCaregivers(ctx context.Context, babyID string) ([]CaregiverProfile, error)
	ListCaregiverUserIDs(ctx context.Context, babyID string) ([]string, error)
	UpdateCaregiverRole(ctx context.Context, babyID, userID string, role Role) error
	DeleteCaregiver(ctx context.Context, babyID, userID string) error
	CountAdmins(ctx context.Context, babyID string) (int64, error)

	CreateInvitation(ctx context.Context, invitation *Invitation) error
	GetInvitationForUpdate(ctx context.Context, code string) (*Invitation, error)
	UpdateInvitationUses(ctx context.Context, code string, usesLeft int) error
	DeleteInvitation(ctx context.Context, code string) error
	IsCodeTaken(ctx context.Context, code string) (bool, error)

	CreatePendingCaregiver(ctx context.Context, pending *PendingCaregiver) error
	GetPendingCaregiver(ctx context.Context, babyID, id string) (*PendingCaregiver, error)
	FindPendingByEmail(ctx context.Context, babyID, email string) (*PendingCaregiver, error)
	ListPendingCaregivers(ctx context.Context, babyID string) ([]PendingCaregiver, error)
	DeletePendingCaregiver(ctx context.Context, babyID, id string) error
	DeletePendingByCode(ctx context.Context, code string) error
}
