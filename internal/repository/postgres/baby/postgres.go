package baby

import (
	"context"
	"errors"
	"time"

	domain "babyhabits/internal/domain/baby"
	"babyhabits/internal/repository/postgres/pgerr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pendingEmailIndex = "idx_pending_baby_email"

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(domain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

// LockBaby serialises membership changes of one baby until the surrounding
// transaction ends.
func (r *PostgresRepository) LockBaby(ctx context.Context, babyID string) error {
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "baby:"+babyID).Error
}

func (r *PostgresRepository) CreateBaby(ctx context.Context, baby *domain.Baby) error {
	return r.db.WithContext(ctx).Create(baby).Error
}

func (r *PostgresRepository) GetBaby(ctx context.Context, babyID string) (*domain.Baby, error) {
	var baby domain.Baby
	if err := r.db.WithContext(ctx).Where("id = ?", babyID).First(&baby).Error; err != nil {
		if isMissing(err) {
			return nil, domain.ErrBabyNotFound
		}
		return nil, err
	}
	return &baby, nil
}

func (r *PostgresRepository) ListBabiesForUser(ctx context.Context, userID string) ([]domain.Baby, error) {
	var babies []domain.Baby
	if err := r.db.WithContext(ctx).
		Table("babies").
		Select("babies.*").
		Joins("join caregivers on caregivers.baby_id = babies.id").
		Where("caregivers.user_id = ?", userID).
		Order("babies.created_at asc, babies.id asc").
		Find(&babies).Error; err != nil {
		return nil, err
	}
	return babies, nil
}

func (r *PostgresRepository) UpdateBaby(ctx context.Context, baby *domain.Baby) error {
	result := r.db.WithContext(ctx).Model(&domain.Baby{}).
		Where("id = ?", baby.ID).
		Updates(map[string]interface{}{
			"name":         baby.Name,
			"birthdate":    baby.Birthdate,
			"gender":       baby.Gender,
			"birth_weight": baby.BirthWeight,
			"birth_height": baby.BirthHeight,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil && !pgerr.IsInvalidText(result.Error) {
		return result.Error
	}
	if result.Error != nil || result.RowsAffected == 0 {
		return domain.ErrBabyNotFound
	}
	return nil
}

// DeleteBaby relies on ON DELETE CASCADE for caregivers, invitations and
// tracked records.
func (r *PostgresRepository) DeleteBaby(ctx context.Context, babyID string) error {
	result := r.db.WithContext(ctx).Delete(&domain.Baby{}, "id = ?", babyID)
	if result.Error != nil && !pgerr.IsInvalidText(result.Error) {
		return result.Error
	}
	if result.Error != nil || result.RowsAffected == 0 {
		return domain.ErrBabyNotFound
	}
	return nil
}

func (r *PostgresRepository) UpsertCaregiver(ctx context.Context, caregiver *domain.Caregiver) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "baby_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(caregiver).Error
}

func (r *PostgresRepository) AddCaregiver(ctx context.Context, caregiver *domain.Caregiver) error {
	err := r.db.WithContext(ctx).Create(caregiver).Error
	if pgerr.IsUniqueViolation(err, "") {
		return domain.ErrAlreadyCaregiver
	}
	// the baby was deleted between the membership check and the insert
	if pgerr.IsForeignKeyViolation(err) {
		return domain.ErrBabyNotFound
	}
	return err
}

func (r *PostgresRepository) GetCaregiver(ctx context.Context, babyID, userID string) (*domain.Caregiver, error) {
	var caregiver domain.Caregiver
	if err := r.db.WithContext(ctx).Where("baby_id = ? AND user_id = ?", babyID, userID).First(&caregiver).Error; err != nil {
		if isMissing(err) {
			return nil, domain.ErrCaregiverNotFound
		}
		return nil, err
	}
	return &caregiver, nil
}

func (r *PostgresRepository) ListCaregivers(ctx context.Context, babyID string) ([]domain.CaregiverProfile, error) {
	type caregiverRow struct {
		UserID    string    `gorm:"column:user_id"`
		Role      string    `gorm:"column:role"`
		CreatedAt time.Time `gorm:"column:created_at"`
		Email     *string   `gorm:"column:email"`
		AvatarURL *string   `gorm:"column:avatar_url"`
	}

	var rows []caregiverRow
	if err := r.db.WithContext(ctx).
		Table("caregivers").
		Select("caregivers.user_id, caregivers.role, caregivers.created_at, user_profiles.email, user_profiles.avatar_url").
		Joins("left join user_profiles on user_profiles.user_id = caregivers.user_id").
		Where("caregivers.baby_id = ?", babyID).
		Order("caregivers.created_at asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	caregivers := make([]domain.CaregiverProfile, 0, len(rows))
	for _, row := range rows {
		profile := domain.CaregiverProfile{
			UserID:    row.UserID,
			Role:      domain.Role(row.Role),
			AvatarURL: row.AvatarURL,
			CreatedAt: row.CreatedAt,
		}
		if row.Email != nil {
			profile.Email = *row.Email
		}
		caregivers = append(caregivers, profile)
	}
	return caregivers, nil
}

func (r *PostgresRepository) ListCaregiverUserIDs(ctx context.Context, babyID string) ([]string, error) {
	var userIDs []string
	if err := r.db.WithContext(ctx).Model(&domain.Caregiver{}).
		Where("baby_id = ?", babyID).
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (r *PostgresRepository) UpdateCaregiverRole(ctx context.Context, babyID, userID string, role domain.Role) error {
	result := r.db.WithContext(ctx).Model(&domain.Caregiver{}).
		Where("baby_id = ? AND user_id = ?", babyID, userID).
		Update("role", role)
	if result.Error != nil && !pgerr.IsInvalidText(result.Error) {
		return result.Error
	}
	if result.Error != nil || result.RowsAffected == 0 {
		return domain.ErrCaregiverNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteCaregiver(ctx context.Context, babyID, userID string) error {
	result := r.db.WithContext(ctx).Delete(&domain.Caregiver{}, "baby_id = ? AND user_id = ?", babyID, userID)
	if result.Error != nil && !pgerr.IsInvalidText(result.Error) {
		return result.Error
	}
	if result.Error != nil || result.RowsAffected == 0 {
		return domain.ErrCaregiverNotFound
	}
	return nil
}

func (r *PostgresRepository) CountAdmins(ctx context.Context, babyID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Caregiver{}).
		Where("baby_id = ? AND role = ?", babyID, domain.RoleAdmin).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) CreateInvitation(ctx context.Context, invitation *domain.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *PostgresRepository) GetInvitationForUpdate(ctx context.Context, code string) (*domain.Invitation, error) {
	var invitation domain.Invitation
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&invitation).Error; err != nil {
		if isMissing(err) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, err
	}
	return &invitation, nil
}

func (r *PostgresRepository) UpdateInvitationUses(ctx context.Context, code string, usesLeft int) error {
	return r.db.WithContext(ctx).Model(&domain.Invitation{}).
		Where("code = ?", code).
		Update("uses_left", usesLeft).Error
}

func (r *PostgresRepository) DeleteInvitation(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Delete(&domain.Invitation{}, "code = ?", code).Error
}

func (r *PostgresRepository) IsCodeTaken(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Invitation{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRepository) CreatePendingCaregiver(ctx context.Context, pending *domain.PendingCaregiver) error {
	err := r.db.WithContext(ctx).Create(pending).Error
	if pgerr.IsUniqueViolation(err, pendingEmailIndex) {
		return domain.ErrInviteAlreadyPending
	}
	return err
}

func (r *PostgresRepository) GetPendingCaregiver(ctx context.Context, babyID, id string) (*domain.PendingCaregiver, error) {
	var pending domain.PendingCaregiver
	if err := r.db.WithContext(ctx).Where("baby_id = ? AND id = ?", babyID, id).First(&pending).Error; err != nil {
		if isMissing(err) {
			return nil, domain.ErrPendingInviteNotFound
		}
		return nil, err
	}
	return &pending, nil
}

func (r *PostgresRepository) FindPendingByEmail(ctx context.Context, babyID, email string) (*domain.PendingCaregiver, error) {
	var pending domain.PendingCaregiver
	if err := r.db.WithContext(ctx).Where("baby_id = ? AND email = ?", babyID, email).First(&pending).Error; err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return &pending, nil
}

func (r *PostgresRepository) ListPendingCaregivers(ctx context.Context, babyID string) ([]domain.PendingCaregiver, error) {
	var pending []domain.PendingCaregiver
	if err := r.db.WithContext(ctx).
		Where("baby_id = ?", babyID).
		Order("created_at asc").
		Find(&pending).Error; err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *PostgresRepository) DeletePendingCaregiver(ctx context.Context, babyID, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.PendingCaregiver{}, "baby_id = ? AND id = ?", babyID, id)
	if result.Error != nil && !pgerr.IsInvalidText(result.Error) {
		return result.Error
	}
	if result.Error != nil || result.RowsAffected == 0 {
		return domain.ErrPendingInviteNotFound
	}
	return nil
}

func (r *PostgresRepository) DeletePendingByCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Delete(&domain.PendingCaregiver{}, "code = ?", code).Error
}

// isMissing treats an id Postgres cannot parse like an id with no row.
func isMissing(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || pgerr.IsInvalidText(err)
}
