package tracking

import (
	"context"
	"errors"
	"time"

	domain "babyhabits/internal/domain/tracking"
	"babyhabits/internal/repository/postgres/pgerr"
	"gorm.io/gorm"
)

const (
	openFeedingIndex = "uq_feeding_sessions_open"
	openSleepIndex   = "uq_sleep_sessions_open"
)

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

func (r *PostgresRepository) LockBaby(ctx context.Context, babyID string) error {
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "tracking:"+babyID).Error
}

func (r *PostgresRepository) CreateFeeding(ctx context.Context, session *domain.FeedingSession) error {
	err := r.db.WithContext(ctx).Create(session).Error
	if pgerr.IsUniqueViolation(err, openFeedingIndex) {
		return domain.ErrFeedingAlreadyOpen
	}
	return err
}

func (r *PostgresRepository) GetFeeding(ctx context.Context, babyID, id string) (*domain.FeedingSession, error) {
	var session domain.FeedingSession
	if err := r.db.WithContext(ctx).Where("baby_id = ? AND id = ?", babyID, id).First(&session).Error; err != nil {
		if isMissing(err) {
			return nil, domain.ErrFeedingNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *PostgresRepository) FindOpenFeeding(ctx context.Context, babyID string) (*domain.FeedingSession, error) {
	var sessions []domain.FeedingSession
	if err := r.db.WithContext(ctx).
		Where("baby_id = ? AND end_time IS NULL", babyID).
		Order("start_time desc").
		Limit(1).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func (r *PostgresRepository) ListOpenFeedingsStartedBefore(ctx context.Context, babyID string, before time.Time) ([]domain.FeedingSession, error) {
	var sessions []domain.FeedingSession
	if err := r.db.WithContext(ctx).
		Where("baby_id = ? AND end_time IS NULL AND start_time < ?", babyID, before).
		Order("start_time asc").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// CloseFeeding only touches a still-open row so that two clients ending
// the same session cannot both win.
func (r *PostgresRepository) CloseFeeding(ctx context.Context, session *domain.FeedingSession) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.FeedingSession{}).
		Where("id = ? AND baby_id = ? AND end_time IS NULL", session.ID, session.BabyID).
		Updates(map[string]interface{}{
			"end_time":   session.EndTime,
			"duration":   session.Duration,
			"note":       session.Note,
			"updated_at": time.Now().UTC(),
		})
	if pgerr.IsInvalidText(result.Error) {
		return false, nil
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) ListFeedings(ctx context.Context, babyID string, from, to time.Time) ([]domain.FeedingSession, error) {
	var sessions []domain.FeedingSession
	if err := r.db.WithContext(ctx).
		Where("baby_id = ? AND start_time >= ? AND start_time < ?", babyID, from, to).
		Order("start_time asc").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PostgresRepository) CreateSleep(ctx context.Context, session *domain.SleepSession) error {
	err := r.db.WithContext(ctx).Create(session).Error
	if pgerr.IsUniqueViolation(err, openSleepIndex) {
		return domain.ErrSleepAlreadyOpen
	}
	return err
}

func (r *PostgresRepository) GetSleep(ctx context.Context, babyID, id string) (*domain.SleepSession, error) {
	var session domain.SleepSession
	if err := r.db.WithContext(ctx).Where("baby_id = ? AND id = ?", babyID, id).First(&session).Error; err != nil {
		if isMissing(err) {
			return nil, domain.ErrSleepNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *PostgresRepository) FindOpenSleep(ctx context.Context, babyID string) (*domain.SleepSession, error) {
	var sessions []domain.SleepSession
	if err := r.db.WithContext(ctx).
		Where("baby_id = ? AND end_time IS NULL", babyID).
		Order("start_time desc").
		Limit(1).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func (r *PostgresRepository) ListOpenSleepsStartedBefore(ctx context.Context, babyID string, before time.Time) ([]domain.SleepSession, error) {
	var sessions []domain.SleepSession
	if err := r.db.WithContext(ctx).
		Where("baby_id = ? AND end_time IS NULL AND start_time < ?", babyID, before).
		Order("start_time asc").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PostgresRepository) CloseSleep(ctx context.Context, session *domain.SleepSession) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.SleepSession{}).
		Where("id = ? AND baby_id = ? AND end_time IS NULL", session.ID, session.BabyID).
		Updates(map[string]interface{}{
			"end_time":   session.EndTime,
			"duration":   session.Duration,
			"note":       session.Note,
			"updated_at": time.Now().UTC(),
		})
	if pgerr.IsInvalidText(result.Error) {
		return false, nil
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) ListSleeps(ctx context.Context, babyID string, from, to time.Time) ([]domain.SleepSession, error) {
	var sessions []domain.SleepSession
	if err := r.db.WithContext(ctx).
		Where("baby_id = ? AND start_time >= ? AND start_time < ?", babyID, from, to).
		Order("start_time asc").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PostgresRepository) CreateDiaper(ctx context.Context, event *domain.DiaperEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *PostgresRepository) ListDiapers(ctx context.Context, babyID string, from, to time.Time) ([]domain.DiaperEvent, error) {
	var events []domain.DiaperEvent
	if err := r.db.WithContext(ctx).
		Where("baby_id = ? AND timestamp >= ? AND timestamp < ?", babyID, from, to).
		Order("timestamp asc").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *PostgresRepository) DeleteDiaper(ctx context.Context, babyID, id string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&domain.DiaperEvent{}, "baby_id = ? AND id = ?", babyID, id)
	if pgerr.IsInvalidText(result.Error) {
		return false, nil
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) CreateWeight(ctx context.Context, entry *domain.WeightEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListRecentWeights returns the newest entries first.
func (r *PostgresRepository) ListRecentWeights(ctx context.Context, babyID string, limit int) ([]domain.WeightEntry, error) {
	var entries []domain.WeightEntry
	if err := r.db.WithContext(ctx).
		Where("baby_id = ?", babyID).
		Order("timestamp desc").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresRepository) ListWeights(ctx context.Context, babyID string, from, to time.Time) ([]domain.WeightEntry, error) {
	var entries []domain.WeightEntry
	if err := r.db.WithContext(ctx).
		Where("baby_id = ? AND timestamp >= ? AND timestamp < ?", babyID, from, to).
		Order("timestamp asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresRepository) DeleteWeight(ctx context.Context, babyID, id string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&domain.WeightEntry{}, "baby_id = ? AND id = ?", babyID, id)
	if pgerr.IsInvalidText(result.Error) {
		return false, nil
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) UpdateNote(ctx context.Context, kind domain.EventKind, babyID, id, note string) (bool, error) {
	var model interface{}
	switch kind {
	case domain.EventFeedings:
		model = &domain.FeedingSession{}
	case domain.EventSleeps:
		model = &domain.SleepSession{}
	case domain.EventDiapers:
		model = &domain.DiaperEvent{}
	case domain.EventWeights:
		model = &domain.WeightEntry{}
	default:
		return false, domain.ErrInvalidEventKind
	}

	result := r.db.WithContext(ctx).Model(model).
		Where("baby_id = ? AND id = ?", babyID, id).
		Update("note", note)
	if pgerr.IsInvalidText(result.Error) {
		return false, nil
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// isMissing treats an id Postgres cannot parse like an id with no row.
func isMissing(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || pgerr.IsInvalidText(err)
}
