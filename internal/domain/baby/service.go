package baby

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"babyhabits/internal/domain/apperr"
	"babyhabits/internal/realtime"
	"babyhabits/pkg/logger"
	"github.com/google/uuid"
)

const (
	defaultInviteTTL = 7 * 24 * time.Hour
	defaultCacheTTL  = 5 * time.Minute
)

type Mailer interface {
	SendInvitation(ctx context.Context, email InvitationEmail) error
}

type Options struct {
	Cache     Cache
	CacheTTL  time.Duration
	Mailer    Mailer
	Publisher realtime.Publisher
	InviteTTL time.Duration
}

type Service struct {
	repo      Repository
	cache     Cache
	cacheTTL  time.Duration
	mailer    Mailer
	publisher realtime.Publisher
	inviteTTL time.Duration
	log       logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, log logger.Logger, opts Options) *Service {
	svc := &Service{
		repo:      repo,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		mailer:    opts.Mailer,
		publisher: opts.Publisher,
		inviteTTL: opts.InviteTTL,
		log:       log,
		now:       time.Now,
	}
	if svc.cache == nil {
		svc.cache = noopCache{}
	}
	if svc.cacheTTL <= 0 {
		svc.cacheTTL = defaultCacheTTL
	}
	if svc.inviteTTL <= 0 {
		svc.inviteTTL = defaultInviteTTL
	}
	return svc
}

// ListBabies returns the babies the user cares for, oldest first.
func (s *Service) ListBabies(ctx context.Context, userID string) ([]Baby, error) {
	if cached, ok := s.cache.GetByUserID(userID); ok {
		return cached, nil
	}

	babies, err := s.repo.ListBabiesForUser(ctx, userID)
	if err != nil {
		return nil, s.storeErr("babies.list", "list babies", err, "user_id", userID)
	}
	s.cache.SetByUserID(userID, babies, s.cacheTTL)
	return babies, nil
}

func (s *Service) GetBaby(ctx context.Context, userID, babyID string) (*Baby, error) {
	if _, err := s.Authorize(ctx, babyID, userID, ActionView); err != nil {
		return nil, err
	}
	baby, err := s.repo.GetBaby(ctx, babyID)
	if err != nil {
		return nil, s.storeErr("babies.get", "get baby", err, "baby_id", babyID)
	}
	return baby, nil
}

// AddBaby creates a baby and makes the creator its admin. Identical input
// twice yields two babies.
func (s *Service) AddBaby(ctx context.Context, userID string, input NewBaby) (*Baby, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if input.Birthdate == nil || input.Birthdate.IsZero() {
		return nil, ErrBirthdateRequired
	}
	gender, err := ParseGender(input.Gender)
	if err != nil {
		return nil, err
	}
	if !positiveOrNil(input.BirthWeight) || !positiveOrNil(input.BirthHeight) {
		return nil, ErrInvalidMeasurement
	}

	birthdate := truncateDate(*input.Birthdate)
	baby := Baby{
		ID:          uuid.NewString(),
		Name:        name,
		Birthdate:   &birthdate,
		Gender:      gender,
		BirthWeight: input.BirthWeight,
		BirthHeight: input.BirthHeight,
		CreatedBy:   userID,
	}

	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.CreateBaby(ctx, &baby); err != nil {
			return err
		}
		return tx.UpsertCaregiver(ctx, &Caregiver{
			BabyID: baby.ID,
			UserID: userID,
			Role:   RoleAdmin,
		})
	})
	if err != nil {
		return nil, s.storeErr("babies.add", "add baby", err, "user_id", userID)
	}

	s.cache.DeleteByUserID(userID)
	s.publish(ctx, realtime.TableBabies, baby.ID, realtime.OpInsert)
	return &baby, nil
}

func (s *Service) UpdateBaby(ctx context.Context, userID, babyID string, update BabyUpdate) (*Baby, error) {
	var name string
	if update.Name != nil {
		name = strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
	}
	var gender Gender
	if update.Gender != nil {
		parsed, err := ParseGender(*update.Gender)
		if err != nil {
			return nil, err
		}
		gender = parsed
	}
	if !positiveOrNil(update.BirthWeight) || !positiveOrNil(update.BirthHeight) {
		return nil, ErrInvalidMeasurement
	}
	if update.Birthdate != nil && update.Birthdate.IsZero() {
		return nil, ErrBirthdateRequired
	}

	if _, err := s.Authorize(ctx, babyID, userID, ActionManage); err != nil {
		return nil, err
	}

	baby, err := s.repo.GetBaby(ctx, babyID)
	if err != nil {
		return nil, s.storeErr("babies.update", "get baby", err, "baby_id", babyID)
	}
	if update.Name != nil {
		baby.Name = name
	}
	if update.Gender != nil {
		baby.Gender = gender
	}
	if update.Birthdate != nil {
		birthdate := truncateDate(*update.Birthdate)
		baby.Birthdate = &birthdate
	}
	if update.BirthWeight != nil {
		baby.BirthWeight = update.BirthWeight
	}
	if update.BirthHeight != nil {
		baby.BirthHeight = update.BirthHeight
	}

	if err := s.repo.UpdateBaby(ctx, baby); err != nil {
		return nil, s.storeErr("babies.update", "update baby", err, "baby_id", babyID)
	}

	s.forgetBaby(ctx, babyID)
	s.publish(ctx, realtime.TableBabies, babyID, realtime.OpUpdate)
	return baby, nil
}

func (s *Service) DeleteBaby(ctx context.Context, userID, babyID string) error {
	if _, err := s.Authorize(ctx, babyID, userID, ActionManage); err != nil {
		return err
	}

	s.forgetBaby(ctx, babyID)
	if err := s.repo.DeleteBaby(ctx, babyID); err != nil {
		return s.storeErr("babies.delete", "delete baby", err, "baby_id", babyID)
	}

	s.publish(ctx, realtime.TableBabies, babyID, realtime.OpDelete)
	return nil
}

// RoleFor returns the caller's role on a baby, or ErrNotCaregiver.
func (s *Service) RoleFor(ctx context.Context, babyID, userID string) (Role, error) {
	caregiver, err := s.repo.GetCaregiver(ctx, babyID, userID)
	if err != nil {
		if errors.Is(err, ErrCaregiverNotFound) {
			return "", ErrNotCaregiver
		}
		return "", s.storeErr("babies.role", "get caregiver", err, "baby_id", babyID, "user_id", userID)
	}
	return caregiver.Role, nil
}

// Authorize is the single capability check used by every baby-scoped call.
func (s *Service) Authorize(ctx context.Context, babyID, userID string, action Action) (Role, error) {
	role, err := s.RoleFor(ctx, babyID, userID)
	if err != nil {
		return "", err
	}
	if !role.Can(action) {
		s.log.BusinessError("babies.authorize: action not allowed", ErrNotAllowed,
			"baby_id", babyID, "user_id", userID, "role", role, "action", action)
		return role, ErrNotAllowed
	}
	return role, nil
}

func (s *Service) ListCaregivers(ctx context.Context, userID, babyID string) (*CaregiverList, error) {
	if _, err := s.Authorize(ctx, babyID, userID, ActionView); err != nil {
		return nil, err
	}

	confirmed, err := s.repo.ListCaregivers(ctx, babyID)
	if err != nil {
		return nil, s.storeErr("caregivers.list", "list caregivers", err, "baby_id", babyID)
	}
	pending, err := s.repo.ListPendingCaregivers(ctx, babyID)
	if err != nil {
		return nil, s.storeErr("caregivers.list", "list pending caregivers", err, "baby_id", babyID)
	}
	return &CaregiverList{Confirmed: confirmed, Pending: pending}, nil
}

// InviteCaregiverByEmail stores a pending caregiver with a single-use
// invitation and e-mails the code. A failed e-mail keeps the invite.
func (s *Service) InviteCaregiverByEmail(ctx context.Context, userID, inviterEmail, babyID, email, roleValue string) (*PendingCaregiver, error) {
	role, err := ParseRole(roleValue)
	if err != nil {
		return nil, err
	}
	address, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if _, err := s.Authorize(ctx, babyID, userID, ActionManage); err != nil {
		return nil, err
	}

	var (
		pending    PendingCaregiver
		invitation Invitation
		babyName   string
	)
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		existing, err := tx.FindPendingByEmail(ctx, babyID, address)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrInviteAlreadyPending
		}

		baby, err := tx.GetBaby(ctx, babyID)
		if err != nil {
			return err
		}
		babyName = baby.Name

		code, err := generateUniqueCode(ctx, tx)
		if err != nil {
			return err
		}
		invitation = Invitation{
			Code:      code,
			BabyID:    babyID,
			Role:      role,
			ExpiresAt: s.now().UTC().Add(s.inviteTTL),
			UsesLeft:  1,
			CreatedBy: userID,
		}
		if err := tx.CreateInvitation(ctx, &invitation); err != nil {
			return err
		}

		pending = PendingCaregiver{
			ID:        uuid.NewString(),
			BabyID:    babyID,
			Email:     address,
			Role:      role,
			Code:      code,
			InvitedBy: userID,
		}
		return tx.CreatePendingCaregiver(ctx, &pending)
	})
	if err != nil {
		return nil, s.storeErr("caregivers.invite", "invite caregiver", err, "baby_id", babyID, "user_id", userID)
	}

	s.publish(ctx, realtime.TablePendingCaregivers, babyID, realtime.OpInsert)

	if s.mailer != nil {
		mailErr := s.mailer.SendInvitation(ctx, InvitationEmail{
			To:           address,
			BabyName:     babyName,
			InviterEmail: inviterEmail,
			Role:         role,
			Code:         invitation.Code,
			ExpiresAt:    invitation.ExpiresAt,
		})
		if mailErr != nil {
			s.log.InternalError("caregivers.invite: send email failed", mailErr, "baby_id", babyID, "pending_id", pending.ID)
		}
	}
	return &pending, nil
}

// CreateInviteLink issues a shareable code. uses 0 means a single use and
// ttl 0 means the default expiry.
func (s *Service) CreateInviteLink(ctx context.Context, userID, babyID, roleValue string, uses int, ttl time.Duration) (*Invitation, error) {
	role, err := ParseRole(roleValue)
	if err != nil {
		return nil, err
	}
	if uses == 0 {
		uses = 1
	}
	if uses < 1 {
		return nil, ErrInvalidUses
	}
	if ttl < 0 {
		return nil, ErrInvalidTTL
	}
	if ttl == 0 {
		ttl = s.inviteTTL
	}
	if _, err := s.Authorize(ctx, babyID, userID, ActionManage); err != nil {
		return nil, err
	}

	var invitation Invitation
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		code, err := generateUniqueCode(ctx, tx)
		if err != nil {
			return err
		}
		invitation = Invitation{
			Code:      code,
			BabyID:    babyID,
			Role:      role,
			ExpiresAt: s.now().UTC().Add(ttl),
			UsesLeft:  uses,
			CreatedBy: userID,
		}
		return tx.CreateInvitation(ctx, &invitation)
	})
	if err != nil {
		return nil, s.storeErr("caregivers.invite_link", "create invitation", err, "baby_id", babyID)
	}

	s.publish(ctx, realtime.TableInvitations, babyID, realtime.OpInsert)
	return &invitation, nil
}

func (s *Service) UpdateCaregiverRole(ctx context.Context, actorID, babyID, userID, roleValue string) error {
	role, err := ParseRole(roleValue)
	if err != nil {
		return err
	}
	if _, err := s.Authorize(ctx, babyID, actorID, ActionManage); err != nil {
		return err
	}

	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.LockBaby(ctx, babyID); err != nil {
			return err
		}
		target, err := tx.GetCaregiver(ctx, babyID, userID)
		if err != nil {
			return err
		}
		if target.Role == role {
			return nil
		}
		if target.Role == RoleAdmin {
			if err := ensureAnotherAdmin(ctx, tx, babyID); err != nil {
				return err
			}
		}
		return tx.UpdateCaregiverRole(ctx, babyID, userID, role)
	})
	if err != nil {
		return s.storeErr("caregivers.update_role", "update caregiver role", err, "baby_id", babyID, "user_id", userID)
	}

	s.publish(ctx, realtime.TableCaregivers, babyID, realtime.OpUpdate)
	return nil
}

// RemoveCaregiver lets an admin remove anyone and any caregiver remove
// themselves. The last admin cannot be removed.
func (s *Service) RemoveCaregiver(ctx context.Context, actorID, babyID, userID string) error {
	if actorID == userID {
		if _, err := s.RoleFor(ctx, babyID, actorID); err != nil {
			return err
		}
	} else if _, err := s.Authorize(ctx, babyID, actorID, ActionManage); err != nil {
		return err
	}

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.LockBaby(ctx, babyID); err != nil {
			return err
		}
		target, err := tx.GetCaregiver(ctx, babyID, userID)
		if err != nil {
			return err
		}
		if target.Role == RoleAdmin {
			if err := ensureAnotherAdmin(ctx, tx, babyID); err != nil {
				return err
			}
		}
		return tx.DeleteCaregiver(ctx, babyID, userID)
	})
	if err != nil {
		return s.storeErr("caregivers.remove", "remove caregiver", err, "baby_id", babyID, "user_id", userID)
	}

	s.cache.DeleteByUserID(userID)
	s.publish(ctx, realtime.TableCaregivers, babyID, realtime.OpDelete)
	return nil
}

// CancelPendingInvite removes a pending caregiver and revokes its code.
func (s *Service) CancelPendingInvite(ctx context.Context, actorID, babyID, pendingID string) error {
	if _, err := s.Authorize(ctx, babyID, actorID, ActionManage); err != nil {
		return err
	}

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		pending, err := tx.GetPendingCaregiver(ctx, babyID, pendingID)
		if err != nil {
			return err
		}
		if err := tx.DeleteInvitation(ctx, pending.Code); err != nil && !errors.Is(err, ErrInvitationNotFound) {
			return err
		}
		return tx.DeletePendingCaregiver(ctx, babyID, pendingID)
	})
	if err != nil {
		return s.storeErr("caregivers.cancel_invite", "cancel pending invite", err, "baby_id", babyID, "pending_id", pendingID)
	}

	s.publish(ctx, realtime.TablePendingCaregivers, babyID, realtime.OpDelete)
	return nil
}

// RedeemInvitation adds the user as a caregiver. The invitation row is
// locked for the whole transaction so concurrent redemptions cannot
// overspend it.
func (s *Service) RedeemInvitation(ctx context.Context, userID, code string) (*Baby, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCodeRequired
	}

	var result Baby
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		invitation, err := tx.GetInvitationForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if !invitation.ExpiresAt.After(s.now()) {
			return ErrInvitationExpired
		}
		if invitation.UsesLeft <= 0 {
			return ErrInvitationExhausted
		}

		_, err = tx.GetCaregiver(ctx, invitation.BabyID, userID)
		switch {
		case err == nil:
			return ErrAlreadyCaregiver
		case !errors.Is(err, ErrCaregiverNotFound):
			return err
		}

		if err := tx.AddCaregiver(ctx, &Caregiver{
			BabyID: invitation.BabyID,
			UserID: userID,
			Role:   invitation.Role,
		}); err != nil {
			return err
		}
		if err := tx.UpdateInvitationUses(ctx, code, invitation.UsesLeft-1); err != nil {
			return err
		}
		if err := tx.DeletePendingByCode(ctx, code); err != nil {
			return err
		}

		baby, err := tx.GetBaby(ctx, invitation.BabyID)
		if err != nil {
			return err
		}
		result = *baby
		return nil
	})
	if err != nil {
		return nil, s.storeErr("invitations.redeem", "redeem invitation", err, "user_id", userID, "code", code)
	}

	s.cache.DeleteByUserID(userID)
	s.publish(ctx, realtime.TableCaregivers, result.ID, realtime.OpInsert)
	return &result, nil
}

// HandleChange drops cached baby lists when another instance changed
// babies or caregivers.
func (s *Service) HandleChange(change realtime.Change) {
	switch change.Table {
	case realtime.TableBabies, realtime.TableCaregivers:
		s.cache.Clear()
	}
}

func (s *Service) Subscribe(ctx context.Context, sub realtime.Subscriber) (func(), error) {
	return sub.Subscribe(ctx, "", s.HandleChange)
}

func ensureAnotherAdmin(ctx context.Context, tx Repository, babyID string) error {
	admins, err := tx.CountAdmins(ctx, babyID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *Service) forgetBaby(ctx context.Context, babyID string) {
	userIDs, err := s.repo.ListCaregiverUserIDs(ctx, babyID)
	if err != nil {
		s.log.Warn("babies.cache: list caregivers failed, clearing cache", "baby_id", babyID, "err", err)
		s.cache.Clear()
		return
	}
	for _, id := range userIDs {
		s.cache.DeleteByUserID(id)
	}
}

func (s *Service) publish(ctx context.Context, table, babyID string, op realtime.Op) {
	if s.publisher == nil {
		return
	}
	change := realtime.Change{Table: table, BabyID: babyID, Op: op, At: s.now().UTC()}
	if err := s.publisher.Publish(ctx, change); err != nil {
		s.log.Warn("babies.realtime: publish failed", "table", table, "baby_id", babyID, "err", err)
	}
}

// storeErr logs and wraps failures. Domain errors pass through and are
// logged as business errors.
func (s *Service) storeErr(scope, op string, err error, args ...any) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && !errors.Is(err, apperr.ErrStore) {
		s.log.BusinessError(scope+": "+appErr.Message, err, args...)
		return err
	}
	s.log.InternalError(scope+": "+op+" failed", err, args...)
	return apperr.Store(op, err)
}

func normalizeEmail(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrInvalidEmail
	}
	parsed, err := mail.ParseAddress(value)
	if err != nil || parsed.Address != value {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(parsed.Address), nil
}

func positiveOrNil(value *float64) bool {
	return value == nil || *value > 0
}

func truncateDate(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
}
