package inmemory

import (
	"context"
	"sort"
	"time"

	babydomain "babyhabits/internal/domain/baby"
)

type BabyRepository struct {
	session
}

func NewBabyRepository(store *Store) *BabyRepository {
	return &BabyRepository{session: session{store: store}}
}

func (r *BabyRepository) Transaction(ctx context.Context, fn func(babydomain.Repository) error) error {
	return r.transaction(func(tx session) error {
		return fn(&BabyRepository{session: tx})
	})
}

// LockBaby is a no-op: transactions already hold the store lock.
func (r *BabyRepository) LockBaby(ctx context.Context, babyID string) error {
	return nil
}

func (r *BabyRepository) CreateBaby(ctx context.Context, baby *babydomain.Baby) error {
	defer r.lock()()
	now := time.Now().UTC()
	if baby.CreatedAt.IsZero() {
		baby.CreatedAt = now
	}
	baby.UpdatedAt = now
	if baby.Gender == "" {
		baby.Gender = babydomain.GenderUnspecified
	}
	r.store.state.babies[baby.ID] = cloneBaby(*baby)
	r.store.state.track(baby.ID)
	return nil
}

func (r *BabyRepository) GetBaby(ctx context.Context, babyID string) (*babydomain.Baby, error) {
	defer r.lock()()
	baby, ok := r.store.state.babies[babyID]
	if !ok {
		return nil, babydomain.ErrBabyNotFound
	}
	result := cloneBaby(baby)
	return &result, nil
}

func (r *BabyRepository) ListBabiesForUser(ctx context.Context, userID string) ([]babydomain.Baby, error) {
	defer r.lock()()
	st := r.store.state
	var babies []babydomain.Baby
	for key := range st.caregivers {
		if key.userID != userID {
			continue
		}
		if baby, ok := st.babies[key.babyID]; ok {
			babies = append(babies, cloneBaby(baby))
		}
	}
	sort.Slice(babies, func(i, j int) bool {
		if !babies[i].CreatedAt.Equal(babies[j].CreatedAt) {
			return babies[i].CreatedAt.Before(babies[j].CreatedAt)
		}
		return st.order[babies[i].ID] < st.order[babies[j].ID]
	})
	return babies, nil
}

func (r *BabyRepository) UpdateBaby(ctx context.Context, baby *babydomain.Baby) error {
	defer r.lock()()
	existing, ok := r.store.state.babies[baby.ID]
	if !ok {
		return babydomain.ErrBabyNotFound
	}
	updated := cloneBaby(*baby)
	updated.CreatedAt = existing.CreatedAt
	updated.CreatedBy = existing.CreatedBy
	updated.UpdatedAt = time.Now().UTC()
	r.store.state.babies[baby.ID] = updated
	return nil
}

// DeleteBaby cascades to everything that references the baby.
func (r *BabyRepository) DeleteBaby(ctx context.Context, babyID string) error {
	defer r.lock()()
	st := r.store.state
	if _, ok := st.babies[babyID]; !ok {
		return babydomain.ErrBabyNotFound
	}
	delete(st.babies, babyID)
	for key := range st.caregivers {
		if key.babyID == babyID {
			delete(st.caregivers, key)
		}
	}
	for code, invitation := range st.invites {
		if invitation.BabyID == babyID {
			delete(st.invites, code)
		}
	}
	for id, pending := range st.pending {
		if pending.BabyID == babyID {
			delete(st.pending, id)
		}
	}
	for id, session := range st.feedings {
		if session.BabyID == babyID {
			delete(st.feedings, id)
		}
	}
	for id, session := range st.sleeps {
		if session.BabyID == babyID {
			delete(st.sleeps, id)
		}
	}
	for id, event := range st.diapers {
		if event.BabyID == babyID {
			delete(st.diapers, id)
		}
	}
	for id, entry := range st.weights {
		if entry.BabyID == babyID {
			delete(st.weights, id)
		}
	}
	return nil
}

func (r *BabyRepository) UpsertCaregiver(ctx context.Context, caregiver *babydomain.Caregiver) error {
	defer r.lock()()
	key := caregiverKey{babyID: caregiver.BabyID, userID: caregiver.UserID}
	if _, ok := r.store.state.caregivers[key]; ok {
		return nil
	}
	r.insertCaregiver(caregiver)
	return nil
}

func (r *BabyRepository) AddCaregiver(ctx context.Context, caregiver *babydomain.Caregiver) error {
	defer r.lock()()
	key := caregiverKey{babyID: caregiver.BabyID, userID: caregiver.UserID}
	if _, ok := r.store.state.caregivers[key]; ok {
		return babydomain.ErrAlreadyCaregiver
	}
	r.insertCaregiver(caregiver)
	return nil
}

func (r *BabyRepository) insertCaregiver(caregiver *babydomain.Caregiver) {
	if caregiver.CreatedAt.IsZero() {
		caregiver.CreatedAt = time.Now().UTC()
	}
	key := caregiverKey{babyID: caregiver.BabyID, userID: caregiver.UserID}
	r.store.state.caregivers[key] = *caregiver
	r.store.state.track(caregiver.BabyID + "/" + caregiver.UserID)
}

func (r *BabyRepository) GetCaregiver(ctx context.Context, babyID, userID string) (*babydomain.Caregiver, error) {
	defer r.lock()()
	caregiver, ok := r.store.state.caregivers[caregiverKey{babyID: babyID, userID: userID}]
	if !ok {
		return nil, babydomain.ErrCaregiverNotFound
	}
	return &caregiver, nil
}

func (r *BabyRepository) ListCaregivers(ctx context.Context, babyID string) ([]babydomain.CaregiverProfile, error) {
	defer r.lock()()
	st := r.store.state
	caregivers := r.caregiversOf(babyID)
	profiles := make([]babydomain.CaregiverProfile, 0, len(caregivers))
	for _, caregiver := range caregivers {
		profile := babydomain.CaregiverProfile{
			UserID:    caregiver.UserID,
			Role:      caregiver.Role,
			CreatedAt: caregiver.CreatedAt,
		}
		if stored, ok := st.profiles[caregiver.UserID]; ok {
			if stored.Email != nil {
				profile.Email = *stored.Email
			}
			profile.AvatarURL = stored.AvatarURL
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func (r *BabyRepository) ListCaregiverUserIDs(ctx context.Context, babyID string) ([]string, error) {
	defer r.lock()()
	caregivers := r.caregiversOf(babyID)
	userIDs := make([]string, 0, len(caregivers))
	for _, caregiver := range caregivers {
		userIDs = append(userIDs, caregiver.UserID)
	}
	return userIDs, nil
}

func (r *BabyRepository) caregiversOf(babyID string) []babydomain.Caregiver {
	st := r.store.state
	var caregivers []babydomain.Caregiver
	for key, caregiver := range st.caregivers {
		if key.babyID == babyID {
			caregivers = append(caregivers, caregiver)
		}
	}
	sort.Slice(caregivers, func(i, j int) bool {
		return st.order[caregivers[i].BabyID+"/"+caregivers[i].UserID] < st.order[caregivers[j].BabyID+"/"+caregivers[j].UserID]
	})
	return caregivers
}

func (r *BabyRepository) UpdateCaregiverRole(ctx context.Context, babyID, userID string, role babydomain.Role) error {
	defer r.lock()()
	key := caregiverKey{babyID: babyID, userID: userID}
	caregiver, ok := r.store.state.caregivers[key]
	if !ok {
		return babydomain.ErrCaregiverNotFound
	}
	caregiver.Role = role
	r.store.state.caregivers[key] = caregiver
	return nil
}

func (r *BabyRepository) DeleteCaregiver(ctx context.Context, babyID, userID string) error {
	defer r.lock()()
	key := caregiverKey{babyID: babyID, userID: userID}
	if _, ok := r.store.state.caregivers[key]; !ok {
		return babydomain.ErrCaregiverNotFound
	}
	delete(r.store.state.caregivers, key)
	return nil
}

func (r *BabyRepository) CountAdmins(ctx context.Context, babyID string) (int64, error) {
	defer r.lock()()
	var count int64
	for key, caregiver := range r.store.state.caregivers {
		if key.babyID == babyID && caregiver.Role == babydomain.RoleAdmin {
			count++
		}
	}
	return count, nil
}

func (r *BabyRepository) CreateInvitation(ctx context.Context, invitation *babydomain.Invitation) error {
	defer r.lock()()
	if invitation.CreatedAt.IsZero() {
		invitation.CreatedAt = time.Now().UTC()
	}
	r.store.state.invites[invitation.Code] = *invitation
	return nil
}

func (r *BabyRepository) GetInvitationForUpdate(ctx context.Context, code string) (*babydomain.Invitation, error) {
	defer r.lock()()
	invitation, ok := r.store.state.invites[code]
	if !ok {
		return nil, babydomain.ErrInvitationNotFound
	}
	return &invitation, nil
}

func (r *BabyRepository) UpdateInvitationUses(ctx context.Context, code string, usesLeft int) error {
	defer r.lock()()
	invitation, ok := r.store.state.invites[code]
	if !ok {
		return babydomain.ErrInvitationNotFound
	}
	invitation.UsesLeft = usesLeft
	r.store.state.invites[code] = invitation
	return nil
}

func (r *BabyRepository) DeleteInvitation(ctx context.Context, code string) error {
	defer r.lock()()
	delete(r.store.state.invites, code)
	return nil
}

func (r *BabyRepository) IsCodeTaken(ctx context.Context, code string) (bool, error) {
	defer r.lock()()
	_, ok := r.store.state.invites[code]
	return ok, nil
}

func (r *BabyRepository) CreatePendingCaregiver(ctx context.Context, pending *babydomain.PendingCaregiver) error {
	defer r.lock()()
	for _, existing := range r.store.state.pending {
		if existing.BabyID == pending.BabyID && existing.Email == pending.Email {
			return babydomain.ErrInviteAlreadyPending
		}
	}
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = time.Now().UTC()
	}
	r.store.state.pending[pending.ID] = *pending
	r.store.state.track(pending.ID)
	return nil
}

func (r *BabyRepository) GetPendingCaregiver(ctx context.Context, babyID, id string) (*babydomain.PendingCaregiver, error) {
	defer r.lock()()
	pending, ok := r.store.state.pending[id]
	if !ok || pending.BabyID != babyID {
		return nil, babydomain.ErrPendingInviteNotFound
	}
	return &pending, nil
}

func (r *BabyRepository) FindPendingByEmail(ctx context.Context, babyID, email string) (*babydomain.PendingCaregiver, error) {
	defer r.lock()()
	for _, pending := range r.store.state.pending {
		if pending.BabyID == babyID && pending.Email == email {
			result := pending
			return &result, nil
		}
	}
	return nil, nil
}

func (r *BabyRepository) ListPendingCaregivers(ctx context.Context, babyID string) ([]babydomain.PendingCaregiver, error) {
	defer r.lock()()
	st := r.store.state
	var pending []babydomain.PendingCaregiver
	for _, item := range st.pending {
		if item.BabyID == babyID {
			pending = append(pending, item)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return st.order[pending[i].ID] < st.order[pending[j].ID]
	})
	return pending, nil
}

func (r *BabyRepository) DeletePendingCaregiver(ctx context.Context, babyID, id string) error {
	defer r.lock()()
	pending, ok := r.store.state.pending[id]
	if !ok || pending.BabyID != babyID {
		return babydomain.ErrPendingInviteNotFound
	}
	delete(r.store.state.pending, id)
	return nil
}

func (r *BabyRepository) DeletePendingByCode(ctx context.Context, code string) error {
	defer r.lock()()
	for id, pending := range r.store.state.pending {
		if pending.Code == code {
			delete(r.store.state.pending, id)
		}
	}
	return nil
}
