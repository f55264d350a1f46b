package baby

import (
	"context"
	"sync"

	"babyhabits/internal/domain/apperr"
)

// Preferences is the per-user persisted state the registry reads and writes.
type Preferences interface {
	PendingInviteCode(ctx context.Context, userID string) (string, error)
	ClearPendingInviteCode(ctx context.Context, userID string) error
	CurrentBaby(ctx context.Context, userID string) (string, error)
	SetCurrentBaby(ctx context.Context, userID, babyID string) error
}

// Registry is one principal's view of their babies: the loaded list plus
// the current selection, which survives restarts through Preferences.
type Registry struct {
	mu     sync.Mutex
	userID string
	svc    *Service
	prefs  Preferences

	babies  []Baby
	current *Baby
}

func NewRegistry(svc *Service, prefs Preferences, userID string) *Registry {
	return &Registry{svc: svc, prefs: prefs, userID: userID}
}

// Load redeems a pending invitation code if one is stored, then lists the
// babies and restores the current selection, falling back to the first.
func (r *Registry) Load(ctx context.Context) ([]Baby, *Baby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.redeemPending(ctx)

	babies, err := r.svc.ListBabies(ctx, r.userID)
	if err != nil {
		return nil, nil, err
	}
	r.babies = append([]Baby(nil), babies...)
	r.current = nil

	selected, err := r.prefs.CurrentBaby(ctx, r.userID)
	if err != nil {
		r.svc.log.Warn("babies.registry: read current baby failed", "user_id", r.userID, "err", err)
	}
	if baby := r.find(selected); baby != nil {
		r.current = baby
	} else if len(r.babies) > 0 {
		r.current = &r.babies[0]
	}

	return r.snapshot()
}

func (r *Registry) Babies() []Baby {
	r.mu.Lock()
	defer r.mu.Unlock()
	babies, _, _ := r.snapshot()
	return babies
}

func (r *Registry) Current() *Baby {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, current, _ := r.snapshot()
	return current
}

func (r *Registry) Add(ctx context.Context, input NewBaby) (*Baby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	baby, err := r.svc.AddBaby(ctx, r.userID, input)
	if err != nil {
		return nil, err
	}
	r.babies = append(r.babies, *baby)
	if r.current == nil {
		r.current = &r.babies[len(r.babies)-1]
		r.persistSelection(ctx, baby.ID)
	} else {
		// append may have moved the backing array
		r.current = r.find(r.current.ID)
	}
	return baby, nil
}

func (r *Registry) Update(ctx context.Context, babyID string, update BabyUpdate) (*Baby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	baby, err := r.svc.UpdateBaby(ctx, r.userID, babyID, update)
	if err != nil {
		return nil, err
	}
	if cached := r.find(babyID); cached != nil {
		*cached = *baby
	}
	return baby, nil
}

// Delete removes a baby and clears the selection if it pointed at it.
func (r *Registry) Delete(ctx context.Context, babyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.svc.DeleteBaby(ctx, r.userID, babyID); err != nil {
		return err
	}

	currentID := ""
	if r.current != nil {
		currentID = r.current.ID
	}
	kept := make([]Baby, 0, len(r.babies))
	for _, baby := range r.babies {
		if baby.ID != babyID {
			kept = append(kept, baby)
		}
	}
	r.babies = kept
	r.current = r.find(currentID)

	if currentID == babyID {
		r.current = nil
		r.persistSelection(ctx, "")
	}
	return nil
}

// Select switches the current baby. Unknown ids leave the selection as is.
func (r *Registry) Select(ctx context.Context, babyID string) (*Baby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	baby := r.find(babyID)
	if baby == nil {
		_, current, _ := r.snapshot()
		return current, nil
	}
	r.current = baby
	if err := r.prefs.SetCurrentBaby(ctx, r.userID, babyID); err != nil {
		r.svc.log.InternalError("babies.registry: persist selection failed", err, "user_id", r.userID, "baby_id", babyID)
		return nil, apperr.Store("persist current baby", err)
	}
	selected := *baby
	return &selected, nil
}

func (r *Registry) redeemPending(ctx context.Context) {
	code, err := r.prefs.PendingInviteCode(ctx, r.userID)
	if err != nil {
		r.svc.log.Warn("babies.registry: read pending invite failed", "user_id", r.userID, "err", err)
		return
	}
	if code == "" {
		return
	}

	baby, err := r.svc.RedeemInvitation(ctx, r.userID, code)
	if err != nil {
		r.svc.log.BusinessError("babies.registry: pending invite not redeemed", err, "user_id", r.userID, "code", code)
	} else if err := r.prefs.SetCurrentBaby(ctx, r.userID, baby.ID); err != nil {
		r.svc.log.Warn("babies.registry: select redeemed baby failed", "user_id", r.userID, "err", err)
	}

	if err := r.prefs.ClearPendingInviteCode(ctx, r.userID); err != nil {
		r.svc.log.Warn("babies.registry: clear pending invite failed", "user_id", r.userID, "err", err)
	}
}

func (r *Registry) persistSelection(ctx context.Context, babyID string) {
	if err := r.prefs.SetCurrentBaby(ctx, r.userID, babyID); err != nil {
		r.svc.log.Warn("babies.registry: persist selection failed", "user_id", r.userID, "err", err)
	}
}

func (r *Registry) find(babyID string) *Baby {
	if babyID == "" {
		return nil
	}
	for i := range r.babies {
		if r.babies[i].ID == babyID {
			return &r.babies[i]
		}
	}
	return nil
}

func (r *Registry) snapshot() ([]Baby, *Baby, error) {
	babies := make([]Baby, len(r.babies))
	copy(babies, r.babies)
	if r.current == nil {
		return babies, nil, nil
	}
	current := *r.current
	return babies, &current, nil
}
