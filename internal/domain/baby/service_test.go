package baby

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"babyhabits/internal/domain/apperr"
	"babyhabits/pkg/logger"
)

type fakeBabyRepo struct {
	babies      map[string]*Baby
	caregivers  map[string]map[string]*Caregiver
	invitations map[string]*Invitation
	pending     map[string]*PendingCaregiver
	emails      map[string]string
	order       []string
}

func newFakeBabyRepo() *fakeBabyRepo {
	return &fakeBabyRepo{
		babies:      make(map[string]*Baby),
		caregivers:  make(map[string]map[string]*Caregiver),
		invitations: make(map[string]*Invitation),
		pending:     make(map[string]*PendingCaregiver),
		emails:      make(map[string]string),
	}
}

func (r *fakeBabyRepo) Transaction(ctx context.Context, fn func(Repository) error) error {
	return fn(r)
}

func (r *fakeBabyRepo) LockBaby(ctx context.Context, babyID string) error {
	return nil
}

func (r *fakeBabyRepo) CreateBaby(ctx context.Context, baby *Baby) error {
	stored := *baby
	r.babies[baby.ID] = &stored
	r.order = append(r.order, baby.ID)
	return nil
}

func (r *fakeBabyRepo) GetBaby(ctx context.Context, babyID string) (*Baby, error) {
	baby, ok := r.babies[babyID]
	if !ok {
		return nil, ErrBabyNotFound
	}
	result := *baby
	return &result, nil
}

func (r *fakeBabyRepo) ListBabiesForUser(ctx context.Context, userID string) ([]Baby, error) {
	result := make([]Baby, 0)
	for _, id := range r.order {
		baby, ok := r.babies[id]
		if !ok {
			continue
		}
		if _, ok := r.caregivers[id][userID]; ok {
			result = append(result, *baby)
		}
	}
	return result, nil
}

func (r *fakeBabyRepo) UpdateBaby(ctx context.Context, baby *Baby) error {
	stored := *baby
	r.babies[baby.ID] = &stored
	return nil
}

func (r *fakeBabyRepo) DeleteBaby(ctx context.Context, babyID string) error {
	if _, ok := r.babies[babyID]; !ok {
		return ErrBabyNotFound
	}
	delete(r.babies, babyID)
	delete(r.caregivers, babyID)
	for code, invitation := range r.invitations {
		if invitation.BabyID == babyID {
			delete(r.invitations, code)
		}
	}
	return nil
}

func (r *fakeBabyRepo) UpsertCaregiver(ctx context.Context, caregiver *Caregiver) error {
	if _, ok := r.caregivers[caregiver.BabyID][caregiver.UserID]; ok {
		return nil
	}
	return r.AddCaregiver(ctx, caregiver)
}

func (r *fakeBabyRepo) AddCaregiver(ctx context.Context, caregiver *Caregiver) error {
	if r.caregivers[caregiver.BabyID] == nil {
		r.caregivers[caregiver.BabyID] = make(map[string]*Caregiver)
	}
	if _, ok := r.caregivers[caregiver.BabyID][caregiver.UserID]; ok {
		return ErrAlreadyCaregiver
	}
	stored := *caregiver
	r.caregivers[caregiver.BabyID][caregiver.UserID] = &stored
	return nil
}

func (r *fakeBabyRepo) GetCaregiver(ctx context.Context, babyID, userID string) (*Caregiver, error) {
	caregiver, ok := r.caregivers[babyID][userID]
	if !ok {
		return nil, ErrCaregiverNotFound
	}
	result := *caregiver
	return &result, nil
}

func (r *fakeBabyRepo) ListCaregivers(ctx context.Context, babyID string) ([]CaregiverProfile, error) {
	result := make([]CaregiverProfile, 0)
	for _, caregiver := range r.caregivers[babyID] {
		result = append(result, CaregiverProfile{
			UserID: caregiver.UserID,
			Role:   caregiver.Role,
			Email:  r.emails[caregiver.UserID],
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (r *fakeBabyRepo) ListCaregiverUserIDs(ctx context.Context, babyID string) ([]string, error) {
	result := make([]string, 0)
	for userID := range r.caregivers[babyID] {
		result = append(result, userID)
	}
	return result, nil
}

func (r *fakeBabyRepo) UpdateCaregiverRole(ctx context.Context, babyID, userID string, role Role) error {
	caregiver, ok := r.caregivers[babyID][userID]
	if !ok {
		return ErrCaregiverNotFound
	}
	caregiver.Role = role
	return nil
}

func (r *fakeBabyRepo) DeleteCaregiver(ctx context.Context, babyID, userID string) error {
	if _, ok := r.caregivers[babyID][userID]; !ok {
		return ErrCaregiverNotFound
	}
	delete(r.caregivers[babyID], userID)
	return nil
}

func (r *fakeBabyRepo) CountAdmins(ctx context.Context, babyID string) (int64, error) {
	var count int64
	for _, caregiver := range r.caregivers[babyID] {
		if caregiver.Role == RoleAdmin {
			count++
		}
	}
	return count, nil
}

func (r *fakeBabyRepo) CreateInvitation(ctx context.Context, invitation *Invitation) error {
	stored := *invitation
	r.invitations[invitation.Code] = &stored
	return nil
}

func (r *fakeBabyRepo) GetInvitationForUpdate(ctx context.Context, code string) (*Invitation, error) {
	invitation, ok := r.invitations[code]
	if !ok {
		return nil, ErrInvitationNotFound
	}
	result := *invitation
	return &result, nil
}

func (r *fakeBabyRepo) UpdateInvitationUses(ctx context.Context, code string, usesLeft int) error {
	invitation, ok := r.invitations[code]
	if !ok {
		return ErrInvitationNotFound
	}
	invitation.UsesLeft = usesLeft
	return nil
}

func (r *fakeBabyRepo) DeleteInvitation(ctx context.Context, code string) error {
	if _, ok := r.invitations[code]; !ok {
		return ErrInvitationNotFound
	}
	delete(r.invitations, code)
	return nil
}

func (r *fakeBabyRepo) IsCodeTaken(ctx context.Context, code string) (bool, error) {
	_, ok := r.invitations[code]
	return ok, nil
}

func (r *fakeBabyRepo) CreatePendingCaregiver(ctx context.Context, pending *PendingCaregiver) error {
	stored := *pending
	r.pending[pending.ID] = &stored
	return nil
}

func (r *fakeBabyRepo) GetPendingCaregiver(ctx context.Context, babyID, id string) (*PendingCaregiver, error) {
	pending, ok := r.pending[id]
	if !ok || pending.BabyID != babyID {
		return nil, ErrPendingInviteNotFound
	}
	result := *pending
	return &result, nil
}

func (r *fakeBabyRepo) FindPendingByEmail(ctx context.Context, babyID, email string) (*PendingCaregiver, error) {
	for _, pending := range r.pending {
		if pending.BabyID == babyID && pending.Email == email {
			result := *pending
			return &result, nil
		}
	}
	return nil, nil
}

func (r *fakeBabyRepo) ListPendingCaregivers(ctx context.Context, babyID string) ([]PendingCaregiver, error) {
	result := make([]PendingCaregiver, 0)
	for _, pending := range r.pending {
		if pending.BabyID == babyID {
			result = append(result, *pending)
		}
	}
	return result, nil
}

func (r *fakeBabyRepo) DeletePendingCaregiver(ctx context.Context, babyID, id string) error {
	if _, ok := r.pending[id]; !ok {
		return ErrPendingInviteNotFound
	}
	delete(r.pending, id)
	return nil
}

func (r *fakeBabyRepo) DeletePendingByCode(ctx context.Context, code string) error {
	for id, pending := range r.pending {
		if pending.Code == code {
			delete(r.pending, id)
		}
	}
	return nil
}

type fakeMailer struct {
	sent []InvitationEmail
	err  error
}

func (m *fakeMailer) SendInvitation(ctx context.Context, email InvitationEmail) error {
	m.sent = append(m.sent, email)
	return m.err
}

func newTestService(repo *fakeBabyRepo, mailer Mailer) *Service {
	return NewService(repo, logger.Nop(), Options{Mailer: mailer})
}

func birthdate() *time.Time {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return &date
}

func TestAddBabyValidation(t *testing.T) {
	svc := newTestService(newFakeBabyRepo(), nil)
	ctx := context.Background()
	negative := -1.0

	if _, err := svc.AddBaby(ctx, "user-1", NewBaby{Name: "  ", Birthdate: birthdate()}); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if _, err := svc.AddBaby(ctx, "user-1", NewBaby{Name: "Emma"}); !errors.Is(err, ErrBirthdateRequired) {
		t.Fatalf("expected ErrBirthdateRequired, got %v", err)
	}
	if _, err := svc.AddBaby(ctx, "user-1", NewBaby{Name: "Emma", Birthdate: birthdate(), Gender: "robot"}); !errors.Is(err, ErrInvalidGender) {
		t.Fatalf("expected ErrInvalidGender, got %v", err)
	}
	if _, err := svc.AddBaby(ctx, "user-1", NewBaby{Name: "Emma", Birthdate: birthdate(), BirthWeight: &negative}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddBabyTwiceCreatesTwoBabies(t *testing.T) {
	repo := newFakeBabyRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()
	input := NewBaby{Name: "Emma", Birthdate: birthdate(), Gender: "girl"}

	first, err := svc.AddBaby(ctx, "user-1", input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := svc.AddBaby(ctx, "user-1", input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids")
	}
	if first.Gender != GenderFemale {
		t.Fatalf("expected legacy gender normalised, got %s", first.Gender)
	}

	babies, _ := svc.ListBabies(ctx, "user-1")
	if len(babies) != 2 {
		t.Fatalf("expected two babies, got %d", len(babies))
	}
	role, err := svc.RoleFor(ctx, first.ID, "user-1")
	if err != nil || role != RoleAdmin {
		t.Fatalf("expected creator to be admin, got %q (%v)", role, err)
	}
}

func TestInviteLinkRedeemScenario(t *testing.T) {
	repo := newFakeBabyRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	emma, _ := svc.AddBaby(ctx, "user-p", NewBaby{Name: "Emma", Birthdate: birthdate()})
	list, _ := svc.ListCaregivers(ctx, "user-p", emma.ID)
	if len(list.Confirmed) != 1 || list.Confirmed[0].Role != RoleAdmin {
		t.Fatalf("expected sole admin, got %+v", list.Confirmed)
	}

	invitation, err := svc.CreateInviteLink(ctx, "user-p", emma.ID, "collaborator", 1, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(invitation.Code) != inviteCodeLength {
		t.Fatalf("unexpected code %q", invitation.Code)
	}

	baby, err := svc.RedeemInvitation(ctx, "user-q", " "+invitation.Code+" ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if baby.ID != emma.ID {
		t.Fatalf("expected redeemed baby to be Emma")
	}

	list, _ = svc.ListCaregivers(ctx, "user-p", emma.ID)
	if len(list.Confirmed) != 2 {
		t.Fatalf("expected two caregivers, got %d", len(list.Confirmed))
	}
	roles := map[string]Role{}
	for _, caregiver := range list.Confirmed {
		roles[caregiver.UserID] = caregiver.Role
	}
	if roles["user-p"] != RoleAdmin || roles["user-q"] != RoleCollaborator {
		t.Fatalf("unexpected roles %+v", roles)
	}
	if repo.invitations[invitation.Code].UsesLeft != 0 {
		t.Fatalf("expected uses_left 0, got %d", repo.invitations[invitation.Code].UsesLeft)
	}

	if _, err := svc.RedeemInvitation(ctx, "user-r", invitation.Code); !errors.Is(err, ErrInvitationExhausted) {
		t.Fatalf("expected ErrInvitationExhausted, got %v", err)
	}
}

func TestRedeemInvitationErrors(t *testing.T) {
	repo := newFakeBabyRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	emma, _ := svc.AddBaby(ctx, "user-p", NewBaby{Name: "Emma", Birthdate: birthdate()})

	if _, err := svc.RedeemInvitation(ctx, "user-q", "NOPE1234"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.RedeemInvitation(ctx, "user-q", " "); !errors.Is(err, ErrCodeRequired) {
		t.Fatalf("expected ErrCodeRequired, got %v", err)
	}

	invitation, _ := svc.CreateInviteLink(ctx, "user-p", emma.ID, "viewer", 3, time.Hour)
	if _, err := svc.RedeemInvitation(ctx, "user-p", invitation.Code); !errors.Is(err, ErrAlreadyCaregiver) {
		t.Fatalf("expected ErrAlreadyCaregiver, got %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.RedeemInvitation(ctx, "user-q", invitation.Code); !errors.Is(err, ErrInvitationExpired) {
		t.Fatalf("expected ErrInvitationExpired, got %v", err)
	}
}

func TestUpdateCaregiverRoleRoundTrip(t *testing.T) {
	repo := newFakeBabyRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	emma, _ := svc.AddBaby(ctx, "user-p", NewBaby{Name: "Emma", Birthdate: birthdate()})
	invitation, _ := svc.CreateInviteLink(ctx, "user-p", emma.ID, "collaborator", 1, 0)
	_, _ = svc.RedeemInvitation(ctx, "user-q", invitation.Code)

	if err := svc.UpdateCaregiverRole(ctx, "user-p", emma.ID, "user-q", "viewer"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	list, _ := svc.ListCaregivers(ctx, "user-p", emma.ID)
	for _, caregiver := range list.Confirmed {
		if caregiver.UserID == "user-q" && caregiver.Role != RoleViewer {
			t.Fatalf("expected viewer, got %s", caregiver.Role)
		}
	}

	if err := svc.UpdateCaregiverRole(ctx, "user-p", emma.ID, "user-q", "owner"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if err := svc.UpdateCaregiverRole(ctx, "user-q", emma.ID, "user-p", "viewer"); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed for viewer, got %v", err)
	}
}

func TestLastAdminIsProtected(t *testing.T) {
	repo := newFakeBabyRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	emma, _ := svc.AddBaby(ctx, "user-p", NewBaby{Name: "Emma", Birthdate: birthdate()})

	if err := svc.UpdateCaregiverRole(ctx, "user-p", emma.ID, "user-p", "viewer"); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin on demotion, got %v", err)
	}
	if err := svc.RemoveCaregiver(ctx, "user-p", emma.ID, "user-p"); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin on removal, got %v", err)
	}
	if !errors.Is(ErrLastAdmin, apperr.ErrConflict) {
		t.Fatalf("expected last admin to be a conflict")
	}
}

func TestRemoveCaregiverSelf(t *testing.T) {
	repo := newFakeBabyRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	emma, _ := svc.AddBaby(ctx, "user-p", NewBaby{Name: "Emma", Birthdate: birthdate()})
	invitation, _ := svc.CreateInviteLink(ctx, "user-p", emma.ID, "viewer", 1, 0)
	_, _ = svc.RedeemInvitation(ctx, "user-q", invitation.Code)

	if err := svc.RemoveCaregiver(ctx, "user-q", emma.ID, "user-p"); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected viewer unable to remove admin, got %v", err)
	}
	if err := svc.RemoveCaregiver(ctx, "user-q", emma.ID, "user-q"); err != nil {
		t.Fatalf("expected self removal to succeed, got %v", err)
	}
	if _, err := svc.RoleFor(ctx, emma.ID, "user-q"); !errors.Is(err, ErrNotCaregiver) {
		t.Fatalf("expected ErrNotCaregiver, got %v", err)
	}
}

func TestAuthorizeCapabilities(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleViewer, ActionView, true},
		{RoleViewer, ActionTrack, false},
		{RoleCollaborator, ActionTrack, true},
		{RoleCollaborator, ActionManage, false},
		{RoleAdmin, ActionManage, true},
		{Role("owner"), ActionView, false},
	}
	for _, tc := range cases {
		if got := tc.role.Can(tc.action); got != tc.want {
			t.Fatalf("%s/%s: expected %v, got %v", tc.role, tc.action, tc.want, got)
		}
	}
}

func TestInviteCaregiverByEmail(t *testing.T) {
	repo := newFakeBabyRepo()
	mailer := &fakeMailer{}
	svc := newTestService(repo, mailer)
	ctx := context.Background()

	emma, _ := svc.AddBaby(ctx, "user-p", NewBaby{Name: "Emma", Birthdate: birthdate()})

	if _, err := svc.InviteCaregiverByEmail(ctx, "user-p", "p@example.com", emma.ID, "not-an-email", "viewer"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}

	pending, err := svc.InviteCaregiverByEmail(ctx, "user-p", "p@example.com", emma.ID, "Grandma@Example.com", "viewer")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pending.Email != "grandma@example.com" {
		t.Fatalf("expected normalised email, got %q", pending.Email)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].BabyName != "Emma" || mailer.sent[0].Code != pending.Code {
		t.Fatalf("unexpected mail %+v", mailer.sent)
	}
	if repo.invitations[pending.Code].UsesLeft != 1 {
		t.Fatalf("expected single-use invitation")
	}

	if _, err := svc.InviteCaregiverByEmail(ctx, "user-p", "p@example.com", emma.ID, "grandma@example.com", "admin"); !errors.Is(err, ErrInviteAlreadyPending) {
		t.Fatalf("expected ErrInviteAlreadyPending, got %v", err)
	}

	if _, err := svc.RedeemInvitation(ctx, "user-g", pending.Code); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(repo.pending) != 0 {
		t.Fatalf("expected pending row removed after redemption")
	}
}

func TestInviteKeptWhenMailFails(t *testing.T) {
	repo := newFakeBabyRepo()
	svc := newTestService(repo, &fakeMailer{err: errors.New("ses throttled")})
	ctx := context.Background()

	emma, _ := svc.AddBaby(ctx, "user-p", NewBaby{Name: "Emma", Birthdate: birthdate()})
	if _, err := svc.InviteCaregiverByEmail(ctx, "user-p", "", emma.ID, "dad@example.com", "collaborator"); err != nil {
		t.Fatalf("expected invite to survive mail failure, got %v", err)
	}
	if len(repo.pending) != 1 {
		t.Fatalf("expected pending invite stored")
	}
}

func TestCancelPendingInvite(t *testing.T) {
	repo := newFakeBabyRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	emma, _ := svc.AddBaby(ctx, "user-p", NewBaby{Name: "Emma", Birthdate: birthdate()})
	pending, _ := svc.InviteCaregiverByEmail(ctx, "user-p", "", emma.ID, "aunt@example.com", "viewer")

	if err := svc.CancelPendingInvite(ctx, "user-p", emma.ID, pending.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(repo.pending) != 0 || len(repo.invitations) != 0 {
		t.Fatalf("expected pending row and invitation removed")
	}
	if err := svc.CancelPendingInvite(ctx, "user-p", emma.ID, pending.ID); !errors.Is(err, ErrPendingInviteNotFound) {
		t.Fatalf("expected ErrPendingInviteNotFound, got %v", err)
	}
}

func TestCreateInviteLinkValidation(t *testing.T) {
	svc := newTestService(newFakeBabyRepo(), nil)
	ctx := context.Background()
	emma, _ := svc.AddBaby(ctx, "user-p", NewBaby{Name: "Emma", Birthdate: birthdate()})

	if _, err := svc.CreateInviteLink(ctx, "user-p", emma.ID, "collaborator", -2, 0); !errors.Is(err, ErrInvalidUses) {
		t.Fatalf("expected ErrInvalidUses, got %v", err)
	}
	if _, err := svc.CreateInviteLink(ctx, "user-p", emma.ID, "collaborator", 1, -time.Hour); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
	if _, err := svc.CreateInviteLink(ctx, "stranger", emma.ID, "collaborator", 1, 0); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateAndDeleteBabyRequireAdmin(t *testing.T) {
	repo := newFakeBabyRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	emma, _ := svc.AddBaby(ctx, "user-p", NewBaby{Name: "Emma", Birthdate: birthdate()})
	invitation, _ := svc.CreateInviteLink(ctx, "user-p", emma.ID, "collaborator", 1, 0)
	_, _ = svc.RedeemInvitation(ctx, "user-q", invitation.Code)

	name := "Emma Rose"
	if _, err := svc.UpdateBaby(ctx, "user-q", emma.ID, BabyUpdate{Name: &name}); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}
	updated, err := svc.UpdateBaby(ctx, "user-p", emma.ID, BabyUpdate{Name: &name})
	if err != nil || updated.Name != "Emma Rose" {
		t.Fatalf("expected rename, got %+v (%v)", updated, err)
	}

	if err := svc.DeleteBaby(ctx, "user-q", emma.ID); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}
	if err := svc.DeleteBaby(ctx, "user-p", emma.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(repo.babies) != 0 {
		t.Fatalf("expected baby removed")
	}
}

func TestGenerateCodeUsesUnambiguousAlphabet(t *testing.T) {
	code, err := generateCode(inviteCodeLength)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 characters, got %q", code)
	}
	for _, r := range code {
		if strings.ContainsRune("01IO", r) {
			t.Fatalf("unexpected ambiguous character in %q", code)
		}
	}
}
