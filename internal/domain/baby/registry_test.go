package baby

import (
	"context"
	"testing"
)

type fakePrefs struct {
	pending map[string]string
	current map[string]string
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{pending: make(map[string]string), current: make(map[string]string)}
}

func (p *fakePrefs) PendingInviteCode(ctx context.Context, userID string) (string, error) {
	return p.pending[userID], nil
}

func (p *fakePrefs) ClearPendingInviteCode(ctx context.Context, userID string) error {
	delete(p.pending, userID)
	return nil
}

func (p *fakePrefs) CurrentBaby(ctx context.Context, userID string) (string, error) {
	return p.current[userID], nil
}

func (p *fakePrefs) SetCurrentBaby(ctx context.Context, userID, babyID string) error {
	if babyID == "" {
		delete(p.current, userID)
		return nil
	}
	p.current[userID] = babyID
	return nil
}

func TestRegistryLoadRestoresSelection(t *testing.T) {
	repo := newFakeBabyRepo()
	svc := newTestService(repo, nil)
	prefs := newFakePrefs()
	ctx := context.Background()

	first, _ := svc.AddBaby(ctx, "user-1", NewBaby{Name: "Emma", Birthdate: birthdate()})
	second, _ := svc.AddBaby(ctx, "user-1", NewBaby{Name: "Noah", Birthdate: birthdate()})

	registry := NewRegistry(svc, prefs, "user-1")
	babies, current, err := registry.Load(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(babies) != 2 || babies[0].ID != first.ID {
		t.Fatalf("expected creation order, got %+v", babies)
	}
	if current == nil || current.ID != first.ID {
		t.Fatalf("expected fallback to first baby, got %+v", current)
	}

	if _, err := registry.Select(ctx, second.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	_, current, _ = NewRegistry(svc, prefs, "user-1").Load(ctx)
	if current == nil || current.ID != second.ID {
		t.Fatalf("expected persisted selection, got %+v", current)
	}
}

func TestRegistrySelectUnknownIsNoop(t *testing.T) {
	svc := newTestService(newFakeBabyRepo(), nil)
	prefs := newFakePrefs()
	ctx := context.Background()

	emma, _ := svc.AddBaby(ctx, "user-1", NewBaby{Name: "Emma", Birthdate: birthdate()})
	registry := NewRegistry(svc, prefs, "user-1")
	_, _, _ = registry.Load(ctx)

	current, err := registry.Select(ctx, "missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if current == nil || current.ID != emma.ID {
		t.Fatalf("expected selection unchanged, got %+v", current)
	}
	if _, ok := prefs.current["user-1"]; ok {
		t.Fatalf("expected nothing persisted for unknown id")
	}
}

func TestRegistryRedeemsPendingCodeOnLoad(t *testing.T) {
	repo := newFakeBabyRepo()
	svc := newTestService(repo, nil)
	prefs := newFakePrefs()
	ctx := context.Background()

	emma, _ := svc.AddBaby(ctx, "user-p", NewBaby{Name: "Emma", Birthdate: birthdate()})
	invitation, _ := svc.CreateInviteLink(ctx, "user-p", emma.ID, "collaborator", 1, 0)
	prefs.pending["user-q"] = invitation.Code

	babies, current, err := NewRegistry(svc, prefs, "user-q").Load(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(babies) != 1 || current == nil || current.ID != emma.ID {
		t.Fatalf("expected Emma selected after redemption, got %+v / %+v", babies, current)
	}
	if _, ok := prefs.pending["user-q"]; ok {
		t.Fatalf("expected pending code cleared")
	}
}

func TestRegistryClearsPendingCodeOnFailure(t *testing.T) {
	svc := newTestService(newFakeBabyRepo(), nil)
	prefs := newFakePrefs()
	prefs.pending["user-q"] = "BADCODE1"

	babies, current, err := NewRegistry(svc, prefs, "user-q").Load(context.Background())
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if len(babies) != 0 || current != nil {
		t.Fatalf("expected empty registry")
	}
	if _, ok := prefs.pending["user-q"]; ok {
		t.Fatalf("expected pending code cleared after failed redemption")
	}
}

func TestRegistryDeleteClearsCurrent(t *testing.T) {
	svc := newTestService(newFakeBabyRepo(), nil)
	prefs := newFakePrefs()
	ctx := context.Background()

	registry := NewRegistry(svc, prefs, "user-1")
	_, _, _ = registry.Load(ctx)
	emma, err := registry.Add(ctx, NewBaby{Name: "Emma", Birthdate: birthdate()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if registry.Current() == nil || prefs.current["user-1"] != emma.ID {
		t.Fatalf("expected first added baby selected")
	}

	if err := registry.Delete(ctx, emma.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if registry.Current() != nil || len(registry.Babies()) != 0 {
		t.Fatalf("expected empty selection after delete")
	}
	if _, ok := prefs.current["user-1"]; ok {
		t.Fatalf("expected persisted selection cleared")
	}
}
