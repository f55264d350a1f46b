package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	babydomain "babyhabits/internal/domain/baby"
	trackingdomain "babyhabits/internal/domain/tracking"
)

func TestTransactionRollsBackOnError(t *testing.T) {
	store := NewStore()
	repo := NewBabyRepository(store)
	ctx := context.Background()
	failure := errors.New("boom")

	err := repo.Transaction(ctx, func(tx babydomain.Repository) error {
		if err := tx.CreateBaby(ctx, &babydomain.Baby{ID: "baby-1", Name: "Emma", CreatedBy: "user-1"}); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected failure, got %v", err)
	}
	if _, err := repo.GetBaby(ctx, "baby-1"); !errors.Is(err, babydomain.ErrBabyNotFound) {
		t.Fatalf("expected baby rolled back, got %v", err)
	}
}

func TestUpsertCaregiverIgnoresExistingPair(t *testing.T) {
	repo := NewBabyRepository(NewStore())
	ctx := context.Background()

	_ = repo.CreateBaby(ctx, &babydomain.Baby{ID: "baby-1", Name: "Emma", CreatedBy: "user-1"})
	if err := repo.UpsertCaregiver(ctx, &babydomain.Caregiver{BabyID: "baby-1", UserID: "user-1", Role: babydomain.RoleAdmin}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := repo.UpsertCaregiver(ctx, &babydomain.Caregiver{BabyID: "baby-1", UserID: "user-1", Role: babydomain.RoleViewer}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	caregiver, _ := repo.GetCaregiver(ctx, "baby-1", "user-1")
	if caregiver.Role != babydomain.RoleAdmin {
		t.Fatalf("expected existing role kept, got %s", caregiver.Role)
	}
	if err := repo.AddCaregiver(ctx, &babydomain.Caregiver{BabyID: "baby-1", UserID: "user-1", Role: babydomain.RoleViewer}); !errors.Is(err, babydomain.ErrAlreadyCaregiver) {
		t.Fatalf("expected already caregiver, got %v", err)
	}
}

func TestDeleteBabyCascades(t *testing.T) {
	store := NewStore()
	babies := NewBabyRepository(store)
	tracking := NewTrackingRepository(store)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = babies.CreateBaby(ctx, &babydomain.Baby{ID: "baby-1", Name: "Emma", CreatedBy: "user-1"})
	_ = babies.UpsertCaregiver(ctx, &babydomain.Caregiver{BabyID: "baby-1", UserID: "user-1", Role: babydomain.RoleAdmin})
	_ = tracking.CreateDiaper(ctx, &trackingdomain.DiaperEvent{ID: "d1", BabyID: "baby-1", Timestamp: now, Type: trackingdomain.DiaperWet})

	if err := babies.DeleteBaby(ctx, "baby-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	list, _ := babies.ListBabiesForUser(ctx, "user-1")
	if len(list) != 0 {
		t.Fatalf("expected no babies, got %d", len(list))
	}
	diapers, _ := tracking.ListDiapers(ctx, "baby-1", now.Add(-time.Hour), now.Add(time.Hour))
	if len(diapers) != 0 {
		t.Fatalf("expected diapers removed, got %d", len(diapers))
	}
}

func TestSingleOpenFeedingPerBaby(t *testing.T) {
	repo := NewTrackingRepository(NewStore())
	ctx := context.Background()
	now := time.Now().UTC()

	first := &trackingdomain.FeedingSession{ID: "f1", BabyID: "baby-1", StartTime: now, Side: trackingdomain.SideLeft}
	if err := repo.CreateFeeding(ctx, first); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second := &trackingdomain.FeedingSession{ID: "f2", BabyID: "baby-1", StartTime: now, Side: trackingdomain.SideRight}
	if err := repo.CreateFeeding(ctx, second); !errors.Is(err, trackingdomain.ErrFeedingAlreadyOpen) {
		t.Fatalf("expected already open, got %v", err)
	}

	end := now.Add(10 * time.Minute)
	minutes := 10
	first.EndTime = &end
	first.Duration = &minutes
	closed, err := repo.CloseFeeding(ctx, first)
	if err != nil || !closed {
		t.Fatalf("expected close, got %v %v", closed, err)
	}
	closed, _ = repo.CloseFeeding(ctx, first)
	if closed {
		t.Fatalf("expected second close to be a no-op")
	}
	open, _ := repo.FindOpenFeeding(ctx, "baby-1")
	if open != nil {
		t.Fatalf("expected no open feeding, got %+v", open)
	}
}

func TestRecentWeightsNewestFirst(t *testing.T) {
	repo := NewTrackingRepository(NewStore())
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, grams := range []int{3100, 3200, 3300} {
		_ = repo.CreateWeight(ctx, &trackingdomain.WeightEntry{
			ID:          string(rune('a' + i)),
			BabyID:      "baby-1",
			Timestamp:   base.Add(time.Duration(i) * 24 * time.Hour),
			WeightGrams: grams,
		})
	}

	entries, _ := repo.ListRecentWeights(ctx, "baby-1", 2)
	if len(entries) != 2 || entries[0].WeightGrams != 3300 || entries[1].WeightGrams != 3200 {
		t.Fatalf("unexpected recent weights %+v", entries)
	}
}

func TestBabiesCacheReturnsCopies(t *testing.T) {
	cache := NewBabiesCache()
	birthdate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	cache.SetByUserID("user-1", []babydomain.Baby{{ID: "baby-1", Name: "Emma", Birthdate: &birthdate}}, time.Minute)

	cached, ok := cache.GetByUserID("user-1")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	cached[0].Name = "Changed"
	*cached[0].Birthdate = time.Time{}

	again, _ := cache.GetByUserID("user-1")
	if again[0].Name != "Emma" || again[0].Birthdate.IsZero() {
		t.Fatalf("expected cached value untouched, got %+v", again[0])
	}

	cache.SetByUserID("user-1", nil, 0)
	if _, ok := cache.GetByUserID("user-1"); ok {
		t.Fatalf("expected entry removed for zero ttl")
	}
}
