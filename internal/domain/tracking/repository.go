package tracking

import (
	"context"
	"time"
)

// Repository is the persistent store for sessions and events. Finders
// return (nil, nil) when nothing is open; getters return the domain
// not-found sentinel.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	LockBaby(ctx context.Context, babyID string) error

	CreateFeeding(ctx context.Context, session *FeedingSession) error
	GetFeeding(ctx context.Context, babyID, id string) (*FeedingSession, error)
	FindOpenFeeding(ctx context.Context, babyID string) (*FeedingSession, error)
	ListOpenFeedingsStartedBefore(ctx context.Context, babyID string, before time.Time) ([]FeedingSession, error)
	CloseFeeding(ctx context.Context, session *FeedingSession) (bool, error)
	ListFeedings(ctx context.Context, babyID string, from, to time.Time) ([]FeedingSession, error)

	CreateSleep(ctx context.Context, session *SleepSession) error
	GetSleep(ctx context.Context, babyID, id string) (*SleepSession, error)
	FindOpenSleep(ctx context.Context, babyID string) (*SleepSession, error)
	ListOpenSleepsStartedBefore(ctx context.Context, babyID string, before time.Time) ([]SleepSession, error)
	CloseSleep(ctx context.Context, session *SleepSession) (bool, error)
	ListSleeps(ctx context.Context, babyID string, from, to time.Time) ([]SleepSession, error)

	CreateDiaper(ctx context.Context, event *DiaperEvent) error
	ListDiapers(ctx context.Context, babyID string, from, to time.Time) ([]DiaperEvent, error)
	DeleteDiaper(ctx context.Context, babyID, id string) (bool, error)

	CreateWeight(ctx context.Context, entry *WeightEntry) error
	ListRecentWeights(ctx context.Context, babyID string, limit int) ([]WeightEntry, error)
	ListWeights(ctx context.Context, babyID string, from, to time.Time) ([]WeightEntry, error)
	DeleteWeight(ctx context.Context, babyID, id string) (bool, error)

	UpdateNote(ctx context.Context, kind EventKind, babyID, id, note string) (bool, error)
}
