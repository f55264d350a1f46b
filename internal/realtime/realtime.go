// Package realtime carries change notifications for baby-scoped tables.
//
// Consumers treat every Change as an invalidation: they drop cached state
// and refetch, they never merge the payload.
package realtime

import (
	"context"
	"time"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

const (
	TableBabies            = "babies"
	TableCaregivers        = "caregivers"
	TableInvitations       = "invitations"
	TablePendingCaregivers = "pending_caregivers"
	TableFeedingSessions   = "feeding_sessions"
	TableSleepSessions     = "sleep_sessions"
	TableDiaperEvents      = "diaper_events"
	TableWeightEntries     = "weight_entries"
)

type Change struct {
	Table  string    `json:"table"`
	BabyID string    `json:"baby_id"`
	Op     Op        `json:"op"`
	At     time.Time `json:"at"`
}

type Handler func(Change)

type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Subscriber delivers changes for one baby, or for every baby when babyID
// is empty. The returned function cancels the subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, babyID string, fn Handler) (func(), error)
}

type Bus interface {
	Publisher
	Subscriber
	Close() error
}
