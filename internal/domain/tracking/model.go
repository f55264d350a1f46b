package tracking

import (
	"strings"
	"time"
)

type FeedingKind string

const (
	KindBreastfeeding FeedingKind = "breastfeeding"
	KindBottle        FeedingKind = "bottle"
	KindFood          FeedingKind = "food"
)

type Side string

const (
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideBoth   Side = "both"
	SideBottle Side = "bottle"
	SideFood   Side = "food"
)

type DiaperType string

const (
	DiaperWet   DiaperType = "wet"
	DiaperDirty DiaperType = "dirty"
	DiaperMixed DiaperType = "mixed"
)

// EventKind names a tracked table in URLs and note/delete operations.
type EventKind string

const (
	EventFeedings EventKind = "feedings"
	EventSleeps   EventKind = "sleeps"
	EventDiapers  EventKind = "diapers"
	EventWeights  EventKind = "weights"
)

var (
	diaperColors   = []string{"yellow", "green", "brown", "black", "red", "white", "other"}
	diaperTextures = []string{"liquid", "soft", "normal", "hard"}
)

type FeedingSession struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	BabyID    string     `gorm:"type:uuid;index;not null"`
	StartTime time.Time  `gorm:"not null"`
	EndTime   *time.Time `gorm:"index"`
	Duration  *int
	Side      Side      `gorm:"type:varchar(16);not null"`
	Amount    *float64  `gorm:"type:numeric(8,2)"`
	Note      string    `gorm:"type:text;not null;default:''"`
	CreatedBy string    `gorm:"type:uuid"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (s FeedingSession) IsOpen() bool {
	return s.EndTime == nil
}

func (s FeedingSession) Kind() FeedingKind {
	switch s.Side {
	case SideBottle:
		return KindBottle
	case SideFood:
		return KindFood
	default:
		return KindBreastfeeding
	}
}

type SleepSession struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	BabyID    string     `gorm:"type:uuid;index;not null"`
	StartTime time.Time  `gorm:"not null"`
	EndTime   *time.Time `gorm:"index"`
	Duration  *int
	Note      string    `gorm:"type:text;not null;default:''"`
	CreatedBy string    `gorm:"type:uuid"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (s SleepSession) IsOpen() bool {
	return s.EndTime == nil
}

type DiaperEvent struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	BabyID    string     `gorm:"type:uuid;index;not null"`
	Timestamp time.Time  `gorm:"not null"`
	Type      DiaperType `gorm:"type:varchar(8);not null"`
	Color     *string    `gorm:"type:varchar(16)"`
	Texture   *string    `gorm:"type:varchar(16)"`
	HasMucus  *bool
	Note      string    `gorm:"type:text;not null;default:''"`
	CreatedBy string    `gorm:"type:uuid"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// IsWet and IsDirty treat a mixed diaper as both.
func (e DiaperEvent) IsWet() bool {
	return e.Type == DiaperWet || e.Type == DiaperMixed
}

func (e DiaperEvent) IsDirty() bool {
	return e.Type == DiaperDirty || e.Type == DiaperMixed
}

type WeightEntry struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	BabyID      string    `gorm:"type:uuid;index;not null"`
	Timestamp   time.Time `gorm:"not null"`
	WeightGrams int       `gorm:"not null"`
	Note        string    `gorm:"type:text;not null;default:''"`
	CreatedBy   string    `gorm:"type:uuid"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// FeedingStart is the single explicit parameter shape for starting a feeding.
type FeedingStart struct {
	Kind   FeedingKind
	Side   *Side
	Amount *float64
	Note   string
}

type DiaperDetails struct {
	Color    string
	Texture  string
	HasMucus *bool
}

type TodayData struct {
	Day             time.Time
	FeedingSessions []FeedingSession
	SleepSessions   []SleepSession
	DiaperEvents    []DiaperEvent
	WeightEntries   []WeightEntry
	LoadedAt        time.Time
}

type History struct {
	From            time.Time
	To              time.Time
	FeedingSessions []FeedingSession
	SleepSessions   []SleepSession
	DiaperEvents    []DiaperEvent
	WeightEntries   []WeightEntry
}

// ParseSide accepts the canonical side names and the "breast" variants used
// by older clients ("L", "R", "left_breast").
func ParseSide(value string) (Side, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.TrimSuffix(value, "_breast")
	switch value {
	case "left", "l":
		return SideLeft, true
	case "right", "r":
		return SideRight, true
	case "both":
		return SideBoth, true
	case "bottle":
		return SideBottle, true
	case "food", "solid", "solids":
		return SideFood, true
	}
	return "", false
}

func oppositeSide(last string) Side {
	if Side(last) == SideLeft {
		return SideRight
	}
	return SideLeft
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
