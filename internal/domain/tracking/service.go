package tracking

import (
	"context"
	"sync"
	"time"

	"babyhabits/internal/domain/apperr"
	"babyhabits/internal/realtime"
	"babyhabits/pkg/logger"
)

// Policy holds the tracking timeouts and cache settings.
type Policy struct {
	FeedingStaleAfter   time.Duration
	SleepStaleAfter     time.Duration
	FeedingReapDuration time.Duration
	SleepReapDuration   time.Duration
	RecentWeights       int
	SnapshotTTL         time.Duration
	// IdleAfter evicts trackers not handed out for this long.
	IdleAfter time.Duration
	Location  *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		FeedingStaleAfter:   6 * time.Hour,
		SleepStaleAfter:     18 * time.Hour,
		FeedingReapDuration: 30 * time.Minute,
		SleepReapDuration:   10 * time.Hour,
		RecentWeights:       7,
		SnapshotTTL:         time.Minute,
		IdleAfter:           30 * time.Minute,
		Location:            time.UTC,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.FeedingStaleAfter <= 0 {
		p.FeedingStaleAfter = def.FeedingStaleAfter
	}
	if p.SleepStaleAfter <= 0 {
		p.SleepStaleAfter = def.SleepStaleAfter
	}
	if p.FeedingReapDuration <= 0 {
		p.FeedingReapDuration = def.FeedingReapDuration
	}
	if p.SleepReapDuration <= 0 {
		p.SleepReapDuration = def.SleepReapDuration
	}
	if p.RecentWeights <= 0 {
		p.RecentWeights = def.RecentWeights
	}
	if p.IdleAfter <= 0 {
		p.IdleAfter = def.IdleAfter
	}
	if p.Location == nil {
		p.Location = def.Location
	}
	return p
}

// Service hands out one Tracker per (user, baby) scope and routes realtime
// invalidations to them.
type Service struct {
	repo      Repository
	sides     SidePreferences
	publisher realtime.Publisher
	policy    Policy
	log       logger.Logger
	now       func() time.Time

	mu        sync.Mutex
	trackers  map[Scope]*trackerEntry
	lastSweep time.Time
}

type trackerEntry struct {
	tracker  *Tracker
	lastUsed time.Time
}

func NewService(repo Repository, sides SidePreferences, publisher realtime.Publisher, policy Policy, log logger.Logger) *Service {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if sides == nil {
		sides = noopSides{}
	}
	return &Service{
		repo:      repo,
		sides:     sides,
		publisher: publisher,
		policy:    policy.withDefaults(),
		log:       log,
		now:       time.Now,
		trackers:  make(map[Scope]*trackerEntry),
	}
}

func (s *Service) Policy() Policy {
	return s.policy
}

func (s *Service) Tracker(userID, babyID string) *Tracker {
	scope := Scope{UserID: userID, BabyID: babyID}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictIdle(now)
	if entry, ok := s.trackers[scope]; ok {
		entry.lastUsed = now
		return entry.tracker
	}
	tracker := &Tracker{
		scope:     scope,
		repo:      s.repo,
		sides:     s.sides,
		publisher: s.publisher,
		policy:    s.policy,
		log:       s.log,
		now:       s.now,
	}
	s.trackers[scope] = &trackerEntry{tracker: tracker, lastUsed: now}
	return tracker
}

// evictIdle drops trackers unused for IdleAfter. Callers still holding one
// keep working; the next Tracker call builds a fresh one. Caller holds s.mu.
func (s *Service) evictIdle(now time.Time) {
	if now.Sub(s.lastSweep) < s.policy.IdleAfter {
		return
	}
	s.lastSweep = now
	for scope, entry := range s.trackers {
		if now.Sub(entry.lastUsed) >= s.policy.IdleAfter {
			delete(s.trackers, scope)
		}
	}
}

// HandleChange invalidates every tracker watching the changed baby. A
// deleted baby drops its trackers entirely.
func (s *Service) HandleChange(change realtime.Change) {
	s.mu.Lock()
	var affected []*Tracker
	for scope, entry := range s.trackers {
		if scope.BabyID != change.BabyID {
			continue
		}
		if change.Table == realtime.TableBabies && change.Op == realtime.OpDelete {
			delete(s.trackers, scope)
			continue
		}
		affected = append(affected, entry.tracker)
	}
	s.mu.Unlock()

	for _, tracker := range affected {
		tracker.Invalidate()
	}
}

// Forget drops every tracker held for a user, e.g. after sign-out.
func (s *Service) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for scope := range s.trackers {
		if scope.UserID == userID {
			delete(s.trackers, scope)
		}
	}
}

// Subscribe wires HandleChange to every baby on the bus.
func (s *Service) Subscribe(ctx context.Context, sub realtime.Subscriber) (func(), error) {
	return sub.Subscribe(ctx, "", s.HandleChange)
}

// History returns every record of a baby in [from, to).
func (s *Service) History(ctx context.Context, babyID string, from, to time.Time) (History, error) {
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return History{}, ErrInvalidHistoryInterval
	}
	from, to = from.UTC(), to.UTC()

	feedings, err := s.repo.ListFeedings(ctx, babyID, from, to)
	if err != nil {
		return History{}, s.storeErr("list feeding sessions", babyID, err)
	}
	sleeps, err := s.repo.ListSleeps(ctx, babyID, from, to)
	if err != nil {
		return History{}, s.storeErr("list sleep sessions", babyID, err)
	}
	diapers, err := s.repo.ListDiapers(ctx, babyID, from, to)
	if err != nil {
		return History{}, s.storeErr("list diaper events", babyID, err)
	}
	weights, err := s.repo.ListWeights(ctx, babyID, from, to)
	if err != nil {
		return History{}, s.storeErr("list weight entries", babyID, err)
	}

	return History{
		From:            from,
		To:              to,
		FeedingSessions: feedings,
		SleepSessions:   sleeps,
		DiaperEvents:    diapers,
		WeightEntries:   weights,
	}, nil
}

func (s *Service) storeErr(op, babyID string, err error) error {
	s.log.InternalError("tracking.history: "+op+" failed", err, "baby_id", babyID)
	return apperr.Store(op, err)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, realtime.Change) error { return nil }

type noopSides struct{}

func (noopSides) LastSide(context.Context, string, string) (string, error) { return "", nil }

func (noopSides) SetLastSide(context.Context, string, string, string) error { return nil }
