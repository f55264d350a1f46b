package tracking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"babyhabits/internal/domain/apperr"
	"babyhabits/internal/realtime"
	"babyhabits/pkg/logger"
	"github.com/google/uuid"
)

// Scope identifies one principal looking at one baby.
type Scope struct {
	UserID string
	BabyID string
}

// SidePreferences remembers the last breast side used per baby.
type SidePreferences interface {
	LastSide(ctx context.Context, userID, babyID string) (string, error)
	SetLastSide(ctx context.Context, userID, babyID, side string) error
}

// Tracker owns the open-session pointers and today's cached data for one
// scope. All methods are safe for concurrent use; writes for one scope are
// serialized.
type Tracker struct {
	mu        sync.Mutex
	scope     Scope
	repo      Repository
	sides     SidePreferences
	publisher realtime.Publisher
	policy    Policy
	log       logger.Logger
	now       func() time.Time

	currentFeeding *FeedingSession
	currentSleep   *SleepSession
	today          *TodayData
	stale          bool
	pending        []realtime.Change
}

func (t *Tracker) Scope() Scope {
	return t.scope
}

func (t *Tracker) StartFeeding(ctx context.Context, in FeedingStart) (*FeedingSession, error) {
	var result *FeedingSession
	err := t.run(ctx, func() error {
		session, err := t.startFeeding(ctx, in)
		result = session
		return err
	})
	return result, err
}

func (t *Tracker) EndFeeding(ctx context.Context, sessionID, note string) (*FeedingSession, error) {
	var result *FeedingSession
	err := t.run(ctx, func() error {
		session, err := t.endFeeding(ctx, strings.TrimSpace(sessionID), note)
		result = session
		return err
	})
	return result, err
}

func (t *Tracker) StartSleep(ctx context.Context, note string) (*SleepSession, error) {
	var result *SleepSession
	err := t.run(ctx, func() error {
		session, err := t.startSleep(ctx, note)
		result = session
		return err
	})
	return result, err
}

func (t *Tracker) EndSleep(ctx context.Context, sessionID, note string) (*SleepSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	var result *SleepSession
	err := t.run(ctx, func() error {
		session, err := t.endSleep(ctx, sessionID, note)
		result = session
		return err
	})
	return result, err
}

func (t *Tracker) AddDiaper(ctx context.Context, diaperType DiaperType, details *DiaperDetails, note string) (*DiaperEvent, error) {
	event, err := newDiaperEvent(diaperType, details)
	if err != nil {
		return nil, err
	}

	err = t.run(ctx, func() error {
		event.ID = uuid.NewString()
		event.BabyID = t.scope.BabyID
		event.Timestamp = t.now().UTC()
		event.Note = strings.TrimSpace(note)
		event.CreatedBy = t.scope.UserID
		if err := t.repo.CreateDiaper(ctx, event); err != nil {
			return t.storeErr("add diaper event", err)
		}
		t.queue(realtime.TableDiaperEvents, realtime.OpInsert)
		t.reload(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (t *Tracker) AddWeight(ctx context.Context, grams int, note string) (*WeightEntry, error) {
	if grams <= 0 {
		return nil, ErrInvalidWeight
	}

	entry := &WeightEntry{WeightGrams: grams}
	err := t.run(ctx, func() error {
		entry.ID = uuid.NewString()
		entry.BabyID = t.scope.BabyID
		entry.Timestamp = t.now().UTC()
		entry.Note = strings.TrimSpace(note)
		entry.CreatedBy = t.scope.UserID
		if err := t.repo.CreateWeight(ctx, entry); err != nil {
			return t.storeErr("add weight entry", err)
		}
		t.queue(realtime.TableWeightEntries, realtime.OpInsert)
		t.reload(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ReapStaleSessions closes sessions left open past their timeout. Failures
// are logged and never returned.
func (t *Tracker) ReapStaleSessions(ctx context.Context) bool {
	reaped := false
	_ = t.run(ctx, func() error {
		reaped = t.reap(ctx)
		if reaped {
			t.reload(ctx)
		}
		return nil
	})
	return reaped
}

func (t *Tracker) LoadTodayData(ctx context.Context) (TodayData, error) {
	var data TodayData
	err := t.run(ctx, func() error {
		var err error
		data, err = t.load(ctx)
		return err
	})
	return data, err
}

// Snapshot returns cached data and stats, reloading when the cache was
// invalidated, has expired or belongs to another day.
func (t *Tracker) Snapshot(ctx context.Context) (TodayData, Stats, error) {
	var (
		data  TodayData
		stats Stats
	)
	err := t.run(ctx, func() error {
		if t.needsReload() {
			if _, err := t.load(ctx); err != nil {
				return err
			}
		}
		data = *t.today
		stats = ComputeStats(data, t.currentFeeding, t.currentSleep)
		return nil
	})
	return data, stats, err
}

// TodayStats derives statistics from whatever is cached. It never touches the store.
func (t *Tracker) TodayStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	var data TodayData
	if t.today != nil {
		data = *t.today
	}
	return ComputeStats(data, t.currentFeeding, t.currentSleep)
}

func (t *Tracker) CurrentFeeding() *FeedingSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.currentFeeding == nil {
		return nil
	}
	session := *t.currentFeeding
	return &session
}

func (t *Tracker) CurrentSleep() *SleepSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.currentSleep == nil {
		return nil
	}
	session := *t.currentSleep
	return &session
}

// Invalidate marks cached state as outdated; the next Snapshot refetches.
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	t.stale = true
	t.mu.Unlock()
}

func (t *Tracker) UpdateNote(ctx context.Context, kind EventKind, id, note string) error {
	target, err := eventTargetFor(kind)
	if err != nil {
		return err
	}

	return t.run(ctx, func() error {
		updated, err := t.repo.UpdateNote(ctx, kind, t.scope.BabyID, strings.TrimSpace(id), strings.TrimSpace(note))
		if err != nil {
			return t.storeErr("update note", err)
		}
		if !updated {
			return target.notFound
		}
		t.queue(target.table, realtime.OpUpdate)
		t.reload(ctx)
		return nil
	})
}

func (t *Tracker) DeleteEvent(ctx context.Context, kind EventKind, id string) error {
	target, err := eventTargetFor(kind)
	if err != nil {
		return err
	}
	if kind == EventFeedings || kind == EventSleeps {
		return ErrEventNotDeletable
	}

	return t.run(ctx, func() error {
		var deleted bool
		var err error
		if kind == EventDiapers {
			deleted, err = t.repo.DeleteDiaper(ctx, t.scope.BabyID, id)
		} else {
			deleted, err = t.repo.DeleteWeight(ctx, t.scope.BabyID, id)
		}
		if err != nil {
			return t.storeErr("delete event", err)
		}
		if !deleted {
			return target.notFound
		}
		t.queue(target.table, realtime.OpDelete)
		t.reload(ctx)
		return nil
	})
}

func (t *Tracker) startFeeding(ctx context.Context, in FeedingStart) (*FeedingSession, error) {
	side, lookup, err := validateFeeding(in)
	if err != nil {
		return nil, err
	}
	// a feeding forgotten past its timeout is closed, not reported as a conflict
	t.reap(ctx)
	if t.currentFeeding != nil && !t.stale {
		t.log.BusinessError("tracking.start_feeding: session already open", ErrFeedingAlreadyOpen, t.attrs()...)
		return nil, ErrFeedingAlreadyOpen
	}
	if lookup {
		last, err := t.sides.LastSide(ctx, t.scope.UserID, t.scope.BabyID)
		if err != nil {
			t.log.Warn("tracking.start_feeding: read last side failed", t.attrs("err", err)...)
		}
		side = oppositeSide(last)
	}

	session := FeedingSession{
		ID:        uuid.NewString(),
		BabyID:    t.scope.BabyID,
		StartTime: t.now().UTC(),
		Side:      side,
		Amount:    in.Amount,
		Note:      strings.TrimSpace(in.Note),
		CreatedBy: t.scope.UserID,
	}

	err = t.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.LockBaby(ctx, t.scope.BabyID); err != nil {
			return err
		}
		open, err := tx.FindOpenFeeding(ctx, t.scope.BabyID)
		if err != nil {
			return err
		}
		if open != nil {
			t.currentFeeding = open
			return ErrFeedingAlreadyOpen
		}
		return tx.CreateFeeding(ctx, &session)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			t.log.BusinessError("tracking.start_feeding: session already open", err, t.attrs()...)
			return nil, err
		}
		return nil, t.storeErr("start feeding session", err)
	}

	t.currentFeeding = &session
	if session.Kind() == KindBreastfeeding {
		if err := t.sides.SetLastSide(ctx, t.scope.UserID, t.scope.BabyID, string(side)); err != nil {
			t.log.Warn("tracking.start_feeding: remember side failed", t.attrs("err", err)...)
		}
	}
	t.queue(realtime.TableFeedingSessions, realtime.OpInsert)
	t.reload(ctx)

	result := session
	return &result, nil
}

func (t *Tracker) endFeeding(ctx context.Context, sessionID, note string) (*FeedingSession, error) {
	session, err := t.resolveFeeding(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOpen() {
		return nil, ErrSessionAlreadyClosed
	}

	end := t.now().UTC()
	minutes := sessionMinutes(session.StartTime, end)
	session.EndTime = &end
	session.Duration = &minutes
	session.Note = mergeNote(session.Note, note)

	closed, err := t.repo.CloseFeeding(ctx, session)
	if err != nil {
		return nil, t.storeErr("end feeding session", err)
	}
	t.currentFeeding = nil
	if !closed {
		return nil, ErrSessionAlreadyClosed
	}

	t.queue(realtime.TableFeedingSessions, realtime.OpUpdate)
	t.reload(ctx)
	return session, nil
}

// resolveFeeding picks the session to close: explicit id, then the
// in-memory pointer, then the newest open session in the store.
func (t *Tracker) resolveFeeding(ctx context.Context, sessionID string) (*FeedingSession, error) {
	if sessionID != "" {
		session, err := t.repo.GetFeeding(ctx, t.scope.BabyID, sessionID)
		if err != nil {
			return nil, t.storeErr("get feeding session", err)
		}
		return session, nil
	}
	if t.currentFeeding != nil && !t.stale {
		session := *t.currentFeeding
		return &session, nil
	}
	open, err := t.repo.FindOpenFeeding(ctx, t.scope.BabyID)
	if err != nil {
		return nil, t.storeErr("find open feeding session", err)
	}
	if open == nil {
		return nil, ErrNoOpenFeeding
	}
	return open, nil
}

func (t *Tracker) startSleep(ctx context.Context, note string) (*SleepSession, error) {
	t.reap(ctx)
	if t.currentSleep != nil && !t.stale {
		t.log.BusinessError("tracking.start_sleep: session already open", ErrSleepAlreadyOpen, t.attrs()...)
		return nil, ErrSleepAlreadyOpen
	}

	session := SleepSession{
		ID:        uuid.NewString(),
		BabyID:    t.scope.BabyID,
		StartTime: t.now().UTC(),
		Note:      strings.TrimSpace(note),
		CreatedBy: t.scope.UserID,
	}

	err := t.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.LockBaby(ctx, t.scope.BabyID); err != nil {
			return err
		}
		open, err := tx.FindOpenSleep(ctx, t.scope.BabyID)
		if err != nil {
			return err
		}
		if open != nil {
			t.currentSleep = open
			return ErrSleepAlreadyOpen
		}
		return tx.CreateSleep(ctx, &session)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			t.log.BusinessError("tracking.start_sleep: session already open", err, t.attrs()...)
			return nil, err
		}
		return nil, t.storeErr("start sleep session", err)
	}

	t.currentSleep = &session
	t.queue(realtime.TableSleepSessions, realtime.OpInsert)
	t.reload(ctx)

	result := session
	return &result, nil
}

func (t *Tracker) endSleep(ctx context.Context, sessionID, note string) (*SleepSession, error) {
	session, err := t.repo.GetSleep(ctx, t.scope.BabyID, sessionID)
	if err != nil {
		return nil, t.storeErr("get sleep session", err)
	}
	if !session.IsOpen() {
		return nil, ErrSessionAlreadyClosed
	}

	end := t.now().UTC()
	minutes := sessionMinutes(session.StartTime, end)
	session.EndTime = &end
	session.Duration = &minutes
	session.Note = mergeNote(session.Note, note)

	closed, err := t.repo.CloseSleep(ctx, session)
	if err != nil {
		return nil, t.storeErr("end sleep session", err)
	}
	if t.currentSleep != nil && t.currentSleep.ID == session.ID {
		t.currentSleep = nil
	}
	if !closed {
		return nil, ErrSessionAlreadyClosed
	}

	t.queue(realtime.TableSleepSessions, realtime.OpUpdate)
	t.reload(ctx)
	return session, nil
}

func (t *Tracker) reap(ctx context.Context) bool {
	now := t.now().UTC()
	reaped := false

	feedings, err := t.repo.ListOpenFeedingsStartedBefore(ctx, t.scope.BabyID, now.Add(-t.policy.FeedingStaleAfter))
	if err != nil {
		t.log.InternalError("tracking.reap: list stale feedings failed", err, t.attrs()...)
	}
	for i := range feedings {
		session := feedings[i]
		end := session.StartTime.Add(t.policy.FeedingReapDuration)
		minutes := int(t.policy.FeedingReapDuration / time.Minute)
		session.EndTime = &end
		session.Duration = &minutes
		session.Note = mergeNote(session.Note, reapNote(t.policy.FeedingStaleAfter))

		closed, err := t.repo.CloseFeeding(ctx, &session)
		if err != nil {
			t.log.InternalError("tracking.reap: close feeding failed", err, t.attrs("session_id", session.ID)...)
			continue
		}
		if !closed {
			continue
		}
		reaped = true
		if t.currentFeeding != nil && t.currentFeeding.ID == session.ID {
			t.currentFeeding = nil
		}
		t.queue(realtime.TableFeedingSessions, realtime.OpUpdate)
		t.log.Info("tracking.reap: closed stale feeding session", t.attrs("session_id", session.ID)...)
	}

	sleeps, err := t.repo.ListOpenSleepsStartedBefore(ctx, t.scope.BabyID, now.Add(-t.policy.SleepStaleAfter))
	if err != nil {
		t.log.InternalError("tracking.reap: list stale sleeps failed", err, t.attrs()...)
	}
	for i := range sleeps {
		session := sleeps[i]
		end := session.StartTime.Add(t.policy.SleepReapDuration)
		minutes := int(t.policy.SleepReapDuration / time.Minute)
		session.EndTime = &end
		session.Duration = &minutes
		session.Note = mergeNote(session.Note, reapNote(t.policy.SleepStaleAfter))

		closed, err := t.repo.CloseSleep(ctx, &session)
		if err != nil {
			t.log.InternalError("tracking.reap: close sleep failed", err, t.attrs("session_id", session.ID)...)
			continue
		}
		if !closed {
			continue
		}
		reaped = true
		if t.currentSleep != nil && t.currentSleep.ID == session.ID {
			t.currentSleep = nil
		}
		t.queue(realtime.TableSleepSessions, realtime.OpUpdate)
		t.log.Info("tracking.reap: closed stale sleep session", t.attrs("session_id", session.ID)...)
	}

	return reaped
}

func (t *Tracker) load(ctx context.Context) (TodayData, error) {
	t.reap(ctx)

	loc := t.policy.Location
	now := t.now()
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	from, to := dayStart.UTC(), dayStart.Add(24*time.Hour).UTC()
	babyID := t.scope.BabyID

	feedings, err := t.repo.ListFeedings(ctx, babyID, from, to)
	if err != nil {
		return TodayData{}, t.storeErr("list feeding sessions", err)
	}
	sleeps, err := t.repo.ListSleeps(ctx, babyID, from, to)
	if err != nil {
		return TodayData{}, t.storeErr("list sleep sessions", err)
	}
	diapers, err := t.repo.ListDiapers(ctx, babyID, from, to)
	if err != nil {
		return TodayData{}, t.storeErr("list diaper events", err)
	}
	weights, err := t.repo.ListRecentWeights(ctx, babyID, t.policy.RecentWeights)
	if err != nil {
		return TodayData{}, t.storeErr("list weight entries", err)
	}
	openFeeding, err := t.repo.FindOpenFeeding(ctx, babyID)
	if err != nil {
		return TodayData{}, t.storeErr("find open feeding session", err)
	}
	openSleep, err := t.repo.FindOpenSleep(ctx, babyID)
	if err != nil {
		return TodayData{}, t.storeErr("find open sleep session", err)
	}

	data := TodayData{
		Day:             dayStart,
		FeedingSessions: feedings,
		SleepSessions:   sleeps,
		DiaperEvents:    diapers,
		WeightEntries:   weights,
		LoadedAt:        now,
	}
	t.today = &data
	t.currentFeeding = openFeeding
	t.currentSleep = openSleep
	t.stale = false
	return data, nil
}

// reload refreshes the cache after a successful write. The write already
// happened, so a failed refresh only marks the cache stale.
func (t *Tracker) reload(ctx context.Context) {
	if _, err := t.load(ctx); err != nil {
		t.stale = true
		t.log.Warn("tracking: reload after write failed", t.attrs("err", err)...)
	}
}

func (t *Tracker) needsReload() bool {
	if t.today == nil || t.stale {
		return true
	}
	now := t.now()
	if t.policy.SnapshotTTL > 0 && now.Sub(t.today.LoadedAt) > t.policy.SnapshotTTL {
		return true
	}
	local := now.In(t.policy.Location)
	day := t.today.Day.In(t.policy.Location)
	return local.YearDay() != day.YearDay() || local.Year() != day.Year()
}

func (t *Tracker) run(ctx context.Context, fn func() error) error {
	t.mu.Lock()
	err := fn()
	changes := t.pending
	t.pending = nil
	t.mu.Unlock()

	for _, change := range changes {
		if pubErr := t.publisher.Publish(ctx, change); pubErr != nil {
			t.log.Warn("tracking: publish change failed", t.attrs("table", change.Table, "err", pubErr)...)
		}
	}
	return err
}

func (t *Tracker) queue(table string, op realtime.Op) {
	t.pending = append(t.pending, realtime.Change{
		Table:  table,
		BabyID: t.scope.BabyID,
		Op:     op,
		At:     t.now().UTC(),
	})
}

func (t *Tracker) storeErr(op string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrConflict) {
		return err
	}
	t.log.InternalError("tracking: "+op+" failed", err, t.attrs()...)
	return apperr.Store(op, err)
}

func (t *Tracker) attrs(extra ...any) []any {
	return append([]any{"user_id", t.scope.UserID, "baby_id", t.scope.BabyID}, extra...)
}

// validateFeeding resolves the stored side for a start request. lookup is
// true when the side must come from the last-used preference.
func validateFeeding(in FeedingStart) (Side, bool, error) {
	if in.Amount != nil && (*in.Amount <= 0 || math.IsNaN(*in.Amount) || math.IsInf(*in.Amount, 0)) {
		return "", false, ErrInvalidAmount
	}

	switch in.Kind {
	case KindBreastfeeding:
		if in.Amount != nil {
			return "", false, ErrInvalidAmount
		}
		if in.Side == nil {
			return "", true, nil
		}
		switch *in.Side {
		case SideLeft, SideRight, SideBoth:
			return *in.Side, false, nil
		}
		return "", false, ErrInvalidSide
	case KindBottle:
		if in.Side != nil && *in.Side != SideBottle {
			return "", false, ErrInvalidSide
		}
		return SideBottle, false, nil
	case KindFood:
		if in.Side != nil && *in.Side != SideFood {
			return "", false, ErrInvalidSide
		}
		return SideFood, false, nil
	}
	return "", false, ErrInvalidFeedingKind
}

func newDiaperEvent(diaperType DiaperType, details *DiaperDetails) (*DiaperEvent, error) {
	switch diaperType {
	case DiaperWet, DiaperDirty, DiaperMixed:
	default:
		return nil, ErrInvalidDiaperType
	}

	event := &DiaperEvent{Type: diaperType}
	if details == nil {
		return event, nil
	}

	color := strings.ToLower(strings.TrimSpace(details.Color))
	texture := strings.ToLower(strings.TrimSpace(details.Texture))
	if color == "" && texture == "" && details.HasMucus == nil {
		return event, nil
	}
	if diaperType == DiaperWet {
		return nil, ErrDiaperDetailsNotWet
	}
	if color != "" {
		if !contains(diaperColors, color) {
			return nil, ErrInvalidDiaperColor
		}
		event.Color = &color
	}
	if texture != "" {
		if !contains(diaperTextures, texture) {
			return nil, ErrInvalidDiaperTexture
		}
		event.Texture = &texture
	}
	event.HasMucus = details.HasMucus
	return event, nil
}

// ParseGrams accepts a JSON number and rejects fractional or non-positive values.
func ParseGrams(value float64) (int, error) {
	if value <= 0 || value != math.Trunc(value) || value > math.MaxInt32 {
		return 0, ErrInvalidWeight
	}
	return int(value), nil
}

func sessionMinutes(start, end time.Time) int {
	minutes := int(math.Round(end.Sub(start).Minutes()))
	if minutes < 1 {
		return 1
	}
	return minutes
}

func mergeNote(existing, addition string) string {
	existing = strings.TrimSpace(existing)
	addition = strings.TrimSpace(addition)
	switch {
	case addition == "":
		return existing
	case existing == "":
		return addition
	case existing == addition:
		return existing
	}
	return existing + "\n" + addition
}

func reapNote(after time.Duration) string {
	hours := strconv.FormatFloat(after.Hours(), 'f', -1, 64)
	return fmt.Sprintf("Closed automatically after being left open for more than %s hours", hours)
}

// eventTarget is the change-feed table and missing-row error of one event kind.
type eventTarget struct {
	table    string
	notFound error
}

func eventTargetFor(kind EventKind) (eventTarget, error) {
	switch kind {
	case EventFeedings:
		return eventTarget{table: realtime.TableFeedingSessions, notFound: ErrFeedingNotFound}, nil
	case EventSleeps:
		return eventTarget{table: realtime.TableSleepSessions, notFound: ErrSleepNotFound}, nil
	case EventDiapers:
		return eventTarget{table: realtime.TableDiaperEvents, notFound: ErrDiaperNotFound}, nil
	case EventWeights:
		return eventTarget{table: realtime.TableWeightEntries, notFound: ErrWeightNotFound}, nil
	}
	return eventTarget{}, ErrInvalidEventKind
}
