package inmemory

import (
	"context"
	"sort"
	"time"

	trackingdomain "babyhabits/internal/domain/tracking"
)

type TrackingRepository struct {
	session
}

func NewTrackingRepository(store *Store) *TrackingRepository {
	return &TrackingRepository{session: session{store: store}}
}

func (r *TrackingRepository) Transaction(ctx context.Context, fn func(trackingdomain.Repository) error) error {
	return r.transaction(func(tx session) error {
		return fn(&TrackingRepository{session: tx})
	})
}

func (r *TrackingRepository) LockBaby(ctx context.Context, babyID string) error {
	return nil
}

func (r *TrackingRepository) CreateFeeding(ctx context.Context, session *trackingdomain.FeedingSession) error {
	defer r.lock()()
	st := r.store.state
	if session.EndTime == nil {
		for _, existing := range st.feedings {
			if existing.BabyID == session.BabyID && existing.EndTime == nil {
				return trackingdomain.ErrFeedingAlreadyOpen
			}
		}
	}
	stampCreated(&session.CreatedAt, &session.UpdatedAt)
	st.feedings[session.ID] = cloneFeeding(*session)
	st.track(session.ID)
	return nil
}

func (r *TrackingRepository) GetFeeding(ctx context.Context, babyID, id string) (*trackingdomain.FeedingSession, error) {
	defer r.lock()()
	session, ok := r.store.state.feedings[id]
	if !ok || session.BabyID != babyID {
		return nil, trackingdomain.ErrFeedingNotFound
	}
	result := cloneFeeding(session)
	return &result, nil
}

func (r *TrackingRepository) FindOpenFeeding(ctx context.Context, babyID string) (*trackingdomain.FeedingSession, error) {
	defer r.lock()()
	open := r.feedingsWhere(func(s trackingdomain.FeedingSession) bool {
		return s.BabyID == babyID && s.EndTime == nil
	})
	if len(open) == 0 {
		return nil, nil
	}
	result := open[len(open)-1]
	return &result, nil
}

func (r *TrackingRepository) ListOpenFeedingsStartedBefore(ctx context.Context, babyID string, before time.Time) ([]trackingdomain.FeedingSession, error) {
	defer r.lock()()
	return r.feedingsWhere(func(s trackingdomain.FeedingSession) bool {
		return s.BabyID == babyID && s.EndTime == nil && s.StartTime.Before(before)
	}), nil
}

func (r *TrackingRepository) CloseFeeding(ctx context.Context, session *trackingdomain.FeedingSession) (bool, error) {
	defer r.lock()()
	existing, ok := r.store.state.feedings[session.ID]
	if !ok || existing.BabyID != session.BabyID || existing.EndTime != nil {
		return false, nil
	}
	existing.EndTime = copyTime(session.EndTime)
	existing.Duration = copyInt(session.Duration)
	existing.Note = session.Note
	existing.UpdatedAt = time.Now().UTC()
	r.store.state.feedings[session.ID] = existing
	return true, nil
}

func (r *TrackingRepository) ListFeedings(ctx context.Context, babyID string, from, to time.Time) ([]trackingdomain.FeedingSession, error) {
	defer r.lock()()
	return r.feedingsWhere(func(s trackingdomain.FeedingSession) bool {
		return s.BabyID == babyID && inRange(s.StartTime, from, to)
	}), nil
}

func (r *TrackingRepository) feedingsWhere(match func(trackingdomain.FeedingSession) bool) []trackingdomain.FeedingSession {
	st := r.store.state
	var sessions []trackingdomain.FeedingSession
	for _, session := range st.feedings {
		if match(session) {
			sessions = append(sessions, cloneFeeding(session))
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return before(sessions[i].StartTime, sessions[j].StartTime, st.order[sessions[i].ID], st.order[sessions[j].ID])
	})
	return sessions
}

func (r *TrackingRepository) CreateSleep(ctx context.Context, session *trackingdomain.SleepSession) error {
	defer r.lock()()
	st := r.store.state
	if session.EndTime == nil {
		for _, existing := range st.sleeps {
			if existing.BabyID == session.BabyID && existing.EndTime == nil {
				return trackingdomain.ErrSleepAlreadyOpen
			}
		}
	}
	stampCreated(&session.CreatedAt, &session.UpdatedAt)
	st.sleeps[session.ID] = cloneSleep(*session)
	st.track(session.ID)
	return nil
}

func (r *TrackingRepository) GetSleep(ctx context.Context, babyID, id string) (*trackingdomain.SleepSession, error) {
	defer r.lock()()
	session, ok := r.store.state.sleeps[id]
	if !ok || session.BabyID != babyID {
		return nil, trackingdomain.ErrSleepNotFound
	}
	result := cloneSleep(session)
	return &result, nil
}

func (r *TrackingRepository) FindOpenSleep(ctx context.Context, babyID string) (*trackingdomain.SleepSession, error) {
	defer r.lock()()
	open := r.sleepsWhere(func(s trackingdomain.SleepSession) bool {
		return s.BabyID == babyID && s.EndTime == nil
	})
	if len(open) == 0 {
		return nil, nil
	}
	result := open[len(open)-1]
	return &result, nil
}

func (r *TrackingRepository) ListOpenSleepsStartedBefore(ctx context.Context, babyID string, before time.Time) ([]trackingdomain.SleepSession, error) {
	defer r.lock()()
	return r.sleepsWhere(func(s trackingdomain.SleepSession) bool {
		return s.BabyID == babyID && s.EndTime == nil && s.StartTime.Before(before)
	}), nil
}

func (r *TrackingRepository) CloseSleep(ctx context.Context, session *trackingdomain.SleepSession) (bool, error) {
	defer r.lock()()
	existing, ok := r.store.state.sleeps[session.ID]
	if !ok || existing.BabyID != session.BabyID || existing.EndTime != nil {
		return false, nil
	}
	existing.EndTime = copyTime(session.EndTime)
	existing.Duration = copyInt(session.Duration)
	existing.Note = session.Note
	existing.UpdatedAt = time.Now().UTC()
	r.store.state.sleeps[session.ID] = existing
	return true, nil
}

func (r *TrackingRepository) ListSleeps(ctx context.Context, babyID string, from, to time.Time) ([]trackingdomain.SleepSession, error) {
	defer r.lock()()
	return r.sleepsWhere(func(s trackingdomain.SleepSession) bool {
		return s.BabyID == babyID && inRange(s.StartTime, from, to)
	}), nil
}

func (r *TrackingRepository) sleepsWhere(match func(trackingdomain.SleepSession) bool) []trackingdomain.SleepSession {
	st := r.store.state
	var sessions []trackingdomain.SleepSession
	for _, session := range st.sleeps {
		if match(session) {
			sessions = append(sessions, cloneSleep(session))
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return before(sessions[i].StartTime, sessions[j].StartTime, st.order[sessions[i].ID], st.order[sessions[j].ID])
	})
	return sessions
}

func (r *TrackingRepository) CreateDiaper(ctx context.Context, event *trackingdomain.DiaperEvent) error {
	defer r.lock()()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	r.store.state.diapers[event.ID] = cloneDiaper(*event)
	r.store.state.track(event.ID)
	return nil
}

func (r *TrackingRepository) ListDiapers(ctx context.Context, babyID string, from, to time.Time) ([]trackingdomain.DiaperEvent, error) {
	defer r.lock()()
	st := r.store.state
	var events []trackingdomain.DiaperEvent
	for _, event := range st.diapers {
		if event.BabyID == babyID && inRange(event.Timestamp, from, to) {
			events = append(events, cloneDiaper(event))
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return before(events[i].Timestamp, events[j].Timestamp, st.order[events[i].ID], st.order[events[j].ID])
	})
	return events, nil
}

func (r *TrackingRepository) DeleteDiaper(ctx context.Context, babyID, id string) (bool, error) {
	defer r.lock()()
	event, ok := r.store.state.diapers[id]
	if !ok || event.BabyID != babyID {
		return false, nil
	}
	delete(r.store.state.diapers, id)
	return true, nil
}

func (r *TrackingRepository) CreateWeight(ctx context.Context, entry *trackingdomain.WeightEntry) error {
	defer r.lock()()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	r.store.state.weights[entry.ID] = *entry
	r.store.state.track(entry.ID)
	return nil
}

func (r *TrackingRepository) ListRecentWeights(ctx context.Context, babyID string, limit int) ([]trackingdomain.WeightEntry, error) {
	defer r.lock()()
	entries := r.weightsWhere(func(e trackingdomain.WeightEntry) bool {
		return e.BabyID == babyID
	})
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *TrackingRepository) ListWeights(ctx context.Context, babyID string, from, to time.Time) ([]trackingdomain.WeightEntry, error) {
	defer r.lock()()
	return r.weightsWhere(func(e trackingdomain.WeightEntry) bool {
		return e.BabyID == babyID && inRange(e.Timestamp, from, to)
	}), nil
}

func (r *TrackingRepository) weightsWhere(match func(trackingdomain.WeightEntry) bool) []trackingdomain.WeightEntry {
	st := r.store.state
	var entries []trackingdomain.WeightEntry
	for _, entry := range st.weights {
		if match(entry) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return before(entries[i].Timestamp, entries[j].Timestamp, st.order[entries[i].ID], st.order[entries[j].ID])
	})
	return entries
}

func (r *TrackingRepository) DeleteWeight(ctx context.Context, babyID, id string) (bool, error) {
	defer r.lock()()
	entry, ok := r.store.state.weights[id]
	if !ok || entry.BabyID != babyID {
		return false, nil
	}
	delete(r.store.state.weights, id)
	return true, nil
}

func (r *TrackingRepository) UpdateNote(ctx context.Context, kind trackingdomain.EventKind, babyID, id, note string) (bool, error) {
	defer r.lock()()
	st := r.store.state
	switch kind {
	case trackingdomain.EventFeedings:
		session, ok := st.feedings[id]
		if !ok || session.BabyID != babyID {
			return false, nil
		}
		session.Note = note
		st.feedings[id] = session
	case trackingdomain.EventSleeps:
		session, ok := st.sleeps[id]
		if !ok || session.BabyID != babyID {
			return false, nil
		}
		session.Note = note
		st.sleeps[id] = session
	case trackingdomain.EventDiapers:
		event, ok := st.diapers[id]
		if !ok || event.BabyID != babyID {
			return false, nil
		}
		event.Note = note
		st.diapers[id] = event
	case trackingdomain.EventWeights:
		entry, ok := st.weights[id]
		if !ok || entry.BabyID != babyID {
			return false, nil
		}
		entry.Note = note
		st.weights[id] = entry
	default:
		return false, trackingdomain.ErrInvalidEventKind
	}
	return true, nil
}

func inRange(value, from, to time.Time) bool {
	return !value.Before(from) && value.Before(to)
}

func before(a, b time.Time, orderA, orderB int64) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return orderA < orderB
}

func stampCreated(createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

func cloneFeeding(session trackingdomain.FeedingSession) trackingdomain.FeedingSession {
	session.EndTime = copyTime(session.EndTime)
	session.Duration = copyInt(session.Duration)
	if session.Amount != nil {
		value := *session.Amount
		session.Amount = &value
	}
	return session
}

func cloneSleep(session trackingdomain.SleepSession) trackingdomain.SleepSession {
	session.EndTime = copyTime(session.EndTime)
	session.Duration = copyInt(session.Duration)
	return session
}

func cloneDiaper(event trackingdomain.DiaperEvent) trackingdomain.DiaperEvent {
	if event.Color != nil {
		value := *event.Color
		event.Color = &value
	}
	if event.Texture != nil {
		value := *event.Texture
		event.Texture = &value
	}
	if event.HasMucus != nil {
		value := *event.HasMucus
		event.HasMucus = &value
	}
	return event
}

func copyTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	result := *value
	return &result
}

func copyInt(value *int) *int {
	if value == nil {
		return nil
	}
	result := *value
	return &result
}
