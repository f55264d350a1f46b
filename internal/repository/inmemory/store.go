package inmemory

import (
	"sync"

	babydomain "babyhabits/internal/domain/baby"
	trackingdomain "babyhabits/internal/domain/tracking"
	userdomain "babyhabits/internal/domain/user"
)

// Store keeps every table in process memory. It backs STORE_DRIVER=memory
// and the end-to-end tests; the repositories below are views over it.
type Store struct {
	mu    sync.Mutex
	state *state
}

type caregiverKey struct {
	babyID string
	userID string
}

type state struct {
	seq int64

	babies     map[string]babydomain.Baby
	caregivers map[caregiverKey]babydomain.Caregiver
	invites    map[string]babydomain.Invitation
	pending    map[string]babydomain.PendingCaregiver
	profiles   map[string]userdomain.Profile
	prefs      map[string]map[string]string

	feedings map[string]trackingdomain.FeedingSession
	sleeps   map[string]trackingdomain.SleepSession
	diapers  map[string]trackingdomain.DiaperEvent
	weights  map[string]trackingdomain.WeightEntry

	// insertion order keeps listings stable when timestamps tie
	order map[string]int64
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func newState() *state {
	return &state{
		babies:     make(map[string]babydomain.Baby),
		caregivers: make(map[caregiverKey]babydomain.Caregiver),
		invites:    make(map[string]babydomain.Invitation),
		pending:    make(map[string]babydomain.PendingCaregiver),
		profiles:   make(map[string]userdomain.Profile),
		prefs:      make(map[string]map[string]string),
		feedings:   make(map[string]trackingdomain.FeedingSession),
		sleeps:     make(map[string]trackingdomain.SleepSession),
		diapers:    make(map[string]trackingdomain.DiaperEvent),
		weights:    make(map[string]trackingdomain.WeightEntry),
		order:      make(map[string]int64),
	}
}

func (s *state) clone() *state {
	cloned := newState()
	cloned.seq = s.seq
	for k, v := range s.babies {
		cloned.babies[k] = v
	}
	for k, v := range s.caregivers {
		cloned.caregivers[k] = v
	}
	for k, v := range s.invites {
		cloned.invites[k] = v
	}
	for k, v := range s.pending {
		cloned.pending[k] = v
	}
	for k, v := range s.profiles {
		cloned.profiles[k] = v
	}
	for k, v := range s.prefs {
		values := make(map[string]string, len(v))
		for key, value := range v {
			values[key] = value
		}
		cloned.prefs[k] = values
	}
	for k, v := range s.feedings {
		cloned.feedings[k] = v
	}
	for k, v := range s.sleeps {
		cloned.sleeps[k] = v
	}
	for k, v := range s.diapers {
		cloned.diapers[k] = v
	}
	for k, v := range s.weights {
		cloned.weights[k] = v
	}
	for k, v := range s.order {
		cloned.order[k] = v
	}
	return cloned
}

func (s *state) track(id string) {
	s.seq++
	s.order[id] = s.seq
}

// session is the lock scope handed to a repository view. Views created
// inside Transaction already hold the store lock.
type session struct {
	store *Store
	inTx  bool
}

func (s session) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.store.mu.Lock()
	return s.store.mu.Unlock
}

// transaction runs fn under the store lock and restores the previous state
// when fn fails.
func (s session) transaction(fn func(session) error) error {
	if s.inTx {
		return fn(s)
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	backup := s.store.state.clone()
	if err := fn(session{store: s.store, inTx: true}); err != nil {
		s.store.state = backup
		return err
	}
	return nil
}
