package inmemory

import "context"

// PreferencesStore implements preferences.Store over the shared store.
type PreferencesStore struct {
	session
}

func NewPreferencesStore(store *Store) *PreferencesStore {
	return &PreferencesStore{session: session{store: store}}
}

func (s *PreferencesStore) Get(ctx context.Context, userID, key string) (string, bool, error) {
	defer s.lock()()
	value, ok := s.store.state.prefs[userID][key]
	return value, ok, nil
}

func (s *PreferencesStore) Set(ctx context.Context, userID, key, value string) error {
	defer s.lock()()
	values := s.store.state.prefs[userID]
	if values == nil {
		values = make(map[string]string)
		s.store.state.prefs[userID] = values
	}
	values[key] = value
	return nil
}

func (s *PreferencesStore) Delete(ctx context.Context, userID, key string) error {
	defer s.lock()()
	delete(s.store.state.prefs[userID], key)
	return nil
}

func (s *PreferencesStore) All(ctx context.Context, userID string) (map[string]string, error) {
	defer s.lock()()
	values := make(map[string]string, len(s.store.state.prefs[userID]))
	for key, value := range s.store.state.prefs[userID] {
		values[key] = value
	}
	return values, nil
}
