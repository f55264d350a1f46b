package baby

import "time"

// Cache holds each user's baby list between requests.
type Cache interface {
	GetByUserID(userID string) ([]Baby, bool)
	SetByUserID(userID string, babies []Baby, ttl time.Duration)
	DeleteByUserID(userID string)
	Clear()
}

type noopCache struct{}

func (noopCache) GetByUserID(string) ([]Baby, bool) {
	return nil, false
}

func (noopCache) SetByUserID(string, []Baby, time.Duration) {}

func (noopCache) DeleteByUserID(string) {}

func (noopCache) Clear() {}
