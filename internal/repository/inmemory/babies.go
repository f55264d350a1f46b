package inmemory

import (
	"sync"
	"time"

	babydomain "babyhabits/internal/domain/baby"
)

// BabiesCache is a TTL cache of each user's baby list.
type BabiesCache struct {
	mu    sync.RWMutex
	items map[string]babiesItem
}

type babiesItem struct {
	value     []babydomain.Baby
	expiresAt time.Time
}

func NewBabiesCache() *BabiesCache {
	return &BabiesCache{
		items: make(map[string]babiesItem),
	}
}

func (c *BabiesCache) GetByUserID(userID string) ([]babydomain.Baby, bool) {
	now := time.Now()

	c.mu.RLock()
	item, ok := c.items[userID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !item.expiresAt.After(now) {
		c.mu.Lock()
		item, ok = c.items[userID]
		if ok && !item.expiresAt.After(now) {
			delete(c.items, userID)
		}
		c.mu.Unlock()
		return nil, false
	}

	return cloneBabies(item.value), true
}

func (c *BabiesCache) SetByUserID(userID string, babies []babydomain.Baby, ttl time.Duration) {
	if ttl <= 0 {
		c.DeleteByUserID(userID)
		return
	}

	c.mu.Lock()
	c.items[userID] = babiesItem{
		value:     cloneBabies(babies),
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
}

func (c *BabiesCache) DeleteByUserID(userID string) {
	c.mu.Lock()
	delete(c.items, userID)
	c.mu.Unlock()
}

func (c *BabiesCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]babiesItem)
	c.mu.Unlock()
}

func cloneBabies(babies []babydomain.Baby) []babydomain.Baby {
	if babies == nil {
		return nil
	}
	cloned := make([]babydomain.Baby, len(babies))
	for i := range babies {
		cloned[i] = cloneBaby(babies[i])
	}
	return cloned
}

func cloneBaby(baby babydomain.Baby) babydomain.Baby {
	if baby.Birthdate != nil {
		value := *baby.Birthdate
		baby.Birthdate = &value
	}
	if baby.BirthWeight != nil {
		value := *baby.BirthWeight
		baby.BirthWeight = &value
	}
	if baby.BirthHeight != nil {
		value := *baby.BirthHeight
		baby.BirthHeight = &value
	}
	return baby
}
