package realtime

import (
	"context"
	"sync"
	"time"
)

// LocalBus fans changes out to in-process subscribers. Handlers run
// synchronously on the publishing goroutine.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]localSub
}

type localSub struct {
	babyID string
	fn     Handler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]localSub)}
}

func (b *LocalBus) Publish(_ context.Context, change Change) error {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.babyID == "" || sub.babyID == change.BabyID {
			targets = append(targets, sub.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		fn(change)
	}
	return nil
}

func (b *LocalBus) Subscribe(_ context.Context, babyID string, fn Handler) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = localSub{babyID: babyID, fn: fn}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}, nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.subs = make(map[int]localSub)
	b.mu.Unlock()
	return nil
}
