package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"babyhabits/pkg/logger"
	"github.com/go-redis/redis/v8"
)

const channelPrefix = "changes:"

// RedisBus publishes changes on one channel per baby so that several API
// replicas invalidate each other's caches.
type RedisBus struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisBus(client *redis.Client, log logger.Logger) *RedisBus {
	return &RedisBus{client: client, log: log}
}

func channelFor(babyID string) string {
	return channelPrefix + babyID
}

func (b *RedisBus) Publish(ctx context.Context, change Change) error {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelFor(change.BabyID), payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, babyID string, fn Handler) (func(), error) {
	var pubsub *redis.PubSub
	if babyID == "" {
		pubsub = b.client.PSubscribe(ctx, channelPrefix+"*")
	} else {
		pubsub = b.client.Subscribe(ctx, channelFor(babyID))
	}

	// Receive blocks until the subscription is confirmed by the server.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				b.log.Warn("realtime: drop malformed change", "channel", msg.Channel, "err", err)
				continue
			}
			if change.BabyID == "" {
				change.BabyID = strings.TrimPrefix(msg.Channel, channelPrefix)
			}
			fn(change)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}, nil
}

func (b *RedisBus) Close() error {
	return nil
}
