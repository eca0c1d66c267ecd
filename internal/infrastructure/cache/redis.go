// Package cache keeps webhook delivery state in Redis.
package cache

import (
	"context"
	"fmt"
	"time"

	"conekta-checkout/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"

	// InProgressExpiry bounds how long a crashed handler can hold a claim.
	InProgressExpiry = 30 * time.Second
	// CompletedExpiry outlives the processor's redelivery window.
	CompletedExpiry = 72 * time.Hour
)

// DeliveryStore claims webhook event ids with SET NX so that concurrent or
// repeated deliveries of one event are applied once.
type DeliveryStore struct {
	client *redis.Client
	prefix string
}

func NewDeliveryStore(cfg config.RedisConfig) *DeliveryStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &DeliveryStore{client: rdb, prefix: "webhook:"}
}

func (s *DeliveryStore) key(eventID string) string {
	return s.prefix + eventID
}

func (s *DeliveryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Begin reports true when the event is already in progress or completed.
func (s *DeliveryStore) Begin(ctx context.Context, eventID string) (bool, error) {
	set, err := s.client.SetNX(ctx, s.key(eventID), StatusInProgress, InProgressExpiry).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX error: %w", err)
	}
	return !set, nil
}

func (s *DeliveryStore) Complete(ctx context.Context, eventID string) error {
	return s.client.Set(ctx, s.key(eventID), StatusCompleted, CompletedExpiry).Err()
}

// Release drops an in-progress claim so a redelivery can retry.
func (s *DeliveryStore) Release(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, s.key(eventID)).Err()
}

func (s *DeliveryStore) Close() error {
	return s.client.Close()
}
