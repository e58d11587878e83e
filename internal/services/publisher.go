package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DetectionEvent is broadcast after every stored detection.
type DetectionEvent struct {
	ID          int64              `json:"id"`
	Emotion     string             `json:"emotion"`
	Confidence  float64            `json:"confidence"`
	Modality    string             `json:"type"`
	AllEmotions map[string]float64 `json:"all_emotions"`
	Timestamp   time.Time          `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, ev DetectionEvent) error
	Close() error
}

// NopPublisher drops events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, DetectionEvent) error { return nil }
func (NopPublisher) Close() error                                  { return nil }

// RedisPublisher sends events as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

func NewRedisPublisher(ctx context.Context, addr, password, channel string, log *zap.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisPublisher{client: client, channel: channel, log: log}, nil
}

func (r *RedisPublisher) Publish(ctx context.Context, ev DetectionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	r.log.Debug("detection published", zap.String("channel", r.channel), zap.Int64("id", ev.ID))
	return nil
}

func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
