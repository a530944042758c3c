// Package events publishes captured readings to a Redis stream for
// downstream consumers such as live dashboards.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/models"
)

// DefaultStream receives reading events
const DefaultStream = "measure:readings:stream"

// Event types
const (
	TypeReading      = "reading"
	TypeSessionEnded = "session_ended"
	TypeGeometrySave = "geometry_saved"
)

// Publisher is where domain events go
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// NewRedisClient creates a client for cfg values
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// StreamPublisher appends events to a Redis stream with XADD
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	now    func() time.Time
}

// NewStreamPublisher creates a publisher. The stream is approximately capped
// at maxLen entries; zero leaves it unbounded.
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen, now: time.Now}
}

// Publish XADDs {type, data, timestamp}
func (p *StreamPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"type":      eventType,
			"data":      string(data),
			"timestamp": strconv.FormatInt(p.now().Unix(), 10),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}
	return nil
}

// Ping checks the Redis connection
func (p *StreamPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// ReadingEvent is the payload of TypeReading
type ReadingEvent struct {
	WorkspaceID string         `json:"workspaceId"`
	JobID       string         `json:"jobId"`
	RoomID      string         `json:"roomId,omitempty"`
	Reading     models.Reading `json:"reading"`
}

// Logged wraps a publisher so failures are logged instead of returned.
// Capture must not fail because the stream is down.
type Logged struct {
	Publisher Publisher
	Logger    *zap.Logger
}

func (l Logged) Publish(ctx context.Context, eventType string, payload any) error {
	if err := l.Publisher.Publish(ctx, eventType, payload); err != nil {
		l.Logger.Warn("Failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
	return nil
}
