// Package redis publishes sheet music lifecycle events to a Redis channel
// as JSON documents.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
)

// DefaultChannel is used when no channel is configured
const DefaultChannel = "sheetmusic.events"

// Publisher is the part of the Redis client the sink needs
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Sink implements sheetmusic.EventSink
type Sink struct {
	client  Publisher
	channel string
}

// NewSink creates a sink publishing on channel
func NewSink(client Publisher, channel string) *Sink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Sink{client: client, channel: channel}
}

// NewClient creates a Redis client from a redis:// URL
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *Sink) SheetMusicCreated(ctx context.Context, sheetMusic *sheetmusic.SheetMusic) error {
	return s.publish(ctx, sheetmusic.NewCreatedEvent(sheetMusic))
}

func (s *Sink) SheetMusicUpdated(ctx context.Context, sheetMusic *sheetmusic.SheetMusic, result sheetmusic.PdfUpdatedResult) error {
	return s.publish(ctx, sheetmusic.NewUpdatedEvent(sheetMusic, result))
}

func (s *Sink) SheetMusicDeleted(ctx context.Context, sheetMusicID int64) error {
	return s.publish(ctx, sheetmusic.NewDeletedEvent(sheetMusicID))
}

func (s *Sink) publish(ctx context.Context, event sheetmusic.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}
