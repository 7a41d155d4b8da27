package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
	"github.com/jwebster45206/immersion-engine/pkg/progress"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeSessionStarted EventType = "session.started"
	EventTypeSessionEnded   EventType = "session.ended"
	EventTypeProgress       EventType = "progress.unlocked"
	EventTypeFinale         EventType = "progress.all_unlocked"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Channel is the pub/sub channel carrying a session's events.
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("session-events:%s", sessionID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishSessionStarted publishes a session.started event
func (b *Broadcaster) PublishSessionStarted(ctx context.Context, sessionID uuid.UUID, immersionFile, entry string) error {
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeSessionStarted,
		Data: map[string]interface{}{
			"immersion": immersionFile,
			"waypoint":  entry,
		},
	})
}

// PublishSessionEnded publishes a session.ended event
func (b *Broadcaster) PublishSessionEnded(ctx context.Context, sessionID uuid.UUID) error {
	return b.publish(ctx, sessionID, Event{Type: EventTypeSessionEnded})
}

// PublishNavigation forwards a controller event. The event type is kept.
func (b *Broadcaster) PublishNavigation(ctx context.Context, sessionID uuid.UUID, e navigation.Event) error {
	data := map[string]interface{}{
		"waypoint": e.Waypoint,
		"index":    e.Index,
	}
	if e.State != "" {
		data["state"] = e.State
		data["previous_state"] = e.PreviousState
	}
	if e.Frames > 0 {
		data["frames"] = e.Frames
	}
	if e.URL != "" {
		data["url"] = e.URL
	}
	if e.Clip != "" {
		data["clip"] = e.Clip
	}
	return b.publish(ctx, sessionID, Event{Type: EventType(e.Type), Data: data})
}

// PublishProgress publishes a progress.unlocked event, tagged with the
// lockable id that triggered it.
func (b *Broadcaster) PublishProgress(ctx context.Context, sessionID uuid.UUID, lockable string, e progress.Event) error {
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeProgress,
		Data: map[string]interface{}{
			"lockable":  lockable,
			"milestone": e.Milestone,
			"remaining": e.Remaining,
			"unlocked":  e.Unlocked,
			"total":     e.Total,
			"waypoint":  e.Scope,
		},
	})
}

// PublishFinale publishes a progress.all_unlocked event
func (b *Broadcaster) PublishFinale(ctx context.Context, sessionID uuid.UUID, total int) error {
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeFinale,
		Data: map[string]interface{}{"total": total},
	})
}

func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	event.SessionID = sessionID.String()
	channel := Channel(sessionID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)
	return nil
}
