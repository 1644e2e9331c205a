package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// NoticeRecurrenceDowngraded is emitted when a series move narrows an
	// unsupported frequency to weekly.
	NoticeRecurrenceDowngraded = "recurrence_downgraded"
)

// Notice is a user-facing message produced by the scheduling core. The core
// only publishes; rendering belongs to whatever consumes the channel.
type Notice struct {
	Type       string    `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	ScheduleID uuid.UUID `json:"schedule_id,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type Notifier interface {
	Publish(ctx context.Context, n Notice) error
}

// LogNotifier writes notices to the process log. Used where no redis is
// wired (worker repairs, tests).
type LogNotifier struct{}

func (LogNotifier) Publish(_ context.Context, n Notice) error {
	log.Printf("notice type=%s user_id=%s schedule_id=%s msg=%q", n.Type, n.UserID, n.ScheduleID, n.Message)
	return nil
}

const channel = "practice.notices"

// RedisNotifier publishes notices as JSON on a pub/sub channel for the UI
// layer to pick up.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (r *RedisNotifier) Publish(ctx context.Context, n Notice) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish notice: %w", err)
	}
	return nil
}
