package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisNotifierPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sub := client.Subscribe(context.Background(), channel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background()) // wait for the subscription
	require.NoError(t, err)

	notifier := NewRedisNotifier(client)
	notice := Notice{
		Type:       NoticeRecurrenceDowngraded,
		UserID:     uuid.New(),
		ScheduleID: uuid.New(),
		Message:    "custom recurrence was converted to weekly",
	}
	require.NoError(t, notifier.Publish(context.Background(), notice))

	msg := <-sub.Channel()
	var got Notice
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	require.Equal(t, notice.Type, got.Type)
	require.Equal(t, notice.ScheduleID, got.ScheduleID)
	require.False(t, got.CreatedAt.IsZero())
}

func TestLogNotifierNeverFails(t *testing.T) {
	require.NoError(t, LogNotifier{}.Publish(context.Background(), Notice{Type: "anything"}))
}
