package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// LogHandler writes every event to the audit log.
func LogHandler(logger *zerolog.Logger) EventHandler {
	return func(event *Event) error {
		logger.Info().
			Str("event", event.Type).
			RawJSON("payload", event.Payload).
			Time("at", event.CreatedAt).
			Msg("workflow event")
		return nil
	}
}

// RedisStream mirrors events into a capped Redis stream so other processes
// (support dashboards, reconcilers) can follow payment outcomes.
type RedisStream struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
}

func NewRedisStream(client *redis.Client, stream string, maxLen int64) *RedisStream {
	if stream == "" {
		stream = "venuebook:events"
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisStream{client: client, stream: stream, maxLen: maxLen, timeout: 2 * time.Second}
}

func (s *RedisStream) Handle(event *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":       event.Type,
			"payload":    string(event.Payload),
			"created_at": event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
}

// Decode unmarshals an event payload into out.
func Decode(event *Event, out interface{}) error {
	return json.Unmarshal(event.Payload, out)
}
