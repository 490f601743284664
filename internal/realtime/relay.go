package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// FeedStream is the Redis stream other replicas and consumers read.
const FeedStream = "fusion.feed"

const feedStreamMaxLen = 10000

// RedisRelay appends feed events to a capped Redis stream.
type RedisRelay struct {
	client *redis.Client
	stream string
}

var _ Relay = (*RedisRelay)(nil)

func NewRedisRelay(client *redis.Client) *RedisRelay {
	return &RedisRelay{client: client, stream: FeedStream}
}

func (r *RedisRelay) Relay(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: feedStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"seq":            evt.Seq,
			"type":           string(evt.Type),
			"classification": string(evt.ClassificationLevel),
			"payload":        payload,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}
