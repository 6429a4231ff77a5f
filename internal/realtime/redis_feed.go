package realtime

import (
	"context"
	"log/slog"

	redis "github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
)

// RedisFeed implements Feed over a single Redis pub/sub channel so that
// events published on one node reach sessions connected to another.
type RedisFeed struct {
	client  *redis.Client
	channel string
}

func NewRedisFeed(client *redis.Client, channel string) *RedisFeed {
	return &RedisFeed{client: client, channel: channel}
}

func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	b, err := jsoniter.Marshal(ev)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, b).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	pubsub := f.client.Subscribe(ctx, f.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := jsoniter.UnmarshalFromString(msg.Payload, &ev); err != nil {
				slog.Error("change feed decode failed", "error", err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { pubsub.Close() }
	return out, cancel, nil
}
