package events

import (
	"context"
	"encoding/json"

	goredis "github.com/redis/go-redis/v9"
)

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channels []string, handler func(channel string, payload []byte)) error
}

// RedisPublisher publishes room events on per-room Redis channels.
type RedisPublisher struct {
	client *goredis.Client
}

func NewRedisPublisher(client *goredis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, RoomChannel(env.RoomID), data).Err()
}

// RedisSubscriber pattern-subscribes to room channels and dispatches raw
// payloads to the handler.
type RedisSubscriber struct {
	client *goredis.Client
}

func NewRedisSubscriber(client *goredis.Client) *RedisSubscriber {
	return &RedisSubscriber{client: client}
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, channels []string, handler func(channel string, payload []byte)) error {
	pubsub := s.client.PSubscribe(ctx, channels...)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handler(msg.Channel, []byte(msg.Payload))
		}
	}
}
