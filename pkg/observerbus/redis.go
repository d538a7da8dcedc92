package observerbus

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rhuss/scrubgate/pkg/observability"
)

// RedisBus backs the Bus abstraction with Redis Pub/Sub, letting the
// observer stream fan out across multiple Gateway processes sharing
// one Redis instance. Publish failures are counted as drops and
// returned to the caller, not retried: per spec §4.5, delivery is
// best-effort fire-and-forget.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus dials addr and verifies connectivity with a PING.
func NewRedisBus(ctx context.Context, addr string) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("observerbus: connect to redis at %s: %w", addr, err)
	}
	return &RedisBus{client: client}, nil
}

// publishTimeout bounds a single PUBLISH so a slow Redis connection
// degrades to a counted drop instead of holding up the request path.
const publishTimeout = 500 * time.Millisecond

// Publish publishes payload to channel via Redis PUBLISH, giving up
// after publishTimeout.
func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		observability.ObserverDropsTotal.Inc()
		return fmt.Errorf("observerbus: publish on %s: %w", channel, err)
	}
	return nil
}

type redisSub struct {
	pubsub *redis.PubSub
	ch     chan []byte
	cancel context.CancelFunc
}

func (s *redisSub) Messages() <-chan []byte { return s.ch }

func (s *redisSub) Close() error {
	s.cancel()
	return s.pubsub.Close()
}

// Subscribe opens a Redis subscription and pumps incoming messages
// into a buffered Go channel, dropping messages a slow consumer
// hasn't drained yet rather than blocking the pump goroutine.
func (b *RedisBus) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("observerbus: subscribe to %s: %w", channel, err)
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	sub := &redisSub{pubsub: pubsub, ch: make(chan []byte, subscriberBufferSize), cancel: cancel}

	go func() {
		defer close(sub.ch)
		in := pubsub.Channel()
		for {
			select {
			case <-pumpCtx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case sub.ch <- []byte(msg.Payload):
				default:
					observability.ObserverDropsTotal.Inc()
				}
			}
		}
	}()

	return sub, nil
}

// Close releases the underlying Redis client.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
