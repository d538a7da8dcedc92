package observerbus

import (
	"context"
	"sync"

	"github.com/rhuss/scrubgate/pkg/observability"
)

// subscriberBufferSize bounds how far a subscriber may lag behind the
// publisher before messages are dropped for it.
const subscriberBufferSize = 64

// MemoryBus is the default, in-process Bus implementation: a map of
// channel name to a set of buffered-channel subscribers. Publish never
// blocks: a full subscriber buffer means that subscriber misses the
// message, matching the "drop rather than block" contract.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[*memorySub]struct{}
	dropped     uint64
}

// NewMemoryBus constructs an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subscribers: make(map[string]map[*memorySub]struct{})}
}

type memorySub struct {
	ch      chan []byte
	bus     *MemoryBus
	channel string
}

func (s *memorySub) Messages() <-chan []byte { return s.ch }

func (s *memorySub) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if set, ok := s.bus.subscribers[s.channel]; ok {
		if _, present := set[s]; present {
			delete(set, s)
			close(s.ch)
		}
	}
	return nil
}

// Publish fans payload out to every current subscriber of channel,
// without blocking: a subscriber whose buffer is full simply misses
// this message and a drop counter is incremented.
func (b *MemoryBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	subs := b.subscribers[channel]
	targets := make([]*memorySub, 0, len(subs))
	for s := range subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.ch <- payload:
		default:
			b.mu.Lock()
			b.dropped++
			b.mu.Unlock()
			observability.ObserverDropsTotal.Inc()
		}
	}
	return nil
}

// Subscribe registers a new buffered-channel subscriber for channel.
func (b *MemoryBus) Subscribe(_ context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &memorySub{ch: make(chan []byte, subscriberBufferSize), bus: b, channel: channel}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[*memorySub]struct{})
	}
	b.subscribers[channel][sub] = struct{}{}
	return sub, nil
}

// Dropped returns the cumulative count of messages dropped because a
// subscriber's buffer was full. Publish increments the observer_drops
// metric alongside it.
func (b *MemoryBus) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Close unsubscribes and closes every live subscriber across every
// channel. The MemoryBus itself holds no other resources.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, set := range b.subscribers {
		for s := range set {
			close(s.ch)
		}
	}
	b.subscribers = make(map[string]map[*memorySub]struct{})
	return nil
}
