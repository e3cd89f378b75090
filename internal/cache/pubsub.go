package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Publisher is the publish half of PubSub; the message pipeline needs
// nothing else.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// PubSub fans events out on channel-scoped topics. Delivery is at-most-once
// within one subscription session; FIFO per topic from a single publisher.
type PubSub struct {
	rdb *redis.Client
}

func NewPubSub(rdb *redis.Client) *PubSub { return &PubSub{rdb: rdb} }

func (p *PubSub) Publish(ctx context.Context, topic string, payload any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, topic, buf).Err()
}

// Subscribe opens an empty multi-topic subscription; topics are added and
// removed over its lifetime. The caller owns Close.
func (p *PubSub) Subscribe(ctx context.Context) *Subscription {
	return &Subscription{ps: p.rdb.Subscribe(ctx)}
}

type Subscription struct {
	ps *redis.PubSub
}

func (s *Subscription) Add(ctx context.Context, topics ...string) error {
	return s.ps.Subscribe(ctx, topics...)
}

func (s *Subscription) Remove(ctx context.Context, topics ...string) error {
	return s.ps.Unsubscribe(ctx, topics...)
}

// Events yields raw payloads; the channel closes when the subscription does.
func (s *Subscription) Events() <-chan *redis.Message {
	return s.ps.Channel()
}

func (s *Subscription) Close() error {
	return s.ps.Close()
}
