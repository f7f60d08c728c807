package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type envelope struct {
	UserID string `json:"userId"`
	Event  Event  `json:"event"`
}

// RedisBroker fans push events out to every instance. Push publishes on a
// channel; Run delivers each message to the local hub.
type RedisBroker struct {
	logger  *logrus.Logger
	client  *redis.Client
	channel string
	hub     *Hub
}

func NewRedisBroker(logger *logrus.Logger, client *redis.Client, channel string, hub *Hub) *RedisBroker {
	return &RedisBroker{
		logger:  logger,
		client:  client,
		channel: channel,
		hub:     hub,
	}
}

func (b *RedisBroker) Push(ctx context.Context, userID, event string, payload any) error {
	ev, err := NewEvent(event, payload)
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope{UserID: userID, Event: ev})
	if err != nil {
		return fmt.Errorf("failed to encode realtime envelope: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", event, b.channel, err)
	}

	return nil
}

// Run blocks until ctx is cancelled or the subscription fails.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	b.logger.WithField("channel", b.channel).Info("realtime broker subscribed")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription to %s closed", b.channel)
			}
			b.handle(msg.Payload)
		}
	}
}

func (b *RedisBroker) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.WithError(err).Warn("discarding malformed realtime envelope")
		return
	}
	if env.UserID == "" || env.Event.Name == "" {
		return
	}
	b.hub.Deliver(env.UserID, env.Event)
}
