package notify

import (
	"context"
	"fmt"

	"bloodlink/internal/metrics"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
)

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *types.Notification) error
}

// Pusher delivers a realtime event to a user's open connections.
type Pusher interface {
	Push(ctx context.Context, userID, event string, payload any) error
}

// Emitter persists a notification and then pushes it to the recipient.
// Persisting is required; the push is best-effort.
type Emitter struct {
	logger *logrus.Logger
	store  NotificationStore
	pusher Pusher
}

func NewEmitter(logger *logrus.Logger, store NotificationStore, pusher Pusher) *Emitter {
	return &Emitter{logger: logger, store: store, pusher: pusher}
}

func (e *Emitter) Notify(ctx context.Context, n *types.Notification, event string) error {
	if err := e.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to persist %s notification: %w", n.Type, err)
	}
	metrics.Notifications.WithLabelValues(string(n.Type)).Inc()

	if e.pusher == nil || event == "" {
		return nil
	}

	if err := e.pusher.Push(ctx, n.UserID, event, n.Meta); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": n.UserID,
			"event":   event,
		}).Warn("failed to push realtime event")
	}

	return nil
}
