package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"bloodlink/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Hub tracks the open connections of each user on this instance. A user may
// hold several connections at once (tabs, devices).
type Hub struct {
	logger *logrus.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	metrics.RealtimeConnections.Inc()
}

func (h *Hub) Deregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}

	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	metrics.RealtimeConnections.Dec()
}

func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Deliver queues ev for every connection of userID and returns how many
// accepted it. Full queues drop the event.
func (h *Hub) Deliver(userID string, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients[userID] {
		if c.offer(ev) {
			delivered++
			continue
		}
		metrics.RealtimeDropped.Inc()
		h.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"event":   ev.Name,
		}).Warn("dropped realtime event for slow client")
	}

	return delivered
}

// Push delivers to connections on this instance only.
func (h *Hub) Push(_ context.Context, userID, event string, payload any) error {
	ev, err := NewEvent(event, payload)
	if err != nil {
		return err
	}
	h.Deliver(userID, ev)
	return nil
}

func NewEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	return Event{Name: name, Payload: data}, nil
}
