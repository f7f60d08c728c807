package realtime

import (
	"encoding/json"
	"sync"
)

// Event is the frame written to a websocket client.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one open connection for a user. Send is never closed so
// concurrent pushes cannot panic; done signals shutdown instead.
type Client struct {
	UserID string
	Send   chan Event

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Client{
		UserID: userID,
		Send:   make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close is idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// offer queues ev without blocking and reports whether it was accepted.
func (c *Client) offer(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Send <- ev:
		return true
	default:
		return false
	}
}
