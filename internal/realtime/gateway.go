package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
)

const (
	sendQueueSize    = 64
	writeTimeout     = 5 * time.Second
	heartbeatEvery   = 30 * time.Second
	heartbeatTimeout = 10 * time.Second
	maxPingFailures  = 3
)

// Gateway upgrades authenticated requests to websocket sessions that
// receive the user's push events. Clients only listen; anything they send
// is discarded.
type Gateway struct {
	logger         *logrus.Logger
	hub            *Hub
	originPatterns []string
}

func NewGateway(logger *logrus.Logger, hub *Hub, originPatterns []string) *Gateway {
	return &Gateway{logger: logger, hub: hub, originPatterns: originPatterns}
}

func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.logger.WithError(err).WithField("user_id", userID).Warn("failed to accept websocket")
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	client := NewClient(userID, sendQueueSize)
	g.hub.Register(client)
	defer func() {
		g.hub.Deregister(client)
		client.Close()
	}()

	entry := g.logger.WithField("user_id", userID)
	entry.Debug("websocket connected")

	// CloseRead drains incoming frames and cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			entry.Debug("websocket disconnected")
			return

		case ev := <-client.Send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				entry.WithError(err).Info("websocket write failed")
				_ = conn.Close(websocket.StatusAbnormalClosure, "write failed")
				return
			}

		case <-heartbeat.C:
			pingCtx, cancel := context.WithTimeout(ctx, heartbeatTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}

			failures++
			if failures >= maxPingFailures {
				entry.WithError(err).Info("websocket heartbeat failed")
				_ = conn.Close(websocket.StatusGoingAway, "heartbeat failed")
				return
			}
		}
	}
}
