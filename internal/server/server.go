package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"bloodlink/internal/lifecycle"
	"bloodlink/internal/realtime"
	"bloodlink/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type NotificationStore interface {
	NotificationsByUser(ctx context.Context, userID string, limit uint64) ([]*types.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type Service struct {
	logger        *logrus.Logger
	config        *types.Config
	lifecycle     *lifecycle.Manager
	notifications NotificationStore
	verifier      Verifier
	gateway       *realtime.Gateway

	cookie *securecookie.SecureCookie

	handler http.Handler
	server  *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	manager *lifecycle.Manager,
	notifications NotificationStore,
	verifier Verifier,
	gateway *realtime.Gateway,
) (*Service, error) {
	mux := flow.New()

	s := &Service{
		logger:        logger,
		config:        config,
		lifecycle:     manager,
		notifications: notifications,
		verifier:      verifier,
		gateway:       gateway,
		handler:       mux,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	if config.CookieHashKey != "" {
		hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode COOKIE_HASH_KEY: %w", err)
		}
		blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode COOKIE_BLOCK_KEY: %w", err)
		}
		s.cookie = securecookie.New(hashKey, blockKey)
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Handler() http.Handler {
	return s.handler
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", promhttp.Handler(), http.MethodGet)

	r.HandleFunc("/requests/active", s.observe("/requests/active", s.handleGetActiveRequests), http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/requests", s.observe("/requests", s.handlePostRequest), http.MethodPost)
		r.HandleFunc("/requests/my", s.observe("/requests/my", s.handleGetMyRequests), http.MethodGet)
		r.HandleFunc("/requests/stats", s.observe("/requests/stats", s.handleGetStats), http.MethodGet)
		r.HandleFunc("/requests/my-donations/count", s.observe("/requests/my-donations/count", s.handleGetDonationCount), http.MethodGet)
		r.HandleFunc("/requests/:id", s.observe("/requests/:id", s.handleGetRequest), http.MethodGet)
		r.HandleFunc("/requests/:id/accept", s.observe("/requests/:id/accept", s.handleAcceptRequest), http.MethodPost)
		r.HandleFunc("/requests/:id/reject", s.observe("/requests/:id/reject", s.handleRejectRequest), http.MethodPost)
		r.HandleFunc("/requests/:id/complete", s.observe("/requests/:id/complete", s.handleCompleteRequest), http.MethodPut)

		r.HandleFunc("/donor/search", s.observe("/donor/search", s.handleSearchDonors), http.MethodGet)

		r.HandleFunc("/profile", s.observe("/profile", s.handleGetProfile), http.MethodGet)
		r.HandleFunc("/profile/availability", s.observe("/profile/availability", s.handlePutAvailability), http.MethodPut)
		r.HandleFunc("/profile/last-donation", s.observe("/profile/last-donation", s.handlePutLastDonation), http.MethodPut)

		r.HandleFunc("/notifications", s.observe("/notifications", s.handleGetNotifications), http.MethodGet)
		r.HandleFunc("/notifications/:id/read", s.observe("/notifications/:id/read", s.handlePutNotificationRead), http.MethodPut)

		r.HandleFunc("/ws", s.handleWebsocket, http.MethodGet)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextKeyUserID).(string)
	if !ok || userID == "" {
		return "", types.ErrUnauthorized
	}
	return userID, nil
}
