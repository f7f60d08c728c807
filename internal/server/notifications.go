package server

import (
	"net/http"
	"strings"

	"bloodlink/pkg/types"
)

const notificationListLimit = 50

func (s *Service) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	notifications, err := s.notifications.NotificationsByUser(ctx, userID, notificationListLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string][]*types.Notification{"notifications": notifications})
}

func (s *Service) handlePutNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.notifications.MarkRead(ctx, userID, strings.TrimSpace(r.PathValue("id"))); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, msgResponse{Msg: "Notification marked read"})
}

func (s *Service) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.gateway.Serve(w, r, userID)
}
