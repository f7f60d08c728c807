package server

import (
	"net/http"
	"strings"

	"bloodlink/pkg/types"
)

type requestResponse struct {
	Msg     string         `json:"msg,omitempty"`
	Request *types.Request `json:"request"`
}

type requestsResponse struct {
	Requests []*types.Request `json:"requests"`
}

func (s *Service) handlePostRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var need types.RequestNeed
	if err := s.decodeBody(r, &need); err != nil {
		s.writeError(w, r, err)
		return
	}

	request, err := s.lifecycle.Create(ctx, userID, need)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, requestResponse{Msg: "Request created", Request: request})
}

func (s *Service) handleGetActiveRequests(w http.ResponseWriter, r *http.Request) {
	var filter types.RequestFilter
	if err := decoder.Decode(&filter, r.URL.Query()); err != nil {
		s.writeError(w, r, types.NewValidationError("", "invalid query parameters"))
		return
	}

	requests, err := s.lifecycle.Active(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, requestsResponse{Requests: requests})
}

func (s *Service) handleGetMyRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	requests, err := s.lifecycle.Mine(ctx, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, requestsResponse{Requests: requests})
}

func (s *Service) handleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	stats, err := s.lifecycle.Stats(ctx, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Service) handleGetDonationCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	count, err := s.lifecycle.DonationCount(ctx, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Service) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.PathValue("id"))

	request, err := s.lifecycle.Detail(r.Context(), requestID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, requestResponse{Request: request})
}

func (s *Service) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	request, changed, err := s.lifecycle.Accept(ctx, strings.TrimSpace(r.PathValue("id")), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg := "Accepted"
	if !changed {
		msg = "Already accepted"
	}

	s.writeJSON(w, http.StatusOK, requestResponse{Msg: msg, Request: request})
}

func (s *Service) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	request, _, err := s.lifecycle.Reject(ctx, strings.TrimSpace(r.PathValue("id")), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, requestResponse{Msg: "Rejected", Request: request})
}

func (s *Service) handleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	request, changed, err := s.lifecycle.Complete(ctx, strings.TrimSpace(r.PathValue("id")), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg := "Donation completed"
	if !changed {
		msg = "Donation already completed"
	}

	s.writeJSON(w, http.StatusOK, requestResponse{Msg: msg, Request: request})
}
