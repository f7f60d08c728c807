package server

import (
	"net/http"
	"strings"
	"time"

	"bloodlink/pkg/types"
)

type profileResponse struct {
	Msg     string         `json:"msg,omitempty"`
	Profile *types.Profile `json:"profile"`
}

func (s *Service) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.lifecycle.Profile(ctx, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profileResponse{Profile: profile})
}

func (s *Service) handlePutAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body struct {
		Availability *bool `json:"availability"`
	}
	if err := s.decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.lifecycle.SetAvailability(ctx, userID, body.Availability)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profileResponse{Msg: "Availability updated", Profile: profile})
}

func (s *Service) handlePutLastDonation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body struct {
		LastDonation string `json:"lastDonation"`
	}
	if err := s.decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	lastDonation, err := parseDonationDate(body.LastDonation)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	profile, err := s.lifecycle.SetLastDonation(ctx, userID, lastDonation)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, profileResponse{Msg: "Last donation updated", Profile: profile})
}

// parseDonationDate accepts an RFC 3339 timestamp or a bare date as sent by
// a date input. An empty value yields nil.
func parseDonationDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}

	return nil, types.NewValidationError("lastDonation", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
}
