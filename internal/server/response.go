package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
)

type msgResponse struct {
	Msg string `json:"msg"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a generic 500.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *types.ValidationError

	switch {
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusBadRequest, msgResponse{Msg: verr.Error()})
	case errors.Is(err, types.ErrUnauthorized):
		s.writeJSON(w, http.StatusUnauthorized, msgResponse{Msg: err.Error()})
	case errors.Is(err, types.ErrRequestNotFound),
		errors.Is(err, types.ErrUserNotFound),
		errors.Is(err, types.ErrNotificationNotFound):
		s.writeJSON(w, http.StatusNotFound, msgResponse{Msg: err.Error()})
	case errors.Is(err, types.ErrIneligibleDonor),
		errors.Is(err, types.ErrSelfAcceptance),
		errors.Is(err, types.ErrNotAccepted):
		s.writeJSON(w, http.StatusForbidden, msgResponse{Msg: err.Error()})
	default:
		s.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		s.internalServerError(w)
	}
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusInternalServerError, msgResponse{Msg: "internal server error"})
}

func (s *Service) decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return types.NewValidationError("", "invalid JSON body")
	}
	return nil
}
