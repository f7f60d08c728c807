package server

import (
	"net/http"

	"bloodlink/pkg/types"
)

func (s *Service) handleSearchDonors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var need types.DonorNeed
	if err := decoder.Decode(&need, r.URL.Query()); err != nil {
		s.writeError(w, r, types.NewValidationError("", "invalid query parameters"))
		return
	}

	donors, err := s.lifecycle.SearchDonors(ctx, userID, need)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string][]*types.UserSummary{"donors": donors})
}
