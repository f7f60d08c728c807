package lifecycle

import (
	"context"

	"bloodlink/pkg/types"
)

// populate resolves requesters and assigned donors to their public
// summaries. Users that no longer exist are left nil.
func (m *Manager) populate(ctx context.Context, requests ...*types.Request) error {
	if len(requests) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	userIDs := make([]string, 0)
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		userIDs = append(userIDs, id)
	}

	for _, request := range requests {
		add(request.RequesterID)
		for _, a := range request.DonorsAssigned {
			add(a.DonorID)
		}
	}

	users, err := m.users.UsersByIDs(ctx, userIDs)
	if err != nil {
		return err
	}

	byID := make(map[string]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for _, request := range requests {
		request.Requester = byID[request.RequesterID].Summary()
		for _, a := range request.DonorsAssigned {
			a.Donor = byID[a.DonorID].Summary()
		}
	}

	return nil
}
