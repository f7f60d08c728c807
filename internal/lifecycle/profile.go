package lifecycle

import (
	"context"
	"time"

	"bloodlink/pkg/types"
)

func (m *Manager) Profile(ctx context.Context, userID string) (*types.Profile, error) {
	user, err := m.users.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

// SetAvailability is the donor's manual override. It also cancels the
// automatic release at the end of a running cool-down.
func (m *Manager) SetAvailability(ctx context.Context, userID string, available *bool) (*types.Profile, error) {
	if available == nil {
		return nil, types.NewValidationError("availability", "is required")
	}

	if err := m.users.SetAvailability(ctx, userID, *available); err != nil {
		return nil, err
	}

	return m.Profile(ctx, userID)
}

// SetLastDonation records a self-reported donation date. Availability
// follows from whether the cool-down has run out.
func (m *Manager) SetLastDonation(ctx context.Context, userID string, lastDonation *time.Time) (*types.Profile, error) {
	if lastDonation == nil || lastDonation.IsZero() {
		return nil, types.NewValidationError("lastDonation", "is required")
	}

	now := m.now()
	if lastDonation.After(now) {
		return nil, types.NewValidationError("lastDonation", "cannot be in the future")
	}

	if err := m.users.SetLastDonation(ctx, userID, *lastDonation, now); err != nil {
		return nil, err
	}

	return m.Profile(ctx, userID)
}
