package lifecycle

import (
	"time"

	"bloodlink/pkg/types"
)

// The transitions below run inside store.MutateRequest, which serializes
// writers per request. Each returns whether the request changed.

func accept(r *types.Request, donorID string, now time.Time) (bool, error) {
	if r.RequesterID == donorID {
		return false, types.ErrSelfAcceptance
	}
	if r.Assignment(donorID) != nil {
		return false, nil
	}

	r.DonorsAssigned = append(r.DonorsAssigned, &types.DonorAssignment{
		RequestID:  r.ID,
		DonorID:    donorID,
		Status:     types.AssignmentStatusAccepted,
		AssignedAt: now,
	})
	if r.Status == types.RequestStatusPending {
		r.Status = types.RequestStatusAccepted
	}

	return true, nil
}

func reject(r *types.Request, donorID string) bool {
	if r.HasRejected(donorID) {
		return false
	}
	r.RejectedDonors = append(r.RejectedDonors, donorID)
	return true
}

func complete(r *types.Request, donorID string, now time.Time) (bool, error) {
	entry := r.Assignment(donorID)
	if entry == nil {
		return false, types.ErrNotAccepted
	}
	if entry.Status == types.AssignmentStatusCompleted {
		return false, nil
	}

	entry.Status = types.AssignmentStatusCompleted
	entry.CompletedAt = &now

	// Expired stays terminal; the donation itself is still recorded.
	if !r.Status.Terminal() && r.CompletedCount() >= r.UnitsNeeded {
		r.Status = types.RequestStatusCompleted
	}

	return true, nil
}

// Expire moves a Pending request past its deadline to Expired. Anything
// else is left alone, so a request accepted or completed since it was
// listed for expiry is skipped.
func Expire(r *types.Request, now time.Time) bool {
	if r.Status != types.RequestStatusPending || r.ExpiresAt.After(now) {
		return false
	}
	r.Status = types.RequestStatusExpired
	return true
}
