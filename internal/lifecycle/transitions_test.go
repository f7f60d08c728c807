package lifecycle

import (
	"testing"
	"time"

	"bloodlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pending(units int, expiresAt time.Time) *types.Request {
	return &types.Request{
		ID:          "r1",
		RequesterID: "owner",
		BloodGroup:  types.BloodGroupBNeg,
		UnitsNeeded: units,
		Status:      types.RequestStatusPending,
		ExpiresAt:   expiresAt,
	}
}

func TestAcceptTransition(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	r := pending(1, now.Add(time.Hour))
	changed, err := accept(r, "d1", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, types.RequestStatusAccepted, r.Status)
	assert.Equal(t, now, r.DonorsAssigned[0].AssignedAt)

	changed, err = accept(r, "d1", now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, r.DonorsAssigned, 1)

	_, err = accept(r, "owner", now)
	assert.ErrorIs(t, err, types.ErrSelfAcceptance)

	expired := pending(1, now)
	expired.Status = types.RequestStatusExpired
	changed, err = accept(expired, "d2", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, types.RequestStatusExpired, expired.Status)
}

func TestRejectTransition(t *testing.T) {
	r := pending(1, time.Now())
	assert.True(t, reject(r, "d1"))
	assert.False(t, reject(r, "d1"))
	assert.True(t, reject(r, "d2"))
	assert.Equal(t, []string{"d1", "d2"}, r.RejectedDonors)
	assert.Equal(t, types.RequestStatusPending, r.Status)
}

func TestCompleteTransition(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	r := pending(2, now.Add(time.Hour))
	_, err := complete(r, "d1", now)
	assert.ErrorIs(t, err, types.ErrNotAccepted)

	_, err = accept(r, "d1", now)
	require.NoError(t, err)
	_, err = accept(r, "d2", now)
	require.NoError(t, err)

	changed, err := complete(r, "d1", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, types.RequestStatusAccepted, r.Status)

	changed, err = complete(r, "d1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, now, *r.Assignment("d1").CompletedAt)

	changed, err = complete(r, "d2", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, types.RequestStatusCompleted, r.Status)
}

func TestCompleteTransition_ExpiredStaysExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	r := pending(1, now)
	r.DonorsAssigned = []*types.DonorAssignment{{DonorID: "d1", Status: types.AssignmentStatusAccepted}}
	r.Status = types.RequestStatusExpired

	changed, err := complete(r, "d1", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, types.RequestStatusExpired, r.Status)
	assert.Equal(t, types.AssignmentStatusCompleted, r.Assignment("d1").Status)
}

func TestExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := map[string]struct {
		status    types.RequestStatus
		expiresAt time.Time
		want      bool
	}{
		"pending past deadline":   {types.RequestStatusPending, now.Add(-time.Second), true},
		"pending at deadline":     {types.RequestStatusPending, now, true},
		"pending before deadline": {types.RequestStatusPending, now.Add(time.Second), false},
		"accepted past deadline":  {types.RequestStatusAccepted, now.Add(-time.Hour), false},
		"completed past deadline": {types.RequestStatusCompleted, now.Add(-time.Hour), false},
		"already expired":         {types.RequestStatusExpired, now.Add(-time.Hour), false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := pending(1, tc.expiresAt)
			r.Status = tc.status

			assert.Equal(t, tc.want, Expire(r, now))
			if tc.want {
				assert.Equal(t, types.RequestStatusExpired, r.Status)
			} else {
				assert.Equal(t, tc.status, r.Status)
			}
		})
	}
}
