package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBloodGroup(t *testing.T) {
	cases := map[string]BloodGroup{
		"A+":  BloodGroupAPos,
		"A ":  BloodGroupAPos,
		"ab ": BloodGroupABPos,
		"o-":  BloodGroupONeg,
		" B+": BloodGroupBPos,
	}
	for in, want := range cases {
		got := NormalizeBloodGroup(in)
		assert.Equal(t, want, got, in)
		assert.True(t, got.Valid(), in)
	}

	assert.False(t, NormalizeBloodGroup("C+").Valid())
}

func TestEligibleSince(t *testing.T) {
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, EligibleSince(now.AddDate(0, 0, -91), now))
	assert.True(t, EligibleSince(now.AddDate(0, 0, -90), now))
	assert.False(t, EligibleSince(now.AddDate(0, 0, -89), now))
}

func TestCanDonate(t *testing.T) {
	var nobody *User
	assert.False(t, nobody.CanDonate())
	assert.True(t, (&User{Availability: true}).CanDonate())
	assert.False(t, (&User{Availability: true, IsSuspended: true}).CanDonate())
	assert.False(t, (&User{}).CanDonate())
}

func TestRequestClone(t *testing.T) {
	done := time.Now()
	r := &Request{
		DonorsAssigned: []*DonorAssignment{{DonorID: "d1", CompletedAt: &done}},
		RejectedDonors: []string{"d2"},
	}

	cp := r.Clone()
	cp.DonorsAssigned[0].Status = AssignmentStatusCompleted
	*cp.DonorsAssigned[0].CompletedAt = done.Add(time.Hour)
	cp.RejectedDonors[0] = "x"

	assert.Empty(t, r.DonorsAssigned[0].Status)
	assert.Equal(t, done, *r.DonorsAssigned[0].CompletedAt)
	assert.Equal(t, "d2", r.RejectedDonors[0])
}

func TestRequestIsActive(t *testing.T) {
	now := time.Now()
	r := &Request{Status: RequestStatusAccepted, ExpiresAt: now.Add(time.Minute)}
	assert.True(t, r.IsActive(now))
	assert.False(t, r.IsActive(now.Add(time.Minute)))

	r.Status = RequestStatusCompleted
	assert.False(t, r.IsActive(now))
}

func TestRequestStatusTerminal(t *testing.T) {
	assert.False(t, RequestStatusPending.Terminal())
	assert.False(t, RequestStatusAccepted.Terminal())
	assert.True(t, RequestStatusCompleted.Terminal())
	assert.True(t, RequestStatusExpired.Terminal())
}
