package lifecycle

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"bloodlink/internal/matcher"
	"bloodlink/internal/store"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dhaka = types.UserLocation{District: "Dhaka", City: "Dhaka City", Area: "Mirpur"}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []*types.Notification
	events []string
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, notification *types.Notification, event string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) ofType(t types.NotificationType) []*types.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*types.Notification, 0)
	for _, sent := range n.sent {
		if sent.Type == t {
			out = append(out, sent)
		}
	}
	return out
}

type fixture struct {
	store    *store.MemoryStore
	notifier *recordingNotifier
	manager  *Manager
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		store:    store.NewMemoryStore(),
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.store.SetClock(clock)

	f.manager = New(logger, f.store, f.store, matcher.New(f.store), f.notifier, Options{
		RequestTTL: 24 * time.Hour,
		MatchLimit: 100,
		Clock:      clock,
	})
	return f
}

func (f *fixture) user(t *testing.T, id string, group types.BloodGroup) *types.User {
	t.Helper()
	u := &types.User{
		ID:           id,
		Name:         "User " + id,
		Email:        id + "@example.com",
		Phone:        "0170000" + id,
		BloodGroup:   group,
		UserLocation: dhaka,
		Availability: true,
	}
	require.NoError(t, f.store.Create(context.Background(), u))
	return u
}

func (f *fixture) request(t *testing.T, requesterID string, units int) *types.Request {
	t.Helper()
	r, err := f.manager.Create(context.Background(), requesterID, types.RequestNeed{
		PatientName: "Rahima Khatun",
		BloodGroup:  types.BloodGroupOPos,
		District:    dhaka.District,
		City:        dhaka.City,
		Area:        dhaka.Area,
		Hospital:    "Dhaka Medical College",
		UnitsNeeded: units,
	})
	require.NoError(t, err)
	return r
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "d1", types.BloodGroupOPos)
	f.user(t, "d2", types.BloodGroupOPos)
	f.user(t, "other", types.BloodGroupAPos)

	r := f.request(t, "req", 1)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, types.RequestStatusPending, r.Status)
	assert.Equal(t, f.now.Add(24*time.Hour), r.ExpiresAt)
	assert.Empty(t, r.DonorsAssigned)
	assert.Empty(t, r.RejectedDonors)

	matches := f.notifier.ofType(types.NotificationRequestMatch)
	require.Len(t, matches, 2)
	for _, n := range matches {
		assert.NotEqual(t, "req", n.UserID)
		assert.Equal(t, r.ID, n.Meta.RequestID)
	}
	assert.Contains(t, f.notifier.events, types.EventNewRequest)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	f.user(t, "req", types.BloodGroupOPos)

	cases := map[string]struct {
		need  types.RequestNeed
		field string
	}{
		"missing patient": {
			need:  types.RequestNeed{BloodGroup: types.BloodGroupOPos, UnitsNeeded: 1},
			field: "patientName",
		},
		"blank patient": {
			need:  types.RequestNeed{PatientName: "   ", BloodGroup: types.BloodGroupOPos, UnitsNeeded: 1},
			field: "patientName",
		},
		"missing blood group": {
			need:  types.RequestNeed{PatientName: "P", UnitsNeeded: 1},
			field: "bloodGroup",
		},
		"unknown blood group": {
			need:  types.RequestNeed{PatientName: "P", BloodGroup: "C+", UnitsNeeded: 1},
			field: "bloodGroup",
		},
		"zero units": {
			need:  types.RequestNeed{PatientName: "P", BloodGroup: types.BloodGroupOPos},
			field: "unitsNeeded",
		},
		"negative units": {
			need:  types.RequestNeed{PatientName: "P", BloodGroup: types.BloodGroupOPos, UnitsNeeded: -2},
			field: "unitsNeeded",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.manager.Create(context.Background(), "req", tc.need)

			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestCreate_NotifierFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "d1", types.BloodGroupOPos)
	f.notifier.err = errors.New("smtp down")

	r := f.request(t, "req", 1)

	stored, err := f.store.Request(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusPending, stored.Status)
}

func TestAccept(t *testing.T) {
	f := newFixture(t)
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "donor", types.BloodGroupOPos)
	r := f.request(t, "req", 1)

	got, changed, err := f.manager.Accept(context.Background(), r.ID, "donor")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, types.RequestStatusAccepted, got.Status)
	require.Len(t, got.DonorsAssigned, 1)
	assert.Equal(t, types.AssignmentStatusAccepted, got.DonorsAssigned[0].Status)
	assert.Nil(t, got.DonorsAssigned[0].CompletedAt)
	require.NotNil(t, got.DonorsAssigned[0].Donor)
	assert.Equal(t, "User donor", got.DonorsAssigned[0].Donor.Name)
	require.NotNil(t, got.Requester)
	assert.Equal(t, "req", got.Requester.ID)

	accepted := f.notifier.ofType(types.NotificationRequestAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, "req", accepted[0].UserID)
	assert.Equal(t, "donor", accepted[0].Meta.DonorID)
}

func TestAccept_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "donor", types.BloodGroupOPos)
	r := f.request(t, "req", 1)

	_, _, err := f.manager.Accept(context.Background(), r.ID, "donor")
	require.NoError(t, err)

	got, changed, err := f.manager.Accept(context.Background(), r.ID, "donor")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, got.DonorsAssigned, 1)
	assert.Len(t, f.notifier.ofType(types.NotificationRequestAccepted), 1)
}

func TestAccept_ConcurrentSameDonor(t *testing.T) {
	f := newFixture(t)
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "donor", types.BloodGroupOPos)
	r := f.request(t, "req", 1)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.manager.Accept(context.Background(), r.ID, "donor")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.store.Request(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Len(t, stored.DonorsAssigned, 1)
	assert.Len(t, f.notifier.ofType(types.NotificationRequestAccepted), 1)
}

func TestAccept_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "req", types.BloodGroupOPos)
	r := f.request(t, "req", 1)

	resting := f.user(t, "resting", types.BloodGroupOPos)
	require.NoError(t, f.store.SetAvailability(ctx, resting.ID, false))

	require.NoError(t, f.store.Create(ctx, &types.User{ID: "banned", BloodGroup: types.BloodGroupOPos, Availability: true, IsSuspended: true}))

	_, _, err := f.manager.Accept(ctx, r.ID, "req")
	assert.ErrorIs(t, err, types.ErrSelfAcceptance)

	_, _, err = f.manager.Accept(ctx, r.ID, "resting")
	assert.ErrorIs(t, err, types.ErrIneligibleDonor)

	_, _, err = f.manager.Accept(ctx, r.ID, "banned")
	assert.ErrorIs(t, err, types.ErrIneligibleDonor)

	_, _, err = f.manager.Accept(ctx, r.ID, "ghost")
	assert.ErrorIs(t, err, types.ErrUserNotFound)

	_, _, err = f.manager.Accept(ctx, "missing", "resting")
	assert.ErrorIs(t, err, types.ErrRequestNotFound)

	stored, err := f.store.Request(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.DonorsAssigned)
	assert.Equal(t, types.RequestStatusPending, stored.Status)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "donor", types.BloodGroupOPos)
	r := f.request(t, "req", 1)

	got, changed, err := f.manager.Reject(context.Background(), r.ID, "donor")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"donor"}, got.RejectedDonors)
	assert.Equal(t, types.RequestStatusPending, got.Status)

	got, changed, err = f.manager.Reject(context.Background(), r.ID, "donor")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, []string{"donor"}, got.RejectedDonors)

	_, _, err = f.manager.Reject(context.Background(), "missing", "donor")
	assert.ErrorIs(t, err, types.ErrRequestNotFound)
}

func TestReject_AfterAcceptKeepsAssignment(t *testing.T) {
	f := newFixture(t)
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "donor", types.BloodGroupOPos)
	r := f.request(t, "req", 1)

	_, _, err := f.manager.Accept(context.Background(), r.ID, "donor")
	require.NoError(t, err)

	got, _, err := f.manager.Reject(context.Background(), r.ID, "donor")
	require.NoError(t, err)
	assert.Len(t, got.DonorsAssigned, 1)
	assert.Equal(t, []string{"donor"}, got.RejectedDonors)
	assert.Equal(t, types.RequestStatusAccepted, got.Status)
}

func TestComplete_UnitsScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "a", types.BloodGroupOPos)
	f.user(t, "b", types.BloodGroupOPos)
	r := f.request(t, "req", 2)

	got, _, err := f.manager.Accept(ctx, r.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusAccepted, got.Status)

	got, changed, err := f.manager.Complete(ctx, r.ID, "a")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, got.CompletedCount())
	assert.Equal(t, types.RequestStatusAccepted, got.Status)
	require.NotNil(t, got.Assignment("a").CompletedAt)
	assert.Equal(t, f.now, *got.Assignment("a").CompletedAt)

	_, _, err = f.manager.Accept(ctx, r.ID, "b")
	require.NoError(t, err)
	got, _, err = f.manager.Complete(ctx, r.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CompletedCount())
	assert.Equal(t, types.RequestStatusCompleted, got.Status)

	// Completed is one-way.
	f.user(t, "c", types.BloodGroupOPos)
	got, _, err = f.manager.Accept(ctx, r.ID, "c")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusCompleted, got.Status)
	got, _, err = f.manager.Reject(ctx, r.ID, "c")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusCompleted, got.Status)

	assert.Len(t, f.notifier.ofType(types.NotificationDonationCompleted), 2)
}

func TestComplete_StartsCoolDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "donor", types.BloodGroupOPos)
	r := f.request(t, "req", 3)

	_, _, err := f.manager.Accept(ctx, r.ID, "donor")
	require.NoError(t, err)
	_, _, err = f.manager.Complete(ctx, r.ID, "donor")
	require.NoError(t, err)

	donor, err := f.store.User(ctx, "donor")
	require.NoError(t, err)
	assert.False(t, donor.Availability)
	require.NotNil(t, donor.LastDonation)
	assert.Equal(t, f.now, *donor.LastDonation)
	require.NotNil(t, donor.NextAvailableAt)
	assert.Equal(t, f.now.Add(types.DonationCoolDown), *donor.NextAvailableAt)

	// A donor on cool-down can no longer accept.
	f.user(t, "req2", types.BloodGroupOPos)
	other := f.request(t, "req2", 1)
	_, _, err = f.manager.Accept(ctx, other.ID, "donor")
	assert.ErrorIs(t, err, types.ErrIneligibleDonor)
}

func TestComplete_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "donor", types.BloodGroupOPos)
	r := f.request(t, "req", 2)

	_, _, err := f.manager.Accept(ctx, r.ID, "donor")
	require.NoError(t, err)
	_, _, err = f.manager.Complete(ctx, r.ID, "donor")
	require.NoError(t, err)

	firstDone := f.now
	f.now = f.now.Add(time.Hour)

	got, changed, err := f.manager.Complete(ctx, r.ID, "donor")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, got.CompletedCount())
	assert.Equal(t, firstDone, *got.Assignment("donor").CompletedAt)
	assert.Len(t, f.notifier.ofType(types.NotificationDonationCompleted), 1)
}

func TestComplete_WithoutAccept(t *testing.T) {
	f := newFixture(t)
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "donor", types.BloodGroupOPos)
	r := f.request(t, "req", 1)

	_, _, err := f.manager.Complete(context.Background(), r.ID, "donor")
	assert.ErrorIs(t, err, types.ErrNotAccepted)

	donor, err := f.store.User(context.Background(), "donor")
	require.NoError(t, err)
	assert.True(t, donor.Availability)
	assert.Nil(t, donor.LastDonation)
}

func TestActive_ExcludesPastDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "req", types.BloodGroupOPos)

	old := f.request(t, "req", 1)
	f.now = f.now.Add(23 * time.Hour)
	fresh := f.request(t, "req", 1)
	f.now = f.now.Add(2 * time.Hour)

	active, err := f.manager.Active(ctx, types.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, fresh.ID, active[0].ID)
	require.NotNil(t, active[0].Requester)

	stored, err := f.store.Request(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusPending, stored.Status)
}

func TestActive_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "req", types.BloodGroupOPos)

	first := f.request(t, "req", 1)
	f.now = f.now.Add(time.Minute)
	_, err := f.manager.Create(ctx, "req", types.RequestNeed{
		PatientName: "Jamal",
		BloodGroup:  types.BloodGroupAPos,
		District:    "Sylhet",
		UnitsNeeded: 1,
	})
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	third := f.request(t, "req", 1)

	all, err := f.manager.Active(ctx, types.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID)

	// "A+" arrives as "A " when the query string is not escaped.
	got, err := f.manager.Active(ctx, types.RequestFilter{BloodGroup: "A "})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Sylhet", got[0].District)

	got, err = f.manager.Active(ctx, types.RequestFilter{District: "Dhaka", Area: "Mirpur"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{third.ID, first.ID}, []string{got[0].ID, got[1].ID})
}

func TestMineAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "req", types.BloodGroupOPos)
	f.user(t, "donor", types.BloodGroupOPos)

	r1 := f.request(t, "req", 1)
	f.now = f.now.Add(time.Minute)
	r2 := f.request(t, "req", 1)

	_, _, err := f.manager.Accept(ctx, r1.ID, "donor")
	require.NoError(t, err)
	_, _, err = f.manager.Complete(ctx, r1.ID, "donor")
	require.NoError(t, err)

	mine, err := f.manager.Mine(ctx, "req")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, r2.ID, mine[0].ID)
	assert.Equal(t, r1.ID, mine[1].ID)
	require.Len(t, mine[1].DonorsAssigned, 1)
	assert.Equal(t, "0170000donor", mine[1].DonorsAssigned[0].Donor.Phone)

	stats, err := f.manager.Stats(ctx, "req")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveRequests)
	assert.Equal(t, 0, stats.DonationsMade)

	stats, err = f.manager.Stats(ctx, "donor")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ActiveRequests)
	assert.Equal(t, 1, stats.DonationsMade)

	count, err := f.manager.DonationCount(ctx, "donor")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDetail_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Detail(context.Background(), "nope")
	assert.ErrorIs(t, err, types.ErrRequestNotFound)
}

func TestSearchDonors(t *testing.T) {
	f := newFixture(t)
	f.user(t, "me", types.BloodGroupOPos)
	f.user(t, "d1", types.BloodGroupOPos)

	donors, err := f.manager.SearchDonors(context.Background(), "me", types.DonorNeed{
		BloodGroup: "o ",
		Area:       dhaka.Area,
	})
	require.NoError(t, err)
	require.Len(t, donors, 1)
	assert.Equal(t, "d1", donors[0].ID)

	donors, err = f.manager.SearchDonors(context.Background(), "me", types.DonorNeed{BloodGroup: "O+"})
	require.NoError(t, err)
	require.Len(t, donors, 1)
	assert.Equal(t, "d1", donors[0].ID)

	_, err = f.manager.SearchDonors(context.Background(), "me", types.DonorNeed{})
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bloodGroup", verr.Field)
}

func TestProfileCoolDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "donor", types.BloodGroupOPos)

	last := f.now.AddDate(0, 0, -89)
	p, err := f.manager.SetLastDonation(ctx, "donor", &last)
	require.NoError(t, err)
	assert.False(t, p.Availability)
	require.NotNil(t, p.NextAvailableAt)
	assert.Equal(t, last.Add(types.DonationCoolDown), *p.NextAvailableAt)

	last = f.now.AddDate(0, 0, -91)
	p, err = f.manager.SetLastDonation(ctx, "donor", &last)
	require.NoError(t, err)
	assert.True(t, p.Availability)

	_, err = f.manager.SetLastDonation(ctx, "donor", nil)
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)

	future := f.now.Add(time.Hour)
	_, err = f.manager.SetLastDonation(ctx, "donor", &future)
	require.ErrorAs(t, err, &verr)

	off := false
	p, err = f.manager.SetAvailability(ctx, "donor", &off)
	require.NoError(t, err)
	assert.False(t, p.Availability)
	assert.Nil(t, p.NextAvailableAt)

	_, err = f.manager.SetAvailability(ctx, "donor", nil)
	require.ErrorAs(t, err, &verr)

	_, err = f.manager.Profile(ctx, "ghost")
	assert.ErrorIs(t, err, types.ErrUserNotFound)
}
