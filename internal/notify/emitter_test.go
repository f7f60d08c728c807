package notify

import (
	"context"
	"errors"
	"io"
	"testing"

	"bloodlink/internal/store"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type push struct {
	userID  string
	event   string
	payload any
}

type recordingPusher struct {
	pushes []push
	err    error
}

func (p *recordingPusher) Push(_ context.Context, userID, event string, payload any) error {
	p.pushes = append(p.pushes, push{userID: userID, event: event, payload: payload})
	return p.err
}

type failingStore struct{}

func (failingStore) CreateNotification(context.Context, *types.Notification) error {
	return errors.New("disk full")
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sampleRequest() *types.Request {
	return &types.Request{
		ID:          "req-1",
		RequesterID: "owner",
		PatientName: "Shahana Parvin",
		BloodGroup:  types.BloodGroupBPos,
		RequestLocation: types.RequestLocation{
			District: "Chattogram",
			Area:     "Agrabad",
		},
		UnitsNeeded: 2,
		Status:      types.RequestStatusPending,
	}
}

func TestEmitter_PersistsThenPushes(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemoryStore()
	pusher := &recordingPusher{}
	e := NewEmitter(quietLogger(), m, pusher)

	n := RequestMatch(sampleRequest(), "donor-1")
	require.NoError(t, e.Notify(ctx, n, types.EventNewRequest))

	stored, err := m.NotificationsByUser(ctx, "donor-1", 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEmpty(t, stored[0].ID)
	assert.False(t, stored[0].Read)

	require.Len(t, pusher.pushes, 1)
	assert.Equal(t, "donor-1", pusher.pushes[0].userID)
	assert.Equal(t, types.EventNewRequest, pusher.pushes[0].event)
	assert.Equal(t, types.NotificationMeta{RequestID: "req-1", BloodGroup: types.BloodGroupBPos}, pusher.pushes[0].payload)
}

func TestEmitter_PushFailureIsNotAnError(t *testing.T) {
	m := store.NewMemoryStore()
	e := NewEmitter(quietLogger(), m, &recordingPusher{err: errors.New("offline")})

	require.NoError(t, e.Notify(context.Background(), RequestExpired(sampleRequest()), types.EventRequestExpired))

	stored, err := m.NotificationsByUser(context.Background(), "owner", 0)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestEmitter_StoreFailure(t *testing.T) {
	pusher := &recordingPusher{}
	e := NewEmitter(quietLogger(), failingStore{}, pusher)

	err := e.Notify(context.Background(), RequestExpired(sampleRequest()), types.EventRequestExpired)
	assert.Error(t, err)
	assert.Empty(t, pusher.pushes)
}

func TestEmitter_NilPusher(t *testing.T) {
	e := NewEmitter(quietLogger(), store.NewMemoryStore(), nil)
	assert.NoError(t, e.Notify(context.Background(), RequestExpired(sampleRequest()), types.EventRequestExpired))
}

func TestMessages(t *testing.T) {
	r := sampleRequest()

	match := RequestMatch(r, "donor-1")
	assert.Equal(t, "donor-1", match.UserID)
	assert.Equal(t, "B+ blood needed near you", match.Title)
	assert.Equal(t, "Shahana Parvin needs 2 unit(s) of B+ blood at Agrabad.", match.Body)

	r.Hospital = "Chattogram Maa-O-Shishu Hospital"
	assert.Contains(t, RequestMatch(r, "donor-1").Body, "at Chattogram Maa-O-Shishu Hospital")

	accepted := RequestAccepted(r, &types.User{ID: "donor-1", Name: "Nusrat"})
	assert.Equal(t, "owner", accepted.UserID)
	assert.Equal(t, "Nusrat accepted your request for Shahana Parvin.", accepted.Body)
	assert.Equal(t, "donor-1", accepted.Meta.DonorID)

	r.DonorsAssigned = []*types.DonorAssignment{{DonorID: "donor-1", Status: types.AssignmentStatusCompleted}}
	assert.Equal(t, "1 of 2 unit(s) donated for Shahana Parvin.", DonationCompleted(r, "donor-1").Body)

	r.Status = types.RequestStatusCompleted
	assert.Equal(t, "All 2 unit(s) for Shahana Parvin have been donated.", DonationCompleted(r, "donor-1").Body)

	expired := RequestExpired(r)
	assert.Equal(t, types.NotificationRequestExpired, expired.Type)
	assert.Equal(t, "Your request for Shahana Parvin has expired.", expired.Body)
}
