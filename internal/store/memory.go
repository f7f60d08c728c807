package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

// MemoryStore keeps users, requests, and notifications in process. It
// mirrors the Postgres repositories and serializes every mutation behind a
// single mutex. Intended for tests and `serve --memory`.
type MemoryStore struct {
	mu sync.Mutex

	users     map[string]*types.User
	userOrder []string

	requests      map[string]*types.Request
	notifications []*types.Notification

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*types.User),
		requests: make(map[string]*types.Request),
		now:      time.Now,
	}
}

// SetClock overrides the time source used for bookkeeping timestamps.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Users

func (m *MemoryStore) User(_ context.Context, userID string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (m *MemoryStore) UsersByIDs(_ context.Context, userIDs []string) ([]*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*types.User, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := m.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (m *MemoryStore) EligibleDonors(_ context.Context, q types.DonorQuery) ([]*types.User, error) {
	if _, err := tierColumn(q.Tier); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	excluded := make(map[string]struct{}, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	out := make([]*types.User, 0)
	for _, id := range m.userOrder {
		if q.Limit > 0 && uint64(len(out)) >= q.Limit {
			break
		}
		u := m.users[id]
		if _, skip := excluded[u.ID]; skip {
			continue
		}
		if u.BloodGroup != q.BloodGroup || !u.CanDonate() {
			continue
		}
		if q.Tier != types.TierAny && tierValue(u, q.Tier) != q.Value {
			continue
		}
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (m *MemoryStore) Create(_ context.Context, user *types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = utils.NanoID()
	}
	if user.Role == "" {
		user.Role = types.UserRoleUser
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := m.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, exists := m.users[user.ID]; !exists {
		m.userOrder = append(m.userOrder, user.ID)
	}
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *MemoryStore) Upsert(ctx context.Context, user *types.User) error {
	return m.Create(ctx, user)
}

func (m *MemoryStore) RecordDonation(_ context.Context, userID string, donatedAt time.Time) error {
	return m.updateUser(userID, func(u *types.User) {
		u.LastDonation = utils.TimePtr(donatedAt)
		u.NextAvailableAt = utils.TimePtr(types.NextAvailableAfter(donatedAt))
		u.Availability = false
	})
}

func (m *MemoryStore) SetAvailability(_ context.Context, userID string, available bool) error {
	return m.updateUser(userID, func(u *types.User) {
		u.Availability = available
		u.NextAvailableAt = nil
	})
}

func (m *MemoryStore) SetLastDonation(_ context.Context, userID string, lastDonation, now time.Time) error {
	return m.updateUser(userID, func(u *types.User) {
		u.LastDonation = utils.TimePtr(lastDonation)
		u.NextAvailableAt = utils.TimePtr(types.NextAvailableAfter(lastDonation))
		u.Availability = types.EligibleSince(lastDonation, now)
	})
}

func (m *MemoryStore) RestoreAvailability(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var restored int64
	for _, u := range m.users {
		if u.Availability || u.NextAvailableAt == nil || u.NextAvailableAt.After(now) {
			continue
		}
		u.Availability = true
		u.NextAvailableAt = nil
		u.UpdatedAt = now
		restored++
	}
	return restored, nil
}

func (m *MemoryStore) updateUser(userID string, fn func(*types.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return types.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = m.now()
	return nil
}

// Requests

func (m *MemoryStore) CreateRequest(_ context.Context, request *types.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if request.ID == "" {
		request.ID = utils.NanoID()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = m.now()
	}
	if request.UpdatedAt.IsZero() {
		request.UpdatedAt = request.CreatedAt
	}
	if request.DonorsAssigned == nil {
		request.DonorsAssigned = []*types.DonorAssignment{}
	}
	if request.RejectedDonors == nil {
		request.RejectedDonors = []string{}
	}

	stored := request.Clone()
	stored.Requester = nil
	m.requests[request.ID] = stored
	return nil
}

func (m *MemoryStore) Request(_ context.Context, requestID string) (*types.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[requestID]
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	return r.Clone(), nil
}

func (m *MemoryStore) ActiveRequests(_ context.Context, filter types.RequestFilter, now time.Time) ([]*types.Request, error) {
	return m.selectRequests(func(r *types.Request) bool {
		if !r.IsActive(now) {
			return false
		}
		if filter.BloodGroup != "" && r.BloodGroup != filter.BloodGroup {
			return false
		}
		if filter.District != "" && r.District != filter.District {
			return false
		}
		if filter.City != "" && r.City != filter.City {
			return false
		}
		if filter.Area != "" && r.Area != filter.Area {
			return false
		}
		return true
	}), nil
}

func (m *MemoryStore) RequestsByRequester(_ context.Context, userID string) ([]*types.Request, error) {
	return m.selectRequests(func(r *types.Request) bool {
		return r.RequesterID == userID
	}), nil
}

func (m *MemoryStore) MutateRequest(_ context.Context, requestID string, fn func(*types.Request) (bool, error)) (*types.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.requests[requestID]
	if !ok {
		return nil, types.ErrRequestNotFound
	}

	working := stored.Clone()
	changed, err := fn(working)
	if err != nil {
		return nil, err
	}
	if !changed {
		return working, nil
	}

	working.UpdatedAt = m.now()
	m.requests[requestID] = working.Clone()
	return working, nil
}

func (m *MemoryStore) ExpiredPendingIDs(_ context.Context, now time.Time, limit uint64) ([]string, error) {
	expired := m.selectRequests(func(r *types.Request) bool {
		return r.Status == types.RequestStatusPending && !r.ExpiresAt.After(now)
	})

	sort.SliceStable(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})

	ids := make([]string, 0, len(expired))
	for _, r := range expired {
		if limit > 0 && uint64(len(ids)) >= limit {
			break
		}
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (m *MemoryStore) CountActiveByRequester(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.requests {
		if r.RequesterID == userID && r.Status.Active() {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CountDonationsByDonor(_ context.Context, donorID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.requests {
		if a := r.Assignment(donorID); a != nil && a.Status == types.AssignmentStatusCompleted {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) selectRequests(keep func(*types.Request) bool) []*types.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*types.Request, 0)
	for _, r := range m.requests {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Notifications

func (m *MemoryStore) CreateNotification(_ context.Context, n *types.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.ID == "" {
		n.ID = utils.NanoID()
	}
	now := m.now()
	n.CreatedAt = now
	n.UpdatedAt = now

	cp := *n
	m.notifications = append(m.notifications, &cp)
	return nil
}

// NotificationsByUser returns the user's notifications, newest first.
func (m *MemoryStore) NotificationsByUser(_ context.Context, userID string, limit uint64) ([]*types.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*types.Notification, 0)
	for i := len(m.notifications) - 1; i >= 0; i-- {
		if limit > 0 && uint64(len(out)) >= limit {
			break
		}
		if n := m.notifications[i]; n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkRead(_ context.Context, userID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range m.notifications {
		if n.ID == notificationID && n.UserID == userID {
			n.Read = true
			n.UpdatedAt = m.now()
			return nil
		}
	}
	return types.ErrNotificationNotFound
}

func cloneUser(u *types.User) *types.User {
	cp := *u
	if u.LastDonation != nil {
		cp.LastDonation = utils.TimePtr(*u.LastDonation)
	}
	if u.NextAvailableAt != nil {
		cp.NextAvailableAt = utils.TimePtr(*u.NextAvailableAt)
	}
	return &cp
}

func tierValue(u *types.User, tier types.LocationTier) string {
	switch tier {
	case types.TierArea:
		return u.Area
	case types.TierCity:
		return u.City
	case types.TierDistrict:
		return u.District
	}
	return ""
}
