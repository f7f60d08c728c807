package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bloodlink/internal/metrics"
	"bloodlink/internal/notify"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
)

type RequestStore interface {
	CreateRequest(ctx context.Context, request *types.Request) error
	Request(ctx context.Context, requestID string) (*types.Request, error)
	ActiveRequests(ctx context.Context, filter types.RequestFilter, now time.Time) ([]*types.Request, error)
	RequestsByRequester(ctx context.Context, userID string) ([]*types.Request, error)
	MutateRequest(ctx context.Context, requestID string, fn func(*types.Request) (bool, error)) (*types.Request, error)
	CountActiveByRequester(ctx context.Context, userID string) (int, error)
	CountDonationsByDonor(ctx context.Context, donorID string) (int, error)
}

type UserStore interface {
	User(ctx context.Context, userID string) (*types.User, error)
	UsersByIDs(ctx context.Context, userIDs []string) ([]*types.User, error)
	RecordDonation(ctx context.Context, userID string, donatedAt time.Time) error
	SetAvailability(ctx context.Context, userID string, available bool) error
	SetLastDonation(ctx context.Context, userID string, lastDonation, now time.Time) error
}

type DonorMatcher interface {
	FindMatchingDonors(ctx context.Context, need types.DonorNeed, limit int) ([]*types.User, error)
}

type Notifier interface {
	Notify(ctx context.Context, n *types.Notification, event string) error
}

type Options struct {
	RequestTTL  time.Duration
	MatchLimit  int
	SearchLimit int
	Clock       func() time.Time
}

// Manager owns the request state machine and the donor cool-down that
// follows a completed donation.
type Manager struct {
	logger   *logrus.Logger
	requests RequestStore
	users    UserStore
	matcher  DonorMatcher
	notifier Notifier

	ttl         time.Duration
	matchLimit  int
	searchLimit int
	now         func() time.Time
}

func New(logger *logrus.Logger, requests RequestStore, users UserStore, matcher DonorMatcher, notifier Notifier, opts Options) *Manager {
	if opts.RequestTTL <= 0 {
		opts.RequestTTL = 24 * time.Hour
	}
	if opts.MatchLimit <= 0 {
		opts.MatchLimit = 100
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 50
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Manager{
		logger:      logger,
		requests:    requests,
		users:       users,
		matcher:     matcher,
		notifier:    notifier,
		ttl:         opts.RequestTTL,
		matchLimit:  opts.MatchLimit,
		searchLimit: opts.SearchLimit,
		now:         opts.Clock,
	}
}

// Create stores a new Pending request and notifies matching donors. A
// failed match or notification is logged and does not fail the request.
func (m *Manager) Create(ctx context.Context, requesterID string, need types.RequestNeed) (*types.Request, error) {
	need.PatientName = strings.TrimSpace(need.PatientName)
	if err := validateStruct(need); err != nil {
		return nil, err
	}

	now := m.now()
	request := &types.Request{
		RequesterID: requesterID,
		PatientName: need.PatientName,
		BloodGroup:  need.BloodGroup,
		RequestLocation: types.RequestLocation{
			District: strings.TrimSpace(need.District),
			City:     strings.TrimSpace(need.City),
			Area:     strings.TrimSpace(need.Area),
			Hospital: strings.TrimSpace(need.Hospital),
		},
		UnitsNeeded: need.UnitsNeeded,
		Status:      types.RequestStatusPending,
		ExpiresAt:   now.Add(m.ttl),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.requests.CreateRequest(ctx, request); err != nil {
		return nil, err
	}
	metrics.RequestTransitions.WithLabelValues("created").Inc()

	m.broadcast(ctx, request)

	return request, nil
}

func (m *Manager) broadcast(ctx context.Context, request *types.Request) {
	entry := m.logger.WithField("request_id", request.ID)

	donors, err := m.matcher.FindMatchingDonors(ctx, types.DonorNeed{
		BloodGroup:    request.BloodGroup,
		District:      request.District,
		City:          request.City,
		Area:          request.Area,
		ExcludeUserID: request.RequesterID,
	}, m.matchLimit)
	if err != nil {
		entry.WithError(err).Error("failed to match donors for new request")
	}
	metrics.MatchedDonors.Observe(float64(len(donors)))

	for _, donor := range donors {
		if err := m.notifier.Notify(ctx, notify.RequestMatch(request, donor.ID), types.EventNewRequest); err != nil {
			entry.WithError(err).WithField("donor_id", donor.ID).Error("failed to notify matched donor")
		}
	}

	entry.WithField("matched", len(donors)).Info("request created")
}

// Accept adds donorID to the request's assignments. Repeating an accept is
// a no-op that reports changed=false.
func (m *Manager) Accept(ctx context.Context, requestID, donorID string) (request *types.Request, changed bool, err error) {
	current, err := m.requests.Request(ctx, requestID)
	if err != nil {
		return nil, false, err
	}
	if current.RequesterID == donorID {
		return nil, false, types.ErrSelfAcceptance
	}

	donor, err := m.users.User(ctx, donorID)
	if err != nil {
		return nil, false, err
	}
	if !donor.CanDonate() {
		return nil, false, types.ErrIneligibleDonor
	}

	now := m.now()
	request, err = m.requests.MutateRequest(ctx, requestID, func(r *types.Request) (bool, error) {
		changed, err = accept(r, donorID, now)
		return changed, err
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		metrics.RequestTransitions.WithLabelValues("accepted").Inc()
		m.notifyRequester(ctx, notify.RequestAccepted(request, donor), types.EventRequestAccepted)
	}

	if err := m.populate(ctx, request); err != nil {
		return nil, false, err
	}

	return request, changed, nil
}

func (m *Manager) Reject(ctx context.Context, requestID, donorID string) (request *types.Request, changed bool, err error) {
	request, err = m.requests.MutateRequest(ctx, requestID, func(r *types.Request) (bool, error) {
		changed = reject(r, donorID)
		return changed, nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		metrics.RequestTransitions.WithLabelValues("rejected").Inc()
	}

	if err := m.populate(ctx, request); err != nil {
		return nil, false, err
	}

	return request, changed, nil
}

// Complete marks the donor's assignment done and starts their cool-down.
// The request and user writes are independent; a failed user write is
// returned after the request has already been saved.
func (m *Manager) Complete(ctx context.Context, requestID, donorID string) (request *types.Request, changed bool, err error) {
	now := m.now()
	request, err = m.requests.MutateRequest(ctx, requestID, func(r *types.Request) (bool, error) {
		changed, err = complete(r, donorID, now)
		return changed, err
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		metrics.RequestTransitions.WithLabelValues("donation_completed").Inc()
		if request.Status == types.RequestStatusCompleted {
			metrics.RequestTransitions.WithLabelValues("completed").Inc()
		}

		if err := m.users.RecordDonation(ctx, donorID, now); err != nil {
			return nil, false, fmt.Errorf("failed to start cool-down for donor %s: %w", donorID, err)
		}

		m.notifyRequester(ctx, notify.DonationCompleted(request, donorID), types.EventDonationCompleted)
	}

	if err := m.populate(ctx, request); err != nil {
		return nil, false, err
	}

	return request, changed, nil
}

func (m *Manager) notifyRequester(ctx context.Context, n *types.Notification, event string) {
	if err := m.notifier.Notify(ctx, n, event); err != nil {
		m.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": n.Meta.RequestID,
			"user_id":    n.UserID,
			"type":       n.Type,
		}).Error("failed to notify requester")
	}
}

func (m *Manager) Active(ctx context.Context, filter types.RequestFilter) ([]*types.Request, error) {
	if filter.BloodGroup != "" {
		filter.BloodGroup = types.NormalizeBloodGroup(string(filter.BloodGroup))
	}

	requests, err := m.requests.ActiveRequests(ctx, filter, m.now())
	if err != nil {
		return nil, err
	}

	if err := m.populate(ctx, requests...); err != nil {
		return nil, err
	}

	return requests, nil
}

func (m *Manager) Mine(ctx context.Context, userID string) ([]*types.Request, error) {
	requests, err := m.requests.RequestsByRequester(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := m.populate(ctx, requests...); err != nil {
		return nil, err
	}

	return requests, nil
}

func (m *Manager) Detail(ctx context.Context, requestID string) (*types.Request, error) {
	request, err := m.requests.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := m.populate(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

func (m *Manager) Stats(ctx context.Context, userID string) (*types.RequestStats, error) {
	active, err := m.requests.CountActiveByRequester(ctx, userID)
	if err != nil {
		return nil, err
	}

	donations, err := m.requests.CountDonationsByDonor(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &types.RequestStats{ActiveRequests: active, DonationsMade: donations}, nil
}

func (m *Manager) DonationCount(ctx context.Context, userID string) (int, error) {
	return m.requests.CountDonationsByDonor(ctx, userID)
}

// SearchDonors runs the tiered matcher for a caller looking for donors.
func (m *Manager) SearchDonors(ctx context.Context, callerID string, need types.DonorNeed) ([]*types.UserSummary, error) {
	need.BloodGroup = types.NormalizeBloodGroup(string(need.BloodGroup))
	if need.BloodGroup == "" {
		return nil, types.NewValidationError("bloodGroup", "is required")
	}
	if !need.BloodGroup.Valid() {
		return nil, types.NewValidationError("bloodGroup", "must be a valid blood group")
	}
	need.ExcludeUserID = callerID

	donors, err := m.matcher.FindMatchingDonors(ctx, need, m.searchLimit)
	if err != nil {
		return nil, err
	}

	out := make([]*types.UserSummary, 0, len(donors))
	for _, donor := range donors {
		out = append(out, donor.Summary())
	}

	return out, nil
}
