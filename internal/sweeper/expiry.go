package sweeper

import (
	"context"
	"errors"
	"time"

	"bloodlink/internal/lifecycle"
	"bloodlink/internal/metrics"
	"bloodlink/internal/notify"
	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
)

type RequestStore interface {
	ExpiredPendingIDs(ctx context.Context, now time.Time, limit uint64) ([]string, error)
	MutateRequest(ctx context.Context, requestID string, fn func(*types.Request) (bool, error)) (*types.Request, error)
}

type UserStore interface {
	RestoreAvailability(ctx context.Context, now time.Time) (int64, error)
}

type Notifier interface {
	Notify(ctx context.Context, n *types.Notification, event string) error
}

type Options struct {
	Interval  time.Duration
	Timeout   time.Duration
	BatchSize uint64
	Clock     func() time.Time
}

// Sweeper expires Pending requests past their deadline and ends donor
// cool-downs that have run out.
type Sweeper struct {
	logger   *logrus.Logger
	requests RequestStore
	users    UserStore
	notifier Notifier

	interval  time.Duration
	timeout   time.Duration
	batchSize uint64
	now       func() time.Time
}

type Result struct {
	Expired  int
	Failed   int
	Restored int64
}

func New(logger *logrus.Logger, requests RequestStore, users UserStore, notifier Notifier, opts Options) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Sweeper{
		logger:    logger,
		requests:  requests,
		users:     users,
		notifier:  notifier,
		interval:  opts.Interval,
		timeout:   opts.Timeout,
		batchSize: opts.BatchSize,
		now:       opts.Clock,
	}
}

// Start sweeps on every tick until ctx is cancelled. It returns at once.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, s.timeout)
				result := s.Sweep(tickCtx)
				cancel()
				if result.Expired > 0 || result.Failed > 0 || result.Restored > 0 {
					s.logger.WithFields(logrus.Fields{
						"expired":  result.Expired,
						"failed":   result.Failed,
						"restored": result.Restored,
					}).Info("expiry sweep finished")
				}
			}
		}
	}()
}

// Sweep runs one pass. Each request is expired and committed on its own;
// failures are logged and counted, never returned.
func (s *Sweeper) Sweep(ctx context.Context) Result {
	started := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(started).Seconds())
	}()

	var result Result
	now := s.now()

	ids, err := s.requests.ExpiredPendingIDs(ctx, now, s.batchSize)
	if err != nil {
		s.logger.WithError(err).Error("failed to list expired requests")
		result.Failed++
		metrics.SweepErrors.Inc()
	}

	for _, id := range ids {
		expired, err := s.expire(ctx, id, now)
		if err != nil {
			s.logger.WithError(err).WithField("request_id", id).Error("failed to expire request")
			result.Failed++
			metrics.SweepErrors.Inc()
			continue
		}
		if expired {
			result.Expired++
			metrics.SweepExpired.Inc()
		}
	}

	restored, err := s.users.RestoreAvailability(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("failed to restore donor availability")
		result.Failed++
		metrics.SweepErrors.Inc()
	}
	result.Restored = restored
	metrics.SweepRestored.Add(float64(restored))

	return result
}

func (s *Sweeper) expire(ctx context.Context, requestID string, now time.Time) (bool, error) {
	var expired bool
	request, err := s.requests.MutateRequest(ctx, requestID, func(r *types.Request) (bool, error) {
		expired = lifecycle.Expire(r, now)
		return expired, nil
	})
	if errors.Is(err, types.ErrRequestNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !expired {
		return false, nil
	}

	if err := s.notifier.Notify(ctx, notify.RequestExpired(request), types.EventRequestExpired); err != nil {
		s.logger.WithError(err).WithField("request_id", requestID).Error("failed to notify requester of expiry")
	}

	return true, nil
}
