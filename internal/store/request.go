package store

import (
	"context"
	"fmt"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	requestColumns      = utils.StructTagValues(types.Request{})
	requestDonorColumns = utils.StructTagValues(types.DonorAssignment{})
	rejectionColumns    = utils.StructTagValues(types.RequestRejection{})
)

type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func (r *RequestRepository) Request(ctx context.Context, requestID string) (*types.Request, error) {
	query, args, err := psql().Select(requestColumns...).From(requestTableName).
		Where(sq.Eq{"id": requestID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request query: %w", err)
	}

	var request = new(types.Request)
	err = pgxscan.Get(ctx, r.pool, request, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to fetch request: %w", err)
	}

	if err := attachDonors(ctx, r.pool, []*types.Request{request}); err != nil {
		return nil, err
	}

	return request, nil
}

// ActiveRequests returns Pending or Accepted requests that have not yet
// reached expires_at, newest first. The expiry check does not depend on the
// sweeper having run.
func (r *RequestRepository) ActiveRequests(ctx context.Context, filter types.RequestFilter, now time.Time) ([]*types.Request, error) {
	where := sq.And{
		sq.Eq{"status": types.ActiveRequestStatuses},
		sq.Gt{"expires_at": now},
	}
	where = append(where, filterClause(filter)...)

	query, args, err := psql().Select(requestColumns...).From(requestTableName).
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate active requests query: %w", err)
	}

	return r.selectRequests(ctx, query, args)
}

func (r *RequestRepository) RequestsByRequester(ctx context.Context, userID string) ([]*types.Request, error) {
	query, args, err := psql().Select(requestColumns...).From(requestTableName).
		Where(sq.Eq{"requester_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate requester requests query: %w", err)
	}

	return r.selectRequests(ctx, query, args)
}

func (r *RequestRepository) CreateRequest(ctx context.Context, request *types.Request) error {
	now := time.Now()
	if request.ID == "" {
		request.ID = utils.NanoID()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	if request.UpdatedAt.IsZero() {
		request.UpdatedAt = request.CreatedAt
	}

	query, args, err := psql().Insert(requestTableName).SetMap(utils.StructToMap(request)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert request query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if request.DonorsAssigned == nil {
		request.DonorsAssigned = []*types.DonorAssignment{}
	}
	if request.RejectedDonors == nil {
		request.RejectedDonors = []string{}
	}

	return nil
}

// MutateRequest loads the request under a row lock, applies fn, and writes
// the result back in the same transaction. Concurrent mutations of one
// request are serialized; fn returning false skips the write.
func (r *RequestRepository) MutateRequest(ctx context.Context, requestID string, fn func(*types.Request) (bool, error)) (*types.Request, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin request transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query, args, err := psql().Select(requestColumns...).From(requestTableName).
		Where(sq.Eq{"id": requestID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate lock request query: %w", err)
	}

	var request = new(types.Request)
	if err := pgxscan.Get(ctx, tx, request, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to lock request %s: %w", requestID, err)
	}

	if err := attachDonors(ctx, tx, []*types.Request{request}); err != nil {
		return nil, err
	}

	changed, err := fn(request)
	if err != nil {
		return nil, err
	}
	if !changed {
		return request, nil
	}

	request.UpdatedAt = time.Now()

	if err := saveDonors(ctx, tx, request); err != nil {
		return nil, err
	}

	query, args, err = psql().Update(requestTableName).
		Set("status", request.Status).
		Set("updated_at", request.UpdatedAt).
		Where(sq.Eq{"id": request.ID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate update request query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update request %s: %w", request.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit request %s: %w", request.ID, err)
	}

	return request, nil
}

// ExpiredPendingIDs lists Pending requests whose deadline has passed,
// oldest deadline first.
func (r *RequestRepository) ExpiredPendingIDs(ctx context.Context, now time.Time, limit uint64) ([]string, error) {
	builder := psql().Select("id").From(requestTableName).
		Where(sq.Eq{"status": types.RequestStatusPending}).
		Where(sq.LtOrEq{"expires_at": now}).
		OrderBy("expires_at ASC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate expired requests query: %w", err)
	}

	ids := make([]string, 0)
	if err := pgxscan.Select(ctx, r.pool, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch expired requests: %w", err)
	}

	return ids, nil
}

func (r *RequestRepository) CountActiveByRequester(ctx context.Context, userID string) (int, error) {
	query, args, err := psql().Select("count(*)").From(requestTableName).
		Where(sq.Eq{"requester_id": userID, "status": types.ActiveRequestStatuses}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate active count query: %w", err)
	}

	var count int
	if err := pgxscan.Get(ctx, r.pool, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count active requests: %w", err)
	}

	return count, nil
}

func (r *RequestRepository) CountDonationsByDonor(ctx context.Context, donorID string) (int, error) {
	query, args, err := psql().Select("count(*)").From(requestDonorTableName).
		Where(sq.Eq{"donor_id": donorID, "status": types.AssignmentStatusCompleted}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate donation count query: %w", err)
	}

	var count int
	if err := pgxscan.Get(ctx, r.pool, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count donations: %w", err)
	}

	return count, nil
}

func (r *RequestRepository) selectRequests(ctx context.Context, query string, args []any) ([]*types.Request, error) {
	requests := make([]*types.Request, 0)
	if err := pgxscan.Select(ctx, r.pool, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch requests: %w", err)
	}

	if err := attachDonors(ctx, r.pool, requests); err != nil {
		return nil, err
	}

	return requests, nil
}

func filterClause(filter types.RequestFilter) sq.And {
	var clause sq.And
	if filter.BloodGroup != "" {
		clause = append(clause, sq.Eq{"blood_group": filter.BloodGroup})
	}
	if filter.District != "" {
		clause = append(clause, sq.Eq{"district": filter.District})
	}
	if filter.City != "" {
		clause = append(clause, sq.Eq{"city": filter.City})
	}
	if filter.Area != "" {
		clause = append(clause, sq.Eq{"area": filter.Area})
	}
	return clause
}

// attachDonors loads assignment entries and rejections for every request.
func attachDonors(ctx context.Context, q pgxscan.Querier, requests []*types.Request) error {
	if len(requests) == 0 {
		return nil
	}

	byID := make(map[string]*types.Request, len(requests))
	ids := make([]string, 0, len(requests))
	for _, request := range requests {
		request.DonorsAssigned = []*types.DonorAssignment{}
		request.RejectedDonors = []string{}
		byID[request.ID] = request
		ids = append(ids, request.ID)
	}

	query, args, err := psql().Select(requestDonorColumns...).From(requestDonorTableName).
		Where(sq.Eq{"request_id": ids}).
		OrderBy("assigned_at ASC", "donor_id ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate assignments query: %w", err)
	}

	var assignments []*types.DonorAssignment
	if err := pgxscan.Select(ctx, q, &assignments, query, args...); err != nil {
		return fmt.Errorf("failed to fetch assignments: %w", err)
	}

	for _, a := range assignments {
		if request, ok := byID[a.RequestID]; ok {
			request.DonorsAssigned = append(request.DonorsAssigned, a)
		}
	}

	query, args, err = psql().Select(rejectionColumns...).From(requestRejectTableName).
		Where(sq.Eq{"request_id": ids}).
		OrderBy("rejected_at ASC", "donor_id ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate rejections query: %w", err)
	}

	var rejections []*types.RequestRejection
	if err := pgxscan.Select(ctx, q, &rejections, query, args...); err != nil {
		return fmt.Errorf("failed to fetch rejections: %w", err)
	}

	for _, rej := range rejections {
		if request, ok := byID[rej.RequestID]; ok {
			request.RejectedDonors = append(request.RejectedDonors, rej.DonorID)
		}
	}

	return nil
}

// saveDonors upserts every assignment and rejection of request. The
// (request_id, donor_id) primary keys keep both sets free of duplicates.
func saveDonors(ctx context.Context, db execer, request *types.Request) error {
	if len(request.DonorsAssigned) > 0 {
		insert := psql().Insert(requestDonorTableName).
			Columns("request_id", "donor_id", "status", "completed_at", "assigned_at")
		for _, a := range request.DonorsAssigned {
			insert = insert.Values(request.ID, a.DonorID, a.Status, a.CompletedAt, a.AssignedAt)
		}

		query, args, err := insert.
			Suffix("ON CONFLICT (request_id, donor_id) DO UPDATE SET status = EXCLUDED.status, completed_at = EXCLUDED.completed_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate upsert assignments query: %w", err)
		}

		if _, err := db.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to save assignments for request %s: %w", request.ID, err)
		}
	}

	if len(request.RejectedDonors) > 0 {
		insert := psql().Insert(requestRejectTableName).Columns("request_id", "donor_id")
		for _, donorID := range request.RejectedDonors {
			insert = insert.Values(request.ID, donorID)
		}

		query, args, err := insert.Suffix("ON CONFLICT (request_id, donor_id) DO NOTHING").ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate insert rejections query: %w", err)
		}

		if _, err := db.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to save rejections for request %s: %w", request.ID, err)
		}
	}

	return nil
}
