package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

var userColumns = utils.StructTagValues(types.User{})

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) UsersByIDs(ctx context.Context, userIDs []string) ([]*types.User, error) {
	if len(userIDs) == 0 {
		return []*types.User{}, nil
	}

	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate users-by-ids query: %w", err)
	}

	var users []*types.User
	err = pgxscan.Select(ctx, r.pool, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users by ids: %w", err)
	}

	return users, nil
}

// EligibleDonors returns available, unsuspended donors of the blood group
// whose location matches q.Value on q.Tier, in registration order. TierAny
// skips the location predicate.
func (r *UserRepository) EligibleDonors(ctx context.Context, q types.DonorQuery) ([]*types.User, error) {
	column, err := tierColumn(q.Tier)
	if err != nil {
		return nil, err
	}

	where := sq.Eq{
		"blood_group":  q.BloodGroup,
		"availability": true,
		"is_suspended": false,
	}
	if column != "" {
		where[column] = q.Value
	}

	builder := psql().
		Select(userColumns...).
		From(userTableName).
		Where(where).
		OrderBy("created_at ASC", "id ASC")

	if len(q.ExcludeIDs) > 0 {
		builder = builder.Where(sq.NotEq{"id": q.ExcludeIDs})
	}
	if q.Limit > 0 {
		builder = builder.Limit(q.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate eligible donors query: %w", err)
	}

	users := make([]*types.User, 0)
	if err := pgxscan.Select(ctx, r.pool, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch eligible donors: %w", err)
	}

	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	now := time.Now()
	if user.ID == "" {
		user.ID = utils.NanoID()
	}
	if user.Role == "" {
		user.Role = types.UserRoleUser
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := psql().
		Insert(userTableName).
		SetMap(utils.StructToMap(user)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// Upsert inserts the user or refreshes every non-identity column.
func (r *UserRepository) Upsert(ctx context.Context, user *types.User) error {
	now := time.Now()
	if user.Role == "" {
		user.Role = types.UserRoleUser
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now

	userMap := utils.StructToMap(user)

	updates := make([]string, 0, len(userMap))
	for _, column := range userColumns {
		if column == "id" || column == "created_at" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", column, column))
	}

	query, args, err := psql().
		Insert(userTableName).
		SetMap(userMap).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// RecordDonation starts the donor's cool-down at the donation time.
func (r *UserRepository) RecordDonation(ctx context.Context, userID string, donatedAt time.Time) error {
	return r.update(ctx, userID, map[string]any{
		"last_donation":     donatedAt,
		"next_available_at": types.NextAvailableAfter(donatedAt),
		"availability":      false,
	})
}

// SetAvailability is the donor's manual override; it cancels any pending
// automatic release at the end of a cool-down.
func (r *UserRepository) SetAvailability(ctx context.Context, userID string, available bool) error {
	return r.update(ctx, userID, map[string]any{
		"availability":      available,
		"next_available_at": nil,
	})
}

// SetLastDonation records a self-reported donation date and derives
// availability from the cool-down.
func (r *UserRepository) SetLastDonation(ctx context.Context, userID string, lastDonation, now time.Time) error {
	return r.update(ctx, userID, map[string]any{
		"last_donation":     lastDonation,
		"next_available_at": types.NextAvailableAfter(lastDonation),
		"availability":      types.EligibleSince(lastDonation, now),
	})
}

// RestoreAvailability ends every cool-down that has run out by now.
func (r *UserRepository) RestoreAvailability(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := psql().
		Update(userTableName).
		Set("availability", true).
		Set("next_available_at", nil).
		Set("updated_at", now).
		Where(sq.Eq{"availability": false}).
		Where(sq.NotEq{"next_available_at": nil}).
		Where(sq.LtOrEq{"next_available_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate restore availability query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to restore availability: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *UserRepository) update(ctx context.Context, userID string, set map[string]any) error {
	set["updated_at"] = time.Now()

	query, args, err := psql().
		Update(userTableName).
		SetMap(set).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update user query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}

	return nil
}

func tierColumn(tier types.LocationTier) (string, error) {
	switch tier {
	case types.TierArea, types.TierCity, types.TierDistrict:
		return string(tier), nil
	case types.TierAny:
		return "", nil
	}
	return "", fmt.Errorf("unknown location tier %q", tier)
}
