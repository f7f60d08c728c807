package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"bloodlink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedPatientPrefix marks seeded requests so they can be reset.
const SeedPatientPrefix = "[seed] "

type RequestWriter interface {
	CreateRequest(ctx context.Context, request *types.Request) error
}

var fakePatients = []string{
	"Rahima Khatun", "Jamal Hossain", "Baby of Sumaiya", "Abdul Karim",
	"Shahana Parvin", "Mizanur Rahman", "Taslima Nasrin", "Habibur Rahman",
}

var fakeHospitals = map[string][]string{
	"Mirpur":     {"Dhaka Shishu Hospital", "Islami Bank Hospital Mirpur"},
	"Dhanmondi":  {"Labaid Specialized Hospital", "Popular Medical College Hospital"},
	"Hemayetpur": {"Enam Medical College Hospital"},
	"Agrabad":    {"Chattogram Maa-O-Shishu Hospital"},
	"Zindabazar": {"Sylhet MAG Osmani Medical College Hospital"},
}

var fakeRequestLocations = []types.UserLocation{mirpur, dhanmondi, savar, agrabad, zindabazar}

// SeedFakeRequests creates count Pending requests from random seeded users.
// Roughly one in five is created already past its deadline so the sweeper
// has work to do.
func SeedFakeRequests(ctx context.Context, requests RequestWriter, count int, ttl time.Duration, now time.Time) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	requesterIDs := seedUserIDs()
	if len(requesterIDs) == 0 {
		return 0, fmt.Errorf("no fake users available; seed users first")
	}

	rng := rand.New(rand.NewSource(now.UnixNano()))

	created := 0
	for i := 0; i < count; i++ {
		loc := fakeRequestLocations[rng.Intn(len(fakeRequestLocations))]
		hospitals := fakeHospitals[loc.Area]

		createdAt := now.Add(-time.Duration(rng.Intn(20)) * time.Hour)
		if rng.Intn(5) == 0 {
			createdAt = now.Add(-ttl - time.Duration(rng.Intn(6)+1)*time.Hour)
		}

		request := &types.Request{
			RequesterID: requesterIDs[rng.Intn(len(requesterIDs))],
			PatientName: SeedPatientPrefix + fakePatients[rng.Intn(len(fakePatients))],
			BloodGroup:  types.BloodGroups[rng.Intn(len(types.BloodGroups))],
			RequestLocation: types.RequestLocation{
				District: loc.District,
				City:     loc.City,
				Area:     loc.Area,
				Hospital: hospitals[rng.Intn(len(hospitals))],
			},
			UnitsNeeded: rng.Intn(3) + 1,
			Status:      types.RequestStatusPending,
			ExpiresAt:   createdAt.Add(ttl),
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}

		if err := requests.CreateRequest(ctx, request); err != nil {
			return created, fmt.Errorf("failed to create fake request %d: %w", i+1, err)
		}
		created++
	}

	return created, nil
}

// ResetFakeRequests deletes previously seeded requests. Assignments and
// rejections cascade.
func ResetFakeRequests(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	query, args, err := resetRequestsQuery()
	if err != nil {
		return 0, fmt.Errorf("failed to generate reset query: %w", err)
	}

	result, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset seeded fake requests: %w", err)
	}
	return result.RowsAffected(), nil
}

func resetRequestsQuery() (string, []any, error) {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Delete("requests").
		Where(sq.Like{"patient_name": SeedPatientPrefix + "%"}).
		ToSql()
}
