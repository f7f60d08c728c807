package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

type UserWriter interface {
	User(ctx context.Context, userID string) (*types.User, error)
	Create(ctx context.Context, user *types.User) error
	Upsert(ctx context.Context, user *types.User) error
}

type fakeUserSeed struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	BloodGroup types.BloodGroup
	Location   types.UserLocation
	// Days since the last donation; zero means never donated.
	DonatedDaysAgo int
	Suspended      bool
}

var (
	mirpur     = types.UserLocation{District: "Dhaka", City: "Dhaka City", Area: "Mirpur"}
	dhanmondi  = types.UserLocation{District: "Dhaka", City: "Dhaka City", Area: "Dhanmondi"}
	savar      = types.UserLocation{District: "Dhaka", City: "Savar", Area: "Hemayetpur"}
	agrabad    = types.UserLocation{District: "Chattogram", City: "Chattogram City", Area: "Agrabad"}
	zindabazar = types.UserLocation{District: "Sylhet", City: "Sylhet City", Area: "Zindabazar"}
)

var fakeUsers = []fakeUserSeed{
	{ID: "seed-user-01", Name: "Ayesha Rahman", Email: "ayesha.rahman+seed1@example.com", Phone: "01710000001", BloodGroup: types.BloodGroupOPos, Location: mirpur},
	{ID: "seed-user-02", Name: "Tanvir Hasan", Email: "tanvir.hasan+seed2@example.com", Phone: "01710000002", BloodGroup: types.BloodGroupOPos, Location: mirpur, DonatedDaysAgo: 120},
	{ID: "seed-user-03", Name: "Nusrat Jahan", Email: "nusrat.jahan+seed3@example.com", Phone: "01710000003", BloodGroup: types.BloodGroupAPos, Location: dhanmondi},
	{ID: "seed-user-04", Name: "Rafiq Islam", Email: "rafiq.islam+seed4@example.com", Phone: "01710000004", BloodGroup: types.BloodGroupOPos, Location: dhanmondi, DonatedDaysAgo: 30},
	{ID: "seed-user-05", Name: "Sadia Akter", Email: "sadia.akter+seed5@example.com", Phone: "01710000005", BloodGroup: types.BloodGroupBPos, Location: savar},
	{ID: "seed-user-06", Name: "Imran Chowdhury", Email: "imran.chowdhury+seed6@example.com", Phone: "01710000006", BloodGroup: types.BloodGroupOPos, Location: savar},
	{ID: "seed-user-07", Name: "Farhana Kabir", Email: "farhana.kabir+seed7@example.com", Phone: "01710000007", BloodGroup: types.BloodGroupABPos, Location: agrabad},
	{ID: "seed-user-08", Name: "Mahmud Hossain", Email: "mahmud.hossain+seed8@example.com", Phone: "01710000008", BloodGroup: types.BloodGroupONeg, Location: agrabad, DonatedDaysAgo: 95},
	{ID: "seed-user-09", Name: "Shirin Sultana", Email: "shirin.sultana+seed9@example.com", Phone: "01710000009", BloodGroup: types.BloodGroupANeg, Location: zindabazar},
	{ID: "seed-user-10", Name: "Kamal Uddin", Email: "kamal.uddin+seed10@example.com", Phone: "01710000010", BloodGroup: types.BloodGroupOPos, Location: mirpur, Suspended: true},
	{ID: "seed-user-11", Name: "Lima Begum", Email: "lima.begum+seed11@example.com", Phone: "01710000011", BloodGroup: types.BloodGroupBNeg, Location: dhanmondi},
	{ID: "seed-user-12", Name: "Arif Mahmud", Email: "arif.mahmud+seed12@example.com", Phone: "01710000012", BloodGroup: types.BloodGroupABNeg, Location: savar, DonatedDaysAgo: 10},
}

func seedUserIDs() []string {
	ids := make([]string, 0, len(fakeUsers))
	for _, user := range fakeUsers {
		if !user.Suspended {
			ids = append(ids, user.ID)
		}
	}
	return ids
}

// SeedFakeUsers upserts the demo donors. Donors with a recent donation
// start in cool-down.
func SeedFakeUsers(ctx context.Context, users UserWriter, now time.Time) (int, error) {
	seeded := 0
	for _, fake := range fakeUsers {
		user := &types.User{
			ID:           fake.ID,
			Name:         fake.Name,
			Email:        fake.Email,
			Phone:        fake.Phone,
			BloodGroup:   fake.BloodGroup,
			UserLocation: fake.Location,
			Availability: true,
			Role:         types.UserRoleUser,
			IsSuspended:  fake.Suspended,
		}

		if fake.DonatedDaysAgo > 0 {
			last := now.AddDate(0, 0, -fake.DonatedDaysAgo)
			user.LastDonation = utils.TimePtr(last)
			user.Availability = types.EligibleSince(last, now)
			if !user.Availability {
				user.NextAvailableAt = utils.TimePtr(types.NextAvailableAfter(last))
			}
		}

		_, err := users.User(ctx, fake.ID)
		switch {
		case errors.Is(err, types.ErrUserNotFound):
			if err := users.Create(ctx, user); err != nil {
				return seeded, fmt.Errorf("failed to create fake user %s: %w", fake.ID, err)
			}
		case err != nil:
			return seeded, fmt.Errorf("failed to fetch fake user %s: %w", fake.ID, err)
		default:
			if err := users.Upsert(ctx, user); err != nil {
				return seeded, fmt.Errorf("failed to update fake user %s: %w", fake.ID, err)
			}
		}
		seeded++
	}

	return seeded, nil
}
