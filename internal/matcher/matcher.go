package matcher

import (
	"context"
	"fmt"

	"bloodlink/pkg/types"
)

// DonorSource returns eligible donors for a single location tier.
type DonorSource interface {
	EligibleDonors(ctx context.Context, q types.DonorQuery) ([]*types.User, error)
}

// Matcher widens a donor search from area to city to district until the
// limit is met. Results keep tier order: area matches first. A need with no
// location at all is matched on blood group alone.
type Matcher struct {
	donors DonorSource
}

func New(donors DonorSource) *Matcher {
	return &Matcher{donors: donors}
}

// tiers lists the search order, narrowest first.
var tiers = []types.LocationTier{types.TierArea, types.TierCity, types.TierDistrict}

func (m *Matcher) FindMatchingDonors(ctx context.Context, need types.DonorNeed, limit int) ([]*types.User, error) {
	out := make([]*types.User, 0)
	if limit <= 0 || !need.BloodGroup.Valid() {
		return out, nil
	}

	exclude := make([]string, 0, limit+1)
	if need.ExcludeUserID != "" {
		exclude = append(exclude, need.ExcludeUserID)
	}

	for _, step := range searchPlan(need) {
		remaining := limit - len(out)
		if remaining <= 0 {
			break
		}

		donors, err := m.donors.EligibleDonors(ctx, types.DonorQuery{
			BloodGroup: need.BloodGroup,
			Tier:       step.tier,
			Value:      step.value,
			ExcludeIDs: exclude,
			Limit:      uint64(remaining),
		})
		if err != nil {
			return out, fmt.Errorf("failed to search %s tier: %w", step.tier, err)
		}

		for _, donor := range donors {
			if len(out) >= limit {
				break
			}
			if !donor.CanDonate() {
				continue
			}
			out = append(out, donor)
			exclude = append(exclude, donor.ID)
		}
	}

	return out, nil
}

type tierStep struct {
	tier  types.LocationTier
	value string
}

func searchPlan(need types.DonorNeed) []tierStep {
	plan := make([]tierStep, 0, len(tiers))
	for _, tier := range tiers {
		if value := tierValue(need, tier); value != "" {
			plan = append(plan, tierStep{tier: tier, value: value})
		}
	}
	if len(plan) == 0 {
		plan = append(plan, tierStep{tier: types.TierAny})
	}
	return plan
}

func tierValue(need types.DonorNeed, tier types.LocationTier) string {
	switch tier {
	case types.TierArea:
		return need.Area
	case types.TierCity:
		return need.City
	case types.TierDistrict:
		return need.District
	}
	return ""
}
