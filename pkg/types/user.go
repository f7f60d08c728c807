package types

import (
	"strings"
	"time"
)

type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

var BloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg,
	BloodGroupOPos, BloodGroupONeg,
}

func (g BloodGroup) Valid() bool {
	for _, known := range BloodGroups {
		if g == known {
			return true
		}
	}
	return false
}

// NormalizeBloodGroup upper-cases the value and restores a "+" that was
// decoded to a space by an unescaped query string ("A+" -> "A ").
func NormalizeBloodGroup(v string) BloodGroup {
	v = strings.TrimLeft(v, " ")
	v = strings.ReplaceAll(v, " ", "+")
	return BloodGroup(strings.ToUpper(v))
}

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// DonationCoolDown is how long a donor stays unavailable after giving blood.
const DonationCoolDown = 90 * 24 * time.Hour

type User struct {
	ID           string     `db:"id"`
	Name         string     `db:"name"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Phone        string     `db:"phone"`
	BloodGroup   BloodGroup `db:"blood_group"`

	UserLocation

	ProfileImage    string     `db:"profile_image"`
	LastDonation    *time.Time `db:"last_donation"`
	NextAvailableAt *time.Time `db:"next_available_at"`
	Availability    bool       `db:"availability"`
	Role            UserRole   `db:"role"`
	IsSuspended     bool       `db:"is_suspended"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

type UserLocation struct {
	District string `db:"district" json:"district"`
	City     string `db:"city" json:"city"`
	Area     string `db:"area" json:"area"`
}

// CanDonate reports whether the user may be matched with or accept a request.
func (u *User) CanDonate() bool {
	return u != nil && u.Availability && !u.IsSuspended
}

// NextAvailableAfter returns the end of the cool-down that starts at lastDonation.
func NextAvailableAfter(lastDonation time.Time) time.Time {
	return lastDonation.Add(DonationCoolDown)
}

// EligibleSince reports whether a donor whose last donation was at
// lastDonation has finished the cool-down by now.
func EligibleSince(lastDonation, now time.Time) bool {
	return !now.Before(NextAvailableAfter(lastDonation))
}

// UserSummary is the public projection of a user attached to requests.
type UserSummary struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	BloodGroup   BloodGroup `json:"bloodGroup"`
	ProfileImage string     `json:"profileImage"`
	UserLocation
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		Phone:        u.Phone,
		BloodGroup:   u.BloodGroup,
		ProfileImage: u.ProfileImage,
		UserLocation: u.UserLocation,
	}
}

// Profile is the caller's own view, including donation eligibility.
type Profile struct {
	UserSummary
	Email           string     `json:"email"`
	Role            UserRole   `json:"role"`
	Availability    bool       `json:"availability"`
	LastDonation    *time.Time `json:"lastDonation"`
	NextAvailableAt *time.Time `json:"nextAvailableAt"`
}

func (u *User) Profile() *Profile {
	return &Profile{
		UserSummary:     *u.Summary(),
		Email:           u.Email,
		Role:            u.Role,
		Availability:    u.Availability,
		LastDonation:    u.LastDonation,
		NextAvailableAt: u.NextAvailableAt,
	}
}

// DonorQuery selects eligible donors on a single location tier.
type DonorQuery struct {
	BloodGroup BloodGroup
	Tier       LocationTier
	Value      string
	ExcludeIDs []string
	Limit      uint64
}

type LocationTier string

const (
	TierArea     LocationTier = "area"
	TierCity     LocationTier = "city"
	TierDistrict LocationTier = "district"
	// TierAny ignores location and matches on blood group alone.
	TierAny LocationTier = "any"
)

// DonorNeed is the input to the donor matcher.
type DonorNeed struct {
	BloodGroup    BloodGroup `form:"bloodGroup"`
	District      string     `form:"district"`
	City          string     `form:"city"`
	Area          string     `form:"area"`
	ExcludeUserID string     `form:"-"`
}
