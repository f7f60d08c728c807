package types

import (
	"time"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "Pending"
	RequestStatusAccepted  RequestStatus = "Accepted"
	RequestStatusCompleted RequestStatus = "Completed"
	RequestStatusExpired   RequestStatus = "Expired"
)

// ActiveRequestStatuses are the statuses a donor can still respond to.
var ActiveRequestStatuses = []RequestStatus{RequestStatusPending, RequestStatusAccepted}

func (s RequestStatus) Active() bool {
	return s == RequestStatusPending || s == RequestStatusAccepted
}

func (s RequestStatus) Terminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusExpired
}

type AssignmentStatus string

const (
	AssignmentStatusAccepted  AssignmentStatus = "Accepted"
	AssignmentStatusCompleted AssignmentStatus = "Completed"
)

type Request struct {
	ID          string `db:"id" json:"id"`
	RequesterID string `db:"requester_id" json:"requesterId"`

	PatientName string     `db:"patient_name" json:"patientName"`
	BloodGroup  BloodGroup `db:"blood_group" json:"bloodGroup"`

	RequestLocation

	UnitsNeeded int           `db:"units_needed" json:"unitsNeeded"`
	Status      RequestStatus `db:"status" json:"status"`
	ExpiresAt   time.Time     `db:"expires_at" json:"expiresAt"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`

	DonorsAssigned []*DonorAssignment `db:"-" json:"donorsAssigned"`
	RejectedDonors []string           `db:"-" json:"rejectedDonors"`

	// Populated by the lifecycle manager for read views.
	Requester *UserSummary `db:"-" json:"requester,omitempty"`
}

type RequestLocation struct {
	District string `db:"district" json:"district"`
	City     string `db:"city" json:"city"`
	Area     string `db:"area" json:"area"`
	Hospital string `db:"hospital" json:"hospital"`
}

type DonorAssignment struct {
	RequestID   string           `db:"request_id" json:"-"`
	DonorID     string           `db:"donor_id" json:"donorId"`
	Status      AssignmentStatus `db:"status" json:"status"`
	CompletedAt *time.Time       `db:"completed_at" json:"completedAt"`
	AssignedAt  time.Time        `db:"assigned_at" json:"assignedAt"`

	Donor *UserSummary `db:"-" json:"donor,omitempty"`
}

type RequestRejection struct {
	RequestID  string    `db:"request_id"`
	DonorID    string    `db:"donor_id"`
	RejectedAt time.Time `db:"rejected_at"`
}

// Assignment returns the donor's entry in DonorsAssigned, or nil.
func (r *Request) Assignment(donorID string) *DonorAssignment {
	for _, a := range r.DonorsAssigned {
		if a.DonorID == donorID {
			return a
		}
	}
	return nil
}

func (r *Request) HasRejected(donorID string) bool {
	for _, id := range r.RejectedDonors {
		if id == donorID {
			return true
		}
	}
	return false
}

// CompletedCount is the number of assignments whose donation is done.
func (r *Request) CompletedCount() int {
	count := 0
	for _, a := range r.DonorsAssigned {
		if a.Status == AssignmentStatusCompleted {
			count++
		}
	}
	return count
}

// IsActive reports whether donors can still discover the request at now.
func (r *Request) IsActive(now time.Time) bool {
	return r.Status.Active() && r.ExpiresAt.After(now)
}

// Clone returns a deep copy so callers can mutate without sharing
// assignment pointers.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.DonorsAssigned = make([]*DonorAssignment, 0, len(r.DonorsAssigned))
	for _, a := range r.DonorsAssigned {
		cp := *a
		if a.CompletedAt != nil {
			t := *a.CompletedAt
			cp.CompletedAt = &t
		}
		out.DonorsAssigned = append(out.DonorsAssigned, &cp)
	}
	out.RejectedDonors = append(make([]string, 0, len(r.RejectedDonors)), r.RejectedDonors...)
	if r.Requester != nil {
		req := *r.Requester
		out.Requester = &req
	}
	return &out
}

// RequestNeed is the requester-supplied description of a blood need.
type RequestNeed struct {
	PatientName string     `json:"patientName" validate:"required"`
	BloodGroup  BloodGroup `json:"bloodGroup" validate:"required,bloodgroup"`
	District    string     `json:"district"`
	City        string     `json:"city"`
	Area        string     `json:"area"`
	Hospital    string     `json:"hospital"`
	UnitsNeeded int        `json:"unitsNeeded" validate:"gt=0"`
}

// RequestFilter narrows the active request listing by exact match.
type RequestFilter struct {
	BloodGroup BloodGroup `form:"bloodGroup"`
	District   string     `form:"district"`
	City       string     `form:"city"`
	Area       string     `form:"area"`
}

type RequestStats struct {
	ActiveRequests int `json:"activeRequests"`
	DonationsMade  int `json:"donationsMade"`
}
