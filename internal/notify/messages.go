package notify

import (
	"fmt"

	"bloodlink/pkg/types"
)

func RequestMatch(r *types.Request, donorID string) *types.Notification {
	where := r.Hospital
	if where == "" {
		where = firstNonEmpty(r.Area, r.City, r.District)
	}

	body := fmt.Sprintf("%s needs %d unit(s) of %s blood", r.PatientName, r.UnitsNeeded, r.BloodGroup)
	if where != "" {
		body += " at " + where
	}

	return &types.Notification{
		UserID: donorID,
		Type:   types.NotificationRequestMatch,
		Title:  fmt.Sprintf("%s blood needed near you", r.BloodGroup),
		Body:   body + ".",
		Meta:   types.NotificationMeta{RequestID: r.ID, BloodGroup: r.BloodGroup},
	}
}

func RequestAccepted(r *types.Request, donor *types.User) *types.Notification {
	return &types.Notification{
		UserID: r.RequesterID,
		Type:   types.NotificationRequestAccepted,
		Title:  "A donor accepted your request",
		Body:   fmt.Sprintf("%s accepted your request for %s.", donor.Name, r.PatientName),
		Meta:   types.NotificationMeta{RequestID: r.ID, DonorID: donor.ID},
	}
}

func DonationCompleted(r *types.Request, donorID string) *types.Notification {
	body := fmt.Sprintf("%d of %d unit(s) donated for %s.", r.CompletedCount(), r.UnitsNeeded, r.PatientName)
	if r.Status == types.RequestStatusCompleted {
		body = fmt.Sprintf("All %d unit(s) for %s have been donated.", r.UnitsNeeded, r.PatientName)
	}

	return &types.Notification{
		UserID: r.RequesterID,
		Type:   types.NotificationDonationCompleted,
		Title:  "Donation completed",
		Body:   body,
		Meta:   types.NotificationMeta{RequestID: r.ID, DonorID: donorID},
	}
}

func RequestExpired(r *types.Request) *types.Notification {
	return &types.Notification{
		UserID: r.RequesterID,
		Type:   types.NotificationRequestExpired,
		Title:  "Your request expired",
		Body:   fmt.Sprintf("Your request for %s has expired.", r.PatientName),
		Meta:   types.NotificationMeta{RequestID: r.ID},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
