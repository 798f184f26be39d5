package service

import (
	"venuebook/internal/models"
)

// PrimaryAction returns the one action offered for the booking. Rules are
// applied in order and the first match wins. A status the client does not
// know offers nothing.
func PrimaryAction(b *models.Booking) models.Action {
	if b == nil || !b.Status.Known() {
		return models.ActionNone
	}
	switch {
	case CanCancel(b):
		return models.ActionCancel
	case canPayBalance(b):
		return models.ActionPayBalance
	case b.Status == models.StatusFullyPaid:
		return models.ActionViewDetails
	}
	return models.ActionNone
}

// AvailableActions lists every action whose rule applies, in precedence
// order. A fully paid booking only offers View Details.
func AvailableActions(b *models.Booking) []models.Action {
	if b == nil || !b.Status.Known() {
		return nil
	}
	if b.Status == models.StatusFullyPaid {
		return []models.Action{models.ActionViewDetails}
	}

	var actions []models.Action
	if CanCancel(b) {
		actions = append(actions, models.ActionCancel)
	}
	if canPayBalance(b) {
		actions = append(actions, models.ActionPayBalance)
	}
	return actions
}

// CanCancel reports whether the user may still cancel the booking.
func CanCancel(b *models.Booking) bool {
	return b.Status == models.StatusPending || b.Status == models.StatusAdvancePaid
}

func canPayBalance(b *models.Booking) bool {
	return b.AdvancePaid && b.BalanceDue > 0 && !b.Status.IsCancelled()
}

func StatusLabel(status models.BookingStatus) string {
	switch status {
	case models.StatusPending:
		return "Pending Payment"
	case models.StatusAdvancePaid:
		return "Advance Paid"
	case models.StatusFullyPaid:
		return "Fully Paid"
	case models.StatusCancelledByUser:
		return "Cancelled (No Refund)"
	case models.StatusCancelledByVendor:
		return "Cancelled by Vendor"
	case "":
		return "Unknown"
	}
	return string(status)
}

func ActionLabel(a models.Action) string {
	switch a {
	case models.ActionCancel:
		return "Cancel"
	case models.ActionPayBalance:
		return "Pay Balance"
	case models.ActionViewDetails:
		return "View Details"
	}
	return ""
}

// BookingView is a booking prepared for display.
type BookingView struct {
	ID            string
	Venue         string
	StartDate     string
	EndDate       string
	Days          int
	Status        string
	Total         string
	Advance       string
	Balance       string
	AdvancePaid   bool
	PrimaryAction models.Action
	Actions       []models.Action
}

func Present(b *models.Booking) BookingView {
	venue := b.Venue.Name
	if venue == "" {
		venue = b.Venue.ID
	}
	return BookingView{
		ID:            b.ID,
		Venue:         venue,
		StartDate:     b.StartDate.Format(models.DateLayout),
		EndDate:       b.EndDate.Format(models.DateLayout),
		Days:          b.Days(),
		Status:        StatusLabel(b.Status),
		Total:         models.FormatINR(b.TotalPrice),
		Advance:       models.FormatINR(b.AdvanceAmount),
		Balance:       models.FormatINR(b.BalanceDue),
		AdvancePaid:   b.AdvancePaid,
		PrimaryAction: PrimaryAction(b),
		Actions:       AvailableActions(b),
	}
}
