package service

import (
	"testing"
	"time"

	"venuebook/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPrimaryAction(t *testing.T) {
	tests := []struct {
		name    string
		booking models.Booking
		want    models.Action
		all     []models.Action
	}{
		{"pending", models.Booking{Status: models.StatusPending, BalanceDue: 16000}, models.ActionCancel, []models.Action{models.ActionCancel}},
		{"advance paid with balance", models.Booking{Status: models.StatusAdvancePaid, AdvancePaid: true, BalanceDue: 16000}, models.ActionCancel, []models.Action{models.ActionCancel, models.ActionPayBalance}},
		{"advance paid no balance", models.Booking{Status: models.StatusAdvancePaid, AdvancePaid: true}, models.ActionCancel, []models.Action{models.ActionCancel}},
		{"fully paid", models.Booking{Status: models.StatusFullyPaid, AdvancePaid: true}, models.ActionViewDetails, []models.Action{models.ActionViewDetails}},
		{"fully paid stale balance", models.Booking{Status: models.StatusFullyPaid, AdvancePaid: true, BalanceDue: 10}, models.ActionPayBalance, []models.Action{models.ActionViewDetails}},
		{"cancelled by user", models.Booking{Status: models.StatusCancelledByUser, AdvancePaid: true, BalanceDue: 16000}, models.ActionNone, nil},
		{"cancelled by vendor", models.Booking{Status: models.StatusCancelledByVendor}, models.ActionNone, nil},
		{"unknown status", models.Booking{Status: "on_hold", AdvancePaid: true, BalanceDue: 5}, models.ActionNone, nil},
		{"empty", models.Booking{}, models.ActionNone, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.booking
			assert.Equal(t, tt.want, PrimaryAction(&b))
			assert.Equal(t, tt.all, AvailableActions(&b))
			assert.Equal(t, tt.booking, b, "presenter must not mutate")
		})
	}

	assert.Equal(t, models.ActionNone, PrimaryAction(nil))
	assert.Nil(t, AvailableActions(nil))
}

// Every combination maps to exactly one action.
func TestPrimaryAction_Total(t *testing.T) {
	statuses := []models.BookingStatus{
		models.StatusPending, models.StatusAdvancePaid, models.StatusFullyPaid,
		models.StatusCancelledByUser, models.StatusCancelledByVendor, "",
	}
	valid := map[models.Action]bool{
		models.ActionCancel: true, models.ActionPayBalance: true,
		models.ActionViewDetails: true, models.ActionNone: true,
	}
	for _, st := range statuses {
		for _, paid := range []bool{false, true} {
			for _, balance := range []float64{0, 1} {
				b := &models.Booking{Status: st, AdvancePaid: paid, BalanceDue: balance}
				assert.True(t, valid[PrimaryAction(b)], "status=%s paid=%v balance=%v", st, paid, balance)
			}
		}
	}
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Pending Payment", StatusLabel(models.StatusPending))
	assert.Equal(t, "Advance Paid", StatusLabel(models.StatusAdvancePaid))
	assert.Equal(t, "Fully Paid", StatusLabel(models.StatusFullyPaid))
	assert.Equal(t, "Cancelled (No Refund)", StatusLabel(models.StatusCancelledByUser))
	assert.Equal(t, "Cancelled by Vendor", StatusLabel(models.StatusCancelledByVendor))
	assert.Equal(t, "Unknown", StatusLabel(""))
	assert.Equal(t, "on_hold", StatusLabel("on_hold"))

	assert.Equal(t, "Pay Balance", ActionLabel(models.ActionPayBalance))
	assert.Empty(t, ActionLabel(models.ActionNone))
}

func TestPresent(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &models.Booking{
		ID:            "b1",
		Venue:         models.Ref{ID: "v1"},
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, 2),
		TotalPrice:    120000,
		AdvanceAmount: 24000,
		BalanceDue:    96000,
		AdvancePaid:   true,
		Status:        models.StatusAdvancePaid,
	}

	v := Present(b)
	assert.Equal(t, "v1", v.Venue)
	assert.Equal(t, "2024-01-01", v.StartDate)
	assert.Equal(t, 2, v.Days)
	assert.Equal(t, "₹1,20,000", v.Total)
	assert.Equal(t, "₹96,000", v.Balance)
	assert.Equal(t, "Advance Paid", v.Status)
	assert.Equal(t, models.ActionCancel, v.PrimaryAction)
	assert.Equal(t, []models.Action{models.ActionCancel, models.ActionPayBalance}, v.Actions)
}
