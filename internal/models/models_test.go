package models

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewQuote(t *testing.T) {
	t.Run("TwoDays", func(t *testing.T) {
		q := NewQuote(Venue{ID: "v1", PricePerDay: 10000}, date("2024-01-01"), date("2024-01-03"))
		assert.Equal(t, 2, q.Days)
		assert.Equal(t, 20000.0, q.TotalPrice)
		assert.Equal(t, 4000.0, q.AdvanceAmount)
		assert.Equal(t, 16000.0, q.BalanceDue)
	})

	t.Run("SameDayBillsOneDay", func(t *testing.T) {
		q := NewQuote(Venue{PricePerDay: 2500}, date("2024-03-10"), date("2024-03-10"))
		assert.Equal(t, 1, q.Days)
		assert.Equal(t, 2500.0, q.TotalPrice)
		assert.Equal(t, 500.0, q.AdvanceAmount)
	})

	t.Run("PartialDayRoundsUp", func(t *testing.T) {
		start := date("2024-03-10")
		q := NewQuote(Venue{PricePerDay: 1000}, start, start.Add(36*time.Hour))
		assert.Equal(t, 2, q.Days)
	})

	t.Run("DSTChangeInsideRange", func(t *testing.T) {
		london, err := time.LoadLocation("Europe/London")
		require.NoError(t, err)

		tests := []struct {
			name       string
			start, end string
			days       int
		}{
			{"clocks go back", "2024-10-26", "2024-10-28", 2},
			{"clocks go forward", "2024-03-30", "2024-04-01", 2},
			{"single night over change", "2024-10-27", "2024-10-28", 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				start, err := time.ParseInLocation(DateLayout, tt.start, london)
				require.NoError(t, err)
				end, err := time.ParseInLocation(DateLayout, tt.end, london)
				require.NoError(t, err)

				q := NewQuote(Venue{PricePerDay: 10000}, start, end)
				assert.Equal(t, tt.days, q.Days)
				assert.Equal(t, 10000.0*float64(tt.days), q.TotalPrice)
			})
		}
	})

	t.Run("NoRoundingLeak", func(t *testing.T) {
		start := date("2024-05-01")
		for price := 1.0; price <= 2000; price += 7 {
			for days := 1; days <= 9; days++ {
				q := NewQuote(Venue{PricePerDay: price}, start, start.AddDate(0, 0, days))
				require.Equal(t, price*float64(days), q.TotalPrice)
				require.Equal(t, q.TotalPrice, q.AdvanceAmount+q.BalanceDue, "price=%v days=%d", price, days)
			}
		}
	})

	t.Run("AdvanceRounded", func(t *testing.T) {
		q := NewQuote(Venue{PricePerDay: 1233}, date("2024-01-01"), date("2024-01-02"))
		assert.Equal(t, 247.0, q.AdvanceAmount)
		assert.Equal(t, 986.0, q.BalanceDue)
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		want     bool
	}{
		{StatusPending, StatusAdvancePaid, true},
		{StatusPending, StatusCancelledByUser, true},
		{StatusAdvancePaid, StatusFullyPaid, true},
		{StatusAdvancePaid, StatusCancelledByVendor, true},
		{StatusPending, StatusFullyPaid, false},
		{StatusAdvancePaid, StatusPending, false},
		{StatusFullyPaid, StatusAdvancePaid, false},
		{StatusFullyPaid, StatusCancelledByUser, false},
		{StatusCancelledByUser, StatusPending, false},
		{StatusCancelledByVendor, StatusAdvancePaid, false},
		{StatusFullyPaid, StatusFullyPaid, true},
		{StatusPending, "on_hold", false},
		{"on_hold", "on_hold", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestBookingStatus_Classification(t *testing.T) {
	tests := []struct {
		status    BookingStatus
		known     bool
		terminal  bool
		cancelled bool
	}{
		{StatusPending, true, false, false},
		{StatusAdvancePaid, true, false, false},
		{StatusFullyPaid, true, true, false},
		{StatusCancelledByUser, true, true, true},
		{StatusCancelledByVendor, true, true, true},
		{"on_hold", false, false, false},
		{"", false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.known, tt.status.Known())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.cancelled, tt.status.IsCancelled())
		})
	}
}

func TestBooking_Phases(t *testing.T) {
	b := &Booking{
		Status:          StatusPending,
		AdvanceAmount:   4000,
		BalanceDue:      16000,
		RazorpayOrderID: "order_adv",
	}

	id, ok := b.OrderIDFor(PhaseAdvance)
	assert.True(t, ok)
	assert.Equal(t, "order_adv", id)

	_, ok = b.OrderIDFor(PhaseBalance)
	assert.False(t, ok)

	assert.Equal(t, 4000.0, b.AmountFor(PhaseAdvance))
	assert.Equal(t, 16000.0, b.AmountFor(PhaseBalance))

	assert.True(t, b.Payable(PhaseAdvance))
	assert.False(t, b.Payable(PhaseBalance))

	b.Status = StatusAdvancePaid
	b.AdvancePaid = true
	assert.False(t, b.Payable(PhaseAdvance))
	assert.True(t, b.Payable(PhaseBalance))

	b.Status = StatusCancelledByUser
	assert.False(t, b.Payable(PhaseBalance))
}

func TestRef_UnmarshalJSON(t *testing.T) {
	var b Booking
	raw := `{
		"_id": "b1",
		"venue": {"_id": "v1", "name": "Lake Hall"},
		"user": "u1",
		"startDate": "2024-01-01T00:00:00.000Z",
		"endDate": "2024-01-03T00:00:00.000Z",
		"totalPrice": 20000,
		"status": "pending"
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &b))

	assert.Equal(t, "v1", b.Venue.ID)
	assert.Equal(t, "Lake Hall", b.Venue.Name)
	assert.Equal(t, "u1", b.User.ID)
	assert.Equal(t, 2, b.Days())

	var empty Ref
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.Equal(t, Ref{}, empty)

	var bad Ref
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &bad))
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "₹0"},
		{999, "₹999"},
		{4000, "₹4,000"},
		{20000, "₹20,000"},
		{120000, "₹1,20,000"},
		{12345678.5, "₹1,23,45,678.50"},
		{-1500, "-₹1,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatINR(tt.in))
	}
	assert.Equal(t, int64(400000), MinorUnits(4000))
	assert.Equal(t, int64(1999), MinorUnits(19.99))
}
