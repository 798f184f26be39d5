package models

import (
	"math"
	"time"
)

// DateLayout is the calendar-day format exchanged with the backend.
const DateLayout = "2006-01-02"

type Venue struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	PricePerDay float64  `json:"pricePerDay"`
	Capacity    int      `json:"capacity"`
	Address     string   `json:"address"`
	Location    Location `json:"location"`
}

// Location is a GeoJSON point; Coordinates are [longitude, latitude].
type Location struct {
	Type        string    `json:"type,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

// Quote is the client-side price breakdown of a booking intent.
type Quote struct {
	VenueID       string    `json:"venue_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Days          int       `json:"days"`
	PricePerDay   float64   `json:"price_per_day"`
	TotalPrice    float64   `json:"total_price"`
	AdvanceAmount float64   `json:"advance_amount"`
	BalanceDue    float64   `json:"balance_due"`
}

// BillableDays returns max(1, ceil(end-start in days)). The difference is
// taken on wall-clock readings, so a DST change inside the range does not
// add or remove a day.
func BillableDays(start, end time.Time) int {
	days := int(math.Ceil(wallClock(end).Sub(wallClock(start)).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

func wallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// NewQuote prices a stay at the venue. Dates are not validated here.
func NewQuote(venue Venue, start, end time.Time) Quote {
	days := BillableDays(start, end)
	total := venue.PricePerDay * float64(days)
	advance := math.Round(total * AdvanceRate)
	return Quote{
		VenueID:       venue.ID,
		StartDate:     start,
		EndDate:       end,
		Days:          days,
		PricePerDay:   venue.PricePerDay,
		TotalPrice:    total,
		AdvanceAmount: advance,
		BalanceDue:    total - advance,
	}
}

// BookingRequest is the body of the booking-creation call.
type BookingRequest struct {
	VenueID    string  `json:"venueId"`
	StartDate  string  `json:"startDate"`
	EndDate    string  `json:"endDate"`
	TotalPrice float64 `json:"totalPrice"`
}

// Request builds the booking-creation body; dates are sent as calendar days.
func (q Quote) Request() BookingRequest {
	return BookingRequest{
		VenueID:    q.VenueID,
		StartDate:  q.StartDate.Format(DateLayout),
		EndDate:    q.EndDate.Format(DateLayout),
		TotalPrice: q.TotalPrice,
	}
}

// PaymentAttempt is the gateway's success callback payload bound to the
// booking and phase it pays for. It lives only until verification.
type PaymentAttempt struct {
	BookingID string
	Phase     PaymentPhase
	OrderID   string
	PaymentID string
	Signature string
}

// PaymentResult is the terminal outcome of a payment session.
type PaymentResult struct {
	SessionID string        `json:"session_id"`
	BookingID string        `json:"booking_id"`
	Phase     PaymentPhase  `json:"phase"`
	Status    PaymentStatus `json:"status"`
	PaymentID string        `json:"payment_id,omitempty"`
	Booking   *Booking      `json:"booking,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// JournalEntry is the local record of one payment session.
type JournalEntry struct {
	SessionID   string        `json:"session_id"`
	BookingID   string        `json:"booking_id"`
	Phase       PaymentPhase  `json:"phase"`
	OrderID     string        `json:"order_id"`
	AmountMinor int64         `json:"amount_minor"`
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	PaymentID   *string       `json:"payment_id"`
	LastError   *string       `json:"last_error"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
