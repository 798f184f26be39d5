package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type BookingStatus string

const (
	StatusPending           BookingStatus = "pending"
	StatusAdvancePaid       BookingStatus = "advance_paid"
	StatusFullyPaid         BookingStatus = "fully_paid"
	StatusCancelledByUser   BookingStatus = "cancelled_by_user"
	StatusCancelledByVendor BookingStatus = "cancelled_by_vendor"
)

// IsCancelled reports whether the status is one of the cancelled variants.
func (s BookingStatus) IsCancelled() bool {
	return s == StatusCancelledByUser || s == StatusCancelledByVendor
}

// IsTerminal reports whether no further transition can leave the status.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusFullyPaid || s.IsCancelled()
}

// Known reports whether the backend sent a status this client understands.
func (s BookingStatus) Known() bool {
	switch s {
	case StatusPending, StatusAdvancePaid, StatusFullyPaid, StatusCancelledByUser, StatusCancelledByVendor:
		return true
	}
	return false
}

var allowedTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:     {StatusAdvancePaid, StatusCancelledByUser, StatusCancelledByVendor},
	StatusAdvancePaid: {StatusFullyPaid, StatusCancelledByUser, StatusCancelledByVendor},
}

// CanTransition reports whether a booking may move from one status to another.
// Staying in the same status is always allowed. Nothing leaves a terminal
// status and nothing enters one this client does not know.
func CanTransition(from, to BookingStatus) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() || !to.Known() {
		return false
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Ref is a reference to another document. The backend sends either the bare
// id or the populated document, depending on the endpoint.
type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}

	var doc struct {
		ID       string `json:"_id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode reference: %w", err)
	}
	r.ID = doc.ID
	r.Name = doc.Name
	if r.Name == "" {
		r.Name = doc.Username
	}
	return nil
}

type Booking struct {
	ID                     string        `json:"_id"`
	Venue                  Ref           `json:"venue"`
	User                   Ref           `json:"user"`
	StartDate              time.Time     `json:"startDate"`
	EndDate                time.Time     `json:"endDate"`
	TotalPrice             float64       `json:"totalPrice"`
	AdvanceAmount          float64       `json:"advanceAmount"`
	BalanceDue             float64       `json:"balanceDue"`
	AdvancePaid            bool          `json:"advancePaid"`
	Status                 BookingStatus `json:"status"`
	RazorpayOrderID        string        `json:"razorpayOrderId,omitempty"`
	RazorpayBalanceOrderID string        `json:"razorpayBalanceOrderId,omitempty"`
	CreatedAt              time.Time     `json:"createdAt"`
}

// OrderIDFor returns the gateway order id recorded for the phase and whether
// one is present.
func (b *Booking) OrderIDFor(phase PaymentPhase) (string, bool) {
	var id string
	switch phase {
	case PhaseAdvance:
		id = b.RazorpayOrderID
	case PhaseBalance:
		id = b.RazorpayBalanceOrderID
	}
	return id, id != ""
}

// AmountFor returns the amount, in rupees, payable in the phase.
func (b *Booking) AmountFor(phase PaymentPhase) float64 {
	if phase == PhaseBalance {
		return b.BalanceDue
	}
	return b.AdvanceAmount
}

// Payable reports whether the booking currently accepts a payment in the phase.
func (b *Booking) Payable(phase PaymentPhase) bool {
	switch phase {
	case PhaseAdvance:
		return b.Status == StatusPending && !b.AdvancePaid
	case PhaseBalance:
		return b.AdvancePaid && b.BalanceDue > 0 && !b.Status.IsCancelled()
	}
	return false
}

// Days returns the number of billable days in the booking.
func (b *Booking) Days() int {
	return BillableDays(b.StartDate, b.EndDate)
}
