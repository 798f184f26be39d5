package domain

import (
	"context"
	"time"

	"venuebook/internal/checkout"
	"venuebook/internal/models"
	"venuebook/internal/session"
)

// Backend is the subset of the marketplace REST API the workflow calls.
type Backend interface {
	CreateBooking(ctx context.Context, s *session.Session, req models.BookingRequest) (*models.Booking, error)
	ListBookings(ctx context.Context, s *session.Session) ([]models.Booking, error)
	GetBooking(ctx context.Context, s *session.Session, bookingID string) (*models.Booking, error)
	CreateOrder(ctx context.Context, s *session.Session, bookingID string, phase models.PaymentPhase) (*models.Booking, error)
	VerifyPayment(ctx context.Context, s *session.Session, attempt models.PaymentAttempt) (*models.Booking, error)
	CancelBooking(ctx context.Context, s *session.Session, bookingID string) error
	GetVenue(ctx context.Context, s *session.Session, venueID string) (*models.Venue, error)
}

// CheckoutProvider hands out leases on the shared checkout script.
type CheckoutProvider interface {
	Acquire(ctx context.Context) (*checkout.Lease, error)
}

// SlotRepository guarantees at most one open checkout per booking.
type SlotRepository interface {
	ClaimSlot(ctx context.Context, bookingID, sessionID string, ttl time.Duration) (bool, error)
	ReleaseSlot(ctx context.Context, bookingID, sessionID string) error
}

// PaymentJournal keeps the local support trail of payment sessions.
type PaymentJournal interface {
	StartSession(ctx context.Context, entry *models.JournalEntry) error
	FinishSession(ctx context.Context, sessionID string, status models.PaymentStatus, paymentID, errMsg string) error
	GetSessions(ctx context.Context, bookingID string) ([]models.JournalEntry, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
