package service

import (
	"context"
	"fmt"

	"venuebook/internal/domain"
	"venuebook/internal/models"
	"venuebook/internal/session"

	"github.com/rs/zerolog"
)

// PaymentVerifier submits the gateway's signed confirmation to the backend.
// Verification is one-shot: a failure is final for the session and the user
// starts a new one.
type PaymentVerifier struct {
	backend domain.Backend
	logger  *zerolog.Logger
}

func NewPaymentVerifier(backend domain.Backend, logger *zerolog.Logger) *PaymentVerifier {
	return &PaymentVerifier{backend: backend, logger: logger}
}

// Verify returns a success result only when the backend answered with the
// verified booking. before is the booking as seen when the session started
// and may be nil.
func (v *PaymentVerifier) Verify(ctx context.Context, sess *session.Session, attempt models.PaymentAttempt, before *models.Booking) (models.PaymentResult, error) {
	result := models.PaymentResult{
		BookingID: attempt.BookingID,
		Phase:     attempt.Phase,
		Status:    models.PaymentPending,
		PaymentID: attempt.PaymentID,
	}

	booking, err := v.submit(ctx, sess, attempt)
	if err != nil {
		verr := domain.VerificationError{PaymentID: attempt.PaymentID, Err: err}
		result.Status = models.PaymentFailed
		result.Message = domain.UserMessage(verr)
		v.logger.Error().Err(err).
			Str("booking_id", attempt.BookingID).
			Str("phase", string(attempt.Phase)).
			Str("payment_id", attempt.PaymentID).
			Msg("payment verification failed")
		return result, verr
	}

	result.Status = models.PaymentSuccess
	result.Booking = booking
	v.checkProgress(attempt, before, booking)
	return result, nil
}

func (v *PaymentVerifier) submit(ctx context.Context, sess *session.Session, attempt models.PaymentAttempt) (*models.Booking, error) {
	if attempt.BookingID == "" {
		return nil, domain.ValidationError{Field: "booking", Msg: "is required"}
	}
	if !attempt.Phase.Valid() {
		return nil, domain.ValidationError{Field: "phase", Msg: fmt.Sprintf("unknown phase %q", attempt.Phase)}
	}
	if attempt.PaymentID == "" || attempt.Signature == "" {
		return nil, domain.ValidationError{Field: "payment", Msg: "gateway response is missing payment id or signature"}
	}

	booking, err := v.backend.VerifyPayment(ctx, sess, attempt)
	if err != nil {
		return nil, err
	}
	return requireVerifiedBooking(booking, attempt.BookingID)
}

// requireVerifiedBooking: a verification response counts as success only if
// it carries the booking it was about. A 2xx without one is ambiguous and
// therefore a failure.
func requireVerifiedBooking(b *models.Booking, bookingID string) (*models.Booking, error) {
	if b == nil || b.ID == "" {
		return nil, domain.ErrVerificationAmbiguous
	}
	if b.ID != bookingID {
		return nil, fmt.Errorf("%w: response is for booking %s", domain.ErrVerificationAmbiguous, b.ID)
	}
	return b, nil
}

// checkProgress only logs: the backend owns booking state and the client
// reflects whatever it returned.
func (v *PaymentVerifier) checkProgress(attempt models.PaymentAttempt, before, after *models.Booking) {
	if before != nil && !models.CanTransition(before.Status, after.Status) {
		v.logger.Warn().
			Str("booking_id", after.ID).
			Str("from", string(before.Status)).
			Str("to", string(after.Status)).
			Msg("backend reported a status regression")
	}

	expected := models.StatusAdvancePaid
	if attempt.Phase == models.PhaseBalance {
		expected = models.StatusFullyPaid
	}
	if after.Status != expected && after.Status != models.StatusFullyPaid {
		v.logger.Warn().
			Str("booking_id", after.ID).
			Str("status", string(after.Status)).
			Str("expected", string(expected)).
			Msg("verified booking has unexpected status")
	}
}
