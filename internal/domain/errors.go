package domain

import (
	"context"
	"errors"
	"fmt"

	"venuebook/internal/checkout"
	"venuebook/internal/session"
)

var (
	// ErrVerificationAmbiguous: the backend answered the verification call
	// without a booking. Never treated as success.
	ErrVerificationAmbiguous = errors.New("verification response has no booking")
	ErrCheckoutUnavailable   = checkout.ErrUnavailable
	ErrCheckoutInProgress    = errors.New("a checkout is already open for this booking")
	ErrCheckoutClosed        = errors.New("checkout was closed before payment completed")
	ErrNotPayable            = errors.New("booking does not accept this payment")
	ErrMissingOrderID        = errors.New("backend did not return a gateway order id")
	ErrMissingBooking        = errors.New("backend did not return a booking")
	ErrCancelNotAllowed      = errors.New("booking cannot be cancelled")
	ErrCancelNotAcknowledged = errors.New("cancellation requires acknowledging that the advance is not refunded")
)

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// GatewayError is a failure reported by the payment provider itself.
type GatewayError struct {
	Code        string
	Description string
}

func (e GatewayError) Error() string {
	if e.Description == "" {
		return "payment failed at gateway"
	}
	if e.Code == "" {
		return "gateway: " + e.Description
	}
	return fmt.Sprintf("gateway %s: %s", e.Code, e.Description)
}

// VerificationError ties a failed verification to the payment the user has
// already made, so support can reconcile it.
type VerificationError struct {
	PaymentID string
	Err       error
}

func (e VerificationError) Error() string {
	return fmt.Sprintf("verify payment %s: %v", e.PaymentID, e.Err)
}

func (e VerificationError) Unwrap() error { return e.Err }

// StatusCoder is implemented by errors carrying an HTTP status from the backend.
type StatusCoder interface {
	StatusCode() int
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsGateway(err error) bool {
	var target GatewayError
	return errors.As(err, &target)
}

// UserMessage converts any workflow error into the notification shown to the
// user. It never returns an empty string for a non-nil error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr VerificationError
	if errors.As(err, &verr) {
		return fmt.Sprintf("Payment could not be verified. Please contact support with payment ID %s.", verr.PaymentID)
	}
	if errors.Is(err, ErrVerificationAmbiguous) {
		return "Payment could not be verified. Please contact support."
	}

	var valErr ValidationError
	if errors.As(err, &valErr) {
		return valErr.Error()
	}

	var gwErr GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Description != "" {
			return "Payment failed: " + gwErr.Description
		}
		return "Payment failed. Please try again."
	}

	switch {
	case errors.Is(err, session.ErrNoToken), errors.Is(err, session.ErrExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrCheckoutUnavailable):
		return "Payment is unavailable right now. Please try again later."
	case errors.Is(err, ErrCheckoutInProgress):
		return "A payment for this booking is already in progress."
	case errors.Is(err, ErrCheckoutClosed):
		return "Payment was not completed. You can resume it from your bookings."
	case errors.Is(err, ErrNotPayable):
		return "This booking has nothing to pay at the moment."
	case errors.Is(err, ErrCancelNotAcknowledged):
		return "Please confirm that the advance payment will not be refunded."
	case errors.Is(err, ErrCancelNotAllowed):
		return "This booking can no longer be cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The server took too long to respond. Please try again."
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch code := sc.StatusCode(); {
		case code == 401 || code == 403:
			return "You are not allowed to do this. Please log in again."
		case code == 404:
			return "The booking could not be found."
		case code >= 400 && code < 500:
			var sm interface{ ServerMessage() string }
			if errors.As(err, &sm) && sm.ServerMessage() != "" {
				return sm.ServerMessage()
			}
			return "The request was rejected. Please check your input."
		}
	}

	return "Something went wrong. Please try again."
}
