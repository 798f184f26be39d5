// Package checkout integrates the gateway's hosted checkout overlay: the
// shared script loader with its ready gate, per-view leases and the overlay
// options contract.
package checkout

import (
	"context"
	"errors"
)

var (
	ErrUnavailable = errors.New("checkout is unavailable")
	ErrAlreadyOpen = errors.New("checkout overlay is already open")
	ErrReleased    = errors.New("checkout lease already released")
)

// Options mirrors the gateway checkout configuration. Amount is in minor
// currency units.
type Options struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	OrderID     string            `json:"order_id"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`

	Handler   func(Response) `json:"-"`
	OnFailure func(Failure)  `json:"-"`
	OnDismiss func()         `json:"-"`
}

type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Response is the payload passed to the success handler.
type Response struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

// Failure is the payload of the payment.failed event.
type Failure struct {
	Error FailureDetail `json:"error"`
}

type FailureDetail struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

// Overlay is one checkout instance. Open must not block until payment
// completes; results are delivered through the Options callbacks.
type Overlay interface {
	Open(ctx context.Context) error
	Close() error
}

// Constructor creates an overlay for the options once the script is ready.
type Constructor func(opts Options) (Overlay, error)

// ScriptSource loads the gateway's checkout script.
type ScriptSource interface {
	Load(ctx context.Context) error
}

// ScriptSourceFunc adapts a function to ScriptSource.
type ScriptSourceFunc func(ctx context.Context) error

func (f ScriptSourceFunc) Load(ctx context.Context) error { return f(ctx) }
