// Package events is the in-process bus that fans workflow outcomes out to
// the audit log and, when Redis is configured, to a shared stream.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"venuebook/internal/models"
)

const (
	EventBookingCreated        = "booking_created"
	EventBookingCancelled      = "booking_cancelled"
	EventPaymentSessionStarted = "payment_session_started"
	EventPaymentSucceeded      = "payment_succeeded"
	EventPaymentFailed         = "payment_failed"

	// Wildcard subscribers receive every event type.
	Wildcard = "*"
)

// BookingEventPayload is the booking snapshot published on create and cancel.
type BookingEventPayload struct {
	BookingID   string               `json:"booking_id"`
	VenueID     string               `json:"venue_id,omitempty"`
	VenueName   string               `json:"venue_name,omitempty"`
	UserID      string               `json:"user_id,omitempty"`
	Status      models.BookingStatus `json:"status"`
	StartDate   time.Time            `json:"start_date"`
	EndDate     time.Time            `json:"end_date"`
	TotalPrice  float64              `json:"total_price"`
	ChangedBy   string               `json:"changed_by,omitempty"`
	ChangedRole string               `json:"changed_role,omitempty"`
}

// PaymentEventPayload describes one payment session transition.
type PaymentEventPayload struct {
	SessionID   string               `json:"session_id"`
	BookingID   string               `json:"booking_id"`
	Phase       models.PaymentPhase  `json:"phase"`
	OrderID     string               `json:"order_id,omitempty"`
	AmountMinor int64                `json:"amount_minor,omitempty"`
	Status      models.PaymentStatus `json:"status"`
	PaymentID   string               `json:"payment_id,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// NewBookingPayload snapshots a booking for event consumers.
func NewBookingPayload(b *models.Booking) BookingEventPayload {
	return BookingEventPayload{
		BookingID:  b.ID,
		VenueID:    b.Venue.ID,
		VenueName:  b.Venue.Name,
		UserID:     b.User.ID,
		Status:     b.Status,
		StartDate:  b.StartDate,
		EndDate:    b.EndDate,
		TotalPrice: b.TotalPrice,
	}
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// ErrorHandler is told about handlers that failed.
type ErrorHandler func(event *Event, err error)

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	onError     ErrorHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError installs the callback for failing handlers.
func (b *EventBus) OnError(h ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = h
}

// Subscribe registers a handler for a given event type or Wildcard.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type, then wildcard subscribers.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	if event.Type != Wildcard {
		handlers = append(handlers, b.subscribers[Wildcard]...)
	}
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	// Handlers run synchronously; caller decides concurrency model.
	for _, handler := range handlers {
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
