package service

import (
	"context"
	"fmt"
	"time"

	"venuebook/internal/domain"
	"venuebook/internal/events"
	"venuebook/internal/models"
	"venuebook/internal/session"

	"github.com/rs/zerolog"
)

// CancelNotice must be shown, and acknowledged, before a booking is cancelled.
const CancelNotice = "Cancellation is irreversible and the advance payment will not be refunded."

type BookingService struct {
	backend  domain.Backend
	eventBus domain.EventPublisher
	location *time.Location
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewBookingService(backend domain.Backend, eventBus domain.EventPublisher, location *time.Location, logger *zerolog.Logger) *BookingService {
	if location == nil {
		location = time.Local
	}
	return &BookingService{
		backend:  backend,
		eventBus: eventBus,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *BookingService) day(t time.Time) time.Time {
	t = t.In(s.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.location)
}

// ValidateDates checks the range before anything is sent to the backend.
func (s *BookingService) ValidateDates(start, end time.Time) error {
	if start.IsZero() {
		return domain.ValidationError{Field: "start_date", Msg: "is required"}
	}
	if end.IsZero() {
		return domain.ValidationError{Field: "end_date", Msg: "is required"}
	}
	// Проверяем, что дата не в прошлом
	if s.day(start).Before(s.day(s.now())) {
		return domain.ValidationError{Field: "start_date", Msg: "must be today or later"}
	}
	if end.Before(start) {
		return domain.ValidationError{Field: "end_date", Msg: "must not be before start date"}
	}
	return nil
}

// Quote prices the stay after validating the venue and the dates.
func (s *BookingService) Quote(venue *models.Venue, start, end time.Time) (models.Quote, error) {
	if venue == nil || venue.ID == "" {
		return models.Quote{}, domain.ValidationError{Field: "venue", Msg: "is required"}
	}
	if venue.PricePerDay <= 0 {
		return models.Quote{}, domain.ValidationError{Field: "venue", Msg: "has no daily price"}
	}
	if err := s.ValidateDates(start, end); err != nil {
		return models.Quote{}, err
	}
	return models.NewQuote(*venue, start, end), nil
}

// QuoteVenue fetches the venue and prices the stay.
func (s *BookingService) QuoteVenue(ctx context.Context, sess *session.Session, venueID string, start, end time.Time) (*models.Venue, models.Quote, error) {
	if venueID == "" {
		return nil, models.Quote{}, domain.ValidationError{Field: "venue", Msg: "is required"}
	}
	if err := s.ValidateDates(start, end); err != nil {
		return nil, models.Quote{}, err
	}
	venue, err := s.backend.GetVenue(ctx, sess, venueID)
	if err != nil {
		return nil, models.Quote{}, fmt.Errorf("load venue %s: %w", venueID, err)
	}
	quote, err := s.Quote(venue, start, end)
	return venue, quote, err
}

// CreateIntent submits the booking. The returned booking is pending and is
// the input of the advance payment session.
func (s *BookingService) CreateIntent(ctx context.Context, sess *session.Session, venue *models.Venue, start, end time.Time) (*models.Booking, error) {
	quote, err := s.Quote(venue, start, end)
	if err != nil {
		return nil, err
	}

	booking, err := s.backend.CreateBooking(ctx, sess, quote.Request())
	if err != nil {
		s.logger.Warn().Err(err).Str("venue_id", venue.ID).Msg("create booking failed")
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("venue_id", venue.ID).
		Int("days", quote.Days).
		Float64("total", quote.TotalPrice).
		Msg("booking created")

	if booking.Venue.ID == "" {
		booking.Venue = models.Ref{ID: venue.ID, Name: venue.Name}
	}
	s.publishEvent(events.EventBookingCreated, booking, sess)
	return booking, nil
}

func (s *BookingService) ListBookings(ctx context.Context, sess *session.Session) ([]models.Booking, error) {
	bookings, err := s.backend.ListBookings(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) GetBooking(ctx context.Context, sess *session.Session, bookingID string) (*models.Booking, error) {
	if bookingID == "" {
		return nil, domain.ValidationError{Field: "booking", Msg: "is required"}
	}
	booking, err := s.backend.GetBooking(ctx, sess, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", bookingID, err)
	}
	return booking, nil
}

// Cancel cancels the booking and returns the re-fetched booking list. The
// passed booking is left untouched; the server's list is the only source of
// the new state.
func (s *BookingService) Cancel(ctx context.Context, sess *session.Session, booking *models.Booking, acknowledged bool) ([]models.Booking, error) {
	if booking == nil || booking.ID == "" {
		return nil, domain.ValidationError{Field: "booking", Msg: "is required"}
	}
	if !CanCancel(booking) {
		return nil, fmt.Errorf("booking %s is %s: %w", booking.ID, booking.Status, domain.ErrCancelNotAllowed)
	}
	if !acknowledged {
		return nil, domain.ErrCancelNotAcknowledged
	}

	if err := s.backend.CancelBooking(ctx, sess, booking.ID); err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", booking.ID, err)
	}
	s.logger.Info().Str("booking_id", booking.ID).Str("previous_status", string(booking.Status)).Msg("booking cancelled")

	bookings, err := s.backend.ListBookings(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("refresh bookings after cancel: %w", err)
	}

	cancelled := booking
	for i := range bookings {
		if bookings[i].ID == booking.ID {
			cancelled = &bookings[i]
			break
		}
	}
	s.publishEvent(events.EventBookingCancelled, cancelled, sess)
	return bookings, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, sess *session.Session) {
	if s.eventBus == nil {
		return
	}

	payload := events.NewBookingPayload(booking)
	if sess != nil {
		payload.ChangedBy = sess.UserID
		payload.ChangedRole = string(sess.Role)
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}
