package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venuebook/internal/checkout"
	"venuebook/internal/domain"
	"venuebook/internal/events"
	"venuebook/internal/metrics"
	"venuebook/internal/models"
	"venuebook/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type PaymentConfig struct {
	KeyID        string
	Currency     string
	MerchantName string
	SlotTTL      time.Duration
}

// PaymentService runs one payment session for either phase: order id,
// overlay, gateway outcome, verification.
type PaymentService struct {
	backend  domain.Backend
	checkout domain.CheckoutProvider
	slots    domain.SlotRepository
	journal  domain.PaymentJournal
	verifier *PaymentVerifier
	eventBus domain.EventPublisher
	cfg      PaymentConfig
	logger   *zerolog.Logger
	newID    func() string
}

func NewPaymentService(
	backend domain.Backend,
	provider domain.CheckoutProvider,
	slots domain.SlotRepository,
	journal domain.PaymentJournal,
	eventBus domain.EventPublisher,
	cfg PaymentConfig,
	logger *zerolog.Logger,
) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = models.CurrencyINR
	}
	if cfg.SlotTTL <= 0 {
		cfg.SlotTTL = models.CheckoutSlotTTL * time.Second
	}
	return &PaymentService{
		backend:  backend,
		checkout: provider,
		slots:    slots,
		journal:  journal,
		verifier: NewPaymentVerifier(backend, logger),
		eventBus: eventBus,
		cfg:      cfg,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Prepare loads the booking, checks the phase is payable and makes sure a
// gateway order exists for it. An order id already on the booking is reused
// so that repeated sessions never create a second order.
func (s *PaymentService) Prepare(ctx context.Context, sess *session.Session, bookingID string, phase models.PaymentPhase) (*models.Booking, string, error) {
	if bookingID == "" {
		return nil, "", domain.ValidationError{Field: "booking", Msg: "is required"}
	}
	if !phase.Valid() {
		return nil, "", domain.ValidationError{Field: "phase", Msg: fmt.Sprintf("unknown phase %q", phase)}
	}

	booking, err := s.backend.GetBooking(ctx, sess, bookingID)
	if err != nil {
		return nil, "", fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if !booking.Payable(phase) {
		return nil, "", fmt.Errorf("%s payment for booking %s (%s): %w", phase, bookingID, booking.Status, domain.ErrNotPayable)
	}

	if orderID, ok := booking.OrderIDFor(phase); ok {
		metrics.IncOrder(string(phase), "reused")
		s.logger.Debug().Str("booking_id", bookingID).Str("order_id", orderID).Msg("reusing gateway order")
		return booking, orderID, nil
	}

	updated, err := s.backend.CreateOrder(ctx, sess, bookingID, phase)
	if err != nil {
		return nil, "", fmt.Errorf("create %s order for booking %s: %w", phase, bookingID, err)
	}
	orderID, ok := updated.OrderIDFor(phase)
	if !ok {
		return nil, "", fmt.Errorf("booking %s: %w", bookingID, domain.ErrMissingOrderID)
	}
	metrics.IncOrder(string(phase), "created")
	s.logger.Info().Str("booking_id", bookingID).Str("phase", string(phase)).Str("order_id", orderID).Msg("gateway order created")

	if updated.AmountFor(phase) <= 0 {
		// ответ без сумм: берем их из исходной брони
		merged := *booking
		merged.RazorpayOrderID = updated.RazorpayOrderID
		merged.RazorpayBalanceOrderID = updated.RazorpayBalanceOrderID
		return &merged, orderID, nil
	}
	return updated, orderID, nil
}

type overlayOutcome struct {
	response  *checkout.Response
	failure   *checkout.Failure
	dismissed bool
}

// Start runs a payment session to a terminal state. Errors raised before the
// overlay opens come back with a nil result. Once the session exists the
// result is always returned, with status success or failed; a failed result
// is accompanied by the error that caused it.
//
// Cancelling ctx is the view going away: the overlay is closed, the slot is
// freed and the gateway order stays on the booking for the next session.
// The overlay is also closed when the slot TTL runs out, before another
// session can claim the slot.
func (s *PaymentService) Start(ctx context.Context, sess *session.Session, bookingID string, phase models.PaymentPhase) (*models.PaymentResult, error) {
	booking, orderID, err := s.Prepare(ctx, sess, bookingID, phase)
	if err != nil {
		return nil, err
	}

	sessionID := s.newID()
	// the overlay may stay open only while the slot is ours
	holdCtx, cancelHold := context.WithDeadline(ctx, time.Now().Add(s.cfg.SlotTTL))
	defer cancelHold()
	claimed, err := s.slots.ClaimSlot(ctx, bookingID, sessionID, s.cfg.SlotTTL)
	if err != nil {
		return nil, fmt.Errorf("claim checkout slot: %w", err)
	}
	if !claimed {
		return nil, domain.ErrCheckoutInProgress
	}
	defer func() {
		if err := s.slots.ReleaseSlot(context.WithoutCancel(ctx), bookingID, sessionID); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("release checkout slot")
		}
	}()

	lease, err := s.checkout.Acquire(holdCtx)
	if err != nil {
		s.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("checkout unavailable")
		return nil, err
	}
	defer lease.Release()

	amount := booking.AmountFor(phase)
	entry := &models.JournalEntry{
		SessionID:   sessionID,
		BookingID:   bookingID,
		Phase:       phase,
		OrderID:     orderID,
		AmountMinor: models.MinorUnits(amount),
		Currency:    s.cfg.Currency,
		Status:      models.PaymentPending,
	}
	s.startJournal(ctx, entry)

	outcomes := make(chan overlayOutcome, 1)
	deliver := func(o overlayOutcome) {
		select {
		case outcomes <- o:
		default:
		}
	}

	opts := checkout.Options{
		Key:         s.cfg.KeyID,
		Amount:      entry.AmountMinor,
		Currency:    s.cfg.Currency,
		OrderID:     orderID,
		Name:        s.cfg.MerchantName,
		Description: describe(booking, phase),
		Prefill:     checkout.Prefill{Name: sess.Name, Email: sess.Email},
		Notes: map[string]string{
			"booking_id": bookingID,
			"phase":      string(phase),
			"session_id": sessionID,
		},
		Handler:   func(r checkout.Response) { deliver(overlayOutcome{response: &r}) },
		OnFailure: func(f checkout.Failure) { deliver(overlayOutcome{failure: &f}) },
		OnDismiss: func() { deliver(overlayOutcome{dismissed: true}) },
	}

	result := &models.PaymentResult{
		SessionID: sessionID,
		BookingID: bookingID,
		Phase:     phase,
		Status:    models.PaymentPending,
	}

	if err := lease.Open(holdCtx, opts); err != nil {
		return s.fail(ctx, entry, result, err)
	}
	s.logger.Info().
		Str("session_id", sessionID).
		Str("booking_id", bookingID).
		Str("phase", string(phase)).
		Int64("amount_minor", entry.AmountMinor).
		Msg("checkout opened")

	var outcome overlayOutcome
	select {
	case outcome = <-outcomes:
	case <-holdCtx.Done():
		_ = lease.Close()
		if ctx.Err() == nil {
			return s.fail(ctx, entry, result, fmt.Errorf("%w: checkout slot expired after %s", domain.ErrCheckoutClosed, s.cfg.SlotTTL))
		}
		return s.fail(ctx, entry, result, fmt.Errorf("%w: %v", domain.ErrCheckoutClosed, ctx.Err()))
	}
	_ = lease.Close()

	switch {
	case outcome.failure != nil:
		gwErr := domain.GatewayError{Code: outcome.failure.Error.Code, Description: outcome.failure.Error.Description}
		return s.fail(ctx, entry, result, gwErr)
	case outcome.dismissed:
		return s.fail(ctx, entry, result, domain.ErrCheckoutClosed)
	}

	resp := outcome.response
	if resp.OrderID != "" && resp.OrderID != orderID {
		s.logger.Warn().Str("expected", orderID).Str("got", resp.OrderID).Msg("gateway answered for a different order")
	}
	attempt := models.PaymentAttempt{
		BookingID: bookingID,
		Phase:     phase,
		OrderID:   orderID,
		PaymentID: resp.PaymentID,
		Signature: resp.Signature,
	}
	result.PaymentID = resp.PaymentID

	verified, err := s.verifier.Verify(ctx, sess, attempt, booking)
	if err != nil {
		return s.fail(ctx, entry, result, err)
	}

	result.Status = verified.Status
	result.Booking = verified.Booking
	s.finish(ctx, entry, result, "")
	return result, nil
}

func (s *PaymentService) fail(ctx context.Context, entry *models.JournalEntry, result *models.PaymentResult, err error) (*models.PaymentResult, error) {
	result.Status = models.PaymentFailed
	result.Message = domain.UserMessage(err)

	var gwErr domain.GatewayError
	switch {
	case errors.As(err, &gwErr):
		s.logger.Warn().Str("session_id", entry.SessionID).Str("code", gwErr.Code).Str("reason", gwErr.Description).Msg("gateway reported payment failure")
	case errors.Is(err, domain.ErrCheckoutClosed):
		s.logger.Info().Str("session_id", entry.SessionID).Msg("checkout closed before payment")
	default:
		s.logger.Error().Err(err).Str("session_id", entry.SessionID).Msg("payment session failed")
	}

	s.finish(ctx, entry, result, err.Error())
	return result, err
}

func (s *PaymentService) finish(ctx context.Context, entry *models.JournalEntry, result *models.PaymentResult, errMsg string) {
	metrics.IncPaymentSession(string(entry.Phase), string(result.Status))

	if s.journal != nil {
		if err := s.journal.FinishSession(context.WithoutCancel(ctx), entry.SessionID, result.Status, result.PaymentID, errMsg); err != nil {
			s.logger.Warn().Err(err).Str("session_id", entry.SessionID).Msg("journal finish failed")
		}
	}

	eventType := events.EventPaymentSucceeded
	if result.Status == models.PaymentFailed {
		eventType = events.EventPaymentFailed
	}
	s.publish(eventType, events.PaymentEventPayload{
		SessionID:   entry.SessionID,
		BookingID:   entry.BookingID,
		Phase:       entry.Phase,
		OrderID:     entry.OrderID,
		AmountMinor: entry.AmountMinor,
		Status:      result.Status,
		PaymentID:   result.PaymentID,
		Error:       errMsg,
	})
}

func (s *PaymentService) startJournal(ctx context.Context, entry *models.JournalEntry) {
	if s.journal != nil {
		if err := s.journal.StartSession(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("session_id", entry.SessionID).Msg("journal start failed")
		}
	}
	s.publish(events.EventPaymentSessionStarted, events.PaymentEventPayload{
		SessionID:   entry.SessionID,
		BookingID:   entry.BookingID,
		Phase:       entry.Phase,
		OrderID:     entry.OrderID,
		AmountMinor: entry.AmountMinor,
		Status:      models.PaymentPending,
	})
}

func (s *PaymentService) publish(eventType string, payload events.PaymentEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

// History returns the journal entries of the booking, newest first.
func (s *PaymentService) History(ctx context.Context, bookingID string) ([]models.JournalEntry, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.GetSessions(ctx, bookingID)
}

func describe(b *models.Booking, phase models.PaymentPhase) string {
	label := "Advance"
	if phase == models.PhaseBalance {
		label = "Balance"
	}
	venue := b.Venue.Name
	if venue == "" {
		return fmt.Sprintf("%s payment for booking %s", label, b.ID)
	}
	return fmt.Sprintf("%s payment for %s", label, venue)
}
