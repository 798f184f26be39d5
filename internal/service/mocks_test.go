package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"venuebook/internal/checkout"
	"venuebook/internal/models"
	"venuebook/internal/session"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) CreateBooking(ctx context.Context, s *session.Session, req models.BookingRequest) (*models.Booking, error) {
	args := m.Called(ctx, s, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBackend) ListBookings(ctx context.Context, s *session.Session) ([]models.Booking, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBackend) GetBooking(ctx context.Context, s *session.Session, id string) (*models.Booking, error) {
	args := m.Called(ctx, s, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBackend) CreateOrder(ctx context.Context, s *session.Session, id string, phase models.PaymentPhase) (*models.Booking, error) {
	args := m.Called(ctx, s, id, phase)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBackend) VerifyPayment(ctx context.Context, s *session.Session, attempt models.PaymentAttempt) (*models.Booking, error) {
	args := m.Called(ctx, s, attempt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBackend) CancelBooking(ctx context.Context, s *session.Session, id string) error {
	return m.Called(ctx, s, id).Error(0)
}

func (m *mockBackend) GetVenue(ctx context.Context, s *session.Session, id string) (*models.Venue, error) {
	args := m.Called(ctx, s, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *mockPublisher) PublishJSON(eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *mockPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// scriptedOverlay plays the gateway: once opened it runs the script with
// the options the service built.
type scriptedOverlay struct {
	opts   checkout.Options
	script func(opts checkout.Options)
	closed atomic.Bool
}

func (o *scriptedOverlay) Open(ctx context.Context) error {
	if o.script != nil {
		go o.script(o.opts)
	}
	return nil
}

func (o *scriptedOverlay) Close() error {
	o.closed.Store(true)
	return nil
}

type overlayRecorder struct {
	mu       sync.Mutex
	overlays []*scriptedOverlay
	script   func(opts checkout.Options)
	maxOpen  int
}

func (r *overlayRecorder) construct(opts checkout.Options) (checkout.Overlay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := &scriptedOverlay{opts: opts, script: r.script}
	r.overlays = append(r.overlays, o)

	open := 0
	for _, existing := range r.overlays {
		if !existing.closed.Load() {
			open++
		}
	}
	if open > r.maxOpen {
		r.maxOpen = open
	}
	return o, nil
}

// peakOpen is the largest number of overlays open at the same time.
func (r *overlayRecorder) peakOpen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxOpen
}

func (r *overlayRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.overlays)
}

func (r *overlayRecorder) last() *scriptedOverlay {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.overlays) == 0 {
		return nil
	}
	return r.overlays[len(r.overlays)-1]
}

func newLoader(t *testing.T, rec *overlayRecorder, loadErr error) *checkout.Loader {
	t.Helper()
	logger := zerolog.Nop()
	source := checkout.ScriptSourceFunc(func(context.Context) error { return loadErr })
	return checkout.NewLoader(source, rec.construct, time.Second, &logger)
}

func testSession() *session.Session {
	return &session.Session{Token: "tok", UserID: "u1", Name: "Asha", Email: "asha@example.com", Role: session.RoleUser}
}
