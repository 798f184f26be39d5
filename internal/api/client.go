// Package api is the HTTP client for the marketplace REST backend. Every call
// is scoped to the caller's session: the role picks the path prefix and the
// token authorizes the request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"venuebook/internal/config"
	"venuebook/internal/domain"
	"venuebook/internal/metrics"
	"venuebook/internal/models"
	"venuebook/internal/session"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Error is a non-2xx answer from the backend.
type Error struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: http %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Endpoint, e.Status, e.Message)
}

func (e *Error) StatusCode() int       { return e.Status }
func (e *Error) ServerMessage() string { return e.Message }

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rateLimiter
	retry      RetryPolicy
	logger     *zerolog.Logger
	now        func() time.Time

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a backend client from config.
func NewClient(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    newRateLimiter(cfg.RateLimit),
		retry:      newRetryPolicy(cfg.Retry),
		logger:     logger,
		now:        time.Now,
	}
}

// UseRedisCache configures optional Redis caching for venue lookups.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

type verifyRequest struct {
	BookingID         string `json:"bookingId"`
	PaymentID         string `json:"paymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

// bookingEnvelope keeps Booking optional: the backend omits it on some
// failures while still answering 200.
type bookingEnvelope struct {
	Booking *models.Booking `json:"booking"`
	Message string          `json:"message,omitempty"`
}

type bookingsEnvelope struct {
	Bookings []models.Booking `json:"bookings"`
}

type venueEnvelope struct {
	Venue *models.Venue `json:"venue"`
}

func (c *Client) CreateBooking(ctx context.Context, s *session.Session, req models.BookingRequest) (*models.Booking, error) {
	var env bookingEnvelope
	if err := c.doJSON(ctx, s, "create_booking", http.MethodPost, "/bookings", req, &env); err != nil {
		return nil, err
	}
	return requireBooking(env)
}

func (c *Client) ListBookings(ctx context.Context, s *session.Session) ([]models.Booking, error) {
	var env bookingsEnvelope
	if err := c.doJSON(ctx, s, "list_bookings", http.MethodGet, "/bookings", nil, &env); err != nil {
		return nil, err
	}
	return env.Bookings, nil
}

func (c *Client) GetBooking(ctx context.Context, s *session.Session, bookingID string) (*models.Booking, error) {
	var env bookingEnvelope
	path := "/bookings/" + url.PathEscape(bookingID)
	if err := c.doJSON(ctx, s, "get_booking", http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return requireBooking(env)
}

// CreateOrder asks the backend for a gateway order for the phase and returns
// the updated booking carrying the new order id.
func (c *Client) CreateOrder(ctx context.Context, s *session.Session, bookingID string, phase models.PaymentPhase) (*models.Booking, error) {
	var (
		endpoint string
		path     = "/bookings/" + url.PathEscape(bookingID)
	)
	switch phase {
	case models.PhaseAdvance:
		endpoint, path = "create_advance_order", path+"/order"
	case models.PhaseBalance:
		endpoint, path = "create_balance_order", path+"/pay-balance"
	default:
		return nil, fmt.Errorf("unknown payment phase %q", phase)
	}

	var env bookingEnvelope
	if err := c.doJSON(ctx, s, endpoint, http.MethodPost, path, struct{}{}, &env); err != nil {
		return nil, err
	}
	return requireBooking(env)
}

// VerifyPayment submits the gateway's signed confirmation. The returned
// booking is nil when the backend answered without one; deciding what that
// means is the caller's job.
func (c *Client) VerifyPayment(ctx context.Context, s *session.Session, attempt models.PaymentAttempt) (*models.Booking, error) {
	var endpoint, path string
	switch attempt.Phase {
	case models.PhaseAdvance:
		endpoint, path = "verify_advance", "/bookings/verify"
	case models.PhaseBalance:
		endpoint, path = "verify_balance", "/bookings/verify-balance"
	default:
		return nil, fmt.Errorf("unknown payment phase %q", attempt.Phase)
	}

	body := verifyRequest{
		BookingID:         attempt.BookingID,
		PaymentID:         attempt.PaymentID,
		RazorpaySignature: attempt.Signature,
	}
	var env bookingEnvelope
	if err := c.doJSON(ctx, s, endpoint, http.MethodPatch, path, body, &env); err != nil {
		return nil, err
	}
	return env.Booking, nil
}

func (c *Client) CancelBooking(ctx context.Context, s *session.Session, bookingID string) error {
	path := "/bookings/" + url.PathEscape(bookingID) + "/cancel"
	return c.doJSON(ctx, s, "cancel_booking", http.MethodPatch, path, struct{}{}, nil)
}

func (c *Client) GetVenue(ctx context.Context, s *session.Session, venueID string) (*models.Venue, error) {
	cacheKey := fmt.Sprintf("venue:%s", venueID)
	var venue models.Venue
	if c.readCache(ctx, cacheKey, &venue) {
		return &venue, nil
	}

	var env venueEnvelope
	path := "/venues/" + url.PathEscape(venueID)
	if err := c.doJSON(ctx, s, "get_venue", http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	if env.Venue == nil || env.Venue.ID == "" {
		return nil, &Error{Endpoint: "get_venue", Status: http.StatusNotFound, Message: "venue not found"}
	}
	c.writeCache(ctx, cacheKey, env.Venue)
	return env.Venue, nil
}

func requireBooking(env bookingEnvelope) (*models.Booking, error) {
	if env.Booking == nil || env.Booking.ID == "" {
		return nil, domain.ErrMissingBooking
	}
	return env.Booking, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("venue cache write failed")
	}
}

// doJSON performs one backend call. GET requests are retried with backoff on
// transport errors and 429/5xx replies; everything else is sent once.
func (c *Client) doJSON(ctx context.Context, s *session.Session, endpoint, method, path string, body, out any) error {
	if err := s.Validate(c.now()); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", endpoint, err)
		}
		payload = data
	}

	for attempt := 0; ; attempt++ {
		transient, err := c.doOnce(ctx, s, endpoint, method, path, payload, out)
		if !c.retry.Retry(method, attempt, transient, err) {
			return err
		}

		delay := c.retry.Backoff(attempt + 1)
		c.logger.Debug().Err(err).Str("endpoint", endpoint).Int("attempt", attempt+1).Dur("delay", delay).Msg("retrying backend request")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func (c *Client) doOnce(ctx context.Context, s *session.Session, endpoint, method, path string, payload []byte, out any) (bool, error) {
	if err := c.limiter.wait(ctx, s.UserID); err != nil {
		return false, fmt.Errorf("%s: rate limit: %w", endpoint, err)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+s.BasePath()+path, reader)
	if err != nil {
		return false, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", s.AuthorizationHeader())
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncAPI(endpoint, "error")
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Str("request_id", requestID).Msg("backend request failed")
		return ctx.Err() == nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	metrics.IncAPI(endpoint, strconv.Itoa(resp.StatusCode))
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("backend request")

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return true, fmt.Errorf("%s: read body: %w", endpoint, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &Error{Endpoint: endpoint, Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Message
			if apiErr.Message == "" {
				apiErr.Message = msg.Error
			}
		}
		return false, apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return false, nil
}
