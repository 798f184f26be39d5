package repository

import (
	"context"
	"sync/atomic"
	"time"

	"venuebook/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSlotRepository prefers the shared store and degrades to the local
// one while it is down, probing the primary again once a minute.
type FailoverSlotRepository struct {
	primary   domain.SlotRepository
	fallback  domain.SlotRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverSlotRepository(primary, fallback domain.SlotRepository, logger *zerolog.Logger) *FailoverSlotRepository {
	return &FailoverSlotRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverSlotRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary slot repository failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverSlotRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	return r.now().Sub(last) > recoveryInterval
}

func (r *FailoverSlotRepository) ClaimSlot(ctx context.Context, bookingID, sessionID string, ttl time.Duration) (bool, error) {
	if r.usePrimary() {
		ok, err := r.primary.ClaimSlot(ctx, bookingID, sessionID, ttl)
		if err == nil {
			if r.isDown.Swap(false) {
				r.logger.Info().Msg("Primary slot repository recovered")
			}
			return ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.ClaimSlot(ctx, bookingID, sessionID, ttl)
}

// ReleaseSlot frees the slot in both stores: it may have been claimed on
// either side of an outage.
func (r *FailoverSlotRepository) ReleaseSlot(ctx context.Context, bookingID, sessionID string) error {
	if !r.isDown.Load() {
		if err := r.primary.ReleaseSlot(ctx, bookingID, sessionID); err != nil {
			r.markDown(err)
		}
	}
	return r.fallback.ReleaseSlot(ctx, bookingID, sessionID)
}
