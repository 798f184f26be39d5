package repository

import (
	"context"
	"sync"
	"time"
)

type slotEntry struct {
	owner     string
	expiresAt time.Time
}

// MemorySlotRepository is the in-process slot store used when Redis is not
// configured or unreachable.
type MemorySlotRepository struct {
	mu    sync.Mutex
	slots map[string]slotEntry
	now   func() time.Time
}

func NewMemorySlotRepository() *MemorySlotRepository {
	return &MemorySlotRepository{
		slots: make(map[string]slotEntry),
		now:   time.Now,
	}
}

func (r *MemorySlotRepository) ClaimSlot(ctx context.Context, bookingID, sessionID string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)
	if _, ok := r.slots[bookingID]; ok {
		return false, nil
	}
	r.slots[bookingID] = slotEntry{owner: sessionID, expiresAt: now.Add(ttl)}
	return true, nil
}

func (r *MemorySlotRepository) ReleaseSlot(ctx context.Context, bookingID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.slots[bookingID]; ok && entry.owner == sessionID {
		delete(r.slots, bookingID)
	}
	return nil
}

// sweepLocked drops expired slots. Callers hold r.mu.
func (r *MemorySlotRepository) sweepLocked(now time.Time) {
	for id, entry := range r.slots {
		if !now.Before(entry.expiresAt) {
			delete(r.slots, id)
		}
	}
}
