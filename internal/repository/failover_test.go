package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSlots struct {
	mock.Mock
}

func (m *mockSlots) ClaimSlot(ctx context.Context, bookingID, sessionID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, bookingID, sessionID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockSlots) ReleaseSlot(ctx context.Context, bookingID, sessionID string) error {
	args := m.Called(ctx, bookingID, sessionID)
	return args.Error(0)
}

func TestFailoverSlotRepository(t *testing.T) {
	primary := new(mockSlots)
	fallback := new(mockSlots)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSlotRepository(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("ClaimSlot", ctx, "b1", "s1", time.Minute).Return(true, nil).Once()

		ok, err := repo.ClaimSlot(ctx, "b1", "s1", time.Minute)
		assert.NoError(t, err)
		assert.True(t, ok)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("ClaimSlot", ctx, "b2", "s1", time.Minute).Return(false, errors.New("fail")).Once()
		fallback.On("ClaimSlot", ctx, "b2", "s1", time.Minute).Return(true, nil).Once()

		ok, err := repo.ClaimSlot(ctx, "b2", "s1", time.Minute)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DownSkipsPrimary", func(t *testing.T) {
		fallback.On("ClaimSlot", ctx, "b3", "s1", time.Minute).Return(false, nil).Once()

		ok, err := repo.ClaimSlot(ctx, "b3", "s1", time.Minute)
		assert.NoError(t, err)
		assert.False(t, ok)
		primary.AssertNotCalled(t, "ClaimSlot", ctx, "b3", "s1", time.Minute)
	})

	t.Run("ReleaseWhileDownUsesFallbackOnly", func(t *testing.T) {
		fallback.On("ReleaseSlot", ctx, "b2", "s1").Return(nil).Once()

		assert.NoError(t, repo.ReleaseSlot(ctx, "b2", "s1"))
		primary.AssertNotCalled(t, "ReleaseSlot", ctx, "b2", "s1")
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("ClaimSlot", ctx, "b4", "s1", time.Minute).Return(true, nil).Once()

		ok, err := repo.ClaimSlot(ctx, "b4", "s1", time.Minute)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("ClaimSlot", ctx, "b5", "s1", time.Minute).Return(false, errors.New("still fail")).Once()
		fallback.On("ClaimSlot", ctx, "b5", "s1", time.Minute).Return(true, nil).Once()

		_, err := repo.ClaimSlot(ctx, "b5", "s1", time.Minute)
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("ReleaseBothWhenUp", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("ReleaseSlot", ctx, "b6", "s1").Return(nil).Once()
		fallback.On("ReleaseSlot", ctx, "b6", "s1").Return(nil).Once()

		assert.NoError(t, repo.ReleaseSlot(ctx, "b6", "s1"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("ReleasePrimaryFailMarksDown", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("ReleaseSlot", ctx, "b7", "s1").Return(errors.New("fail")).Once()
		fallback.On("ReleaseSlot", ctx, "b7", "s1").Return(nil).Once()

		assert.NoError(t, repo.ReleaseSlot(ctx, "b7", "s1"))
		assert.True(t, repo.isDown.Load())
	})
}

func TestFailoverSlotRepository_WithRealStores(t *testing.T) {
	s, primary := setupRedis(t)
	fallback := NewMemorySlotRepository()
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSlotRepository(primary, fallback, &logger)
	ctx := context.Background()

	ok, err := repo.ClaimSlot(ctx, "b1", "s1", time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, s.Exists("checkout_slot:b1"))

	s.Close()
	ok, err = repo.ClaimSlot(ctx, "b2", "s1", time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, repo.isDown.Load())

	ok, _ = repo.ClaimSlot(ctx, "b2", "s2", time.Minute)
	assert.False(t, ok)
	assert.NoError(t, repo.ReleaseSlot(ctx, "b2", "s1"))
}
