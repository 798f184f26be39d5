package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"venuebook/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(sessionID, bookingID string, phase models.PaymentPhase) *models.JournalEntry {
	return &models.JournalEntry{
		SessionID:   sessionID,
		BookingID:   bookingID,
		Phase:       phase,
		OrderID:     "order_" + sessionID,
		AmountMinor: 400000,
		Currency:    models.CurrencyINR,
	}
}

func TestJournal_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entry := newEntry("s1", "b1", models.PhaseAdvance)
	require.NoError(t, db.StartSession(ctx, entry))
	assert.Equal(t, models.PaymentPending, entry.Status)
	assert.False(t, entry.CreatedAt.IsZero())

	sessions, err := db.GetSessions(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.PaymentPending, sessions[0].Status)
	assert.Equal(t, int64(400000), sessions[0].AmountMinor)
	assert.Nil(t, sessions[0].PaymentID)
	assert.Nil(t, sessions[0].LastError)

	require.NoError(t, db.FinishSession(ctx, "s1", models.PaymentSuccess, "pay_1", ""))

	sessions, err = db.GetSessions(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.PaymentSuccess, sessions[0].Status)
	require.NotNil(t, sessions[0].PaymentID)
	assert.Equal(t, "pay_1", *sessions[0].PaymentID)
	assert.Nil(t, sessions[0].LastError)
}

func TestJournal_TerminalIsFinal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.StartSession(ctx, newEntry("s1", "b1", models.PhaseBalance)))
	require.NoError(t, db.FinishSession(ctx, "s1", models.PaymentFailed, "pay_1", "verification response has no booking"))

	err := db.FinishSession(ctx, "s1", models.PaymentSuccess, "pay_1", "")
	assert.ErrorIs(t, err, ErrSessionNotPending)

	err = db.FinishSession(ctx, "missing", models.PaymentSuccess, "", "")
	assert.ErrorIs(t, err, ErrSessionNotPending)

	assert.Error(t, db.FinishSession(ctx, "s1", models.PaymentPending, "", ""))

	sessions, err := db.GetSessions(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.PaymentFailed, sessions[0].Status)
	require.NotNil(t, sessions[0].LastError)
	assert.Equal(t, "verification response has no booking", *sessions[0].LastError)
}

func TestJournal_DuplicateSession(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.StartSession(ctx, newEntry("s1", "b1", models.PhaseAdvance)))
	assert.Error(t, db.StartSession(ctx, newEntry("s1", "b1", models.PhaseAdvance)))
}

func TestJournal_Queries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.StartSession(ctx, newEntry("s1", "b1", models.PhaseAdvance)))
	require.NoError(t, db.StartSession(ctx, newEntry("s2", "b2", models.PhaseAdvance)))
	require.NoError(t, db.StartSession(ctx, newEntry("s3", "b1", models.PhaseBalance)))

	sessions, err := db.GetSessions(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s3", sessions[0].SessionID)
	assert.Equal(t, "s1", sessions[1].SessionID)

	none, err := db.GetSessions(ctx, "b404")
	require.NoError(t, err)
	assert.Empty(t, none)

	recent, err := db.RecentSessions(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestJournal_ExpireStale(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.StartSession(ctx, newEntry("s1", "b1", models.PhaseAdvance)))
	require.NoError(t, db.StartSession(ctx, newEntry("s2", "b2", models.PhaseAdvance)))
	require.NoError(t, db.FinishSession(ctx, "s2", models.PaymentSuccess, "pay_2", ""))

	n, err := db.ExpireStale(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = db.ExpireStale(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sessions, err := db.GetSessions(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, sessions[0].Status)

	sessions, err = db.GetSessions(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, sessions[0].Status)
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	logger := zerolog.Nop()
	return &DB{DB: sqlDB, logger: &logger}, mock
}

func TestJournal_ErrorPaths(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	t.Run("StartSession", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO payment_sessions").WillReturnError(boom)

		err := db.StartSession(ctx, newEntry("s1", "b1", models.PhaseAdvance))
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FinishSession", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("UPDATE payment_sessions").WillReturnError(boom)

		err := db.FinishSession(ctx, "s1", models.PaymentSuccess, "pay_1", "")
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FinishSessionRowsAffected", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("UPDATE payment_sessions").WillReturnResult(sqlmock.NewErrorResult(boom))

		err := db.FinishSession(ctx, "s1", models.PaymentSuccess, "pay_1", "")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("GetSessionsQuery", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT (.+) FROM payment_sessions").WithArgs("b1").WillReturnError(boom)

		_, err := db.GetSessions(ctx, "b1")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("GetSessionsScan", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows([]string{"session_id"}).AddRow("s1")
		mock.ExpectQuery("SELECT (.+) FROM payment_sessions").WillReturnRows(rows)

		_, err := db.GetSessions(ctx, "b1")
		assert.Error(t, err)
	})

	t.Run("GetSessionsRowError", func(t *testing.T) {
		db, mock := newMockDB(t)
		now := time.Now()
		rows := sqlmock.NewRows([]string{
			"session_id", "booking_id", "phase", "order_id", "amount_minor", "currency",
			"status", "payment_id", "last_error", "created_at", "updated_at",
		}).
			AddRow("s1", "b1", "advance", "order_1", int64(100), "INR", "success", "pay_1", nil, now, now).
			RowError(0, boom)
		mock.ExpectQuery("SELECT (.+) FROM payment_sessions").WillReturnRows(rows)

		_, err := db.GetSessions(ctx, "b1")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("ExpireStale", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("UPDATE payment_sessions").WillReturnError(boom)

		_, err := db.ExpireStale(ctx, time.Now())
		assert.ErrorIs(t, err, boom)
	})
}
