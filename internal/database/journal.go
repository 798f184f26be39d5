package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"venuebook/internal/models"
)

// ErrSessionNotPending is returned when finishing a session that is unknown
// or already terminal. Terminal states are never overwritten.
var ErrSessionNotPending = errors.New("payment session is not pending")

const sessionColumns = `session_id, booking_id, phase, order_id, amount_minor, currency, status, payment_id, last_error, created_at, updated_at`

func (db *DB) StartSession(ctx context.Context, entry *models.JournalEntry) error {
	now := time.Now().UTC()
	if entry.Status == "" {
		entry.Status = models.PaymentPending
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now

	query := `INSERT INTO payment_sessions (` + sessionColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		entry.SessionID,
		entry.BookingID,
		entry.Phase,
		entry.OrderID,
		entry.AmountMinor,
		entry.Currency,
		entry.Status,
		entry.PaymentID,
		entry.LastError,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to start payment session: %w", err)
	}
	return nil
}

// FinishSession moves a pending session to its terminal status.
func (db *DB) FinishSession(ctx context.Context, sessionID string, status models.PaymentStatus, paymentID, errMsg string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finish session %s: status %q is not terminal", sessionID, status)
	}

	query := `UPDATE payment_sessions
              SET status = ?, payment_id = ?, last_error = ?, updated_at = ?
              WHERE session_id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query,
		status, nullString(paymentID), nullString(errMsg), time.Now().UTC(), sessionID, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("failed to finish payment session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish session %s: %w", sessionID, ErrSessionNotPending)
	}
	return nil
}

// GetSessions returns the booking's sessions, newest first.
func (db *DB) GetSessions(ctx context.Context, bookingID string) ([]models.JournalEntry, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions
              WHERE booking_id = ? ORDER BY created_at DESC, rowid DESC`
	return db.querySessions(ctx, query, bookingID)
}

// RecentSessions returns the latest sessions across all bookings.
func (db *DB) RecentSessions(ctx context.Context, limit int) ([]models.JournalEntry, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions
              ORDER BY created_at DESC, rowid DESC LIMIT ?`
	return db.querySessions(ctx, query, limit)
}

// ExpireStale fails sessions left pending since before the cutoff, e.g. by
// a process that died with the overlay open.
func (db *DB) ExpireStale(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE payment_sessions
              SET status = ?, last_error = ?, updated_at = ?
              WHERE status = ? AND created_at < ?`
	result, err := db.ExecContext(ctx, query,
		models.PaymentFailed, "abandoned", time.Now().UTC(), models.PaymentPending, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		db.logger.Info().Int64("count", n).Msg("Expired abandoned payment sessions")
	}
	return n, nil
}

func (db *DB) querySessions(ctx context.Context, query string, args ...any) ([]models.JournalEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment sessions: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var (
			e         models.JournalEntry
			paymentID sql.NullString
			lastError sql.NullString
		)
		if err := rows.Scan(
			&e.SessionID, &e.BookingID, &e.Phase, &e.OrderID, &e.AmountMinor, &e.Currency,
			&e.Status, &paymentID, &lastError, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment session: %w", err)
		}
		if paymentID.Valid {
			e.PaymentID = &paymentID.String
		}
		if lastError.Valid {
			e.LastError = &lastError.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment sessions: %w", err)
	}
	return entries, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
