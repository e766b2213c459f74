package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
)

func (r *Repository) GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error) {
	query := `SELECT id, user_id, idempotency_key, status, cart_snapshot, provider_session_id, redirect_url, created_at, updated_at
	          FROM checkout_sessions WHERE idempotency_key = $1`

	var session CheckoutSession
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&session.ID,
		&session.UserID,
		&session.IdempotencyKey,
		&session.Status,
		&session.CartSnapshot,
		&session.ProviderSessionID,
		&session.RedirectURL,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout session: %w", err)
	}

	return &session, nil
}

func (r *Repository) CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error {
	query := `INSERT INTO checkout_sessions (id, user_id, idempotency_key, status, cart_snapshot, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.IdempotencyKey,
		session.Status,
		session.CartSnapshot,
	)
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

// SetProviderSession records the hosted session id and its redirect URL
// so replayed idempotency keys can return the original checkout URL.
func (r *Repository) SetProviderSession(ctx context.Context, checkoutID, providerSessionID, redirectURL string, status domain.CheckoutStatus) error {
	query := `UPDATE checkout_sessions
	          SET provider_session_id = $2, redirect_url = $3, status = $4, updated_at = NOW()
	          WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, checkoutID, providerSessionID, redirectURL, status)
	if err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}
	return checkRowUpdated(result)
}

// UpdateCheckoutSessionStatus moves a session to status after checking
// the transition is legal against the current row, under a row lock so
// concurrent updates serialize.
func (r *Repository) UpdateCheckoutSessionStatus(ctx context.Context, checkoutID string, status domain.CheckoutStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current domain.CheckoutStatus
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM checkout_sessions WHERE id = $1 FOR UPDATE`, checkoutID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("select checkout session status: %w", err)
	}

	if !domain.CanTransitionTo(current, status) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, status)
	}

	query := `UPDATE checkout_sessions SET status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, checkoutID, status); err != nil {
		return fmt.Errorf("update checkout session status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}
	return nil
}

// FailStaleSessions marks sessions stuck in SESSION_CREATED longer than
// olderThan as FAILED. Abandoned hosted-checkout pages end up here; the
// provider session simply expires on its side.
func (r *Repository) FailStaleSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `UPDATE checkout_sessions SET status = $1, updated_at = NOW()
	          WHERE status = $2 AND updated_at < $3`

	result, err := r.db.ExecContext(ctx, query,
		domain.CheckoutStatusFailed,
		domain.CheckoutStatusSessionCreated,
		time.Now().Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale sessions: %w", err)
	}
	return result.RowsAffected()
}

func checkRowUpdated(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}
