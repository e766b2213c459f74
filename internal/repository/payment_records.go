package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mittag-dabbas/checkout-service/internal/domain"
)

// PaymentRecordExists reports whether a payment record was already
// created for the provider session. Used to short-circuit redelivered
// webhook events before any provider side effects.
func (r *Repository) PaymentRecordExists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM payment_records WHERE session_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check payment record: %w", err)
	}
	return exists, nil
}

// CreatePaymentRecord persists the payment record and its notification
// outbox row in one transaction. The UNIQUE constraint on session_id is
// the idempotency guard: a redelivered completion event surfaces as
// ErrDuplicatePayment and nothing is written.
func (r *Repository) CreatePaymentRecord(ctx context.Context, record *domain.PaymentRecord, notification []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertRecord := `INSERT INTO payment_records
	                 (session_id, customer_email, amount, amount_tax, invoice_id, invoice_url, payment_status, created_at)
	                 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err = tx.ExecContext(ctx, insertRecord,
		record.SessionID,
		record.CustomerEmail,
		record.Amount,
		record.AmountTax,
		record.InvoiceID,
		record.InvoiceURL,
		record.PaymentStatus,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("insert payment record: %w", err)
	}

	insertOutbox := `INSERT INTO notification_outbox (aggregate_id, event_type, payload, created_at)
	                 VALUES ($1, $2, $3, NOW())`

	if _, err = tx.ExecContext(ctx, insertOutbox, record.SessionID, EventTypePaymentCompleted, notification); err != nil {
		return fmt.Errorf("insert notification outbox event: %w", err)
	}

	// Completing the checkout session is best-effort inside the same
	// tx: webhook-only flows (no local checkout row) still get their
	// payment record. The status guard keeps the update on the legal
	// SESSION_CREATED -> COMPLETED transition, so a session already
	// swept to FAILED is not resurrected.
	completeSession := `UPDATE checkout_sessions SET status = $1, updated_at = NOW()
	                    WHERE provider_session_id = $2 AND status = $3`

	if _, err = tx.ExecContext(ctx, completeSession,
		domain.CheckoutStatusCompleted, record.SessionID, domain.CheckoutStatusSessionCreated); err != nil {
		return fmt.Errorf("complete checkout session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit payment record: %w", err)
	}
	return nil
}
