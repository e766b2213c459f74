package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
	"github.com/mittag-dabbas/checkout-service/internal/provider"
	r "github.com/mittag-dabbas/checkout-service/internal/repository"
)

// HandleProviderEvent verifies and processes one inbound provider
// notification. Signature and validation failures must surface as
// domain.ErrSignature / domain.ErrValidation so the HTTP layer can
// answer 4xx and stop redelivery; anything else is a 5xx and the
// provider will retry.
func (s *CheckoutServiceImpl) HandleProviderEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := provider.ConstructEvent(payload, sigHeader, s.cfg.WebhookSecret, s.cfg.WebhookTolerance, time.Now())
	if err != nil {
		return err
	}

	if event.Type != provider.EventTypeSessionCompleted {
		logger.Debug().Str("event_type", event.Type).Msg("ignoring provider event")
		return nil
	}

	var ref struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data, &ref); err != nil || ref.ID == "" {
		return fmt.Errorf("%w: completed event carries no session id", domain.ErrValidation)
	}

	return s.confirmSession(ctx, ref.ID)
}

func (s *CheckoutServiceImpl) confirmSession(ctx context.Context, sessionID string) error {
	// Redelivery short-circuit: once a record exists this session is
	// fully processed, answering success stops the provider's retries.
	exists, err := s.repo.PaymentRecordExists(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRecordPersistence, err)
	}
	if exists {
		logger.Info().Str("session_id", sessionID).Msg("payment already recorded, skipping redelivered event")
		return nil
	}

	// The event body is not trusted for amounts; fetch the session and
	// its line items back from the provider.
	session, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("fetch session %s: %w", sessionID, err)
	}

	lineItems, err := s.provider.GetSessionLineItems(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("fetch line items for %s: %w", sessionID, err)
	}

	invoice, err := s.buildInvoice(ctx, session, lineItems)
	if err != nil {
		return err
	}

	record := &domain.PaymentRecord{
		CustomerEmail: session.CustomerEmail,
		Amount:        float64(session.AmountTotal) / 100,
		AmountTax:     float64(session.AmountTax) / 100,
		SessionID:     session.ID,
		InvoiceID:     invoice.ID,
		InvoiceURL:    invoice.HostedInvoiceURL,
		PaymentStatus: session.PaymentStatus,
	}

	notification, err := json.Marshal(domain.PaymentNotification{
		SessionID:     session.ID,
		CustomerEmail: session.CustomerEmail,
		Amount:        record.Amount,
		Currency:      session.Currency,
		InvoiceURL:    invoice.HostedInvoiceURL,
		CompletedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	if err := s.repo.CreatePaymentRecord(ctx, record, notification); err != nil {
		if errors.Is(err, r.ErrDuplicatePayment) {
			// Lost the race against a concurrent redelivery; the other
			// handler wrote the record, nothing left to do.
			logger.Info().Str("session_id", sessionID).Msg("concurrent duplicate payment event")
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrRecordPersistence, err)
	}

	logger.Info().
		Str("session_id", sessionID).
		Str("invoice_id", invoice.ID).
		Float64("amount", record.Amount).
		Msg("payment recorded")

	return nil
}

// buildInvoice mirrors the session at the provider as a finalized
// invoice: customer, one invoice item per line, finalize.
func (s *CheckoutServiceImpl) buildInvoice(ctx context.Context, session *provider.Session, lineItems []provider.SessionLineItem) (*provider.Invoice, error) {
	customer, err := s.provider.CreateCustomer(ctx, session.CustomerEmail, "")
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	invoice, err := s.provider.CreateInvoice(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	for _, item := range lineItems {
		err := s.provider.AddInvoiceItem(ctx, &provider.InvoiceItemParams{
			InvoiceID:   invoice.ID,
			CustomerID:  customer.ID,
			Description: item.Name,
			UnitAmount:  item.UnitAmount,
			Quantity:    item.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("add invoice item: %w", err)
		}
	}

	finalized, err := s.provider.FinalizeInvoice(ctx, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("finalize invoice: %w", err)
	}
	return finalized, nil
}
