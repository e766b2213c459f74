// Package notifier consumes payment notifications from Kafka and sends
// order confirmation mail through the mail gateway.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
)

// Sender delivers one confirmation for a completed payment.
type Sender interface {
	SendReceipt(ctx context.Context, notification *domain.PaymentNotification) error
}

// EmailRequest is the mail gateway's send payload.
type EmailRequest struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}

// Mailer talks to the internal mail gateway over HTTP.
type Mailer struct {
	baseURL    string
	apiKey     string
	adminEmail string
	httpClient *http.Client
}

func NewMailer(baseURL, apiKey, adminEmail string, timeout time.Duration) *Mailer {
	return &Mailer{
		baseURL:    baseURL,
		apiKey:     apiKey,
		adminEmail: adminEmail,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendReceipt mails the customer their receipt and, when an admin
// address is configured, a copy of the order to it. The admin copy is
// best effort.
func (m *Mailer) SendReceipt(ctx context.Context, n *domain.PaymentNotification) error {
	data := map[string]string{
		"session_id":  n.SessionID,
		"amount":      fmt.Sprintf("%.2f", n.Amount),
		"currency":    n.Currency,
		"invoice_url": n.InvoiceURL,
	}

	err := m.send(ctx, &EmailRequest{
		To:       n.CustomerEmail,
		Subject:  "Your order confirmation",
		Template: "order-confirmation",
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotificationDelivery, err)
	}

	if m.adminEmail != "" {
		adminErr := m.send(ctx, &EmailRequest{
			To:       m.adminEmail,
			Subject:  fmt.Sprintf("New paid order %s", n.SessionID),
			Template: "order-admin-copy",
			Data:     data,
		})
		if adminErr != nil {
			logger.Warn().Err(adminErr).Str("session_id", n.SessionID).Msg("failed to send admin copy")
		}
	}

	return nil
}

func (m *Mailer) send(ctx context.Context, email *EmailRequest) error {
	body, err := json.Marshal(email)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/mail", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail gateway returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
