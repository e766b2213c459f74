package domain

import "time"

// LineItem is one priced, quantified entry sent to the payment provider.
// UnitAmount is in minor currency units (cents).
type LineItem struct {
	ProductName string            `json:"product_name"`
	Description string            `json:"description"`
	UnitAmount  int64             `json:"unit_amount"`
	Quantity    int32             `json:"quantity"`
	Metadata    map[string]string `json:"metadata"`
}

// CheckoutTotals are the derived totals for a cart at checkout time.
type CheckoutTotals struct {
	OriginalTotal float64 `json:"original_total"`
	FinalTotal    float64 `json:"final_total"`
	TotalQuantity int32   `json:"total_quantity"`
	Currency      string  `json:"currency"`
}

// PaymentRecord is created exactly once per completed provider session
// and never mutated afterwards.
type PaymentRecord struct {
	CustomerEmail string    `json:"customer_email"`
	Amount        float64   `json:"amount"`
	AmountTax     float64   `json:"amount_tax"`
	SessionID     string    `json:"session_id"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceURL    string    `json:"invoice_url"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentNotification is the outbox payload consumed by the notifier.
type PaymentNotification struct {
	SessionID     string    `json:"session_id"`
	CustomerEmail string    `json:"customer_email"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	InvoiceURL    string    `json:"invoice_url"`
	CompletedAt   time.Time `json:"completed_at"`
}
