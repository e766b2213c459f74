package provider

import "fmt"

// SessionLineItem is the provider-side shape of one checkout line.
type SessionLineItem struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	UnitAmount  int64             `json:"unit_amount"`
	Quantity    int32             `json:"quantity"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type SessionParams struct {
	Mode          string            `json:"mode"`
	LineItems     []SessionLineItem `json:"line_items"`
	SuccessURL    string            `json:"success_url"`
	CancelURL     string            `json:"cancel_url"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	Coupon        string            `json:"coupon,omitempty"`
}

// Session is a provider-hosted checkout transaction.
type Session struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	CustomerEmail string `json:"customer_email"`
	AmountTotal   int64  `json:"amount_total"`
	AmountTax     int64  `json:"amount_tax"`
	PaymentStatus string `json:"payment_status"`
	Currency      string `json:"currency"`
}

type CouponParams struct {
	PercentOff int    `json:"percent_off"`
	Duration   string `json:"duration"`
}

type Coupon struct {
	ID string `json:"id"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Invoice struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	HostedInvoiceURL string `json:"hosted_invoice_url"`
}

type InvoiceItemParams struct {
	InvoiceID   string `json:"invoice"`
	CustomerID  string `json:"customer"`
	Description string `json:"description"`
	UnitAmount  int64  `json:"unit_amount"`
	Quantity    int32  `json:"quantity"`
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Message)
}
