// Package provider is the REST client for the hosted payment provider:
// checkout sessions, coupons, customers and invoices.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// The breaker keeps a flapping provider from stalling every
	// checkout request for a full timeout; callers see the breaker
	// error immediately while it is open.
	cb *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:    "payment-provider",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx means our request was wrong, not that the provider is
		// down; only transport errors and 5xx count against the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode < 500
		},
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		cb:         gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// CreateCheckoutSession opens a hosted checkout session and returns its
// id and redirect URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, params *SessionParams) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", params, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession fetches the current state of a checkout session. Amounts
// on the fetched session are the source of truth, not the webhook body.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionLineItems fetches the full line-item detail for a session.
func (c *Client) GetSessionLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error) {
	var out struct {
		Data []SessionLineItem `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID+"/line_items", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateFullDiscountCoupon creates a single-use 100%-off coupon, used
// for fully discounted orders instead of near-zero line prices.
func (c *Client) CreateFullDiscountCoupon(ctx context.Context) (*Coupon, error) {
	params := &CouponParams{PercentOff: 100, Duration: "once"}
	var coupon Coupon
	if err := c.do(ctx, http.MethodPost, "/v1/coupons", params, &coupon); err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (c *Client) CreateCustomer(ctx context.Context, email, name string) (*Customer, error) {
	params := map[string]string{"email": email, "name": name}
	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/v1/customers", params, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) CreateInvoice(ctx context.Context, customerID string) (*Invoice, error) {
	params := map[string]string{"customer": customerID}
	var invoice Invoice
	if err := c.do(ctx, http.MethodPost, "/v1/invoices", params, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *Client) AddInvoiceItem(ctx context.Context, params *InvoiceItemParams) error {
	return c.do(ctx, http.MethodPost, "/v1/invoiceitems", params, nil)
}

func (c *Client) FinalizeInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	var invoice Invoice
	if err := c.do(ctx, http.MethodPost, "/v1/invoices/"+invoiceID+"/finalize", nil, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	respBody, err := c.cb.Execute(func() ([]byte, error) {
		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close()

		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, apiError(resp.StatusCode, data)
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func apiError(status int, body []byte) *APIError {
	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Message != "" {
		return &APIError{StatusCode: status, Message: wrapped.Error.Message}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}
