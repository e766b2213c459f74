package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "sk_test_key", 2*time.Second)
}

func TestCreateCheckoutSession(t *testing.T) {
	var gotParams SessionParams
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotParams))

		json.NewEncoder(w).Encode(Session{ID: "cs_1", URL: "https://pay.example/cs_1"})
	})

	session, err := client.CreateCheckoutSession(context.Background(), &SessionParams{
		Mode:       "payment",
		SuccessURL: "https://app.example/ok",
		CancelURL:  "https://app.example/cancel",
		LineItems:  []SessionLineItem{{Name: "Bowl", UnitAmount: 950, Quantity: 2}},
	})

	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)
	assert.Equal(t, "https://pay.example/cs_1", session.URL)
	assert.Equal(t, "payment", gotParams.Mode)
	require.Len(t, gotParams.LineItems, 1)
	assert.Equal(t, int64(950), gotParams.LineItems[0].UnitAmount)
}

func TestCreateFullDiscountCoupon(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/coupons", r.URL.Path)

		var params CouponParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, 100, params.PercentOff)
		assert.Equal(t, "once", params.Duration)

		json.NewEncoder(w).Encode(Coupon{ID: "coupon_free"})
	})

	coupon, err := client.CreateFullDiscountCoupon(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "coupon_free", coupon.ID)
}

func TestGetSessionLineItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/checkout/sessions/cs_1/line_items", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]any{
			"data": []SessionLineItem{
				{Name: "Bowl", UnitAmount: 950, Quantity: 2},
				{Name: "Soup", UnitAmount: 400, Quantity: 1},
			},
		})
	})

	items, err := client.GetSessionLineItems(context.Background(), "cs_1")

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Soup", items[1].Name)
}

func TestDo_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "card declined"},
		})
	})

	_, err := client.CreateCheckoutSession(context.Background(), &SessionParams{Mode: "payment"})

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Equal(t, "card declined", apiErr.Message)
}

func TestBreakerOpensAfterConsecutiveServerErrors(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_, _ = client.GetSession(ctx, "cs_1")
	}

	// After five consecutive failures the breaker is open and the
	// sixth call never reaches the server.
	assert.Equal(t, 5, calls)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "no such session"}})
	})

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		_, err := client.GetSession(ctx, "cs_missing")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
	}

	assert.Equal(t, 8, calls)
}

func TestFinalizeInvoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/invoices/in_1/finalize", r.URL.Path)
		json.NewEncoder(w).Encode(Invoice{ID: "in_1", Status: "open", HostedInvoiceURL: "https://pay.example/in_1"})
	})

	invoice, err := client.FinalizeInvoice(context.Background(), "in_1")

	require.NoError(t, err)
	assert.Equal(t, "open", invoice.Status)
	assert.Equal(t, "https://pay.example/in_1", invoice.HostedInvoiceURL)
}
