package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
	"github.com/mittag-dabbas/checkout-service/internal/service"
)

type CheckoutHandler struct {
	service service.CheckoutService
	timeout time.Duration
}

func NewCheckoutHandler(svc service.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{service: svc, timeout: timeout}
}

type InitiateCheckoutRequestDTO struct {
	CustomerEmail string  `json:"customer_email"`
	Discount      float64 `json:"discount"`
}

type CheckoutResponseDTO struct {
	CheckoutID  string `json:"checkout_id"`
	Status      string `json:"status"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key",
			"Idempotency-Key header is required")
		return
	}

	var req InitiateCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.CustomerEmail == "" {
		respondError(w, http.StatusBadRequest, "missing_customer_email", "customer_email is required")
		return
	}

	resp, err := h.service.InitiateCheckout(ctx, &domain.CheckoutRequest{
		UserID:         userID,
		IdempotencyKey: idempotencyKey,
		CustomerEmail:  req.CustomerEmail,
		Discount:       req.Discount,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		CheckoutID:  resp.CheckoutID,
		Status:      resp.Status.String(),
		RedirectURL: resp.RedirectURL,
	})
}

// GET /api/v1/checkout/quote?discount=5.00
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())

	var discount float64
	if raw := r.URL.Query().Get("discount"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_discount", "discount must be a number")
			return
		}
		discount = parsed
	}

	result, err := h.service.Quote(ctx, userID, discount)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
