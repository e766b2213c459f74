// Package httpapi is the HTTP surface of the checkout service: weekly
// cart management, quote and checkout endpoints, and the payment
// provider webhook.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mittag-dabbas/checkout-service/internal/domain"
	"github.com/mittag-dabbas/checkout-service/internal/service"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "httpapi").Logger()

// CartStore is what the handlers need from the cart store.
type CartStore interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	SetDay(ctx context.Context, userID string, dayIndex int, day *domain.DayCart) error
	ClearCart(ctx context.Context, userID string) error
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type CartHandler struct {
	store   CartStore
	timeout time.Duration
}

func NewCartHandler(store CartStore, timeout time.Duration) *CartHandler {
	return &CartHandler{store: store, timeout: timeout}
}

type SetDayRequestDTO struct {
	Items          []domain.CartItem `json:"items"`
	DeliveryWindow string            `json:"delivery_window"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	cart, err := h.store.GetCart(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) SetDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())

	dayStr := chi.URLParam(r, "day")
	dayIndex, err := strconv.Atoi(dayStr)
	if err != nil || dayIndex < 0 || dayIndex >= domain.DayCount {
		respondError(w, http.StatusBadRequest, "invalid_day", "day must be an integer between 0 and 6")
		return
	}

	var req SetDayRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	day := &domain.DayCart{Items: req.Items, DeliveryWindow: req.DeliveryWindow}
	if err := h.store.SetDay(ctx, userID, dayIndex, day); err != nil {
		handleServiceError(w, err)
		return
	}

	cart, err := h.store.GetCart(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if err := h.store.ClearCart(ctx, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps domain errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		respondError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrSignature):
		respondError(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", "cart is empty, nothing to checkout")
	case errors.Is(err, domain.ErrSessionCreation):
		respondError(w, http.StatusBadGateway, "session_creation_failed", "payment provider rejected the session")
	case errors.Is(err, domain.ErrNotificationDelivery):
		respondError(w, http.StatusBadGateway, "notification_failed", "notification delivery failed")
	default:
		logger.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
