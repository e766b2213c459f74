package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/mittag-dabbas/checkout-service/internal/provider"
	"github.com/mittag-dabbas/checkout-service/internal/service"
)

// maxWebhookBody bounds the raw payload read; provider events are tiny.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	service service.CheckoutService
	timeout time.Duration
}

func NewWebhookHandler(svc service.CheckoutService, timeout time.Duration) *WebhookHandler {
	return &WebhookHandler{service: svc, timeout: timeout}
}

// POST /webhooks/payment
//
// The body must reach the verifier byte for byte, so it is read raw
// rather than decoded.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
		return
	}

	sigHeader := r.Header.Get(provider.SignatureHeader())
	if err := h.service.HandleProviderEvent(ctx, payload, sigHeader); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"received": "true"})
}
