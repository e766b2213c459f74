package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mittag-dabbas/checkout-service/internal/domain"
	"github.com/mittag-dabbas/checkout-service/internal/pricing"
	"github.com/mittag-dabbas/checkout-service/internal/provider"
	r "github.com/mittag-dabbas/checkout-service/internal/repository"
)

// cartSnapshot is persisted with the checkout session: the cart state
// and derived totals at checkout time.
type cartSnapshot struct {
	Days   map[int]*domain.DayCart `json:"days"`
	Totals domain.CheckoutTotals   `json:"totals"`
}

func (s *CheckoutServiceImpl) InitiateCheckout(
	ctx context.Context,
	request *domain.CheckoutRequest) (*domain.CheckoutResponse, error) {

	// Check session by idempotency key first: a retried request must
	// get the original result, never a second provider session.
	existing, err := s.repo.GetCheckoutSessionByIdempotencyKey(ctx, request.IdempotencyKey)
	if err != nil && !errors.Is(err, r.ErrIdempotencyKeyNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}

	if existing != nil {
		logger.Info().
			Str("idempotency_key", request.IdempotencyKey).
			Str("checkout_id", existing.ID).
			Str("status", existing.Status.String()).
			Msg("duplicate checkout request, returning cached result")

		return cachedResponse(existing), nil
	}

	cart, result, err := s.priceCart(ctx, request.UserID, request.Discount)
	if err != nil {
		return nil, err
	}

	checkoutID := uuid.NewString()
	if err := s.createSessionRow(ctx, checkoutID, request, cart, result); err != nil {
		return nil, err
	}

	session, err := s.createProviderSession(ctx, request, result)
	if err != nil {
		if failErr := s.repo.UpdateCheckoutSessionStatus(ctx, checkoutID, domain.CheckoutStatusFailed); failErr != nil {
			logger.Error().Err(failErr).Str("checkout_id", checkoutID).Msg("failed to mark checkout failed")
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionCreation, err)
	}

	if err := s.repo.SetProviderSession(ctx, checkoutID, session.ID, session.URL, domain.CheckoutStatusSessionCreated); err != nil {
		return nil, fmt.Errorf("failed to store provider session: %w", err)
	}

	// The cart is consumed by checkout; a failed payment starts over
	// from an empty week.
	if err := s.carts.ClearCart(ctx, request.UserID); err != nil {
		logger.Warn().Err(err).Str("user_id", request.UserID).Msg("failed to clear cart after checkout")
	}

	return &domain.CheckoutResponse{
		CheckoutID:  checkoutID,
		Status:      domain.CheckoutStatusSessionCreated,
		RedirectURL: session.URL,
	}, nil
}

// Quote derives totals and line items for the current cart without
// touching the provider or persisting anything.
func (s *CheckoutServiceImpl) Quote(ctx context.Context, userID string, discount float64) (*pricing.Result, error) {
	_, result, err := s.priceCart(ctx, userID, discount)
	return result, err
}

func (s *CheckoutServiceImpl) priceCart(ctx context.Context, userID string, discount float64) (*domain.Cart, *pricing.Result, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, nil, ErrEmptyCart
	}

	originalTotal, err := pricing.OriginalTotal(cart.Days)
	if err != nil {
		return nil, nil, err
	}

	if discount < 0 || discount > originalTotal {
		return nil, nil, fmt.Errorf("%w: discount %v out of range for total %v",
			domain.ErrValidation, discount, originalTotal)
	}

	result, err := pricing.Derive(cart.Days, originalTotal-discount, s.cfg.Currency)
	if err != nil {
		if errors.Is(err, pricing.ErrNoItems) {
			return nil, nil, ErrEmptyCart
		}
		return nil, nil, err
	}
	return cart, result, nil
}

func (s *CheckoutServiceImpl) createSessionRow(ctx context.Context, checkoutID string, request *domain.CheckoutRequest, cart *domain.Cart, result *pricing.Result) error {
	snapshotJSON, err := json.Marshal(cartSnapshot{Days: cart.Days, Totals: result.Totals})
	if err != nil {
		return fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	session := &r.CheckoutSession{
		ID:             checkoutID,
		UserID:         request.UserID,
		IdempotencyKey: request.IdempotencyKey,
		Status:         domain.CheckoutStatusInitiated,
		CartSnapshot:   snapshotJSON,
	}
	if err := s.repo.CreateCheckoutSession(ctx, session); err != nil {
		return fmt.Errorf("failed to create checkout session: %w", err)
	}
	return nil
}

// createProviderSession submits the derived line items, or, for fully
// discounted orders, one nominal line with a 100%-off coupon.
func (s *CheckoutServiceImpl) createProviderSession(ctx context.Context, request *domain.CheckoutRequest, result *pricing.Result) (*provider.Session, error) {
	params := &provider.SessionParams{
		Mode:          "payment",
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
		CustomerEmail: request.CustomerEmail,
		LineItems:     toSessionLineItems(result.Items),
	}

	if result.FreeOrder {
		coupon, err := s.provider.CreateFullDiscountCoupon(ctx)
		if err != nil {
			return nil, fmt.Errorf("create full discount coupon: %w", err)
		}
		params.Coupon = coupon.ID
	}

	return s.provider.CreateCheckoutSession(ctx, params)
}

func toSessionLineItems(items []domain.LineItem) []provider.SessionLineItem {
	out := make([]provider.SessionLineItem, len(items))
	for i, item := range items {
		out[i] = provider.SessionLineItem{
			Name:        item.ProductName,
			Description: item.Description,
			UnitAmount:  item.UnitAmount,
			Quantity:    item.Quantity,
			Metadata:    item.Metadata,
		}
	}
	return out
}

func cachedResponse(session *r.CheckoutSession) *domain.CheckoutResponse {
	resp := &domain.CheckoutResponse{
		CheckoutID: session.ID,
		Status:     session.Status,
	}
	if session.RedirectURL != nil {
		resp.RedirectURL = *session.RedirectURL
	}
	return resp
}
