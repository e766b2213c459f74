package service

import (
	"context"
	"os"
	"time"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
	"github.com/mittag-dabbas/checkout-service/internal/pricing"
	"github.com/mittag-dabbas/checkout-service/internal/provider"
	r "github.com/mittag-dabbas/checkout-service/internal/repository"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "checkout").Logger()

type CheckoutService interface {
	InitiateCheckout(ctx context.Context, request *domain.CheckoutRequest) (*domain.CheckoutResponse, error)
	Quote(ctx context.Context, userID string, discount float64) (*pricing.Result, error)
	HandleProviderEvent(ctx context.Context, payload []byte, sigHeader string) error
}

// ProviderAPI is what the service needs from the payment provider.
// Consumers define this interface, not the HTTP client.
type ProviderAPI interface {
	CreateCheckoutSession(ctx context.Context, params *provider.SessionParams) (*provider.Session, error)
	CreateFullDiscountCoupon(ctx context.Context) (*provider.Coupon, error)
	GetSession(ctx context.Context, sessionID string) (*provider.Session, error)
	GetSessionLineItems(ctx context.Context, sessionID string) ([]provider.SessionLineItem, error)
	CreateCustomer(ctx context.Context, email, name string) (*provider.Customer, error)
	CreateInvoice(ctx context.Context, customerID string) (*provider.Invoice, error)
	AddInvoiceItem(ctx context.Context, params *provider.InvoiceItemParams) error
	FinalizeInvoice(ctx context.Context, invoiceID string) (*provider.Invoice, error)
}

// CartReader is the slice of the cart store the checkout needs.
type CartReader interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

// Config carries the checkout-facing knobs; everything else lives with
// the components themselves.
type Config struct {
	Currency         string
	SuccessURL       string
	CancelURL        string
	WebhookSecret    string
	WebhookTolerance time.Duration
}

type CheckoutServiceImpl struct {
	repo     r.RepoInterface
	carts    CartReader
	provider ProviderAPI
	cfg      Config
}

func NewCheckoutService(repo r.RepoInterface, carts CartReader, providerAPI ProviderAPI, cfg Config) *CheckoutServiceImpl {
	if cfg.WebhookTolerance == 0 {
		cfg.WebhookTolerance = provider.DefaultTolerance
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	return &CheckoutServiceImpl{
		repo:     repo,
		carts:    carts,
		provider: providerAPI,
		cfg:      cfg,
	}
}
