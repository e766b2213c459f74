package service

import (
	"context"
	"time"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
	"github.com/mittag-dabbas/checkout-service/internal/provider"
	r "github.com/mittag-dabbas/checkout-service/internal/repository"
)

// MockRepository implements r.RepoInterface for testing
type MockRepository struct {
	ExistingSession *r.CheckoutSession
	GetErr          error
	CreateErr       error
	CreatedSession  *r.CheckoutSession // Captures the session passed to CreateCheckoutSession

	ProviderSessionID string
	RedirectURL       string
	StatusUpdates     []domain.CheckoutStatus

	RecordExists    bool
	RecordExistsErr error
	CreateRecordErr error
	CreatedRecord   *domain.PaymentRecord
	Notification    []byte

	OutboxEvents []*r.OutboxEvent
	ProcessedIDs []int64
	StaleFailed  int64
}

func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) RunMigrations(*r.Credentials) error {
	return nil
}

func (m *MockRepository) GetCheckoutSessionByIdempotencyKey(_ context.Context, _ string) (*r.CheckoutSession, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.ExistingSession == nil {
		return nil, r.ErrIdempotencyKeyNotFound
	}
	return m.ExistingSession, nil
}

func (m *MockRepository) CreateCheckoutSession(_ context.Context, session *r.CheckoutSession) error {
	m.CreatedSession = session
	return m.CreateErr
}

func (m *MockRepository) SetProviderSession(_ context.Context, _, providerSessionID, redirectURL string, status domain.CheckoutStatus) error {
	m.ProviderSessionID = providerSessionID
	m.RedirectURL = redirectURL
	m.StatusUpdates = append(m.StatusUpdates, status)
	return nil
}

func (m *MockRepository) UpdateCheckoutSessionStatus(_ context.Context, _ string, status domain.CheckoutStatus) error {
	m.StatusUpdates = append(m.StatusUpdates, status)
	return nil
}

func (m *MockRepository) FailStaleSessions(_ context.Context, _ time.Duration) (int64, error) {
	return m.StaleFailed, nil
}

func (m *MockRepository) CreatePaymentRecord(_ context.Context, record *domain.PaymentRecord, notification []byte) error {
	if m.CreateRecordErr != nil {
		return m.CreateRecordErr
	}
	m.CreatedRecord = record
	m.Notification = notification
	return nil
}

func (m *MockRepository) PaymentRecordExists(_ context.Context, _ string) (bool, error) {
	return m.RecordExists, m.RecordExistsErr
}

func (m *MockRepository) GetUnprocessedEvents(_ context.Context, _ int) ([]*r.OutboxEvent, error) {
	return m.OutboxEvents, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

// MockCartReader implements CartReader for testing
type MockCartReader struct {
	Cart     *domain.Cart
	GetErr   error
	ClearErr error
	Cleared  []string
}

func (m *MockCartReader) GetCart(_ context.Context, _ string) (*domain.Cart, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Cart, nil
}

func (m *MockCartReader) ClearCart(_ context.Context, userID string) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Cleared = append(m.Cleared, userID)
	return nil
}

// MockProvider implements ProviderAPI for testing
type MockProvider struct {
	Session        *provider.Session
	SessionErr     error
	CreatedParams  *provider.SessionParams
	Coupon         *provider.Coupon
	CouponErr      error
	CouponRequests int

	FetchedSession *provider.Session
	FetchErr       error
	LineItems      []provider.SessionLineItem
	LineItemsErr   error

	Customer     *provider.Customer
	CustomerErr  error
	Invoice      *provider.Invoice
	InvoiceErr   error
	InvoiceItems []*provider.InvoiceItemParams
	ItemErr      error
	Finalized    *provider.Invoice
	FinalizeErr  error
}

func (m *MockProvider) CreateCheckoutSession(_ context.Context, params *provider.SessionParams) (*provider.Session, error) {
	m.CreatedParams = params
	if m.SessionErr != nil {
		return nil, m.SessionErr
	}
	return m.Session, nil
}

func (m *MockProvider) CreateFullDiscountCoupon(_ context.Context) (*provider.Coupon, error) {
	m.CouponRequests++
	if m.CouponErr != nil {
		return nil, m.CouponErr
	}
	return m.Coupon, nil
}

func (m *MockProvider) GetSession(_ context.Context, _ string) (*provider.Session, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.FetchedSession, nil
}

func (m *MockProvider) GetSessionLineItems(_ context.Context, _ string) ([]provider.SessionLineItem, error) {
	if m.LineItemsErr != nil {
		return nil, m.LineItemsErr
	}
	return m.LineItems, nil
}

func (m *MockProvider) CreateCustomer(_ context.Context, _, _ string) (*provider.Customer, error) {
	if m.CustomerErr != nil {
		return nil, m.CustomerErr
	}
	return m.Customer, nil
}

func (m *MockProvider) CreateInvoice(_ context.Context, _ string) (*provider.Invoice, error) {
	if m.InvoiceErr != nil {
		return nil, m.InvoiceErr
	}
	return m.Invoice, nil
}

func (m *MockProvider) AddInvoiceItem(_ context.Context, params *provider.InvoiceItemParams) error {
	if m.ItemErr != nil {
		return m.ItemErr
	}
	m.InvoiceItems = append(m.InvoiceItems, params)
	return nil
}

func (m *MockProvider) FinalizeInvoice(_ context.Context, _ string) (*provider.Invoice, error) {
	if m.FinalizeErr != nil {
		return nil, m.FinalizeErr
	}
	return m.Finalized, nil
}
