package repository

import (
	"context"
	"time"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
)

// RepoInterface is everything the checkout service and the outbox
// poller need from storage.
type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error

	GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error)
	CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error
	SetProviderSession(ctx context.Context, checkoutID, providerSessionID, redirectURL string, status domain.CheckoutStatus) error
	UpdateCheckoutSessionStatus(ctx context.Context, checkoutID string, status domain.CheckoutStatus) error
	FailStaleSessions(ctx context.Context, olderThan time.Duration) (int64, error)

	CreatePaymentRecord(ctx context.Context, record *domain.PaymentRecord, notification []byte) error
	PaymentRecordExists(ctx context.Context, sessionID string) (bool, error)

	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// CheckoutSession is one checkout attempt, keyed by the client's
// idempotency key; the provider session id arrives once the hosted
// session exists.
type CheckoutSession struct {
	ID                string
	UserID            string
	IdempotencyKey    string
	Status            domain.CheckoutStatus
	CartSnapshot      []byte
	ProviderSessionID *string
	RedirectURL       *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OutboxEvent is one pending notification payload, published to Kafka
// by the poller after the owning transaction commits.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

const EventTypePaymentCompleted = "payment.completed"
