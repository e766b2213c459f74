package cartstore

import (
	"context"
	"errors"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
)

// CartRepository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	SetDay(ctx context.Context, userID string, dayIndex int, day *domain.DayCart) error
	DeleteCart(ctx context.Context, userID string) error
}

// CartCache is the read-through layer the store consults before the
// repository. A whole cart is one cache entry keyed by user.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

var (
	ErrCartNotFound = errors.New("cart not found")

	// ErrCacheMiss distinguishes an absent cache key from a cache
	// backend failure, which the store treats as a soft error.
	ErrCacheMiss = errors.New("cache miss")
)
