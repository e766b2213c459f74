package cartstore

import (
	"context"
	"errors"
	"testing"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRepository implements CartRepository for testing
type MockRepository struct {
	Cart       *domain.Cart
	GetErr     error
	SetErr     error
	DeleteErr  error
	SetCalls   int
	LastDay    int
	LastDayVal *domain.DayCart
}

func (m *MockRepository) GetCart(_ context.Context, _ string) (*domain.Cart, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Cart, nil
}

func (m *MockRepository) SetDay(_ context.Context, _ string, dayIndex int, day *domain.DayCart) error {
	m.SetCalls++
	m.LastDay = dayIndex
	m.LastDayVal = day
	return m.SetErr
}

func (m *MockRepository) DeleteCart(_ context.Context, _ string) error {
	return m.DeleteErr
}

// MockCache implements CartCache for testing
type MockCache struct {
	Cart       *domain.Cart
	GetErr     error
	Deleted    []string
	SetCalled  bool
	DelErr     error
	LastSetVal *domain.Cart
}

func (m *MockCache) Get(_ context.Context, _ string) (*domain.Cart, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Cart, nil
}

func (m *MockCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.SetCalled = true
	m.LastSetVal = cart
	return nil
}

func (m *MockCache) Delete(_ context.Context, userID string) error {
	m.Deleted = append(m.Deleted, userID)
	return m.DelErr
}

func TestGetCart_CacheHit(t *testing.T) {
	cached := testCart("u1")
	store := NewStore(&MockRepository{GetErr: errors.New("must not be called")}, &MockCache{Cart: cached})

	cart, err := store.GetCart(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, cached, cart)
}

func TestGetCart_CacheMissFallsBackToRepo(t *testing.T) {
	fromRepo := testCart("u1")
	store := NewStore(&MockRepository{Cart: fromRepo}, &MockCache{GetErr: ErrCacheMiss})

	cart, err := store.GetCart(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, fromRepo.UserID, cart.UserID)
}

func TestGetCart_NotFoundReturnsEmptyWeek(t *testing.T) {
	store := NewStore(&MockRepository{GetErr: ErrCartNotFound}, &MockCache{GetErr: ErrCacheMiss})

	cart, err := store.GetCart(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "u1", cart.UserID)
	assert.True(t, cart.IsEmpty())
}

func TestGetCart_RepoError(t *testing.T) {
	store := NewStore(&MockRepository{GetErr: errors.New("mongo down")}, &MockCache{GetErr: ErrCacheMiss})

	_, err := store.GetCart(context.Background(), "u1")

	assert.Error(t, err)
}

func TestSetDay_InvalidatesCache(t *testing.T) {
	repo := &MockRepository{}
	cache := &MockCache{}
	store := NewStore(repo, cache)

	day := &domain.DayCart{
		Items:          []domain.CartItem{{ProductID: "p1", OriginalPrice: 9.5, Quantity: 1}},
		DeliveryWindow: "11:00-12:30",
	}

	require.NoError(t, store.SetDay(context.Background(), "u1", 2, day))

	assert.Equal(t, 1, repo.SetCalls)
	assert.Equal(t, 2, repo.LastDay)
	assert.Equal(t, []string{"u1"}, cache.Deleted)
}

func TestSetDay_RejectsBadInput(t *testing.T) {
	repo := &MockRepository{}
	store := NewStore(repo, &MockCache{})
	ctx := context.Background()

	okItems := []domain.CartItem{{ProductID: "p1", OriginalPrice: 9.5, Quantity: 1}}

	err := store.SetDay(ctx, "u1", 7, &domain.DayCart{Items: okItems, DeliveryWindow: "11:00-12:00"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = store.SetDay(ctx, "u1", 0, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = store.SetDay(ctx, "u1", 0, &domain.DayCart{Items: okItems, DeliveryWindow: "lunchtime"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = store.SetDay(ctx, "u1", 0, &domain.DayCart{
		Items:          []domain.CartItem{{ProductID: "p1", OriginalPrice: 9.5, Quantity: 0}},
		DeliveryWindow: "11:00-12:00",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Zero(t, repo.SetCalls, "invalid input must never reach the repository")
}

func TestSetDay_EmptyDayNeedsNoWindow(t *testing.T) {
	repo := &MockRepository{}
	store := NewStore(repo, &MockCache{})

	require.NoError(t, store.SetDay(context.Background(), "u1", 1, &domain.DayCart{}))
	assert.Equal(t, 1, repo.SetCalls)
}

func TestClearCart(t *testing.T) {
	cache := &MockCache{}
	store := NewStore(&MockRepository{}, cache)

	require.NoError(t, store.ClearCart(context.Background(), "u1"))
	assert.Equal(t, []string{"u1"}, cache.Deleted)
}

func TestClearCart_MissingCartIsFine(t *testing.T) {
	store := NewStore(&MockRepository{DeleteErr: ErrCartNotFound}, &MockCache{})

	assert.NoError(t, store.ClearCart(context.Background(), "u1"))
}
