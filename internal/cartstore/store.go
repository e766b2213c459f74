package cartstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mittag-dabbas/checkout-service/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "cartstore").Logger()

// Store is the explicit cart state container: all cart reads and writes
// go through it, nothing holds cart state ambiently.
type Store struct {
	repo  CartRepository
	cache CartCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewStore(repo CartRepository, cache CartCache) *Store {
	return &Store{
		repo:  repo,
		cache: cache,
	}
}

func (s *Store) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, ErrCacheMiss) {
			logger.Warn().Err(err).Msg("cache get error") // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil && errors.Is(errGet, ErrCartNotFound) { // no cart yet, return an empty week
			return emptyCart(userID), nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			errSet := s.cache.Set(context.Background(), userID, cart)
			if errSet != nil {
				logger.Warn().Err(errSet).Msg("cache set error")
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// SetDay validates and replaces one day slot. An empty item list clears
// the slot; the delivery window is only required when items are present.
func (s *Store) SetDay(ctx context.Context, userID string, dayIndex int, day *domain.DayCart) error {
	if err := validateDay(dayIndex, day); err != nil {
		return err
	}

	if err := s.repo.SetDay(ctx, userID, dayIndex, day); err != nil {
		logger.Error().Err(err).Str("user_id", userID).Int("day", dayIndex).Msg("repo set day error")
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Store) ClearCart(ctx context.Context, userID string) error {
	errDelete := s.repo.DeleteCart(ctx, userID)
	if errDelete != nil && !errors.Is(errDelete, ErrCartNotFound) {
		logger.Error().Err(errDelete).Str("user_id", userID).Msg("repo delete cart error")
		return errDelete
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Store) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("cache invalidation error")
	}
}

func validateDay(dayIndex int, day *domain.DayCart) error {
	if dayIndex < 0 || dayIndex >= domain.DayCount {
		return fmt.Errorf("%w: day index %d out of range", domain.ErrValidation, dayIndex)
	}
	if day == nil {
		return fmt.Errorf("%w: day cart is required", domain.ErrValidation)
	}

	for _, item := range day.Items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item is missing product id", domain.ErrValidation)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: product %s has non-positive quantity", domain.ErrValidation, item.ProductID)
		}
		if item.OriginalPrice < 0 || item.OfferedPrice < 0 {
			return fmt.Errorf("%w: product %s has a negative price", domain.ErrValidation, item.ProductID)
		}
	}

	if len(day.Items) > 0 {
		if _, err := domain.ParseDeliveryWindow(day.DeliveryWindow); err != nil {
			return err
		}
	}

	return nil
}

func emptyCart(userID string) *domain.Cart {
	now := time.Now()
	return &domain.Cart{
		UserID:    userID,
		Days:      map[int]*domain.DayCart{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
