package service

import (
	"context"
	"errors"
	"fmt"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/store"
	"bookmarket-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService manages users' shopping carts
type CartService struct {
	store  store.Runner
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store store.Runner) *CartService {
	return &CartService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Cart is a user's cart with its current subtotal
type Cart struct {
	Items    []models.CartItem `json:"items"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

// AddToCart puts an available book in the user's cart
func (s *CartService) AddToCart(ctx context.Context, userID, bookID int64) error {
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		book, err := q.GetBook(ctx, bookID)
		if err != nil {
			return lookupErr(err, "book", bookID)
		}
		if book.Status != models.BookStatusAvailable {
			return invalidOperation("book %d is no longer available", bookID)
		}
		if err := q.AddCartItem(ctx, userID, bookID); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return conflict("book %d is already in your cart", bookID)
			}
			return fmt.Errorf("failed to add to cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Book added to cart", zap.Int64("user_id", userID), zap.Int64("book_id", bookID))
	return nil
}

// RemoveFromCart drops a book from the user's cart
func (s *CartService) RemoveFromCart(ctx context.Context, userID, bookID int64) error {
	return s.store.WithTx(ctx, func(q store.Queries) error {
		if err := q.RemoveCartItem(ctx, userID, bookID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFound("book %d is not in your cart", bookID)
			}
			return fmt.Errorf("failed to remove from cart: %w", err)
		}
		return nil
	})
}

// GetCart returns the user's cart. Books sold since being added stay listed
// with their current status but do not count towards the subtotal.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*Cart, error) {
	cart := &Cart{Subtotal: decimal.Zero}
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		cart.Items, err = q.ListCartItems(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	for _, item := range cart.Items {
		if item.BookStatus == models.BookStatusAvailable {
			cart.Subtotal = cart.Subtotal.Add(item.SellingPrice)
		}
	}
	return cart, nil
}
