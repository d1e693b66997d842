package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/store"
	"bookmarket-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderService converts carts into paid orders
type OrderService struct {
	store          store.Runner
	cache          BookCache
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service. cache may be nil; sold books are
// evicted from it as soon as the order commits.
func NewOrderService(store store.Runner, cache BookCache, eventPublisher EventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		cache:          cache,
		eventPublisher: publisherOrNop(eventPublisher),
		logger:         util.GetLogger(),
	}
}

// CheckoutRequest represents a request to check out the caller's cart
type CheckoutRequest struct {
	UserID          int64  `json:"-"`
	PaymentMethodID *int64 `json:"payment_method_id,omitempty"`
	IdempotencyKey  string `json:"-"`
}

// CheckoutItem is one purchased book in a checkout response
type CheckoutItem struct {
	BookID      int64           `json:"book_id"`
	Title       string          `json:"title"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
}

// CheckoutResponse represents the order created by a checkout
type CheckoutResponse struct {
	OrderID     int64           `json:"order_id"`
	OrderDate   time.Time       `json:"order_date"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []CheckoutItem  `json:"items"`
	Replayed    bool            `json:"replayed,omitempty"`
}

// OrderDetails is an order with its line items and payment
type OrderDetails struct {
	Order   *models.Order          `json:"order"`
	Items   []models.OrderLineItem `json:"items"`
	Payment *models.Payment        `json:"payment,omitempty"`
}

// Checkout atomically turns the user's cart into an order: every book is
// re-checked under a row lock, priced, marked sold and paid for, and the cart
// is emptied. Any failure leaves no order, no sold book and the cart intact.
func (s *OrderService) Checkout(ctx context.Context, req *CheckoutRequest) (resp *CheckoutResponse, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout", attribute.Int64("user_id", req.UserID))
	defer func() { util.EndSpan(span, err) }()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		replay, err := s.replay(ctx, req.UserID, key)
		if err != nil || replay != nil {
			return replay, err
		}
	}

	if err := s.precheck(ctx, req.UserID); err != nil {
		s.countFailure(err)
		return nil, err
	}

	var (
		order     *models.Order
		lineItems []models.OrderLineItem
	)
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		cart, err := q.ListCartItems(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if len(cart) == 0 {
			return invalidOperation("cart is empty")
		}

		bookIDs := make([]int64, len(cart))
		for i, item := range cart {
			bookIDs[i] = item.BookID
		}

		books, err := q.GetBooksForUpdate(ctx, bookIDs)
		if err != nil {
			return fmt.Errorf("failed to lock books: %w", err)
		}
		if len(books) != len(bookIDs) {
			return invalidOperation("items no longer available")
		}
		for _, book := range books {
			if book.Status != models.BookStatusAvailable {
				return invalidOperation("items no longer available")
			}
		}

		if req.PaymentMethodID != nil {
			if err := s.checkPaymentMethod(ctx, q, req.UserID, *req.PaymentMethodID); err != nil {
				return err
			}
		}

		order = &models.Order{
			UserID:      req.UserID,
			TotalAmount: decimal.Zero,
			Status:      models.OrderStatusNew,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}
		if err := q.CreateOrder(ctx, order); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return conflict("an order with this idempotency key is already being placed")
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		total := decimal.Zero
		lineItems = make([]models.OrderLineItem, 0, len(books))
		for _, book := range books {
			item := models.OrderLineItem{
				OrderID:     order.ID,
				BookID:      book.ID,
				ISBN:        book.ISBN,
				Title:       book.Title,
				PriceAtSale: book.SellingPrice,
			}
			if err := q.CreateOrderLineItem(ctx, &item); err != nil {
				return fmt.Errorf("failed to create line item for book %d: %w", book.ID, err)
			}
			lineItems = append(lineItems, item)
			total = total.Add(book.SellingPrice)
		}

		sold, err := q.MarkBooksSold(ctx, bookIDs)
		if err != nil {
			return fmt.Errorf("failed to mark books sold: %w", err)
		}
		if sold != int64(len(bookIDs)) {
			return invalidOperation("items no longer available")
		}

		if err := q.UpdateOrderTotal(ctx, order.ID, total); err != nil {
			return fmt.Errorf("failed to update order total: %w", err)
		}
		order.TotalAmount = total

		payment := &models.Payment{
			OrderID:         order.ID,
			PaymentMethodID: req.PaymentMethodID,
			Amount:          total,
			Status:          models.PaymentStatusCompleted,
		}
		if err := q.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		if _, err := q.ClearCart(ctx, req.UserID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		s.countFailure(err)
		s.logger.Warn("Checkout failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	util.CheckoutsTotal.Inc()
	util.BooksSoldTotal.Add(float64(len(lineItems)))
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.Int("items", len(lineItems)),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	bookIDs := make([]int64, len(lineItems))
	for i, item := range lineItems {
		bookIDs[i] = item.BookID
	}
	if s.cache != nil {
		if err := s.cache.InvalidateBooks(ctx, bookIDs...); err != nil {
			s.logger.Warn("Failed to evict sold books from cache", zap.Int64s("book_ids", bookIDs), zap.Error(err))
		}
	}
	event := &models.OrderPlacedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderPlaced),
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		BookIDs:     bookIDs,
	}
	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return newCheckoutResponse(order, lineItems), nil
}

// precheck fails fast outside the transaction; the transaction repeats every check
func (s *OrderService) precheck(ctx context.Context, userID int64) error {
	return s.store.View(ctx, func(q store.Queries) error {
		cart, err := q.ListCartItems(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if len(cart) == 0 {
			return invalidOperation("cart is empty")
		}
		for _, item := range cart {
			if item.BookStatus != models.BookStatusAvailable {
				return invalidOperation("items no longer available")
			}
		}
		return nil
	})
}

// replay returns the order already placed under an idempotency key, if any
func (s *OrderService) replay(ctx context.Context, userID int64, key string) (*CheckoutResponse, error) {
	var resp *CheckoutResponse
	err := s.store.View(ctx, func(q store.Queries) error {
		order, err := q.GetOrderByIdempotencyKey(ctx, userID, key)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to check idempotency: %w", err)
		}
		items, err := q.ListOrderLineItems(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to load line items: %w", err)
		}
		resp = newCheckoutResponse(order, items)
		resp.Replayed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if resp != nil {
		s.logger.Info("Duplicate checkout request detected",
			zap.String("idempotency_key", key),
			zap.Int64("order_id", resp.OrderID))
	}
	return resp, nil
}

func (s *OrderService) checkPaymentMethod(ctx context.Context, q store.Queries, userID, id int64) error {
	pm, err := q.GetPaymentMethod(ctx, id)
	if err != nil {
		return lookupErr(err, "payment method", id)
	}
	if pm.UserID != userID {
		return forbidden("payment method %d belongs to another user", id)
	}
	return nil
}

func (s *OrderService) countFailure(err error) {
	reason := "error"
	if kind, ok := KindOf(err); ok {
		reason = string(kind)
	}
	util.CheckoutsFailedTotal.WithLabelValues(reason).Inc()
}

func newCheckoutResponse(order *models.Order, items []models.OrderLineItem) *CheckoutResponse {
	resp := &CheckoutResponse{
		OrderID:     order.ID,
		OrderDate:   order.OrderDate,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Items:       make([]CheckoutItem, len(items)),
	}
	for i, item := range items {
		resp.Items[i] = CheckoutItem{
			BookID:      item.BookID,
			Title:       item.Title,
			PriceAtSale: item.PriceAtSale,
		}
	}
	return resp
}

// GetOrderDetails returns an order owned by the caller
func (s *OrderService) GetOrderDetails(ctx context.Context, orderID, userID int64) (*OrderDetails, error) {
	details := &OrderDetails{}
	err := s.store.View(ctx, func(q store.Queries) error {
		order, err := q.GetOrderByID(ctx, orderID)
		if err != nil {
			return lookupErr(err, "order", orderID)
		}
		if order.UserID != userID {
			return forbidden("order %d belongs to another user", orderID)
		}

		items, err := q.ListOrderLineItems(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load line items: %w", err)
		}

		payment, err := q.GetPaymentByOrderID(ctx, orderID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			payment = nil
		case err != nil:
			return fmt.Errorf("failed to load payment: %w", err)
		}

		details.Order = order
		details.Items = items
		details.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// ListOrders returns the user's order headers, newest first
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		orders, err = q.ListOrdersByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
