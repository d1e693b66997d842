package store

import (
	"context"

	"bookmarket-service/internal/models"

	"github.com/shopspring/decimal"
)

// ListCartItems retrieves a user's cart joined with current book state
func (q *queries) ListCartItems(ctx context.Context, userID int64) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := q.selectAll(ctx, &items, `
		SELECT c.user_id, c.book_id, b.title, b.author, b.selling_price, b.status AS book_status, c.added_at
		FROM cart_items c
		JOIN books b ON b.id = c.book_id
		WHERE c.user_id = $1
		ORDER BY c.added_at, c.book_id`, userID)
	return items, err
}

// AddCartItem puts a book in a user's cart
func (q *queries) AddCartItem(ctx context.Context, userID, bookID int64) error {
	_, err := q.exec(ctx,
		"INSERT INTO cart_items (user_id, book_id) VALUES ($1, $2)", userID, bookID)
	return err
}

// RemoveCartItem takes a book out of a user's cart
func (q *queries) RemoveCartItem(ctx context.Context, userID, bookID int64) error {
	return q.execOne(ctx,
		"DELETE FROM cart_items WHERE user_id = $1 AND book_id = $2", userID, bookID)
}

// ClearCart empties a user's cart
func (q *queries) ClearCart(ctx context.Context, userID int64) (int64, error) {
	return q.exec(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
}

// CreateOrder creates a new order
func (q *queries) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, total_amount, status, idempotency_key)
		VALUES ($1, $2, $3, $4)
		RETURNING id, order_date, updated_at`

	return q.get(ctx, order, query,
		order.UserID, order.TotalAmount, order.Status, order.IdempotencyKey)
}

// UpdateOrderTotal writes the derived order total
func (q *queries) UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	return q.execOne(ctx,
		"UPDATE orders SET total_amount = $1, updated_at = NOW() WHERE id = $2", total, orderID)
}

// GetOrderByID retrieves an order by ID
func (q *queries) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := q.get(ctx, &order, "SELECT * FROM orders WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves a user's order by idempotency key
func (q *queries) GetOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error) {
	var order models.Order
	err := q.get(ctx, &order,
		"SELECT * FROM orders WHERE user_id = $1 AND idempotency_key = $2", userID, key)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByUser retrieves orders for a user
func (q *queries) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := q.selectAll(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY order_date DESC, id DESC", userID)
	return orders, err
}

// CreateOrderLineItem creates a new order line item
func (q *queries) CreateOrderLineItem(ctx context.Context, item *models.OrderLineItem) error {
	query := `
		INSERT INTO order_line_items (order_id, book_id, isbn, title, price_at_sale)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return q.get(ctx, &item.ID, query,
		item.OrderID, item.BookID, item.ISBN, item.Title, item.PriceAtSale)
}

// ListOrderLineItems retrieves all line items for an order
func (q *queries) ListOrderLineItems(ctx context.Context, orderID int64) ([]models.OrderLineItem, error) {
	items := []models.OrderLineItem{}
	err := q.selectAll(ctx, &items,
		"SELECT * FROM order_line_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// CreatePayment creates a new payment record
func (q *queries) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, payment_method_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return q.get(ctx, payment, query,
		payment.OrderID, payment.PaymentMethodID, payment.Amount, payment.Status)
}

// GetPaymentByOrderID retrieves payment for an order
func (q *queries) GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	var payment models.Payment
	err := q.get(ctx, &payment,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1", orderID)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreatePaymentMethod stores a saved card
func (q *queries) CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (user_id, cardholder_name, brand, last4, exp_month, exp_year)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return q.get(ctx, pm, query,
		pm.UserID, pm.CardholderName, pm.Brand, pm.Last4, pm.ExpMonth, pm.ExpYear)
}

// GetPaymentMethod retrieves a saved card by ID
func (q *queries) GetPaymentMethod(ctx context.Context, id int64) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	if err := q.get(ctx, &pm, "SELECT * FROM payment_methods WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &pm, nil
}

// ListPaymentMethods retrieves a user's saved cards
func (q *queries) ListPaymentMethods(ctx context.Context, userID int64) ([]models.PaymentMethod, error) {
	methods := []models.PaymentMethod{}
	err := q.selectAll(ctx, &methods,
		"SELECT * FROM payment_methods WHERE user_id = $1 ORDER BY id", userID)
	return methods, err
}

// DeletePaymentMethod removes a saved card
func (q *queries) DeletePaymentMethod(ctx context.Context, id int64) error {
	return q.execOne(ctx, "DELETE FROM payment_methods WHERE id = $1", id)
}
